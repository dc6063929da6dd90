// SPDX-License-Identifier: AGPL-3.0-only

package gpu

import (
	"github.com/pkg/errors"
)

// Generation orders the supported hardware generations. Comparisons against
// it replace the cascading per-ASIC fallthrough of the original settings
// code: a capability that applies to "CI and later" is a single >= check.
type Generation int

const (
	GenerationEvergreen Generation = iota
	GenerationNorthernIslands
	GenerationSouthernIslands
	GenerationSeaIslands
	GenerationVolcanicIslands
	GenerationArcticIslands
)

func (g Generation) String() string {
	switch g {
	case GenerationEvergreen:
		return "evergreen"
	case GenerationNorthernIslands:
		return "northern islands"
	case GenerationSouthernIslands:
		return "southern islands"
	case GenerationSeaIslands:
		return "sea islands"
	case GenerationVolcanicIslands:
		return "volcanic islands"
	case GenerationArcticIslands:
		return "arctic islands"
	default:
		return "unknown"
	}
}

// capability is one row of the per-ASIC table. Every target gets exactly one
// row; there is no fallthrough between rows.
type capability struct {
	generation       Generation
	simdPerSH        uint32
	apu              bool
	reportFMAF       bool
	computeRings     uint32
	maxWorkGroupSize uint32
}

var capabilities = map[Target]capability{
	// Evergreen. Cedar is capped at a 128 workgroup.
	TargetCedar:     {generation: GenerationEvergreen, simdPerSH: 2, maxWorkGroupSize: 128},
	TargetRedwood:   {generation: GenerationEvergreen, simdPerSH: 5, maxWorkGroupSize: 256},
	TargetJuniper:   {generation: GenerationEvergreen, simdPerSH: 10, maxWorkGroupSize: 256},
	TargetCypress:   {generation: GenerationEvergreen, simdPerSH: 10, maxWorkGroupSize: 256},
	TargetSumo:      {generation: GenerationEvergreen, simdPerSH: 5, apu: true, maxWorkGroupSize: 256},
	TargetSuperSumo: {generation: GenerationEvergreen, simdPerSH: 4, apu: true, maxWorkGroupSize: 256},
	TargetWrestler:  {generation: GenerationEvergreen, simdPerSH: 2, apu: true, maxWorkGroupSize: 256},

	// Northern Islands.
	TargetCaicos:     {generation: GenerationNorthernIslands, simdPerSH: 2, maxWorkGroupSize: 256},
	TargetTurks:      {generation: GenerationNorthernIslands, simdPerSH: 6, maxWorkGroupSize: 256},
	TargetBarts:      {generation: GenerationNorthernIslands, simdPerSH: 7, maxWorkGroupSize: 256},
	TargetCayman:     {generation: GenerationNorthernIslands, simdPerSH: 12, maxWorkGroupSize: 256},
	TargetKauai:      {generation: GenerationNorthernIslands, simdPerSH: 3, maxWorkGroupSize: 256},
	TargetDevastator: {generation: GenerationNorthernIslands, simdPerSH: 4, apu: true, maxWorkGroupSize: 256},
	TargetScrapper:   {generation: GenerationNorthernIslands, simdPerSH: 3, apu: true, maxWorkGroupSize: 256},

	// Southern Islands: 4 SIMDs per CU from here on.
	TargetTahiti:    {generation: GenerationSouthernIslands, simdPerSH: 16, computeRings: 2, maxWorkGroupSize: 256},
	TargetPitcairn:  {generation: GenerationSouthernIslands, simdPerSH: 10, computeRings: 2, maxWorkGroupSize: 256},
	TargetCapeVerde: {generation: GenerationSouthernIslands, simdPerSH: 10, computeRings: 2, maxWorkGroupSize: 256},
	TargetOland:     {generation: GenerationSouthernIslands, simdPerSH: 6, computeRings: 2, maxWorkGroupSize: 256},
	TargetHainan:    {generation: GenerationSouthernIslands, simdPerSH: 5, computeRings: 2, maxWorkGroupSize: 256},

	// Sea Islands. Hawaii is the only part reporting fast FMAF.
	TargetBonaire:  {generation: GenerationSeaIslands, simdPerSH: 14, computeRings: 8, maxWorkGroupSize: 256},
	TargetHawaii:   {generation: GenerationSeaIslands, simdPerSH: 11, reportFMAF: true, computeRings: 8, maxWorkGroupSize: 256},
	TargetKalindi:  {generation: GenerationSeaIslands, simdPerSH: 8, apu: true, computeRings: 8, maxWorkGroupSize: 256},
	TargetSpectre:  {generation: GenerationSeaIslands, simdPerSH: 8, apu: true, computeRings: 8, maxWorkGroupSize: 256},
	TargetSpooky:   {generation: GenerationSeaIslands, simdPerSH: 4, apu: true, computeRings: 8, maxWorkGroupSize: 256},
	TargetGodavari: {generation: GenerationSeaIslands, simdPerSH: 8, apu: true, computeRings: 8, maxWorkGroupSize: 256},

	// Volcanic Islands.
	TargetIceland:   {generation: GenerationVolcanicIslands, simdPerSH: 6, computeRings: 8, maxWorkGroupSize: 256},
	TargetTonga:     {generation: GenerationVolcanicIslands, simdPerSH: 16, computeRings: 8, maxWorkGroupSize: 256},
	TargetCarrizo:   {generation: GenerationVolcanicIslands, simdPerSH: 8, apu: true, computeRings: 8, maxWorkGroupSize: 256},
	TargetFiji:      {generation: GenerationVolcanicIslands, simdPerSH: 16, computeRings: 8, maxWorkGroupSize: 256},
	TargetEllesmere: {generation: GenerationVolcanicIslands, simdPerSH: 18, computeRings: 8, maxWorkGroupSize: 256},
	TargetBaffin:    {generation: GenerationVolcanicIslands, simdPerSH: 8, computeRings: 8, maxWorkGroupSize: 256},

	// Arctic Islands.
	TargetGreenland: {generation: GenerationArcticIslands, simdPerSH: 16, computeRings: 8, maxWorkGroupSize: 256},
}

// Settings is the capability view consumed by the rest of the runtime. It is
// immutable after creation.
type Settings struct {
	target Target
	cap    capability
}

// NewSettings resolves the capability record for target. Unknown targets are
// an error, not a fallback: dispatch code must not run with guessed limits.
func NewSettings(target Target) (*Settings, error) {
	c, ok := capabilities[target]
	if !ok {
		return nil, errors.Errorf("no capability record for ASIC target %s", target)
	}
	return &Settings{target: target, cap: c}, nil
}

func (s *Settings) Target() Target         { return s.target }
func (s *Settings) Generation() Generation { return s.cap.generation }

// SimdPerSH returns the number of SIMD units per shader array.
func (s *Settings) SimdPerSH() uint32 { return s.cap.simdPerSH }

// SIPlus reports whether the device is Southern Islands or later.
func (s *Settings) SIPlus() bool { return s.cap.generation >= GenerationSouthernIslands }

// CIPlus reports whether the device is Sea Islands or later. Adaptive wave
// limiting requires CI-class hardware.
func (s *Settings) CIPlus() bool { return s.cap.generation >= GenerationSeaIslands }

// VIPlus reports whether the device is Volcanic Islands or later.
func (s *Settings) VIPlus() bool { return s.cap.generation >= GenerationVolcanicIslands }

// AIPlus reports whether the device is Arctic Islands or later.
func (s *Settings) AIPlus() bool { return s.cap.generation >= GenerationArcticIslands }

// APU reports whether the device shares memory with the host.
func (s *Settings) APU() bool { return s.cap.apu }

// ReportFMAF reports whether single precision FMA is fast on this part.
func (s *Settings) ReportFMAF() bool { return s.cap.reportFMAF }

// ComputeRings returns the number of hardware compute rings.
func (s *Settings) ComputeRings() uint32 { return s.cap.computeRings }

// MaxWorkGroupSize returns the largest reportable workgroup size.
func (s *Settings) MaxWorkGroupSize() uint32 { return s.cap.maxWorkGroupSize }
