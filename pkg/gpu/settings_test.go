// SPDX-License-Identifier: AGPL-3.0-only

package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSettings_EveryTargetHasACapabilityRecord(t *testing.T) {
	for _, target := range Targets() {
		s, err := NewSettings(target)
		require.NoError(t, err, "target %s", target)
		assert.GreaterOrEqual(t, s.SimdPerSH(), uint32(1), "target %s", target)
		assert.GreaterOrEqual(t, s.MaxWorkGroupSize(), uint32(128), "target %s", target)
	}
}

func TestNewSettings_UnknownTarget(t *testing.T) {
	_, err := NewSettings(TargetUnknown)
	assert.Error(t, err)
}

func TestSettings_GenerationOrdering(t *testing.T) {
	tests := map[string]struct {
		target Target
		siPlus bool
		ciPlus bool
		viPlus bool
		aiPlus bool
	}{
		"cypress is pre-SI":        {target: TargetCypress},
		"cayman is pre-SI":         {target: TargetCayman},
		"tahiti is SI only":        {target: TargetTahiti, siPlus: true},
		"hawaii is CI":             {target: TargetHawaii, siPlus: true, ciPlus: true},
		"fiji is VI":               {target: TargetFiji, siPlus: true, ciPlus: true, viPlus: true},
		"greenland is AI":          {target: TargetGreenland, siPlus: true, ciPlus: true, viPlus: true, aiPlus: true},
		"spectre APU is CI":        {target: TargetSpectre, siPlus: true, ciPlus: true},
		"carrizo APU is VI":        {target: TargetCarrizo, siPlus: true, ciPlus: true, viPlus: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s, err := NewSettings(tc.target)
			require.NoError(t, err)
			assert.Equal(t, tc.siPlus, s.SIPlus())
			assert.Equal(t, tc.ciPlus, s.CIPlus())
			assert.Equal(t, tc.viPlus, s.VIPlus())
			assert.Equal(t, tc.aiPlus, s.AIPlus())
		})
	}
}

func TestSettings_TableValues(t *testing.T) {
	hawaii, err := NewSettings(TargetHawaii)
	require.NoError(t, err)
	assert.Equal(t, TargetHawaii, hawaii.Target())
	assert.Equal(t, GenerationSeaIslands, hawaii.Generation())
	assert.True(t, hawaii.ReportFMAF())
	assert.False(t, hawaii.APU())
	assert.Equal(t, uint32(8), hawaii.ComputeRings())

	cedar, err := NewSettings(TargetCedar)
	require.NoError(t, err)
	assert.Equal(t, uint32(128), cedar.MaxWorkGroupSize())
	assert.Zero(t, cedar.ComputeRings())

	spectre, err := NewSettings(TargetSpectre)
	require.NoError(t, err)
	assert.True(t, spectre.APU())
}

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget(" Hawaii ")
	require.NoError(t, err)
	assert.Equal(t, TargetHawaii, target)

	_, err = ParseTarget("navi")
	assert.Error(t, err)
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "tonga", TargetTonga.String())
	assert.Equal(t, "target(-1)", Target(-1).String())
}
