// SPDX-License-Identifier: AGPL-3.0-only

package gpu

import (
	"fmt"
	"strings"
)

// Target identifies an ASIC family as reported by the driver.
type Target int

const (
	TargetUnknown Target = iota

	// Evergreen.
	TargetCedar
	TargetRedwood
	TargetJuniper
	TargetCypress
	TargetSumo
	TargetSuperSumo
	TargetWrestler

	// Northern Islands.
	TargetCaicos
	TargetTurks
	TargetBarts
	TargetCayman
	TargetKauai
	TargetDevastator
	TargetScrapper

	// Southern Islands.
	TargetTahiti
	TargetPitcairn
	TargetCapeVerde
	TargetOland
	TargetHainan

	// Sea Islands.
	TargetBonaire
	TargetHawaii
	TargetKalindi
	TargetSpectre
	TargetSpooky
	TargetGodavari

	// Volcanic Islands.
	TargetIceland
	TargetTonga
	TargetCarrizo
	TargetFiji
	TargetEllesmere
	TargetBaffin

	// Arctic Islands.
	TargetGreenland
)

var targetNames = map[Target]string{
	TargetCedar:      "cedar",
	TargetRedwood:    "redwood",
	TargetJuniper:    "juniper",
	TargetCypress:    "cypress",
	TargetSumo:       "sumo",
	TargetSuperSumo:  "supersumo",
	TargetWrestler:   "wrestler",
	TargetCaicos:     "caicos",
	TargetTurks:      "turks",
	TargetBarts:      "barts",
	TargetCayman:     "cayman",
	TargetKauai:      "kauai",
	TargetDevastator: "devastator",
	TargetScrapper:   "scrapper",
	TargetTahiti:     "tahiti",
	TargetPitcairn:   "pitcairn",
	TargetCapeVerde:  "capeverde",
	TargetOland:      "oland",
	TargetHainan:     "hainan",
	TargetBonaire:    "bonaire",
	TargetHawaii:     "hawaii",
	TargetKalindi:    "kalindi",
	TargetSpectre:    "spectre",
	TargetSpooky:     "spooky",
	TargetGodavari:   "godavari",
	TargetIceland:    "iceland",
	TargetTonga:      "tonga",
	TargetCarrizo:    "carrizo",
	TargetFiji:       "fiji",
	TargetEllesmere:  "ellesmere",
	TargetBaffin:     "baffin",
	TargetGreenland:  "greenland",
}

func (t Target) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}
	return fmt.Sprintf("target(%d)", int(t))
}

// ParseTarget resolves an ASIC name, case insensitively.
func ParseTarget(name string) (Target, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range targetNames {
		if n == name {
			return t, nil
		}
	}
	return TargetUnknown, fmt.Errorf("unknown ASIC target %q", name)
}

// Targets returns all known targets, for table-completeness checks and
// enumeration in tooling.
func Targets() []Target {
	out := make([]Target, 0, len(targetNames))
	for t := range targetNames {
		out = append(out, t)
	}
	return out
}
