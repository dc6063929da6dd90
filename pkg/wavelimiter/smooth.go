// SPDX-License-Identifier: AGPL-3.0-only

package wavelimiter

import (
	"math"

	math2 "github.com/cgmb/ROCclr/pkg/util/math"
)

type roundOutcome int

const (
	roundBetter roundOutcome = iota
	roundNoImprovement
	roundDiscontinuous
)

func (o roundOutcome) String() string {
	switch o {
	case roundBetter:
		return "better"
	case roundNoImprovement:
		return "no_improvement"
	case roundDiscontinuous:
		return "discontinuous"
	default:
		return "unknown"
	}
}

// wlAlgorithmSmooth is the smooth decision strategy: each adaptation round
// collects AdaptCount samples at the best-known wave count (reference) and
// AdaptCount samples at a candidate wave count (trial), then compares their
// average durations. Candidates walk away from the best wave count one step
// at a time, downward first, then upward.
//
// This type is not concurrency safe; the owning controller serializes access.
type wlAlgorithmSmooth struct {
	cfg       *Config
	reference *math2.RollingSum
	trial     *math2.RollingSum

	candidate uint32 // 0 when no candidate remains
	dir       int64

	inconclusive  uint // discarded rounds in this adaptation phase
	noImprovement uint // consecutive rounds that kept the prior best
}

func newSmoothAlgorithm(cfg *Config) *wlAlgorithmSmooth {
	return &wlAlgorithmSmooth{
		cfg:       cfg,
		reference: math2.NewRollingSum(cfg.AdaptCount),
		trial:     math2.NewRollingSum(cfg.AdaptCount),
	}
}

// reset starts a fresh adaptation phase exploring below best, or above it
// when best already sits on the lower bound.
func (a *wlAlgorithmSmooth) reset(best uint32) {
	a.reference.Reset()
	a.trial.Reset()
	a.inconclusive = 0
	a.noImprovement = 0
	a.dir = -1
	a.candidate = a.neighbor(best)
	if a.candidate == 0 {
		a.dir = 1
		a.candidate = a.neighbor(best)
	}
}

// neighbor returns the next untested wave count adjacent to best in the
// current walk direction, or 0 when the direction is exhausted.
func (a *wlAlgorithmSmooth) neighbor(best uint32) uint32 {
	c := int64(best) + a.dir
	if c >= 1 && c <= int64(a.cfg.MaxWavesPerSimd) {
		return uint32(c)
	}
	return 0
}

// wanted returns the wave count the next dispatch should use: the reference
// buffer fills first, then the trial buffer.
func (a *wlAlgorithmSmooth) wanted(best uint32) uint32 {
	if a.candidate == 0 || a.reference.Size() < int(a.cfg.AdaptCount) {
		return best
	}
	return a.candidate
}

func (a *wlAlgorithmSmooth) roundComplete() bool {
	return a.candidate != 0 &&
		a.reference.Size() >= int(a.cfg.AdaptCount) &&
		a.trial.Size() >= int(a.cfg.AdaptCount)
}

// scoreRound judges a completed round. The round is discontinuous when the
// sample spread inside either buffer exceeds DscThresh, which typically means
// the device was perturbed by something other than the wave count.
func (a *wlAlgorithmSmooth) scoreRound() roundOutcome {
	refCV, refMean, _ := a.reference.CalculateCV()
	trialCV, trialMean, _ := a.trial.CalculateCV()
	if math.IsNaN(refCV) || math.IsNaN(trialCV) || refCV > a.cfg.DscThresh || trialCV > a.cfg.DscThresh {
		return roundDiscontinuous
	}
	if trialMean < refMean*(1-a.cfg.RatioMargin) {
		return roundBetter
	}
	return roundNoImprovement
}

// discardRound throws away both buffers and retries the same candidate.
func (a *wlAlgorithmSmooth) discardRound() {
	a.reference.Reset()
	a.trial.Reset()
	a.inconclusive++
}

// promote makes the candidate the new best. The trial samples become the
// reference for the next round and the walk continues in the same direction.
func (a *wlAlgorithmSmooth) promote() uint32 {
	best := a.candidate
	a.reference, a.trial = a.trial, a.reference
	a.trial.Reset()
	a.noImprovement = 0
	a.candidate = a.neighbor(best)
	return best
}

// keepBest records a round without improvement and moves to the next
// candidate, reversing the walk direction once the current one is exhausted.
func (a *wlAlgorithmSmooth) keepBest(best uint32) {
	a.trial.Reset()
	a.noImprovement++
	if a.dir < 0 {
		a.dir = 1
		a.candidate = a.neighbor(best)
		return
	}
	a.candidate = 0
}

// converged reports whether exploration is done: enough consecutive rounds
// without improvement, or no candidate left to test.
func (a *wlAlgorithmSmooth) converged() bool {
	return a.candidate == 0 || a.noImprovement >= a.cfg.ConvergenceRounds
}

// abandon reports whether too many rounds were discarded to keep trying.
func (a *wlAlgorithmSmooth) abandon() bool {
	return a.inconclusive > a.cfg.AbandonThresh
}

// referenceMean is the smoothed duration at the best wave count, NaN when no
// reference samples survived the phase.
func (a *wlAlgorithmSmooth) referenceMean() float64 {
	return a.reference.Mean()
}
