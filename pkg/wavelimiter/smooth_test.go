// SPDX-License-Identifier: AGPL-3.0-only

package wavelimiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmooth_CandidateWalk(t *testing.T) {
	cfg := testConfig()
	a := newSmoothAlgorithm(&cfg)

	a.reset(10)
	assert.Equal(t, uint32(9), a.candidate, "exploration starts below the best")

	// Promotion keeps walking in the same direction.
	fillBuffers(a, 2000, 1500)
	require.Equal(t, roundBetter, a.scoreRound())
	best := a.promote()
	assert.Equal(t, uint32(9), best)
	assert.Equal(t, uint32(8), a.candidate)
	assert.Equal(t, int(cfg.AdaptCount), a.reference.Size(), "trial samples become the new reference")
	assert.Zero(t, a.trial.Size())

	// A kept best reverses the direction once.
	a.keepBest(best)
	assert.Equal(t, uint32(10), a.candidate)
	a.keepBest(best)
	assert.Zero(t, a.candidate)
	assert.True(t, a.converged())
}

func TestSmooth_ResetAtLowerBoundWalksUpward(t *testing.T) {
	cfg := testConfig()
	a := newSmoothAlgorithm(&cfg)

	a.reset(1)
	assert.Equal(t, uint32(2), a.candidate, "no room below the best, so exploration starts above it")
	assert.Equal(t, int64(1), a.dir)

	// With a single permitted wave count there is nothing to explore at all.
	cfg.MaxWavesPerSimd = 1
	a.reset(1)
	assert.Zero(t, a.candidate)
	assert.True(t, a.converged())
}

func TestSmooth_WantedFillsReferenceFirst(t *testing.T) {
	cfg := testConfig()
	a := newSmoothAlgorithm(&cfg)
	a.reset(10)

	assert.Equal(t, uint32(10), a.wanted(10))
	for i := uint(0); i < cfg.AdaptCount; i++ {
		a.reference.Add(1000)
	}
	assert.Equal(t, uint32(9), a.wanted(10))
}

func TestSmooth_ScoreRound(t *testing.T) {
	cfg := testConfig()

	tests := map[string]struct {
		reference []float64
		trial     []float64
		expected  roundOutcome
	}{
		"clear improvement": {
			reference: []float64{2000, 2010, 1990, 2000},
			trial:     []float64{1500, 1510, 1490, 1500},
			expected:  roundBetter,
		},
		"improvement inside the margin": {
			reference: []float64{2000, 2000, 2000, 2000},
			trial:     []float64{1950, 1950, 1950, 1950},
			expected:  roundNoImprovement,
		},
		"regression": {
			reference: []float64{1000, 1000, 1000, 1000},
			trial:     []float64{1500, 1500, 1500, 1500},
			expected:  roundNoImprovement,
		},
		"noisy reference": {
			reference: []float64{1000, 3000, 1000, 3000},
			trial:     []float64{1500, 1500, 1500, 1500},
			expected:  roundDiscontinuous,
		},
		"noisy trial": {
			reference: []float64{2000, 2000, 2000, 2000},
			trial:     []float64{100, 5000, 100, 5000},
			expected:  roundDiscontinuous,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			a := newSmoothAlgorithm(&cfg)
			a.reset(10)
			for _, v := range tc.reference {
				a.reference.Add(v)
			}
			for _, v := range tc.trial {
				a.trial.Add(v)
			}
			require.True(t, a.roundComplete())
			assert.Equal(t, tc.expected, a.scoreRound())
		})
	}
}

func TestSmooth_DiscardRoundCountsTowardsAbandonment(t *testing.T) {
	cfg := testConfig()
	cfg.AbandonThresh = 2
	a := newSmoothAlgorithm(&cfg)
	a.reset(10)

	for i := 0; i < 3; i++ {
		assert.False(t, a.abandon())
		fillBuffers(a, 1000, 1000)
		a.discardRound()
		assert.Zero(t, a.reference.Size())
		assert.Zero(t, a.trial.Size())
		assert.Equal(t, uint32(9), a.candidate, "a discarded round retries the same candidate")
	}
	assert.True(t, a.abandon())
}

func fillBuffers(a *wlAlgorithmSmooth, refValue, trialValue float64) {
	for i := uint(0); i < a.cfg.AdaptCount; i++ {
		a.reference.Add(refValue)
		a.trial.Add(trialValue)
	}
}
