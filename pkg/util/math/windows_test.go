// SPDX-License-Identifier: AGPL-3.0-only

package math

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingSum_AddAndEvict(t *testing.T) {
	r := NewRollingSum(3)

	evicted, full := r.Add(1)
	assert.False(t, full)
	assert.Zero(t, evicted)
	r.Add(2)
	r.Add(3)
	assert.Equal(t, 3, r.Size())
	assert.Equal(t, 2.0, r.Mean())

	evicted, full = r.Add(10)
	assert.True(t, full)
	assert.Equal(t, 1.0, evicted)
	assert.Equal(t, 5.0, r.Mean())
}

func TestRollingSum_CalculateCV(t *testing.T) {
	r := NewRollingSum(8)

	cv, mean, variance := r.CalculateCV()
	assert.True(t, math.IsNaN(cv))
	assert.True(t, math.IsNaN(mean))
	assert.True(t, math.IsNaN(variance))

	r.Add(100)
	cv, _, _ = r.CalculateCV()
	assert.True(t, math.IsNaN(cv), "one sample is not enough")

	// Identical samples have zero variance.
	r.Add(100)
	r.Add(100)
	cv, mean, variance = r.CalculateCV()
	require.False(t, math.IsNaN(cv))
	assert.Equal(t, 0.0, cv)
	assert.Equal(t, 100.0, mean)
	assert.Equal(t, 0.0, variance)
}

func TestRollingSum_CVReflectsSpread(t *testing.T) {
	steady := NewRollingSum(4)
	noisy := NewRollingSum(4)
	for _, v := range []float64{100, 101, 99, 100} {
		steady.Add(v)
	}
	for _, v := range []float64{100, 500, 20, 300} {
		noisy.Add(v)
	}
	steadyCV, _, _ := steady.CalculateCV()
	noisyCV, _, _ := noisy.CalculateCV()
	assert.Less(t, steadyCV, 0.01)
	assert.Greater(t, noisyCV, 0.5)
}

func TestRollingSum_Reset(t *testing.T) {
	r := NewRollingSum(2)
	r.Add(5)
	r.Add(6)
	r.Reset()
	assert.Zero(t, r.Size())
	assert.True(t, math.IsNaN(r.Mean()))
}
