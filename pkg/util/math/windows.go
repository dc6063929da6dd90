// SPDX-License-Identifier: AGPL-3.0-only

package math

import (
	"math"
)

// RollingSum maintains the sum and sum of squares over a rolling window of
// values, which is enough to derive the mean, variance and coefficient of
// variation without rescanning the window.
//
// This type is not concurrency safe.
type RollingSum struct {
	samples    []float64
	size       int
	next       int
	sum        float64
	sumSquares float64
}

func NewRollingSum(capacity uint) *RollingSum {
	return &RollingSum{samples: make([]float64, capacity)}
}

// Add inserts value into the window, evicting the oldest value once the
// window is full. It returns the evicted value and whether the window was
// full before the insert.
func (r *RollingSum) Add(value float64) (evicted float64, full bool) {
	if r.size == len(r.samples) {
		full = true
		evicted = r.samples[r.next]
		r.sum -= evicted
		r.sumSquares -= evicted * evicted
	} else {
		r.size++
	}
	r.samples[r.next] = value
	r.sum += value
	r.sumSquares += value * value
	r.next = (r.next + 1) % len(r.samples)
	return evicted, full
}

// Size returns the number of values currently in the window.
func (r *RollingSum) Size() int {
	return r.size
}

// Mean returns the arithmetic mean of the window, or NaN when empty.
func (r *RollingSum) Mean() float64 {
	if r.size == 0 {
		return math.NaN()
	}
	return r.sum / float64(r.size)
}

// CalculateCV returns the coefficient of variation, mean and variance of the
// window. All three are NaN when fewer than 2 samples are present, when the
// mean is 0, or when rounding pushes the variance negative.
func (r *RollingSum) CalculateCV() (cv, mean, variance float64) {
	if r.size < 2 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	mean = r.sum / float64(r.size)
	variance = (r.sumSquares / float64(r.size)) - (mean * mean)
	if variance < 0 || mean == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	return math.Sqrt(variance) / mean, mean, variance
}

// Reset empties the window.
func (r *RollingSum) Reset() {
	r.size = 0
	r.next = 0
	r.sum = 0
	r.sumSquares = 0
	for i := range r.samples {
		r.samples[i] = 0
	}
}
