// SPDX-License-Identifier: AGPL-3.0-only

package math

import (
	"sort"
)

// MedianFilter suppresses isolated spikes by returning the median over a
// rolling window. Until the window has filled, Add passes values through
// unchanged.
//
// This type is not concurrency safe.
type MedianFilter struct {
	window  []float64
	scratch []float64
	next    int
	filled  int
}

func NewMedianFilter(size int) *MedianFilter {
	if size < 1 {
		size = 1
	}
	return &MedianFilter{
		window:  make([]float64, size),
		scratch: make([]float64, size),
	}
}

// Add inserts value into the window and returns the filtered result.
func (f *MedianFilter) Add(value float64) float64 {
	f.window[f.next] = value
	f.next = (f.next + 1) % len(f.window)
	if f.filled < len(f.window) {
		f.filled++
	}
	if f.filled < len(f.window) {
		return value
	}
	copy(f.scratch, f.window)
	sort.Float64s(f.scratch)
	return f.scratch[len(f.scratch)/2]
}

// Reset empties the window; subsequent Adds pass through until it refills.
func (f *MedianFilter) Reset() {
	f.next = 0
	f.filled = 0
}
