// SPDX-License-Identifier: AGPL-3.0-only

package math

// Ewma computes an exponentially weighted moving average over a logical
// window of samples. Until warmupSamples values have been added, Value
// returns the running arithmetic mean, which avoids biasing the average
// towards whatever the first sample happened to be.
//
// This type is not concurrency safe.
type Ewma struct {
	alpha         float64
	value         float64
	sum           float64
	count         uint
	warmupSamples uint8
}

func NewEwma(windowSize uint, warmupSamples uint8) Ewma {
	return Ewma{
		alpha:         2 / (float64(windowSize) + 1),
		warmupSamples: warmupSamples,
	}
}

// Add folds value into the average and returns the updated average.
func (e *Ewma) Add(value float64) float64 {
	e.count++
	if e.count <= uint(e.warmupSamples) {
		e.sum += value
		e.value = e.sum / float64(e.count)
	} else {
		e.value += e.alpha * (value - e.value)
	}
	return e.value
}

func (e *Ewma) Value() float64 {
	return e.value
}

// Reset discards all accumulated history, including warmup progress.
func (e *Ewma) Reset() {
	e.value = 0
	e.sum = 0
	e.count = 0
}

// Size returns the number of samples added since creation or the last Reset.
func (e *Ewma) Size() uint {
	return e.count
}
