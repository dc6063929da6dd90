// SPDX-License-Identifier: AGPL-3.0-only

package wavelimiter

// State is the phase of a wave limiter's control loop.
type State int

const (
	// StateWarmup ignores the first completions after creation while caches
	// warm up; the recommendation is pinned at the maximum wave count.
	StateWarmup State = iota

	// StateAdapt explores alternative wave counts by comparing smoothed
	// execution times of a trial wave count against the current best.
	StateAdapt

	// StateRun holds the best wave count found, watching for drift.
	StateRun
)

func (s State) String() string {
	switch s {
	case StateWarmup:
		return "warmup"
	case StateAdapt:
		return "adapt"
	case StateRun:
		return "run"
	default:
		return "unknown"
	}
}

// malformedTraceCode tags trace lines for profiling samples rejected before
// reaching the control loop.
const malformedTraceCode = 'M'

// traceCode is the single-character state tag written to trace files.
func (s State) traceCode() byte {
	switch s {
	case StateWarmup:
		return 'W'
	case StateAdapt:
		return 'A'
	case StateRun:
		return 'R'
	default:
		return '?'
	}
}
