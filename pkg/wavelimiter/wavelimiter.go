// SPDX-License-Identifier: AGPL-3.0-only

package wavelimiter

import (
	"math"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"

	math2 "github.com/cgmb/ROCclr/pkg/util/math"
)

// ContextID identifies an execution context: an independent stream of kernel
// dispatches, such as a command queue. IDs are assigned by the caller and
// must be stable for the context's lifetime.
type ContextID uint64

// ProfilingCallback receives completed-dispatch timing from the profiling
// pipeline. Implementations must be called exactly once per completion, with
// the wave count the dispatch actually used.
type ProfilingCallback interface {
	Callback(duration uint64, wavesUsed uint32)
}

const (
	runFilterSize = 5
	runEwmaWarmup = 4
)

// WaveLimiter adaptively limits the number of waves per SIMD for one
// (kernel, execution context) pair, based on observed execution times.
//
// WavesPerSH is safe to call concurrently with Callback; Callback itself is
// serialized by the limiter's own mutex, never by the owning manager's.
type WaveLimiter struct {
	logger  log.Logger
	cfg     *Config
	kernel  string
	context ContextID

	// The current recommendation, readable without taking mu.
	waves atomic.Uint32

	mu        sync.Mutex
	state     State
	countAll  uint64
	bestWave  uint32
	bestMean  float64 // smoothed duration at bestWave when RUN was entered
	abandoned bool

	smooth *wlAlgorithmSmooth

	// Run-phase drift detection.
	runFilter  *math2.MedianFilter
	runAvg     math2.Ewma
	runSamples uint

	adaptRounds      [3]uint64 // indexed by roundOutcome
	malformedSamples uint64

	tracer *dataTracer
}

func newWaveLimiter(kernel string, context ContextID, cfg *Config, tracer *dataTracer, logger log.Logger) *WaveLimiter {
	w := &WaveLimiter{
		logger:    log.With(logger, "kernel", kernel, "context", context),
		cfg:       cfg,
		kernel:    kernel,
		context:   context,
		state:     StateWarmup,
		bestWave:  uint32(cfg.MaxWavesPerSimd),
		smooth:    newSmoothAlgorithm(cfg),
		runFilter: math2.NewMedianFilter(runFilterSize),
		runAvg:    math2.NewEwma(cfg.RunCount, runEwmaWarmup),
		tracer:    tracer,
	}
	w.waves.Store(w.bestWave)
	return w
}

// WavesPerSH returns the wave count the next dispatch should request. It is
// a bounded-time read with no side effects, always in [1, MaxWavesPerSimd].
func (w *WaveLimiter) WavesPerSH() uint32 {
	return w.waves.Load()
}

// Callback folds one completed dispatch into the limiter. Out-of-range wave
// counts and zero durations are malformed profiling data: counted, traced,
// logged, and excluded from the decision algorithm.
func (w *WaveLimiter) Callback(duration uint64, wavesUsed uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if duration == 0 || wavesUsed == 0 || wavesUsed > uint32(w.cfg.MaxWavesPerSimd) {
		w.malformedSamples++
		w.tracer.observe(duration, wavesUsed, malformedTraceCode)
		level.Debug(w.logger).Log("msg", "dropping malformed profiling sample", "duration", duration, "waves", wavesUsed)
		return
	}

	w.countAll++
	w.tracer.observe(duration, wavesUsed, w.state.traceCode())

	switch w.state {
	case StateWarmup:
		w.warmupStep()
	case StateAdapt:
		w.adaptStep(duration, wavesUsed)
	case StateRun:
		w.runStep(duration, wavesUsed)
	}
}

func (w *WaveLimiter) warmupStep() {
	if w.countAll >= uint64(w.cfg.WarmUpCount) {
		w.enterAdapt()
	}
}

func (w *WaveLimiter) adaptStep(duration uint64, wavesUsed uint32) {
	// Route the sample. Completions at any other wave count belong to
	// pipelined dispatches issued before the last recommendation change and
	// take no part in the current round.
	switch wavesUsed {
	case w.bestWave:
		w.smooth.reference.Add(float64(duration))
	case w.smooth.candidate:
		w.smooth.trial.Add(float64(duration))
	}

	if w.smooth.roundComplete() {
		outcome := w.smooth.scoreRound()
		w.adaptRounds[outcome]++
		switch outcome {
		case roundDiscontinuous:
			w.smooth.discardRound()
			if w.smooth.abandon() {
				w.abandoned = true
				level.Debug(w.logger).Log("msg", "adaptation abandoned", "discarded_rounds", w.smooth.inconclusive, "best", w.bestWave)
				w.enterRun()
				return
			}
		case roundBetter:
			w.bestWave = w.smooth.promote()
			level.Debug(w.logger).Log("msg", "adopted better wave count", "best", w.bestWave)
		case roundNoImprovement:
			w.smooth.keepBest(w.bestWave)
		}
		if w.smooth.converged() {
			w.enterRun()
			return
		}
	}

	w.waves.Store(w.smooth.wanted(w.bestWave))
}

func (w *WaveLimiter) runStep(duration uint64, wavesUsed uint32) {
	if wavesUsed != w.bestWave {
		return
	}
	smoothed := w.runAvg.Add(w.runFilter.Add(float64(duration)))
	w.runSamples++
	if w.abandoned || w.bestMean == 0 || w.runSamples < w.cfg.RunCount {
		return
	}
	w.runSamples = 0
	if smoothed > w.bestMean*(1+w.cfg.RatioMargin) {
		level.Debug(w.logger).Log("msg", "drift detected, re-adapting", "best", w.bestWave, "best_mean", w.bestMean, "smoothed", smoothed)
		w.enterAdapt()
	}
}

func (w *WaveLimiter) enterAdapt() {
	w.smooth.reset(w.bestWave)
	if w.smooth.candidate == 0 {
		// Nothing to explore (MaxWavesPerSimd of 1).
		w.enterRun()
		return
	}
	w.state = StateAdapt
	w.waves.Store(w.smooth.wanted(w.bestWave))
	level.Debug(w.logger).Log("msg", "state change", "state", w.state, "best", w.bestWave)
}

func (w *WaveLimiter) enterRun() {
	w.state = StateRun
	// An empty reference buffer, as after a degenerate adaptation phase with
	// nothing to explore, keeps the previous smoothed duration.
	if mean := w.smooth.referenceMean(); !math.IsNaN(mean) {
		w.bestMean = mean
	}
	w.runFilter.Reset()
	w.runAvg.Reset()
	w.runSamples = 0
	w.waves.Store(w.bestWave)
	level.Debug(w.logger).Log("msg", "state change", "state", w.state, "best", w.bestWave, "abandoned", w.abandoned)
}

// outputTrace flushes buffered trace observations. It is invoked off the
// dispatch-critical path, by the manager's flush timer and at teardown.
func (w *WaveLimiter) outputTrace() error {
	return w.tracer.flush()
}

type limiterSnapshot struct {
	state       State
	waves       uint32
	best        uint32
	abandoned   bool
	adaptRounds [3]uint64
	malformed   uint64
}

func (w *WaveLimiter) snapshot() limiterSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return limiterSnapshot{
		state:       w.state,
		waves:       w.waves.Load(),
		best:        w.bestWave,
		abandoned:   w.abandoned,
		adaptRounds: w.adaptRounds,
		malformed:   w.malformedSamples,
	}
}
