// SPDX-License-Identifier: AGPL-3.0-only

package wavelimiter

import (
	"context"
	"strconv"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/cgmb/ROCclr/pkg/gpu"
)

var (
	wavesDesc = prometheus.NewDesc(
		"rocclr_wavelimiter_waves_per_sh",
		"Waves per shader array currently recommended for dispatch.",
		[]string{"kernel", "context"}, nil)
	stateDesc = prometheus.NewDesc(
		"rocclr_wavelimiter_state",
		"Controller state: 0 warmup, 1 adapt, 2 run.",
		[]string{"kernel", "context"}, nil)
	bestWaveDesc = prometheus.NewDesc(
		"rocclr_wavelimiter_best_waves_per_sh",
		"Best known waves per shader array for this controller.",
		[]string{"kernel", "context"}, nil)
	abandonedDesc = prometheus.NewDesc(
		"rocclr_wavelimiter_abandoned",
		"Whether adaptation was abandoned for this controller.",
		[]string{"kernel", "context"}, nil)
	adaptRoundsDesc = prometheus.NewDesc(
		"rocclr_wavelimiter_adapt_rounds_total",
		"Adaptation rounds scored, by outcome.",
		[]string{"kernel", "context", "outcome"}, nil)
	malformedDesc = prometheus.NewDesc(
		"rocclr_wavelimiter_malformed_samples_total",
		"Profiling samples dropped as malformed.",
		[]string{"kernel", "context"}, nil)
)

// Manager is the dispatch pipeline's single point of contact for one kernel.
// It owns the per-context wave limiters, creating them lazily on first use
// and destroying them all at teardown. It is also a services.Service whose
// timer periodically flushes diagnostic traces, and a prometheus.Collector
// over its controllers.
type Manager struct {
	services.Service

	logger   log.Logger
	cfg      Config
	kernel   string
	settings *gpu.Settings

	enabled    atomic.Bool
	enableOnce sync.Once

	mtx      sync.Mutex
	limiters map[ContextID]*WaveLimiter

	closeOnce sync.Once
	closeErr  error
}

// NewManager creates the wave limiter manager for one kernel. The manager is
// usable immediately; starting it as a service only adds the periodic trace
// flush.
func NewManager(kernelName string, settings *gpu.Settings, cfg Config, logger log.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TraceFlushInterval <= 0 {
		cfg.TraceFlushInterval = defaultTraceFlushInterval
	}
	m := &Manager{
		logger:   log.With(logger, "component", "wavelimiter-manager", "kernel", kernelName),
		cfg:      cfg,
		kernel:   kernelName,
		settings: settings,
		limiters: map[ContextID]*WaveLimiter{},
	}
	m.Service = services.NewTimerService(cfg.TraceFlushInterval, nil, m.iteration, m.stopping).WithName("wave limiter manager")
	return m, nil
}

// Enable decides, once, whether adaptation runs for this kernel: the global
// toggle must be on, the device must be CI class or later, and no fixed
// override may be configured. Further calls have no effect.
func (m *Manager) Enable(ciPlus bool) {
	m.enableOnce.Do(func() {
		enabled := m.cfg.Enabled && ciPlus && m.cfg.FixedWavesPerSimd == 0
		m.enabled.Store(enabled)
		level.Debug(m.logger).Log("msg", "wave limiter manager enable", "enabled", enabled, "ci_plus", ciPlus, "fixed", m.cfg.FixedWavesPerSimd)
	})
}

// Enabled reports whether the adaptive path is active.
func (m *Manager) Enabled() bool {
	return m.enabled.Load()
}

// Name returns the owning kernel's name.
func (m *Manager) Name() string {
	return m.kernel
}

// SimdPerSH returns the device's SIMD count per shader array.
func (m *Manager) SimdPerSH() uint32 {
	return m.settings.SimdPerSH()
}

// WavesPerSH returns the wave count dispatch should request for the given
// execution context. When disabled it returns the fixed value without
// touching the controller map.
func (m *Manager) WavesPerSH(ctx ContextID) uint32 {
	if !m.enabled.Load() {
		return m.fixedWaves()
	}
	l := m.limiter(ctx)
	if l == nil {
		return m.fixedWaves()
	}
	return l.WavesPerSH()
}

// ProfilingCallback returns the handle the profiling pipeline reports
// completion timing through, resolving to the same controller WavesPerSH
// uses for this context. It returns nil when adaptation is disabled.
func (m *Manager) ProfilingCallback(ctx ContextID) ProfilingCallback {
	if !m.enabled.Load() {
		return nil
	}
	l := m.limiter(ctx)
	if l == nil {
		return nil
	}
	return l
}

func (m *Manager) fixedWaves() uint32 {
	if m.cfg.FixedWavesPerSimd != 0 {
		return uint32(m.cfg.FixedWavesPerSimd)
	}
	return uint32(m.cfg.MaxWavesPerSimd)
}

// limiter returns the context's controller, creating it on first use. The
// map mutex covers the lookup and insert only; controller state updates are
// serialized per controller.
func (m *Manager) limiter(ctx ContextID) *WaveLimiter {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.limiters == nil {
		// Teardown already ran.
		return nil
	}
	if l, ok := m.limiters[ctx]; ok {
		return l
	}
	tracer := newDataTracer(m.cfg.TraceDir, m.kernel, ctx)
	l := newWaveLimiter(m.kernel, ctx, &m.cfg, tracer, m.logger)
	m.limiters[ctx] = l
	return l
}

func (m *Manager) controllers() []*WaveLimiter {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	out := make([]*WaveLimiter, 0, len(m.limiters))
	for _, l := range m.limiters {
		out = append(out, l)
	}
	return out
}

func (m *Manager) iteration(context.Context) error {
	for _, l := range m.controllers() {
		if err := l.outputTrace(); err != nil {
			level.Warn(m.logger).Log("msg", "failed to flush wave limiter trace", "err", err)
		}
	}
	return nil
}

func (m *Manager) stopping(_ error) error {
	return m.Close()
}

// Close flushes all traces and destroys every controller. The caller must
// guarantee no Callback or WavesPerSH invocation races teardown; this is the
// same contract the kernel's own destruction imposes.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mtx.Lock()
		limiters := m.limiters
		m.limiters = nil
		m.mtx.Unlock()

		for _, l := range limiters {
			if err := l.tracer.close(); err != nil {
				level.Warn(m.logger).Log("msg", "failed to close wave limiter trace", "err", err)
				if m.closeErr == nil {
					m.closeErr = err
				}
			}
		}
	})
	return m.closeErr
}

// Describe implements prometheus.Collector.
func (m *Manager) Describe(chan<- *prometheus.Desc) {
	// This is an unchecked collector.
}

// Collect implements prometheus.Collector.
func (m *Manager) Collect(out chan<- prometheus.Metric) {
	m.mtx.Lock()
	limiters := make(map[ContextID]*WaveLimiter, len(m.limiters))
	for id, l := range m.limiters {
		limiters[id] = l
	}
	m.mtx.Unlock()

	for id, l := range limiters {
		s := l.snapshot()
		ctx := strconv.FormatUint(uint64(id), 10)
		out <- prometheus.MustNewConstMetric(wavesDesc, prometheus.GaugeValue, float64(s.waves), m.kernel, ctx)
		out <- prometheus.MustNewConstMetric(stateDesc, prometheus.GaugeValue, float64(s.state), m.kernel, ctx)
		out <- prometheus.MustNewConstMetric(bestWaveDesc, prometheus.GaugeValue, float64(s.best), m.kernel, ctx)
		out <- prometheus.MustNewConstMetric(abandonedDesc, prometheus.GaugeValue, boolToFloat(s.abandoned), m.kernel, ctx)
		out <- prometheus.MustNewConstMetric(malformedDesc, prometheus.CounterValue, float64(s.malformed), m.kernel, ctx)
		for outcome, n := range s.adaptRounds {
			out <- prometheus.MustNewConstMetric(adaptRoundsDesc, prometheus.CounterValue, float64(n), m.kernel, ctx, roundOutcome(outcome).String())
		}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
