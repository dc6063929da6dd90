// SPDX-License-Identifier: AGPL-3.0-only

// Command wavelimsim replays synthetic kernel dispatch streams against the
// adaptive wave limiter and reports what each execution context converged to.
// It stands in for the dispatch and profiling pipelines of the real runtime,
// which makes it useful for tuning the limiter's thresholds offline.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cgmb/ROCclr/pkg/gpu"
	"github.com/cgmb/ROCclr/pkg/wavelimiter"
)

type scenario struct {
	Kernels []kernelScenario `yaml:"kernels"`
}

type kernelScenario struct {
	Name     string            `yaml:"name"`
	Target   string            `yaml:"target"`
	Contexts []contextScenario `yaml:"contexts"`
}

// contextScenario models one execution context's latency curve:
// duration(w) = base + slope*|w - optimum|, scaled by up to +-noise.
// After driftAfter dispatches the drift* values replace the originals.
type contextScenario struct {
	ID         uint64  `yaml:"id"`
	Dispatches int     `yaml:"dispatches"`
	Base       uint64  `yaml:"base"`
	Slope      uint64  `yaml:"slope"`
	Optimum    uint32  `yaml:"optimum"`
	Noise      float64 `yaml:"noise"`

	DriftAfter   int    `yaml:"drift_after"`
	DriftBase    uint64 `yaml:"drift_base"`
	DriftSlope   uint64 `yaml:"drift_slope"`
	DriftOptimum uint32 `yaml:"drift_optimum"`
}

func (c contextScenario) duration(r *rand.Rand, dispatch int, waves uint32) uint64 {
	base, slope, optimum := c.Base, c.Slope, c.Optimum
	if c.DriftAfter > 0 && dispatch >= c.DriftAfter {
		base, slope, optimum = c.DriftBase, c.DriftSlope, c.DriftOptimum
	}
	d := int64(waves) - int64(optimum)
	if d < 0 {
		d = -d
	}
	duration := float64(base + slope*uint64(d))
	if c.Noise > 0 {
		duration *= 1 + c.Noise*(2*r.Float64()-1)
	}
	if duration < 1 {
		duration = 1
	}
	return uint64(duration)
}

func main() {
	var (
		cfg          wavelimiter.Config
		scenarioPath string
		seed         int64
		verbose      bool
	)
	cfg.RegisterFlags(flag.CommandLine)
	flag.StringVar(&scenarioPath, "scenario", "", "Path to the YAML scenario file")
	flag.Int64Var(&seed, "seed", 0, "Seed for the synthetic latency noise")
	flag.BoolVar(&verbose, "verbose", false, "Log limiter decisions")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), os.Args[0], "replays synthetic dispatch streams against the adaptive wave limiter.")
		fmt.Fprintln(flag.CommandLine.Output(), "Flags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if verbose {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	if err := run(cfg, scenarioPath, seed, logger); err != nil {
		level.Error(logger).Log("msg", "simulation failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg wavelimiter.Config, scenarioPath string, seed int64, logger log.Logger) error {
	if scenarioPath == "" {
		return errors.New("no -scenario file given")
	}
	data, err := os.ReadFile(scenarioPath)
	if err != nil {
		return errors.Wrap(err, "read scenario")
	}
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return errors.Wrap(err, "parse scenario")
	}
	if len(sc.Kernels) == 0 {
		return errors.New("scenario contains no kernels")
	}

	// The simulator always wants the adaptive path on.
	cfg.Enabled = true

	for _, k := range sc.Kernels {
		if err := simulateKernel(k, cfg, seed, logger); err != nil {
			return errors.Wrapf(err, "kernel %s", k.Name)
		}
	}
	return nil
}

func simulateKernel(k kernelScenario, cfg wavelimiter.Config, seed int64, logger log.Logger) error {
	target, err := gpu.ParseTarget(k.Target)
	if err != nil {
		return err
	}
	settings, err := gpu.NewSettings(target)
	if err != nil {
		return err
	}

	manager, err := wavelimiter.NewManager(k.Name, settings, cfg, logger)
	if err != nil {
		return err
	}
	defer manager.Close()
	manager.Enable(settings.CIPlus())

	if !manager.Enabled() {
		fmt.Printf("%s on %s: adaptation disabled (fixed %d waves/SIMD)\n", k.Name, target, manager.WavesPerSH(0))
		return nil
	}

	type result struct {
		ctx   wavelimiter.ContextID
		waves uint32
	}
	results := make([]result, len(k.Contexts))

	var wg sync.WaitGroup
	for i, c := range k.Contexts {
		wg.Add(1)
		go func(i int, c contextScenario) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed + int64(c.ID)))
			ctx := wavelimiter.ContextID(c.ID)
			for dispatch := 0; dispatch < c.Dispatches; dispatch++ {
				waves := manager.WavesPerSH(ctx)
				if cb := manager.ProfilingCallback(ctx); cb != nil {
					cb.Callback(c.duration(r, dispatch, waves), waves)
				}
			}
			results[i] = result{ctx: ctx, waves: manager.WavesPerSH(ctx)}
		}(i, c)
	}
	wg.Wait()

	fmt.Printf("%s on %s (%s, %d SIMDs/SH):\n", k.Name, settings.Target(), settings.Generation(), manager.SimdPerSH())
	for i, res := range results {
		c := k.Contexts[i]
		fmt.Printf("  context %d: %d dispatches, optimum %d -> recommended %d waves/SIMD\n",
			res.ctx, c.Dispatches, finalOptimum(c), res.waves)
	}
	if err := manager.Close(); err != nil {
		return errors.Wrap(err, "close manager")
	}
	return nil
}

func finalOptimum(c contextScenario) uint32 {
	if c.DriftAfter > 0 && c.DriftAfter < c.Dispatches {
		return c.DriftOptimum
	}
	return c.Optimum
}
