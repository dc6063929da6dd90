// SPDX-License-Identifier: AGPL-3.0-only

package wavelimiter

import (
	"flag"
	"fmt"
	"time"
)

// AlgorithmSmooth compares smoothed average durations of a trial wave count
// against the current best. It is the only decision algorithm implemented;
// the name selects it explicitly so alternatives can be added without
// changing the config surface.
const AlgorithmSmooth = "smooth"

const defaultTraceFlushInterval = 10 * time.Second

type Config struct {
	Enabled bool `yaml:"enabled"`

	// FixedWavesPerSimd forces a constant wave count and bypasses adaptation
	// entirely when nonzero.
	FixedWavesPerSimd uint `yaml:"fixed_waves_per_simd"`
	MaxWavesPerSimd   uint `yaml:"max_waves_per_simd"`

	Algorithm string `yaml:"algorithm"`

	WarmUpCount uint `yaml:"warmup_count"`
	AdaptCount  uint `yaml:"adapt_count"`
	RunCount    uint `yaml:"run_count"`

	AbandonThresh     uint    `yaml:"abandon_thresh"`
	DscThresh         float64 `yaml:"dsc_thresh"`
	RatioMargin       float64 `yaml:"ratio_margin"`
	ConvergenceRounds uint    `yaml:"convergence_rounds"`

	TraceDir           string        `yaml:"trace_dir"`
	TraceFlushInterval time.Duration `yaml:"trace_flush_interval"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("wavelimiter.", f)
}

func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.BoolVar(&cfg.Enabled, prefix+"enabled", false, "Enable adaptive wave limiting on devices that support it")
	f.UintVar(&cfg.FixedWavesPerSimd, prefix+"fixed-waves-per-simd", 0, "Force a fixed number of waves per SIMD, bypassing adaptation. 0 means adaptive")
	f.UintVar(&cfg.MaxWavesPerSimd, prefix+"max-waves-per-simd", 10, "Maximum number of waves schedulable per SIMD")
	f.StringVar(&cfg.Algorithm, prefix+"algorithm", AlgorithmSmooth, "Decision algorithm used during adaptation")
	f.UintVar(&cfg.WarmUpCount, prefix+"warmup-count", 100, "Number of kernel completions ignored before adaptation starts")
	f.UintVar(&cfg.AdaptCount, prefix+"adapt-count", 8, "Number of samples collected per wave count in each adaptation round")
	f.UintVar(&cfg.RunCount, prefix+"run-count", 64, "Number of run-phase completions between drift checks")
	f.UintVar(&cfg.AbandonThresh, prefix+"abandon-thresh", 10, "Number of discarded adaptation rounds after which adaptation is abandoned")
	f.Float64Var(&cfg.DscThresh, prefix+"dsc-thresh", 0.10, "Coefficient-of-variation bound above which a round's samples are considered discontinuous")
	f.Float64Var(&cfg.RatioMargin, prefix+"ratio-margin", 0.05, "Relative margin by which a trial wave count must improve on the best to be adopted")
	f.UintVar(&cfg.ConvergenceRounds, prefix+"convergence-rounds", 2, "Number of consecutive rounds without improvement after which adaptation converges")
	f.StringVar(&cfg.TraceDir, prefix+"trace-dir", "", "Directory for per-controller observation traces. Empty disables tracing")
	f.DurationVar(&cfg.TraceFlushInterval, prefix+"trace-flush-interval", defaultTraceFlushInterval, "How often buffered trace observations are flushed to disk")
}

func (cfg *Config) Validate() error {
	if cfg.MaxWavesPerSimd < 1 {
		return fmt.Errorf("max-waves-per-simd must be >= 1")
	}
	if cfg.FixedWavesPerSimd > cfg.MaxWavesPerSimd {
		return fmt.Errorf("fixed-waves-per-simd must not exceed max-waves-per-simd")
	}
	if cfg.Algorithm != AlgorithmSmooth {
		return fmt.Errorf("unknown wave limiter algorithm %q", cfg.Algorithm)
	}
	if cfg.AdaptCount < 2 {
		return fmt.Errorf("adapt-count must be >= 2 to measure sample variance")
	}
	if cfg.RunCount < 1 {
		return fmt.Errorf("run-count must be >= 1")
	}
	if cfg.DscThresh <= 0 {
		return fmt.Errorf("dsc-thresh must be > 0")
	}
	if cfg.RatioMargin <= 0 || cfg.RatioMargin >= 1 {
		return fmt.Errorf("ratio-margin must be in (0, 1)")
	}
	if cfg.ConvergenceRounds < 1 {
		return fmt.Errorf("convergence-rounds must be >= 1")
	}
	if cfg.TraceDir != "" && cfg.TraceFlushInterval <= 0 {
		return fmt.Errorf("trace-flush-interval must be > 0 when tracing is enabled")
	}
	return nil
}
