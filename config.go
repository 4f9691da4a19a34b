// FILE: config.go
// Package main – Runtime configuration models and env loaders.
//
// RunConfig/BatchConfig/WalkForwardConfig mirror spec §6 exactly
// (field names, defaults). Programmatic callers build these structs
// directly; *FromEnv() helpers are a CLI convenience that reads the
// same defaults from the environment, following the teacher's
// loadConfigFromEnv() pattern in spirit.
package main

import "time"

// SlippageMethod selects which slippage model the Execution Simulator
// applies (spec §4.3).
type SlippageMethod string

const (
	SlippageFixedBps        SlippageMethod = "fixed_bps"
	SlippageATRBased        SlippageMethod = "atr_based"
	SlippageVolumeAdjusted  SlippageMethod = "volume_adjusted"
)

// SearchMethod selects how the Batch Orchestrator expands a parameter
// space (spec §6).
type SearchMethod string

const (
	SearchGrid     SearchMethod = "grid"
	SearchRandom   SearchMethod = "random"
	SearchBayesian SearchMethod = "bayesian" // placeholder, not implemented
)

// RunConfig is the engine's single-run configuration (spec §6 "Run
// configuration (enumerated)").
type RunConfig struct {
	// Run scope
	Symbol         string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	BaseTimeframe  string
	MTFTimeframes  []string
	Seed           int64
	RunID          string

	// Risk
	RiskPerTradePct       float64
	MaxDailyLossPct       float64
	MaxTradesPerDay       int
	MaxLossStreak         int
	CooldownAfterStreakMin int

	// Execution
	FeeRateMaker         float64
	FeeRateTaker         float64
	SlippageMethod       SlippageMethod
	SlippageBps          float64
	SlippageATRMult      float64
	MaxLeverage          float64
	LiquidationBufferPct float64
	AssumeTaker          bool
	FundingRate8h        float64 // documented, never applied in the core (spec §9)

	// Strategy
	StrategyPreset     string
	ParameterOverrides map[string]float64

	// Ambient
	LookbackBars      int // history window length, default 200 (spec §3)
	HistoryBarsPerTF  int // resampled ring length, default 100 (spec §4.2)
	ProgressEveryBars int // progress cadence, default 100 (spec §4.6)
}

// DefaultRunConfig returns a RunConfig populated with every default
// named in spec §6, leaving run-scope fields (Symbol/StartDate/EndDate)
// for the caller to fill in.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		InitialCapital:         10000,
		BaseTimeframe:          "1m",
		MTFTimeframes:          []string{"5m", "15m", "1h", "4h", "1D"},
		RiskPerTradePct:        1.0,
		MaxDailyLossPct:        3.0,
		MaxTradesPerDay:        10,
		MaxLossStreak:          3,
		CooldownAfterStreakMin: 60,
		FeeRateMaker:           0.02,
		FeeRateTaker:           0.06,
		SlippageMethod:         SlippageFixedBps,
		SlippageBps:            5,
		SlippageATRMult:        0.1,
		MaxLeverage:            20,
		LiquidationBufferPct:   5,
		AssumeTaker:            true,
		FundingRate8h:          0.01,
		StrategyPreset:         "default",
		ParameterOverrides:     map[string]float64{},
		LookbackBars:           200,
		HistoryBarsPerTF:       100,
		ProgressEveryBars:      100,
	}
}

// Validate checks the invariants spec §7 requires to fail fast,
// before any data is loaded.
func (c RunConfig) Validate() error {
	if !c.EndDate.After(c.StartDate) {
		return invalidConfigf("end_date (%s) must be after start_date (%s)", c.EndDate, c.StartDate)
	}
	if c.InitialCapital <= 0 {
		return invalidConfigf("initial_capital must be positive, got %v", c.InitialCapital)
	}
	return nil
}

// BatchConfig drives the parameter-sweep orchestrator (spec §6 "Batch
// configuration (enumerated)").
type BatchConfig struct {
	Base           RunConfig
	SearchMethod   SearchMethod
	ParameterSpace map[string][]float64
	MaxIterations  int
	NJobs          int
	Seed           int64
	TargetMetric   string
	Minimize       bool
}

// DefaultBatchConfig returns the spec-mandated defaults, with Base left
// for the caller.
func DefaultBatchConfig(base RunConfig) BatchConfig {
	return BatchConfig{
		Base:          base,
		SearchMethod:  SearchGrid,
		MaxIterations: 100,
		NJobs:         1,
		Seed:          42,
		TargetMetric:  "expectancy",
		Minimize:      false,
	}
}

// WalkForwardConfig drives the rolling train/test validation
// orchestrator (spec §6 "Walk-forward configuration (enumerated)").
type WalkForwardConfig struct {
	Base                RunConfig
	Batch               BatchConfig
	TrainWindowDays     int
	TestWindowDays      int
	StepSizeDays        int
	MinFolds            int
	ReoptimizeEachFold  bool
}

// DefaultWalkForwardConfig returns the spec-mandated defaults.
func DefaultWalkForwardConfig(base RunConfig, batch BatchConfig) WalkForwardConfig {
	return WalkForwardConfig{
		Base:               base,
		Batch:              batch,
		TrainWindowDays:    90,
		TestWindowDays:     30,
		StepSizeDays:       30,
		MinFolds:           4,
		ReoptimizeEachFold: true,
	}
}
