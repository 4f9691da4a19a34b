// FILE: env.go
// Package main – Environment helpers and safe .env loading for the
// backtest engine's CLI.
//
// This file provides:
//   1) Small helpers to read environment variables with sane defaults
//      (strings, ints, floats, bools).
//   2) A dependency-free .env loader (loadEngineEnv) that reads ./.env
//      (and ../.env) and injects ONLY the keys the engine needs into the
//      process environment. It never overrides a variable already set.
//   3) RunConfigFromEnv()/BatchConfigFromEnv()/WalkForwardConfigFromEnv()
//      convenience constructors layered on top of DefaultRunConfig() etc.
//
// The engine library itself never reads the environment directly —
// only these CLI-facing constructors do (spec §9: "the engine only
// ever sees a fully resolved configuration").
package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// --------- Env helpers (used across files) ---------

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}
func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// --------- Lightweight .env loader (no external deps) ---------

var engineEnvKeys = map[string]struct{}{
	"SYMBOL": {}, "BASE_TIMEFRAME": {}, "INITIAL_CAPITAL": {},
	"RISK_PER_TRADE_PCT": {}, "MAX_DAILY_LOSS_PCT": {}, "MAX_TRADES_PER_DAY": {},
	"MAX_LOSS_STREAK": {}, "COOLDOWN_AFTER_STREAK_MIN": {},
	"FEE_RATE_MAKER": {}, "FEE_RATE_TAKER": {}, "SLIPPAGE_METHOD": {},
	"SLIPPAGE_BPS": {}, "SLIPPAGE_ATR_MULT": {}, "MAX_LEVERAGE": {},
	"LIQUIDATION_BUFFER_PCT": {}, "ASSUME_TAKER": {}, "FUNDING_RATE_8H": {},
	"STRATEGY_PRESET": {}, "LOOKBACK_BARS": {}, "PROGRESS_EVERY_BARS": {},
	"MAX_ITERATIONS": {}, "N_JOBS": {}, "SEED": {}, "TARGET_METRIC": {},
	"TRAIN_WINDOW_DAYS": {}, "TEST_WINDOW_DAYS": {}, "STEP_SIZE_DAYS": {},
	"MIN_FOLDS": {}, "PORT": {}, "ENGINE_LOG_LEVEL": {}, "ENGINE_TRACE_DIR": {},
}

// loadEngineEnv reads .env from "." and ".." and sets ONLY the keys the
// engine needs. It won't override variables already in the environment.
func loadEngineEnv() {
	try := func(path string) {
		f, err := os.Open(path)
		if err != nil {
			return
		}
		defer f.Close()
		s := bufio.NewScanner(f)
		for s.Scan() {
			line := strings.TrimSpace(s.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if strings.HasPrefix(line, "export ") {
				line = strings.TrimSpace(line[len("export "):])
			}
			eq := strings.Index(line, "=")
			if eq <= 0 {
				continue
			}
			key := strings.TrimSpace(line[:eq])
			if _, ok := engineEnvKeys[key]; !ok {
				continue
			}
			val := strings.TrimSpace(line[eq+1:])
			if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
				val = val[1 : len(val)-1]
			}
			if idx := strings.IndexAny(val, "#"); idx >= 0 {
				val = strings.TrimSpace(val[:idx])
			}
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, val)
			}
		}
	}
	for _, base := range []string{".", ".."} {
		try(filepath.Join(base, ".env"))
	}
}

// RunConfigFromEnv builds a RunConfig from DefaultRunConfig() overlaid
// with environment overrides. Symbol/StartDate/EndDate still need to be
// set by the caller (typically from CLI flags, see main.go).
func RunConfigFromEnv() RunConfig {
	c := DefaultRunConfig()
	c.Symbol = getEnv("SYMBOL", c.Symbol)
	c.BaseTimeframe = getEnv("BASE_TIMEFRAME", c.BaseTimeframe)
	c.InitialCapital = getEnvFloat("INITIAL_CAPITAL", c.InitialCapital)
	c.RiskPerTradePct = getEnvFloat("RISK_PER_TRADE_PCT", c.RiskPerTradePct)
	c.MaxDailyLossPct = getEnvFloat("MAX_DAILY_LOSS_PCT", c.MaxDailyLossPct)
	c.MaxTradesPerDay = getEnvInt("MAX_TRADES_PER_DAY", c.MaxTradesPerDay)
	c.MaxLossStreak = getEnvInt("MAX_LOSS_STREAK", c.MaxLossStreak)
	c.CooldownAfterStreakMin = getEnvInt("COOLDOWN_AFTER_STREAK_MIN", c.CooldownAfterStreakMin)
	c.FeeRateMaker = getEnvFloat("FEE_RATE_MAKER", c.FeeRateMaker)
	c.FeeRateTaker = getEnvFloat("FEE_RATE_TAKER", c.FeeRateTaker)
	c.SlippageMethod = SlippageMethod(getEnv("SLIPPAGE_METHOD", string(c.SlippageMethod)))
	c.SlippageBps = getEnvFloat("SLIPPAGE_BPS", c.SlippageBps)
	c.SlippageATRMult = getEnvFloat("SLIPPAGE_ATR_MULT", c.SlippageATRMult)
	c.MaxLeverage = getEnvFloat("MAX_LEVERAGE", c.MaxLeverage)
	c.LiquidationBufferPct = getEnvFloat("LIQUIDATION_BUFFER_PCT", c.LiquidationBufferPct)
	c.AssumeTaker = getEnvBool("ASSUME_TAKER", c.AssumeTaker)
	c.FundingRate8h = getEnvFloat("FUNDING_RATE_8H", c.FundingRate8h)
	c.StrategyPreset = getEnv("STRATEGY_PRESET", c.StrategyPreset)
	c.LookbackBars = getEnvInt("LOOKBACK_BARS", c.LookbackBars)
	c.ProgressEveryBars = getEnvInt("PROGRESS_EVERY_BARS", c.ProgressEveryBars)
	c.Seed = int64(getEnvInt("SEED", int(c.Seed)))
	return c
}

// BatchConfigFromEnv layers batch-specific overrides on a base RunConfig.
func BatchConfigFromEnv(base RunConfig) BatchConfig {
	b := DefaultBatchConfig(base)
	b.MaxIterations = getEnvInt("MAX_ITERATIONS", b.MaxIterations)
	b.NJobs = getEnvInt("N_JOBS", b.NJobs)
	b.Seed = int64(getEnvInt("SEED", int(b.Seed)))
	b.TargetMetric = getEnv("TARGET_METRIC", b.TargetMetric)
	return b
}

// WalkForwardConfigFromEnv layers walk-forward-specific overrides.
func WalkForwardConfigFromEnv(base RunConfig, batch BatchConfig) WalkForwardConfig {
	w := DefaultWalkForwardConfig(base, batch)
	w.TrainWindowDays = getEnvInt("TRAIN_WINDOW_DAYS", w.TrainWindowDays)
	w.TestWindowDays = getEnvInt("TEST_WINDOW_DAYS", w.TestWindowDays)
	w.StepSizeDays = getEnvInt("STEP_SIZE_DAYS", w.StepSizeDays)
	w.MinFolds = getEnvInt("MIN_FOLDS", w.MinFolds)
	return w
}
