// FILE: walkforward.go
// Package main – Walk-Forward Orchestrator: slides train/test windows
// across the full date range, optionally re-optimizes parameters on
// each train window via the Batch Orchestrator, and runs the resulting
// config out-of-sample on the test window.
//
// Grounded on the Go-native other_examples walkforward engine
// (Config/Window/WindowResult/Result/Engine naming, buildWindows'
// sliding-window construction) rather than transliterating
// original_source's walk_forward_runner.py's parent-back-reference
// composition — the fold loop here takes EngineState-equivalent data
// by value/return instead of a WalkForwardRunner holding a live
// reference back into its own fold list.
package main

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Fold describes one train/test window pair.
type Fold struct {
	Index     int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// FoldResult holds the outcome of one fold: the parameters selected
// (by re-optimization or carried over from the base config), the
// train-window result those parameters were chosen from (nil when
// ReoptimizeEachFold is off), and the out-of-sample test-window result
// (spec.md §6 "per-fold train metrics, test (out-of-sample) metrics,
// and selected parameters").
type FoldResult struct {
	Fold
	Params      map[string]float64
	TrainResult *RunResult
	TestResult  *RunResult
	Err         error
}

// WalkForwardSummary is the full aggregate output (spec §6 "Walk-
// forward result").
type WalkForwardSummary struct {
	Folds          []FoldResult
	MeanExpectancy float64
	StabilityScore float64 // 1 - coefficient of variation on expectancy, clamped to [0,1]
	PassRate       float64 // fraction of folds with positive OOS return
}

// WalkForwardOrchestrator drives the rolling fold loop.
type WalkForwardOrchestrator struct {
	cfg        WalkForwardConfig
	source     Source
	strategyFn func(params map[string]float64) Strategy
	progress   ProgressFunc
}

// NewWalkForwardOrchestrator builds the fold runner.
func NewWalkForwardOrchestrator(cfg WalkForwardConfig, source Source, strategyFn func(params map[string]float64) Strategy) *WalkForwardOrchestrator {
	return &WalkForwardOrchestrator{cfg: cfg, source: source, strategyFn: strategyFn}
}

// WithProgress attaches a progress callback.
func (w *WalkForwardOrchestrator) WithProgress(p ProgressFunc) *WalkForwardOrchestrator {
	w.progress = p
	return w
}

// buildFolds slides train/test windows across [start,end) in StepSizeDays
// increments, stopping once the next test window would run past end
// (spec §6 "Walk-forward configuration").
func buildFolds(start, end time.Time, trainDays, testDays, stepDays int) []Fold {
	var folds []Fold
	idx := 0
	train := time.Duration(trainDays) * 24 * time.Hour
	test := time.Duration(testDays) * 24 * time.Hour
	step := time.Duration(stepDays) * 24 * time.Hour

	for {
		trainStart := start.Add(time.Duration(idx) * step)
		trainEnd := trainStart.Add(train)
		testStart := trainEnd
		testEnd := testStart.Add(test)
		if testEnd.After(end) {
			break
		}
		folds = append(folds, Fold{Index: idx, TrainStart: trainStart, TrainEnd: trainEnd, TestStart: testStart, TestEnd: testEnd})
		idx++
	}
	return folds
}

// Run executes every fold in sequence: optionally re-optimize on the
// train window via the Batch Orchestrator, then run the winning (or
// base) config out-of-sample on the test window.
func (w *WalkForwardOrchestrator) Run(ctx context.Context) (*WalkForwardSummary, error) {
	folds := buildFolds(w.cfg.Base.StartDate, w.cfg.Base.EndDate, w.cfg.TrainWindowDays, w.cfg.TestWindowDays, w.cfg.StepSizeDays)
	if len(folds) < w.cfg.MinFolds {
		return nil, invalidConfigf("date range produces %d folds, need at least %d (train=%dd test=%dd step=%dd)",
			len(folds), w.cfg.MinFolds, w.cfg.TrainWindowDays, w.cfg.TestWindowDays, w.cfg.StepSizeDays)
	}

	results := make([]FoldResult, len(folds))
	for i, fold := range folds {
		if ctx.Err() != nil {
			results[i] = FoldResult{Fold: fold, Err: ctx.Err()}
			continue
		}

		params := map[string]float64{}
		var trainResult *RunResult
		if w.cfg.ReoptimizeEachFold && len(w.cfg.Batch.ParameterSpace) > 0 {
			trainCfg := w.cfg.Base
			trainCfg.StartDate = fold.TrainStart
			trainCfg.EndDate = fold.TrainEnd

			batchCfg := w.cfg.Batch
			batchCfg.Base = trainCfg
			batchCfg.Seed = w.cfg.Batch.Seed + int64(fold.Index)

			batch := NewBatchOrchestrator(batchCfg, w.source, w.strategyFn)
			summary, err := batch.Run(ctx)
			if err == nil && summary.BestRun != nil {
				params = summary.BestRun.Parameters
				trainResult = summary.BestRun.Result
			}
		}

		testCfg := applyOverrides(w.cfg.Base, params)
		testCfg.StartDate = fold.TestStart
		testCfg.EndDate = fold.TestEnd
		testCfg.RunID = fmt.Sprintf("wf_fold_%04d", fold.Index)

		engine := NewEngine(testCfg, w.source, w.strategyFn(params))
		res, err := engine.Run(ctx, nil)
		results[i] = FoldResult{Fold: fold, Params: params, TrainResult: trainResult, TestResult: res, Err: err}

		if w.progress != nil {
			pct := int(float64(i+1) / float64(len(folds)) * 100)
			w.progress(pct, fmt.Sprintf("Fold %d/%d", i+1, len(folds)))
		}
	}

	return summarizeFolds(results), nil
}

// summarizeFolds computes the stability score as 1 minus the
// coefficient of variation of per-fold expectancy, clamped to [0,1] —
// a high CV (expectancy swings wildly fold to fold) means low
// stability, a CV of 0 (every fold agrees) means perfect stability.
func summarizeFolds(results []FoldResult) *WalkForwardSummary {
	var expectancies []float64
	var positive int
	for _, r := range results {
		if r.Err != nil || r.TestResult == nil {
			continue
		}
		expectancies = append(expectancies, r.TestResult.Metrics.Expectancy)
		if r.TestResult.Metrics.TotalReturnPct > 0 {
			positive++
		}
	}

	summary := &WalkForwardSummary{Folds: results}
	if len(expectancies) == 0 {
		return summary
	}

	var sum float64
	for _, e := range expectancies {
		sum += e
	}
	mean := sum / float64(len(expectancies))
	summary.MeanExpectancy = mean
	summary.PassRate = float64(positive) / float64(len(expectancies))

	if mean == 0 || len(expectancies) < 2 {
		summary.StabilityScore = 0
		return summary
	}
	var sumSq float64
	for _, e := range expectancies {
		sumSq += (e - mean) * (e - mean)
	}
	std := math.Sqrt(sumSq / float64(len(expectancies)-1))
	cv := math.Abs(std / mean)
	stability := 1 - cv
	if stability < 0 {
		stability = 0
	}
	if stability > 1 {
		stability = 1
	}
	summary.StabilityScore = stability
	return summary
}
