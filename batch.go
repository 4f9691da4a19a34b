// FILE: batch.go
// Package main – Batch Orchestrator: runs a parameter sweep across a
// grid or random search space and ranks results by a target metric.
//
// Grounded on original_source's batch_runner.py (combination
// generation, the 10x-buffer grid-to-random fallback, ranking by
// getattr(metrics, target_metric)) and on the retrieval pack's use of
// golang.org/x/sync/errgroup for bounded fan-out (the opense-ai-agents
// Aggregator's g, gctx := errgroup.WithContext(ctx) / g.SetLimit shape).
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BatchRunResult is one parameter combination's outcome.
type BatchRunResult struct {
	RunID      string
	Parameters map[string]float64
	Result     *RunResult
	Err        error
}

// BatchSummary is the full sweep outcome (spec §6 "Batch result").
type BatchSummary struct {
	BatchID       string
	TotalRuns     int
	SuccessfulRuns int
	FailedRuns    int
	BestRun       *BatchRunResult
	TopRuns       []BatchRunResult
	AllRuns       []BatchRunResult
	ElapsedSec    float64
}

// BatchOrchestrator drives a grid/random parameter sweep.
type BatchOrchestrator struct {
	cfg          BatchConfig
	strategyFn   func(params map[string]float64) Strategy
	source       Source
	progress     ProgressFunc
}

// NewBatchOrchestrator builds the sweep. strategyFn builds a fresh
// Strategy instance per combination, incorporating the parameter
// overrides however the caller's strategy needs them (e.g. thresholds,
// model hyperparameters) — the engine itself only ever applies
// overrides that match RunConfig field semantics.
func NewBatchOrchestrator(cfg BatchConfig, source Source, strategyFn func(params map[string]float64) Strategy) *BatchOrchestrator {
	return &BatchOrchestrator{cfg: cfg, source: source, strategyFn: strategyFn}
}

// WithProgress attaches a progress callback.
func (b *BatchOrchestrator) WithProgress(p ProgressFunc) *BatchOrchestrator {
	b.progress = p
	return b
}

// generateCombinations implements spec §6's grid/random search
// generation, including the combinatorial-blowup fallback: when a full
// grid would exceed 10x MaxIterations, it switches to seeded random
// sampling instead (batch_runner.py's behavior, not a Go-only
// invention).
func (b *BatchOrchestrator) generateCombinations() []map[string]float64 {
	space := b.cfg.ParameterSpace
	if len(space) == 0 {
		return []map[string]float64{{}}
	}

	switch b.cfg.SearchMethod {
	case SearchRandom, SearchBayesian:
		return b.randomCombinations(space)
	default:
		keys := sortedKeys(space)
		theoretical := 1
		for _, k := range keys {
			theoretical *= len(space[k])
			if theoretical > b.cfg.MaxIterations*10 {
				return b.randomCombinations(space)
			}
		}
		return gridCombinations(keys, space, b.cfg.MaxIterations)
	}
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// gridCombinations enumerates the full cartesian product, stopping
// early once max is reached.
func gridCombinations(keys []string, space map[string][]float64, max int) []map[string]float64 {
	var out []map[string]float64
	idx := make([]int, len(keys))
	for {
		combo := make(map[string]float64, len(keys))
		for i, k := range keys {
			combo[k] = space[k][idx[i]]
		}
		out = append(out, combo)
		if len(out) >= max {
			return out
		}

		pos := len(keys) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(space[keys[pos]]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return out
		}
	}
}

func (b *BatchOrchestrator) randomCombinations(space map[string][]float64) []map[string]float64 {
	rng := rand.New(rand.NewSource(b.cfg.Seed))
	keys := sortedKeys(space)
	out := make([]map[string]float64, 0, b.cfg.MaxIterations)
	for i := 0; i < b.cfg.MaxIterations; i++ {
		combo := make(map[string]float64, len(keys))
		for _, k := range keys {
			values := space[k]
			combo[k] = values[rng.Intn(len(values))]
		}
		out = append(out, combo)
	}
	return out
}

// applyOverrides returns a copy of base with params layered on top of
// the RunConfig fields they name (spec §6's parameter_overrides).
func applyOverrides(base RunConfig, params map[string]float64) RunConfig {
	cfg := base
	cfg.ParameterOverrides = params
	for k, v := range params {
		switch k {
		case "risk_per_trade_pct":
			cfg.RiskPerTradePct = v
		case "max_leverage":
			cfg.MaxLeverage = v
		case "max_daily_loss_pct":
			cfg.MaxDailyLossPct = v
		case "max_trades_per_day":
			cfg.MaxTradesPerDay = int(v)
		case "slippage_bps":
			cfg.SlippageBps = v
		case "liquidation_buffer_pct":
			cfg.LiquidationBufferPct = v
		}
	}
	return cfg
}

// Run executes every combination, bounded to cfg.NJobs concurrent
// workers via errgroup, then ranks by cfg.TargetMetric.
func (o *BatchOrchestrator) Run(ctx context.Context) (*BatchSummary, error) {
	started := time.Now()
	combos := o.generateCombinations()
	if len(combos) > o.cfg.MaxIterations {
		combos = combos[:o.cfg.MaxIterations]
	}

	batchID := "batch_" + uuid.NewString()[:8]
	results := make([]BatchRunResult, len(combos))

	g, gctx := errgroup.WithContext(ctx)
	jobs := o.cfg.NJobs
	if jobs <= 0 {
		jobs = 1
	}
	g.SetLimit(jobs)

	var completed int
	var mu sync.Mutex

	for i, params := range combos {
		i, params := i, params
		g.Go(func() error {
			runID := fmt.Sprintf("%s_run_%04d", batchID, i)
			runCfg := applyOverrides(o.cfg.Base, params)
			runCfg.RunID = runID

			strategy := o.strategyFn(params)
			engine := NewEngine(runCfg, o.source, strategy)
			res, err := engine.Run(gctx, nil)

			results[i] = BatchRunResult{RunID: runID, Parameters: params, Result: res, Err: err}

			mu.Lock()
			completed++
			n := completed
			mu.Unlock()
			if o.progress != nil {
				pct := 5 + int(float64(n)/float64(len(combos))*90)
				o.progress(pct, fmt.Sprintf("Run %d/%d", n, len(combos)))
			}
			return nil // individual run failures are non-fatal to the sweep
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := rankResults(batchID, results, o.cfg.TargetMetric, o.cfg.Minimize)
	summary.ElapsedSec = time.Since(started).Seconds()
	if o.progress != nil {
		o.progress(100, fmt.Sprintf("Done: %d/%d runs succeeded", summary.SuccessfulRuns, summary.TotalRuns))
	}
	return summary, nil
}

func rankResults(batchID string, results []BatchRunResult, target string, minimize bool) *BatchSummary {
	var successful, failed int
	for _, r := range results {
		if r.Err != nil || r.Result == nil {
			failed++
		} else {
			successful++
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		vi := metricValue(results[i].Result, target, minimize)
		vj := metricValue(results[j].Result, target, minimize)
		if minimize {
			return vi < vj
		}
		return vi > vj
	})

	top := results
	if len(top) > 10 {
		top = top[:10]
	}

	summary := &BatchSummary{
		BatchID:        batchID,
		TotalRuns:      len(results),
		SuccessfulRuns: successful,
		FailedRuns:     failed,
		TopRuns:        top,
		AllRuns:        results,
	}
	if len(results) > 0 && results[0].Result != nil {
		r := results[0]
		summary.BestRun = &r
	}
	return summary
}

// metricValue reads the named field off BacktestMetrics for ranking
// (spec §6: getattr(metrics, target_metric)). Missing/failed runs sort
// to the back regardless of minimize (batch_runner.py's +-inf rule).
func metricValue(r *RunResult, target string, minimize bool) float64 {
	if r == nil {
		if minimize {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	m := r.Metrics
	switch target {
	case "win_rate":
		return m.WinRate
	case "profit_factor":
		return m.ProfitFactor
	case "avg_win":
		return m.AvgWin
	case "avg_loss":
		return m.AvgLoss
	case "total_return_pct":
		return m.TotalReturnPct
	case "max_drawdown_pct":
		return -m.MaxDrawdownPct // lower drawdown is "better" for a non-minimize ranking
	case "sharpe":
		if m.Sharpe == nil {
			if minimize {
				return math.Inf(1)
			}
			return math.Inf(-1)
		}
		return *m.Sharpe
	default: // "expectancy" and anything unrecognized
		return m.Expectancy
	}
}
