// FILE: engine.go
// Package main – C6 Run Orchestrator: initializes state, drives the
// main replay loop, sequences daily resets, runs position management
// then signal generation per bar, emits progress, and builds the final
// RunResult.
//
// Grounded on the teacher's backtest.go (runBacktest's loop skeleton,
// progress logging cadence) and on original_source's
// backtest_runner_positions.py (_update_equity_curve) and
// backtest_runner_metrics.py (_calculate_result).
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// EngineState is the full mutable state of one run (spec §3 "Engine
// State"). It is reinitialized per run and never shared across runs.
type EngineState struct {
	Cash        float64
	Equity      float64
	Trades      []Trade
	EquityCurve []EquityPoint
	Gate        RiskGateState
	LastResetDate time.Time // zero until the first bar
}

// Engine wires C1-C5 together and owns EngineState for the duration of
// a run (spec §5: "no shared mutable state is accessed from outside
// the loop").
type Engine struct {
	cfg      RunConfig
	source   Source
	strategy Strategy
	sim      *ExecutionSimulator
	pm       *PositionManager
	host     *StrategyHost
	trace    *TraceStore // optional, nil when ENGINE_TRACE_DIR is unset
}

// NewEngine builds C6 and wires it to a Source and a Strategy.
func NewEngine(cfg RunConfig, source Source, strategy Strategy) *Engine {
	sim := NewExecutionSimulator(ExecSimConfigFromRun(cfg))
	return &Engine{
		cfg:      cfg,
		source:   source,
		strategy: strategy,
		sim:      sim,
		pm:       NewPositionManager(sim),
		host:     NewStrategyHost(cfg, strategy, sim),
	}
}

// WithTrace attaches an optional decision-trace sink (SPEC_FULL §12).
func (e *Engine) WithTrace(t *TraceStore) *Engine {
	e.trace = t
	return e
}

// Run executes spec §4.6's main loop end to end and returns the final
// RunResult. ctx cancellation satisfies spec §5's cancellation
// contract: the loop exits after the bar in progress, end-of-run
// closure still fires, and the result is marked Partial.
func (e *Engine) Run(ctx context.Context, progress ProgressFunc) (*RunResult, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	mtxRunsStarted.Inc()

	runID := e.cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	rs, err := LoadReplaySource(e.source, e.cfg.Symbol, e.cfg.StartDate, e.cfg.EndDate, e.cfg.LookbackBars)
	if err != nil {
		mtxRunsCompleted.WithLabelValues("error").Inc()
		return nil, err
	}
	if rs.Report.DuplicatesDropped+rs.Report.NonPositiveDropped+rs.Report.HighLowDropped > 0 {
		log.Printf("[run=%s] replay: dropped dup=%d bad_price=%d high<low=%d",
			runID, rs.Report.DuplicatesDropped, rs.Report.NonPositiveDropped, rs.Report.HighLowDropped)
	}

	if rs.Len() == 0 {
		// spec §4.1 "Failure modes": zero rows is a successful, empty run.
		mtxRunsCompleted.WithLabelValues("ok").Inc()
		return &RunResult{
			Symbol: e.cfg.Symbol, Timeframe: e.cfg.BaseTimeframe, Mode: "backtest",
			Start: e.cfg.StartDate, End: e.cfg.EndDate,
			InitialCapital: e.cfg.InitialCapital, FinalCapital: e.cfg.InitialCapital,
			Metrics: BacktestMetrics{}, RunID: runID,
		}, nil
	}

	resampler, err := NewMTFResampler(rs.All(), e.cfg.MTFTimeframes, e.cfg.HistoryBarsPerTF)
	if err != nil {
		mtxRunsCompleted.WithLabelValues("error").Inc()
		return nil, err
	}

	state := &EngineState{
		Cash:   e.cfg.InitialCapital,
		Equity: e.cfg.InitialCapital,
	}

	cancelled := false
	everyN := e.cfg.ProgressEveryBars
	if everyN <= 0 {
		everyN = 100
	}

	rs.ReplayIter(func() bool {
		select {
		case <-ctx.Done():
			cancelled = true
			return true
		default:
			return false
		}
	}, func(k int, cur Bar, history []Bar) bool {
		mtxBarsProcessed.Inc()
		e.stepBar(state, k, cur, history, resampler, runID)

		if progress != nil && everyN > 0 && k%everyN == 0 {
			pct := 100 * (k + 1) / rs.Len()
			progress(pct, "Backtest in progress")
		}
		return true
	})

	// End-of-series closure: close any still-open position at the last
	// base-bar close (spec §4.4).
	lastBar := rs.Bar(rs.Len() - 1)
	if t, delta, closed := e.pm.CloseAtEndOfSeries(lastBar); closed {
		e.recordTrade(state, t, delta, "End of Backtest")
	}
	e.updateEquityCurve(state, lastBar.Time, lastBar.Close)

	result := e.buildResult(runID, rs, state, cancelled)
	if cancelled {
		mtxRunsCompleted.WithLabelValues("cancelled").Inc()
		if progress != nil {
			progress(100, "Backtest abgebrochen")
		}
		return result, nil
	}
	mtxRunsCompleted.WithLabelValues("ok").Inc()
	if progress != nil {
		progress(100, "Backtest abgeschlossen")
	}
	return result, nil
}

// stepBar implements one iteration of spec §4.6's main loop.
func (e *Engine) stepBar(state *EngineState, k int, cur Bar, history []Bar, resampler *MTFResampler, runID string) {
	// 1. Daily-reset check on the bar's UTC calendar date (spec I6).
	day := cur.Time.UTC().Truncate(24 * time.Hour)
	if state.LastResetDate.IsZero() || !day.Equal(state.LastResetDate) {
		state.Gate.DailyPnL = 0
		state.Gate.TradesToday = 0
		state.LastResetDate = day
	}

	// 2. MTF snapshot.
	mtf := resampler.SnapshotAt(k)

	// 3. Position management (may close).
	if t, delta, closed := e.pm.ManageBar(cur); closed {
		e.recordTrade(state, t, delta, t.ExitReason)
	}

	// 4. Signal generation, only when flat and the risk gate admits.
	if e.pm.Flat() {
		admit, _ := e.host.TryAdmit(&state.Gate, cur, history, mtf, state.Cash, runID, k)
		if admit.Proposed && admit.Fill != nil && admit.Fill.Status == FillStatusFilled {
			pos := e.pm.Open(admit.Order.Side, admit.Fill.Price, cur.Time, admit.Fill.Qty, admit.Order.Leverage, admit.SL, admit.TP, admit.Fill.MarginUsed, admit.Fill.Fee, admit.Order.Reason)
			state.Cash -= pos.MarginUsed
			state.Gate.TradesToday++
			if e.trace != nil {
				e.trace.Append(TraceEntry{
					RunID: runID, BarIndex: k, BarTime: cur.Time,
					Side: string(pos.Side), EntryPrice: pos.EntryPrice,
					StopLoss: pos.StopLoss, Reason: pos.Reason,
				})
			}
		}
	}

	// 5. Equity point.
	e.updateEquityCurve(state, cur.Time, cur.Close)
}

func (e *Engine) recordTrade(state *EngineState, t *Trade, cashDelta float64, exitReason string) {
	state.Cash += cashDelta
	state.Trades = append(state.Trades, *t)
	state.Gate.DailyPnL += t.RealizedPnL
	if t.RealizedPnL < 0 {
		state.Gate.ConsecutiveLosses++
	} else {
		state.Gate.ConsecutiveLosses = 0
		state.Gate.CooldownUntil = time.Time{}
	}
	mtxTradesClosed.WithLabelValues(exitReason).Inc()
}

// updateEquityCurve recomputes equity = cash + margin + unrealized PnL
// of the open position (spec §3 "Equity Point").
func (e *Engine) updateEquityCurve(state *EngineState, t time.Time, currentPrice float64) {
	equity := state.Cash
	if p := e.pm.Pos; p != nil {
		equity += p.MarginUsed + p.UnrealizedPnL
	}
	state.Equity = equity
	state.EquityCurve = append(state.EquityCurve, EquityPoint{Time: t, Equity: equity})
	mtxRunEquity.Set(equity)
}

func (e *Engine) buildResult(runID string, rs *ReplaySource, state *EngineState, cancelled bool) *RunResult {
	metrics := computeMetrics(state.Trades, state.EquityCurve, e.cfg.InitialCapital)
	return &RunResult{
		Symbol:          e.cfg.Symbol,
		Timeframe:       e.cfg.BaseTimeframe,
		Mode:            "backtest",
		Start:           e.cfg.StartDate,
		End:             e.cfg.EndDate,
		InitialCapital:  e.cfg.InitialCapital,
		FinalCapital:    state.Equity,
		Bars:            downsampleHourly(rs.All()),
		Trades:          state.Trades,
		EquityCurve:     state.EquityCurve,
		Metrics:         metrics,
		StrategyName:    e.cfg.StrategyPreset,
		StrategyParams:  paramsToAny(e.cfg.ParameterOverrides),
		RunID:           runID,
		Partial:         cancelled,
		WarningsDropped: rs.Report.DuplicatesDropped + rs.Report.NonPositiveDropped + rs.Report.HighLowDropped,
	}
}

// downsampleHourly samples every 60th bar for the reported bars slice
// (spec §6 "bars (a sampled subset, typically hourly)"), assuming a
// 1-minute base timeframe as spec's defaults do.
func downsampleHourly(bars []Bar) []Bar {
	if len(bars) == 0 {
		return nil
	}
	out := make([]Bar, 0, len(bars)/60+1)
	for i := 0; i < len(bars); i += 60 {
		out = append(out, bars[i])
	}
	return out
}

func paramsToAny(m map[string]float64) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
