// FILE: strategy.go
// Package main – C5 Strategy Host: invokes the user-supplied signal
// function when flat, enforces risk gates before admission, and turns
// an accepted Signal into an open Position via C3.
//
// Grounded on original_source's backtest_runner risk-gate ordering and
// on spec §9's instruction to express the sole extension point as a
// single-method interface rather than a strategy inheritance hierarchy.
package main

import (
	"log"
	"math"
	"time"
)

// Strategy is the engine's one extension point (spec §9 "Dynamic
// dispatch on strategies"). Decide is invoked at most once per bar,
// only when the position manager is flat, and must treat its inputs
// as read-only.
type Strategy interface {
	Decide(current Bar, history []Bar, mtf MTFSnapshot) (*Signal, error)
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc func(current Bar, history []Bar, mtf MTFSnapshot) (*Signal, error)

func (f StrategyFunc) Decide(current Bar, history []Bar, mtf MTFSnapshot) (*Signal, error) {
	return f(current, history, mtf)
}

// RiskGateState is the mutable per-run counters the risk gate reads
// and updates (spec §4.5). EngineState owns it; StrategyHost takes it
// by pointer rather than holding a back-reference to the orchestrator
// (spec §9 "Cyclic/back-references").
type RiskGateState struct {
	DailyPnL          float64
	TradesToday       int
	ConsecutiveLosses int
	CooldownUntil     time.Time // zero means no cooldown
}

// StrategyHost is C5.
type StrategyHost struct {
	cfg      RunConfig
	strategy Strategy
	sim      *ExecutionSimulator
}

// NewStrategyHost wires C5 to the run config, the user strategy, and
// the shared C3 instance used to price entries.
func NewStrategyHost(cfg RunConfig, strategy Strategy, sim *ExecutionSimulator) *StrategyHost {
	return &StrategyHost{cfg: cfg, strategy: strategy, sim: sim}
}

// gateBlocked evaluates spec §4.5's risk gate in the mandated order:
// daily loss cap, then trade-count cap, then consecutive-loss cooldown.
func (h *StrategyHost) gateBlocked(gate *RiskGateState, barTime time.Time) bool {
	if gate.DailyPnL < -h.cfg.MaxDailyLossPct/100*h.cfg.InitialCapital {
		return true
	}
	if gate.TradesToday >= h.cfg.MaxTradesPerDay {
		return true
	}
	if gate.ConsecutiveLosses >= h.cfg.MaxLossStreak {
		if gate.CooldownUntil.IsZero() {
			gate.CooldownUntil = barTime.Add(24 * time.Hour)
		}
		if barTime.Before(gate.CooldownUntil) {
			return true
		}
	}
	return false
}

// AdmitResult is what TryAdmit produces: either nothing proposed, a
// rejected fill (no side effects), or an accepted fill with the SL/TP
// to record on the new position.
type AdmitResult struct {
	Proposed bool
	Fill     *Fill
	Order    Order
	SL, TP   float64
}

// TryAdmit evaluates the risk gate, calls the strategy, and — if it
// returns a Signal — sizes and submits a market entry order. runID and
// barIndex are used only to label a logged warning when the strategy
// callback errors (spec §7); they carry no other behavior.
func (h *StrategyHost) TryAdmit(gate *RiskGateState, current Bar, history []Bar, mtf MTFSnapshot, cash float64, runID string, barIndex int) (AdmitResult, error) {
	if h.gateBlocked(gate, current.Time) {
		return AdmitResult{}, nil
	}

	sig, err := h.strategy.Decide(current, history, mtf)
	if err != nil {
		// spec §7: signal-callback errors are logged and treated as
		// "no signal this bar", never fatal to the run.
		log.Printf("[run=%s bar=%d] strategy error: no signal this bar: %v", runID, barIndex, err)
		return AdmitResult{}, nil
	}
	if sig == nil {
		return AdmitResult{}, nil
	}

	slDistance := sig.SLDistance
	if slDistance <= 0 && sig.StopLoss > 0 {
		slDistance = math.Abs(current.Close - sig.StopLoss)
	}
	if slDistance <= 0 {
		slDistance = current.Close * 0.01 // spec §4.5 default: 1% of close
	}

	leverage := sig.Leverage
	if leverage <= 0 {
		leverage = 1
	}
	if leverage > h.cfg.MaxLeverage {
		leverage = h.cfg.MaxLeverage
	}

	size := (cash * h.cfg.RiskPerTradePct / 100) * leverage / slDistance

	atr := atr14(history)
	order := Order{
		Side:        sig.Action,
		Type:        OrderMarket,
		Qty:         size,
		Leverage:    leverage,
		Time:        current.Time,
		Reason:      sig.Reason,
		AssumeTaker: h.cfg.AssumeTaker,
	}
	margin := cash
	f := h.sim.Execute(order, current.Close, &atr, &margin, nil)
	if f.Status != FillStatusFilled {
		return AdmitResult{Proposed: true, Fill: &f, Order: order}, nil
	}

	sl := sig.StopLoss
	if sl <= 0 {
		if sig.Action == SideBuy {
			sl = f.Price - slDistance
		} else {
			sl = f.Price + slDistance
		}
	}

	return AdmitResult{Proposed: true, Fill: &f, Order: order, SL: sl, TP: sig.TakeProfit}, nil
}

// atr14 computes ATR over the trailing 14 bars of the history window
// (spec §4.5), returning 0 if there isn't enough history.
func atr14(history []Bar) float64 {
	if len(history) < 14 {
		return 0
	}
	series := ATR(history, 14)
	return series[len(series)-1]
}
