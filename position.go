// FILE: position.go
// Package main – C4 Position Manager: holds the (single, per spec §9)
// open position, updates unrealized P&L every bar, checks liquidation
// then SL then TP against intrabar high/low, and closes/records
// trades.
//
// Grounded on original_source's backtest_runner_positions.py, with one
// deliberate addition the Python reference doesn't show explicitly:
// spec.md mandates liquidation-before-SL-before-TP ordering, so the
// liquidation check is threaded in ahead of the SL/TP checks the
// Python file already implements in that relative order.
package main

import (
	"time"

	"github.com/google/uuid"
)

// PositionManager is C4. It holds at most one open Position at a time
// (spec §9 "single position assumption") and the shared ExecutionSimulator
// used to price the exit leg.
type PositionManager struct {
	sim *ExecutionSimulator
	Pos *Position // nil when flat
}

// NewPositionManager wires C4 to the C3 instance it closes trades
// through.
func NewPositionManager(sim *ExecutionSimulator) *PositionManager {
	return &PositionManager{sim: sim}
}

// Flat reports whether there is no open position.
func (pm *PositionManager) Flat() bool { return pm.Pos == nil }

// Open admits a new position. Margin has already been checked by the
// caller (C5) via the fill; this just records the position.
func (pm *PositionManager) Open(side Side, entryPrice float64, entryTime time.Time, size, leverage, stopLoss, takeProfit, marginUsed, entryFee float64, reason string) *Position {
	p := &Position{
		ID:               uuid.NewString(),
		Side:             side,
		EntryPrice:       entryPrice,
		EntryTime:        entryTime,
		Size:             size,
		Leverage:         leverage,
		StopLoss:         stopLoss,
		TakeProfit:       takeProfit,
		LiquidationPrice: pm.sim.LiquidationPrice(side, entryPrice, leverage),
		MarginUsed:       marginUsed,
		EntryFee:         entryFee,
		Reason:           reason,
	}
	pm.Pos = p
	return p
}

// ManageBar implements spec §4.4's per-bar loop for the one open
// position (if any). It returns a *Trade when the position closed
// this bar, and the net cash delta to apply (margin + net PnL).
func (pm *PositionManager) ManageBar(bar Bar) (trade *Trade, cashDelta float64, closed bool) {
	p := pm.Pos
	if p == nil {
		return nil, 0, false
	}

	// 1. Unrealized PnL, always refreshed first.
	if p.Side == SideBuy {
		p.UnrealizedPnL = (bar.Close - p.EntryPrice) * p.Size * p.Leverage
		p.UnrealizedPnLPct = (bar.Close - p.EntryPrice) / p.EntryPrice * 100 * p.Leverage
	} else {
		p.UnrealizedPnL = (p.EntryPrice - bar.Close) * p.Size * p.Leverage
		p.UnrealizedPnLPct = (p.EntryPrice - bar.Close) / p.EntryPrice * 100 * p.Leverage
	}

	// 2. Liquidation check first (spec mandates liquidation before SL).
	if p.LiquidationPrice > 0 {
		if (p.Side == SideBuy && bar.Low <= p.LiquidationPrice) ||
			(p.Side == SideSell && bar.High >= p.LiquidationPrice) {
			t, delta := pm.close(p, p.LiquidationPrice, bar.Time, "Liquidation")
			return t, delta, true
		}
	}

	// 3. SL check.
	if p.StopLoss > 0 {
		if (p.Side == SideBuy && bar.Low <= p.StopLoss) ||
			(p.Side == SideSell && bar.High >= p.StopLoss) {
			t, delta := pm.close(p, p.StopLoss, bar.Time, "Stop Loss")
			return t, delta, true
		}
	}

	// 4. TP check.
	if p.TakeProfit > 0 {
		if (p.Side == SideBuy && bar.High >= p.TakeProfit) ||
			(p.Side == SideSell && bar.Low <= p.TakeProfit) {
			t, delta := pm.close(p, p.TakeProfit, bar.Time, "Take Profit")
			return t, delta, true
		}
	}

	return nil, 0, false
}

// CloseAtEndOfSeries closes the open position (if any) at the final
// bar's close, reason "End of Backtest" (spec §4.4).
func (pm *PositionManager) CloseAtEndOfSeries(lastBar Bar) (*Trade, float64, bool) {
	if pm.Pos == nil {
		return nil, 0, false
	}
	t, delta := pm.close(pm.Pos, lastBar.Close, lastBar.Time, "End of Backtest")
	return t, delta, true
}

func (pm *PositionManager) close(p *Position, exitPrice float64, exitTime time.Time, reason string) (*Trade, float64) {
	exitOrder := Order{
		Side: p.Side.Opposite(),
		Type: OrderMarket,
		Qty:  p.Size,
		Time: exitTime,
	}
	fill := pm.sim.Execute(exitOrder, exitPrice, nil, nil, nil)
	pnl := pm.sim.ComputePnL(p.EntryPrice, fill.Price, p.Size, p.Side, p.Leverage, p.EntryFee, fill.Fee)

	var rMultiple *float64
	if risk, ok := p.InitialRisk(); ok && risk > 0 {
		r := pnl.NetPnL / risk
		rMultiple = &r
	}

	trade := &Trade{
		ID:             p.ID,
		Side:           p.Side,
		Size:           p.Size,
		EntryTime:      p.EntryTime,
		EntryPrice:     p.EntryPrice,
		EntryReason:    p.Reason,
		ExitTime:       exitTime,
		ExitPrice:      fill.Price,
		ExitReason:     reason,
		StopLoss:       p.StopLoss,
		TakeProfit:     p.TakeProfit,
		RealizedPnL:    pnl.NetPnL,
		RealizedPnLPct: pnl.ReturnPct,
		Commission:     p.EntryFee + fill.Fee,
		Slippage:       fill.SlippageAbs,
		DurationMin:    exitTime.Sub(p.EntryTime).Minutes(),
		RMultiple:      rMultiple,
	}

	pm.Pos = nil
	return trade, p.MarginUsed + pnl.NetPnL
}
