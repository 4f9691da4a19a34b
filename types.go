// FILE: types.go
// Package main – Core data model shared by every engine component.
//
// These are the immutable-once-created records that flow through the
// replay loop: Bar -> Order -> Fill -> Position -> Trade -> EquityPoint.
// Nothing here performs I/O; it's the vocabulary the rest of the
// package computes over.
package main

import "time"

// Bar is one OHLCV candle on the base timeframe (or a resampled one).
// Bars are created once at load/resample time and never mutated.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Side is a trade direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side; used when building exit orders.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType selects how an order picks its base execution price.
type OrderType string

const (
	OrderMarket     OrderType = "MARKET"
	OrderLimit      OrderType = "LIMIT"
	OrderStopMarket OrderType = "STOP_MARKET"
	OrderTakeProfit OrderType = "TAKE_PROFIT"
)

// Order is an intent submitted to the execution simulator. Consumed
// once by C3 and never reused.
type Order struct {
	Side      Side
	Type      OrderType
	Qty       float64
	Price     float64 // limit price, when Type == OrderLimit
	StopPrice float64 // stop/trigger price, when Type == OrderStopMarket/OrderTakeProfit
	Leverage  float64
	Time      time.Time
	Reason    string
	AssumeTaker bool
}

// FillStatus is the outcome of attempting to execute an Order.
type FillStatus string

const (
	FillStatusFilled     FillStatus = "filled"
	FillStatusRejected   FillStatus = "rejected"
	FillStatusLiquidated FillStatus = "liquidated"
)

// Fill is the immutable result of running an Order through the
// execution simulator.
type Fill struct {
	Status          FillStatus
	Price           float64
	Qty             float64
	Fee             float64
	FeeRate         float64
	SlippageAbs     float64
	SlippageBps     float64
	Notional        float64
	MarginUsed      float64
	LiquidationPx   float64
	RejectReason    string
}

// Position is an open leveraged position. Created on admission, mutated
// only by the position manager (unrealized PnL, trailing levels absent
// from this core — see spec §9 single-position assumption).
type Position struct {
	ID               string
	Side             Side
	EntryPrice       float64
	EntryTime        time.Time
	Size             float64
	Leverage         float64
	StopLoss         float64 // 0 means unset
	TakeProfit       float64 // 0 means unset
	LiquidationPrice float64 // 0 means "never" (leverage == 1)
	MarginUsed       float64
	EntryFee         float64
	Reason           string

	UnrealizedPnL    float64
	UnrealizedPnLPct float64
}

// InitialRisk is |entry - SL| * size, used for the R-multiple. Returns
// (0, false) when no SL was set.
func (p *Position) InitialRisk() (float64, bool) {
	if p.StopLoss <= 0 {
		return 0, false
	}
	diff := p.EntryPrice - p.StopLoss
	if diff < 0 {
		diff = -diff
	}
	return diff * p.Size, true
}

// Trade is an immutable closed-position record.
type Trade struct {
	ID             string    `json:"id"`
	Side           Side      `json:"side"`
	Size           float64   `json:"size"`
	EntryTime      time.Time `json:"entry_time"`
	EntryPrice     float64   `json:"entry_price"`
	EntryReason    string    `json:"entry_reason"`
	ExitTime       time.Time `json:"exit_time"`
	ExitPrice      float64   `json:"exit_price"`
	ExitReason     string    `json:"exit_reason"`
	StopLoss       float64   `json:"stop_loss,omitempty"`
	TakeProfit     float64   `json:"take_profit,omitempty"`
	RealizedPnL    float64   `json:"realized_pnl"`
	RealizedPnLPct float64   `json:"realized_pnl_pct"`
	Commission     float64   `json:"commission"`
	Slippage       float64   `json:"slippage"`
	DurationMin    float64   `json:"duration_min"`
	RMultiple      *float64  `json:"r_multiple,omitempty"`
}

// EquityPoint is one sample of the run's equity curve.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Signal is what a Strategy returns when it wants to open a position.
type Signal struct {
	Action      Side
	StopLoss    float64
	SLDistance  float64
	TakeProfit  float64
	Leverage    float64
	Reason      string
}

// MTFSnapshot maps a timeframe label ("5m", "1h", ...) to the bars of
// that timeframe visible as of the current base bar.
type MTFSnapshot map[string][]Bar

// BacktestMetrics is the aggregated performance summary computed once
// at the end of a run (spec §4.6).
type BacktestMetrics struct {
	TotalTrades       int     `json:"total_trades"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	WinRate           float64 `json:"win_rate"`
	ProfitFactor      float64 `json:"profit_factor"`
	AvgWin            float64 `json:"avg_win"`
	AvgLoss           float64 `json:"avg_loss"`
	Expectancy        float64 `json:"expectancy"`
	AvgRMultiple      *float64 `json:"avg_r_multiple,omitempty"`
	BestRMultiple     *float64 `json:"best_r_multiple,omitempty"`
	WorstRMultiple    *float64 `json:"worst_r_multiple,omitempty"`
	TotalReturnPct    float64 `json:"total_return_pct"`
	MaxDrawdownPct    float64 `json:"max_drawdown_pct"`
	MaxDrawdownDays   float64 `json:"max_drawdown_days"`
	MaxConsecWins     int     `json:"max_consec_wins"`
	MaxConsecLosses   int     `json:"max_consec_losses"`
	Sharpe            *float64 `json:"sharpe,omitempty"`
	AvgDurationMin    float64 `json:"avg_duration_min"`
}

// RunResult is the full, JSON-shaped output of a single engine run
// (spec §6 "Run result").
type RunResult struct {
	Symbol          string          `json:"symbol"`
	Timeframe       string          `json:"timeframe"`
	Mode            string          `json:"mode"`
	Start           time.Time       `json:"start"`
	End             time.Time       `json:"end"`
	InitialCapital  float64         `json:"initial_capital"`
	FinalCapital    float64         `json:"final_capital"`
	Bars            []Bar           `json:"bars"`
	Trades          []Trade         `json:"trades"`
	EquityCurve     []EquityPoint   `json:"equity_curve"`
	Metrics         BacktestMetrics `json:"metrics"`
	StrategyName    string          `json:"strategy_name"`
	StrategyParams  map[string]any  `json:"strategy_params,omitempty"`
	RunID           string          `json:"run_id"`
	Partial         bool            `json:"partial,omitempty"`
	WarningsDropped int             `json:"warnings_dropped,omitempty"`
}

// ProgressFunc receives (percent 0-100, message) updates during a run.
type ProgressFunc func(pct int, msg string)
