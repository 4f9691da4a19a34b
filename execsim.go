// FILE: execsim.go
// Package main – C3 Execution Simulator: a pure function from
// (order, market_price, atr?, available_margin) to a Fill. Carries
// configuration but no market-context state, so it's reusable across
// runs and tests unchanged (spec §5).
//
// Grounded on original_source's execution_simulator.py, translated
// into idiomatic Go rather than transliterated: same formulas for fee,
// slippage, margin, and liquidation-price computation.
package main

import "math"

// ExecSimConfig is the slice of RunConfig the simulator actually
// needs; kept as its own type so the simulator stays decoupled from
// the rest of the run configuration (spec §5 "stateless with respect
// to market context").
type ExecSimConfig struct {
	FeeRateMaker         float64 // percent, e.g. 0.02
	FeeRateTaker         float64 // percent, e.g. 0.06
	SlippageMethod       SlippageMethod
	SlippageBps          float64
	SlippageATRMult      float64
	MaxLeverage          float64
	LiquidationBufferPct float64
}

// ExecSimConfigFromRun projects the fields ExecutionSimulator needs
// out of a RunConfig.
func ExecSimConfigFromRun(c RunConfig) ExecSimConfig {
	return ExecSimConfig{
		FeeRateMaker:         c.FeeRateMaker,
		FeeRateTaker:         c.FeeRateTaker,
		SlippageMethod:       c.SlippageMethod,
		SlippageBps:          c.SlippageBps,
		SlippageATRMult:      c.SlippageATRMult,
		MaxLeverage:          c.MaxLeverage,
		LiquidationBufferPct: c.LiquidationBufferPct,
	}
}

// ExecutionSimulator is C3.
type ExecutionSimulator struct {
	cfg ExecSimConfig
}

// NewExecutionSimulator builds C3 from its config slice.
func NewExecutionSimulator(cfg ExecSimConfig) *ExecutionSimulator {
	return &ExecutionSimulator{cfg: cfg}
}

// basePrice selects the order's base execution price per spec §4.3:
// limit orders price at order.Price, stop orders at order.StopPrice,
// market orders at marketPrice.
func basePrice(o Order, marketPrice float64) float64 {
	switch o.Type {
	case OrderLimit:
		return o.Price
	case OrderStopMarket, OrderTakeProfit:
		return o.StopPrice
	default:
		return marketPrice
	}
}

// applySlippage returns the filled price after slippage, signed per
// side: buys pay up, sells receive down (spec §4.3). atr and
// volumeRatio are nil when the caller has no reading for them, in
// which case ATR-based slippage falls back to fixed bps and
// volume-adjusted slippage assumes a volume ratio of 1.
func (e *ExecutionSimulator) applySlippage(base float64, side Side, atr *float64, volumeRatio *float64) (fillPrice, slipAbs, slipBps float64) {
	switch e.cfg.SlippageMethod {
	case SlippageATRBased:
		if atr == nil || *atr <= 0 {
			slipBps = e.cfg.SlippageBps
		} else {
			slipBps = (*atr * e.cfg.SlippageATRMult / base) * 10000
		}
	case SlippageVolumeAdjusted:
		vr := 1.0
		if volumeRatio != nil {
			vr = *volumeRatio
		}
		slipBps = e.cfg.SlippageBps * (2.0 - math.Min(vr, 1.0))
	default:
		slipBps = e.cfg.SlippageBps
	}
	slipAbs = base * slipBps / 10000.0
	if side == SideSell {
		slipAbs = -slipAbs
	}
	return base + slipAbs, math.Abs(slipAbs), slipBps
}

// feeRate picks maker or taker rate per spec §4.3: taker for market
// orders or when AssumeTaker is set, maker otherwise. Rates are
// expressed as percent in configuration, so this divides by 100.
func (e *ExecutionSimulator) feeRate(o Order) float64 {
	if o.Type == OrderMarket || o.AssumeTaker {
		return e.cfg.FeeRateTaker / 100.0
	}
	return e.cfg.FeeRateMaker / 100.0
}

// Execute runs an order through the simulator and returns its Fill.
// atr, availableMargin, and volumeRatio are nil when the caller has
// no reading for them; a nil availableMargin skips the margin check
// entirely (used for exit orders, which never need fresh margin —
// spec's position manager close path).
func (e *ExecutionSimulator) Execute(o Order, marketPrice float64, atr *float64, availableMargin *float64, volumeRatio *float64) Fill {
	base := basePrice(o, marketPrice)
	fillPrice, slipAbs, slipBps := e.applySlippage(base, o.Side, atr, volumeRatio)

	notional := fillPrice * o.Qty
	effLeverage := math.Min(o.Leverage, e.cfg.MaxLeverage)
	if effLeverage <= 0 {
		effLeverage = 1
	}
	marginRequired := notional / effLeverage

	if availableMargin != nil && marginRequired > *availableMargin {
		return Fill{
			Status:       FillStatusRejected,
			RejectReason: "insufficient margin",
			Price:        fillPrice,
			Qty:          o.Qty,
			Notional:     notional,
			MarginUsed:   marginRequired,
			SlippageAbs:  slipAbs,
			SlippageBps:  slipBps,
		}
	}

	rate := e.feeRate(o)
	fee := notional * rate

	return Fill{
		Status:        FillStatusFilled,
		Price:         fillPrice,
		Qty:           o.Qty,
		Fee:           fee,
		FeeRate:       rate,
		SlippageAbs:   slipAbs,
		SlippageBps:   slipBps,
		Notional:      notional,
		MarginUsed:    marginRequired,
		LiquidationPx: e.LiquidationPrice(o.Side, fillPrice, effLeverage),
	}
}

// LiquidationPrice implements spec §4.3: leverage==1 is a sentinel
// meaning "never liquidates" (returns 0).
func (e *ExecutionSimulator) LiquidationPrice(side Side, entry float64, leverage float64) float64 {
	if leverage <= 1 {
		return 0
	}
	marginRatio := 1.0 / leverage
	buffer := e.cfg.LiquidationBufferPct / 100.0
	if side == SideBuy {
		return entry * (1 - marginRatio*(1-buffer))
	}
	return entry * (1 + marginRatio*(1-buffer))
}

// CheckLiquidation reports whether currentPrice has breached the
// liquidation level for a position opened at entryPrice, and the
// unrealized PnL percent at that price.
func (e *ExecutionSimulator) CheckLiquidation(side Side, entryPrice, currentPrice, leverage float64) (liquidated bool, pnlPct float64) {
	liq := e.LiquidationPrice(side, entryPrice, leverage)
	if side == SideBuy {
		pnlPct = (currentPrice - entryPrice) / entryPrice * 100 * leverage
		liquidated = liq > 0 && currentPrice <= liq
	} else {
		pnlPct = (entryPrice - currentPrice) / entryPrice * 100 * leverage
		liquidated = liq > 0 && currentPrice >= liq
	}
	return
}

// PnLResult is the breakdown returned by ComputePnL (spec §4.3).
type PnLResult struct {
	RawPnL        float64
	LeveragedPnL  float64
	TotalFees     float64
	NetPnL        float64
	ReturnPct     float64 // relative to margin used, spec invariant I5
	EntryNotional float64
	ExitNotional  float64
	MarginUsed    float64
}

// ComputePnL computes the full PnL breakdown for a closed position.
func (e *ExecutionSimulator) ComputePnL(entry, exit, qty float64, side Side, leverage, entryFee, exitFee float64) PnLResult {
	var raw float64
	if side == SideBuy {
		raw = (exit - entry) * qty
	} else {
		raw = (entry - exit) * qty
	}
	leveraged := raw * leverage
	fees := entryFee + exitFee
	net := leveraged - fees

	entryNotional := entry * qty
	exitNotional := exit * qty
	marginUsed := entryNotional / math.Max(leverage, 1)

	returnPct := 0.0
	if marginUsed != 0 {
		returnPct = net / marginUsed * 100
	}

	return PnLResult{
		RawPnL:        raw,
		LeveragedPnL:  leveraged,
		TotalFees:     fees,
		NetPnL:        net,
		ReturnPct:     returnPct,
		EntryNotional: entryNotional,
		ExitNotional:  exitNotional,
		MarginUsed:    marginUsed,
	}
}
