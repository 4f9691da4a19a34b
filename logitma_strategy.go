// FILE: logitma_strategy.go
// Package main – LogitMAStrategy: a reference Strategy implementation
// exercising C5 end-to-end, adapted from the teacher's model.go
// (AIMicroModel) and strategy.go (decide()).
//
// This is a demo strategy, not a core requirement: it blends a tiny
// logistic-regression probability with an EMA4/EMA8 regime filter,
// exactly as the teacher's live-trading bot did, but returns a Signal
// through the engine's Strategy interface instead of placing live
// orders. The teacher's optional "extended" logistic head (ExtendedLogit)
// is not carried over — it's referenced throughout the teacher's
// trader.go/live.go/backtest.go but never defined in this repository
// snapshot, so there is nothing to adapt; LogitMAStrategy only
// implements the baseline path.
package main

import (
	"fmt"
	"math"
	"math/rand"
)

// LogitMicroModel is a minimal logistic-regression-style model
// producing a directional probability from hand-crafted features.
type LogitMicroModel struct {
	W []float64 // weights
	B float64   // bias
}

// NewLogitMicroModel seeds random small weights, matching the
// teacher's newModel().
func NewLogitMicroModel(rng *rand.Rand) *LogitMicroModel {
	w := make([]float64, 4) // features: ret1, ret5, rsi14/100, zscore20
	for i := range w {
		w[i] = rng.NormFloat64() * 0.01
	}
	return &LogitMicroModel{W: w}
}

func sigmoid(x float64) float64 {
	if x > 20 {
		return 1
	}
	if x < -20 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

// Predict expects exactly len(W) features; otherwise returns 0.5.
func (m *LogitMicroModel) Predict(features []float64) float64 {
	if len(features) != len(m.W) {
		return 0.5
	}
	z := m.B
	for i := range features {
		z += m.W[i] * features[i]
	}
	return sigmoid(z)
}

// Fit performs a simple gradient step on cross-entropy loss over the
// supplied bars, matching the teacher's fit()/buildDataset() pair.
func (m *LogitMicroModel) Fit(bars []Bar, lr float64, epochs int) {
	if len(bars) < 40 {
		return
	}
	feats, labels := buildLogitDataset(bars)
	for e := 0; e < epochs; e++ {
		for i := range feats {
			p := m.Predict(feats[i])
			y := labels[i]
			grad := p - y
			for j := range m.W {
				m.W[j] -= lr * grad * feats[i][j]
			}
			m.B -= lr * grad
		}
	}
}

func buildLogitDataset(bars []Bar) ([][]float64, []float64) {
	var feats [][]float64
	var labels []float64
	rsis := RSI(bars, 14)
	zs := ZScore(bars, 20)
	for i := 21; i < len(bars)-1; i++ {
		ret1 := (bars[i].Close - bars[i-1].Close) / bars[i-1].Close
		ret5 := (bars[i].Close - bars[i-5].Close) / bars[i-5].Close
		f := []float64{ret1, ret5, rsis[i] / 100.0, zs[i]}
		up := 0.0
		if bars[i+1].Close > bars[i].Close {
			up = 1.0
		}
		feats = append(feats, f)
		labels = append(labels, up)
	}
	return feats, labels
}

// LogitMAStrategy combines LogitMicroModel's pUp with an EMA4/EMA8
// regime filter, the same shape as the teacher's decide().
type LogitMAStrategy struct {
	Model         *LogitMicroModel
	BuyThreshold  float64
	SellThreshold float64
	UseMAFilter   bool
	Leverage      float64
	SLDistancePct float64 // fraction of close, e.g. 0.01
}

// NewLogitMAStrategy builds a demo strategy with the teacher's default
// thresholds (BUY_THRESHOLD 0.55, SELL_THRESHOLD 0.45, USE_MA_FILTER true).
func NewLogitMAStrategy(model *LogitMicroModel) *LogitMAStrategy {
	return &LogitMAStrategy{
		Model:         model,
		BuyThreshold:  0.55,
		SellThreshold: 0.45,
		UseMAFilter:   true,
		Leverage:      1,
		SLDistancePct: 0.01,
	}
}

// Decide implements Strategy. history is the tail of bars strictly
// before current (spec's no-lookahead contract); this strategy appends
// current itself since its indicators are computed "as of the close
// about to be traded on", matching the teacher's use of the full
// candle slice up to and including the live tick.
func (s *LogitMAStrategy) Decide(current Bar, history []Bar, mtf MTFSnapshot) (*Signal, error) {
	bars := append(append([]Bar{}, history...), current)
	if len(bars) < 40 {
		return nil, nil
	}
	i := len(bars) - 1

	rsis := RSI(bars, 14)
	zs := ZScore(bars, 20)
	ret1 := (bars[i].Close - bars[i-1].Close) / bars[i-1].Close
	ret5 := (bars[i].Close - bars[i-5].Close) / bars[i-5].Close
	features := []float64{ret1, ret5, rsis[i] / 100.0, zs[i]}
	pUp := s.Model.Predict(features)

	ema4 := EMA(bars, 4)
	ema8 := EMA(bars, 8)
	fast, slow := ema4[i], ema8[i]
	fast3rd, slow3rd := ema4[i-3], ema8[i-3]
	fast2nd, slow2nd := ema4[i-2], ema8[i-2]

	var highPeak, priceDownGoingUp, lowBottom, priceUpGoingDown bool
	var buyMA, sellMA bool
	if !math.IsNaN(fast) && !math.IsNaN(slow) && !math.IsNaN(fast3rd) && !math.IsNaN(slow3rd) {
		highPeak = (slow3rd < fast3rd) && (slow2nd-fast2nd > slow3rd-fast3rd) && (slow-fast < slow2nd-fast2nd) && (slow < fast)
		priceDownGoingUp = (slow > fast) && (slow-fast < slow3rd-fast3rd) && (slow3rd > fast3rd)
		lowBottom = (fast3rd < slow3rd) && (fast2nd-slow2nd > fast3rd-slow3rd) && (fast-slow < fast2nd-slow2nd) && (fast < slow)
		priceUpGoingDown = (fast > slow) && (fast-slow < fast3rd-slow3rd) && (fast3rd > slow3rd)

		switch {
		case lowBottom:
			buyMA = true
		case highPeak:
			sellMA = true
		case priceDownGoingUp:
			buyMA = true
		case priceUpGoingDown:
			sellMA = true
		}
	}

	reason := fmt.Sprintf("pUp=%.5f ema4=%.2f ema8=%.2f", pUp, fast, slow)
	slDist := current.Close * s.SLDistancePct

	if pUp > s.BuyThreshold && (!s.UseMAFilter || buyMA) {
		return &Signal{Action: SideBuy, SLDistance: slDist, Leverage: s.Leverage, Reason: reason}, nil
	}
	if pUp < s.SellThreshold && (!s.UseMAFilter || sellMA) {
		return &Signal{Action: SideSell, SLDistance: slDist, Leverage: s.Leverage, Reason: reason}, nil
	}
	return nil, nil
}
