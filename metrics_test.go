package main

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeMetricsEmptyTrades(t *testing.T) {
	m := computeMetrics(nil, nil, 10000)
	assert.Equal(t, BacktestMetrics{}, m)
}

func TestComputeMetricsProfitFactorBoundaries(t *testing.T) {
	r := func(v float64) *float64 { return &v }
	_ = r

	allWins := []Trade{{RealizedPnL: 100}, {RealizedPnL: 50}}
	m := computeMetrics(allWins, nil, 1000)
	if !math.IsInf(m.ProfitFactor, 1) {
		t.Fatalf("all-wins profit factor should be +Inf, got %v", m.ProfitFactor)
	}

	allLosses := []Trade{{RealizedPnL: -10}}
	m2 := computeMetrics(allLosses, nil, 1000)
	assert.Equal(t, 0.0, m2.ProfitFactor)
}

func TestComputeMetricsExpectancyAndWinRate(t *testing.T) {
	trades := []Trade{
		{RealizedPnL: 100}, {RealizedPnL: -50}, {RealizedPnL: 100}, {RealizedPnL: -50},
	}
	m := computeMetrics(trades, nil, 1000)
	assert.Equal(t, 0.5, m.WinRate)
	assert.InDelta(t, 25.0, m.Expectancy, 1e-9)
}

func TestComputeDrawdownTracksPeakToTrough(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	equity := []EquityPoint{
		{Time: t0, Equity: 1000},
		{Time: t0.Add(24 * time.Hour), Equity: 1200},
		{Time: t0.Add(48 * time.Hour), Equity: 900},
		{Time: t0.Add(72 * time.Hour), Equity: 1300},
	}
	ddPct, ddDays := computeDrawdown(equity)
	assert.InDelta(t, 25.0, ddPct, 1e-6) // (1200-900)/1200
	assert.InDelta(t, 2.0, ddDays, 1e-6)
}

func TestComputeStreaks(t *testing.T) {
	trades := []Trade{
		{RealizedPnL: 10}, {RealizedPnL: 10}, {RealizedPnL: -5},
		{RealizedPnL: -5}, {RealizedPnL: -5}, {RealizedPnL: 10},
	}
	wins, losses := computeStreaks(trades)
	assert.Equal(t, 2, wins)
	assert.Equal(t, 3, losses)
}

func TestComputeSharpeNilBelowThresholds(t *testing.T) {
	var short []EquityPoint
	for i := 0; i < 10; i++ {
		short = append(short, EquityPoint{Equity: float64(1000 + i)})
	}
	assert.Nil(t, computeSharpe(short))

	var flat []EquityPoint
	for i := 0; i < 40; i++ {
		flat = append(flat, EquityPoint{Equity: 1000})
	}
	assert.Nil(t, computeSharpe(flat))
}

func TestComputeSharpeNonNilForVaryingSeries(t *testing.T) {
	var equity []EquityPoint
	v := 1000.0
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			v *= 1.001
		} else {
			v *= 0.999
		}
		equity = append(equity, EquityPoint{Equity: v})
	}
	s := computeSharpe(equity)
	assert.NotNil(t, s)
}
