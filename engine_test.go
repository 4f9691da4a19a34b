package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buyOnceStrategy opens a single long on the first bar it sees and then
// never signals again, letting position management run its course.
type buyOnceStrategy struct {
	fired bool
}

func (s *buyOnceStrategy) Decide(current Bar, history []Bar, mtf MTFSnapshot) (*Signal, error) {
	if s.fired {
		return nil, nil
	}
	s.fired = true
	return &Signal{Action: SideBuy, SLDistance: current.Close * 0.05, Leverage: 1}, nil
}

func trendingBars(n int, start time.Time, step float64) []Bar {
	out := make([]Bar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += step
		out[i] = Bar{
			Time: start.Add(time.Duration(i) * time.Minute),
			Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 10,
		}
	}
	return out
}

func TestEngineRunZeroBarsIsSuccessful(t *testing.T) {
	cfg := testRunConfig()
	cfg.LookbackBars = 5
	engine := NewEngine(cfg, fakeSource{bars: nil}, &buyOnceStrategy{})

	result, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Metrics.TotalTrades)
	assert.Equal(t, cfg.InitialCapital, result.FinalCapital)
}

func TestEngineRunBullishTrendClosesAtEndOfSeries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := trendingBars(50, start, 1)
	cfg := testRunConfig()
	cfg.LookbackBars = 5
	cfg.StartDate = start
	cfg.EndDate = start.Add(time.Hour)

	engine := NewEngine(cfg, fakeSource{bars: bars}, &buyOnceStrategy{})
	result, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, "End of Backtest", result.Trades[0].ExitReason)
	assert.Greater(t, result.Trades[0].RealizedPnL, 0.0)
}

func TestEngineRunStopLossTriggersOnDownturn(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	up := trendingBars(20, start, 1)
	down := trendingBars(20, start.Add(20*time.Minute), -5)
	bars := append(up, down...)

	cfg := testRunConfig()
	cfg.LookbackBars = 5
	cfg.StartDate = start
	cfg.EndDate = start.Add(2 * time.Hour)

	engine := NewEngine(cfg, fakeSource{bars: bars}, &buyOnceStrategy{})
	result, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(result.Trades), 1)
	assert.Equal(t, "Stop Loss", result.Trades[0].ExitReason)
}

func TestEngineRunRespectsCancellation(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := trendingBars(200, start, 1)
	cfg := testRunConfig()
	cfg.LookbackBars = 5
	cfg.StartDate = start
	cfg.EndDate = start.Add(4 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(cfg, fakeSource{bars: bars}, &buyOnceStrategy{})
	result, err := engine.Run(ctx, nil)
	require.NoError(t, err)
	assert.True(t, result.Partial)
}

func TestEngineBullishRunEndsAboveInitialCapital(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := trendingBars(30, start, 1)
	cfg := testRunConfig()
	cfg.LookbackBars = 5
	cfg.StartDate = start
	cfg.EndDate = start.Add(time.Hour)

	engine := NewEngine(cfg, fakeSource{bars: bars}, &buyOnceStrategy{})
	result, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.EquityCurve)
	// No leverage, one winning trade: final capital should exceed the
	// initial stake since the bullish trend never triggers the stop loss.
	assert.Greater(t, result.FinalCapital, cfg.InitialCapital)
}
