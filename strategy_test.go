package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunConfig() RunConfig {
	c := DefaultRunConfig()
	c.Symbol = "TEST"
	c.StartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.EndDate = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return c
}

func TestGateBlockedOnDailyLossCap(t *testing.T) {
	cfg := testRunConfig()
	sim := NewExecutionSimulator(ExecSimConfigFromRun(cfg))
	host := NewStrategyHost(cfg, StrategyFunc(func(Bar, []Bar, MTFSnapshot) (*Signal, error) {
		return &Signal{Action: SideBuy}, nil
	}), sim)

	gate := &RiskGateState{DailyPnL: -cfg.MaxDailyLossPct/100*cfg.InitialCapital - 1}
	assert.True(t, host.gateBlocked(gate, time.Now()))
}

func TestGateBlockedOnTradeCountCap(t *testing.T) {
	cfg := testRunConfig()
	sim := NewExecutionSimulator(ExecSimConfigFromRun(cfg))
	host := NewStrategyHost(cfg, nil, sim)
	gate := &RiskGateState{TradesToday: cfg.MaxTradesPerDay}
	assert.True(t, host.gateBlocked(gate, time.Now()))
}

func TestGateBlockedOnConsecutiveLossCooldown(t *testing.T) {
	cfg := testRunConfig()
	sim := NewExecutionSimulator(ExecSimConfigFromRun(cfg))
	host := NewStrategyHost(cfg, nil, sim)
	now := time.Now()
	gate := &RiskGateState{ConsecutiveLosses: cfg.MaxLossStreak}
	assert.True(t, host.gateBlocked(gate, now))
	assert.False(t, gate.CooldownUntil.IsZero())

	later := now.Add(25 * time.Hour)
	assert.False(t, host.gateBlocked(gate, later))
}

func TestTryAdmitReturnsNilWhenStrategyAbstains(t *testing.T) {
	cfg := testRunConfig()
	sim := NewExecutionSimulator(ExecSimConfigFromRun(cfg))
	host := NewStrategyHost(cfg, StrategyFunc(func(Bar, []Bar, MTFSnapshot) (*Signal, error) {
		return nil, nil
	}), sim)

	bar := Bar{Time: time.Now(), Close: 100}
	result, err := host.TryAdmit(&RiskGateState{}, bar, nil, nil, 10000, "test-run", 0)
	require.NoError(t, err)
	assert.False(t, result.Proposed)
}

func TestTryAdmitCapsLeverageAtConfigMax(t *testing.T) {
	cfg := testRunConfig()
	sim := NewExecutionSimulator(ExecSimConfigFromRun(cfg))
	host := NewStrategyHost(cfg, StrategyFunc(func(Bar, []Bar, MTFSnapshot) (*Signal, error) {
		return &Signal{Action: SideBuy, Leverage: cfg.MaxLeverage * 10, SLDistance: 1}, nil
	}), sim)

	bar := Bar{Time: time.Now(), Close: 100}
	result, err := host.TryAdmit(&RiskGateState{}, bar, nil, nil, 10000, "test-run", 0)
	require.NoError(t, err)
	require.True(t, result.Proposed)
	assert.Equal(t, cfg.MaxLeverage, result.Order.Leverage)
}

func TestTryAdmitStrategyErrorYieldsNoSignal(t *testing.T) {
	cfg := testRunConfig()
	sim := NewExecutionSimulator(ExecSimConfigFromRun(cfg))
	host := NewStrategyHost(cfg, StrategyFunc(func(Bar, []Bar, MTFSnapshot) (*Signal, error) {
		return nil, assertErr{}
	}), sim)

	bar := Bar{Time: time.Now(), Close: 100}
	result, err := host.TryAdmit(&RiskGateState{}, bar, nil, nil, 10000, "test-run", 0)
	require.NoError(t, err)
	assert.False(t, result.Proposed)
}

type assertErr struct{}

func (assertErr) Error() string { return "strategy error" }
