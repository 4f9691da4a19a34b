package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionManagerClosesOnStopLoss(t *testing.T) {
	sim := NewExecutionSimulator(testExecConfig())
	pm := NewPositionManager(sim)
	pm.Open(SideBuy, 100, time.Now(), 1, 1, 95, 120, 100, 0.1, "entry")

	bar := Bar{Time: time.Now(), Open: 97, High: 98, Low: 94, Close: 96}
	trade, _, closed := pm.ManageBar(bar)

	require.True(t, closed)
	assert.Equal(t, "Stop Loss", trade.ExitReason)
	assert.True(t, pm.Flat())
}

func TestPositionManagerLiquidationBeforeStopLoss(t *testing.T) {
	sim := NewExecutionSimulator(testExecConfig())
	pm := NewPositionManager(sim)
	// High leverage puts the liquidation price above the stop loss for a long.
	pos := pm.Open(SideBuy, 100, time.Now(), 1, 10, 90, 120, 10, 0.1, "entry")
	require.Greater(t, pos.LiquidationPrice, pos.StopLoss)

	bar := Bar{Time: time.Now(), Open: 99, High: 99, Low: 90, Close: 91}
	trade, _, closed := pm.ManageBar(bar)

	require.True(t, closed)
	assert.Equal(t, "Liquidation", trade.ExitReason)
}

func TestPositionManagerClosesOnTakeProfit(t *testing.T) {
	sim := NewExecutionSimulator(testExecConfig())
	pm := NewPositionManager(sim)
	pm.Open(SideSell, 100, time.Now(), 1, 1, 110, 80, 100, 0.1, "entry")

	bar := Bar{Time: time.Now(), Open: 95, High: 96, Low: 79, Close: 81}
	trade, _, closed := pm.ManageBar(bar)

	require.True(t, closed)
	assert.Equal(t, "Take Profit", trade.ExitReason)
}

func TestPositionManagerAtMostOneCloseEventPerBar(t *testing.T) {
	sim := NewExecutionSimulator(testExecConfig())
	pm := NewPositionManager(sim)
	pm.Open(SideBuy, 100, time.Now(), 1, 1, 95, 105, 100, 0, "entry")

	// A bar whose range crosses both SL and TP; only one close must fire.
	bar := Bar{Time: time.Now(), Open: 100, High: 110, Low: 90, Close: 100}
	_, _, closed := pm.ManageBar(bar)
	assert.True(t, closed)
	assert.True(t, pm.Flat())

	second, _, closedAgain := pm.ManageBar(bar)
	assert.False(t, closedAgain)
	assert.Nil(t, second)
}

func TestCloseAtEndOfSeriesClosesOpenPosition(t *testing.T) {
	sim := NewExecutionSimulator(testExecConfig())
	pm := NewPositionManager(sim)
	pm.Open(SideBuy, 100, time.Now(), 1, 1, 0, 0, 100, 0, "entry")

	lastBar := Bar{Time: time.Now(), Close: 105}
	trade, _, closed := pm.CloseAtEndOfSeries(lastBar)

	require.True(t, closed)
	assert.Equal(t, "End of Backtest", trade.ExitReason)
	assert.True(t, pm.Flat())
}

func TestRMultipleComputedFromInitialRisk(t *testing.T) {
	sim := NewExecutionSimulator(testExecConfig())
	pm := NewPositionManager(sim)
	pm.Open(SideBuy, 100, time.Now(), 1, 1, 90, 0, 100, 0, "entry")

	bar := Bar{Time: time.Now(), Open: 100, High: 120, Low: 100, Close: 120}
	trade, _, closed := pm.CloseAtEndOfSeries(bar)
	require.True(t, closed)
	require.NotNil(t, trade.RMultiple)
}
