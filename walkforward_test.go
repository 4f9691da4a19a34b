package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFoldsSlidesWindowsWithinRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	folds := buildFolds(start, end, 10, 5, 5)
	require.NotEmpty(t, folds)
	for i, f := range folds {
		assert.Equal(t, i, f.Index)
		assert.True(t, f.TestEnd.Before(end) || f.TestEnd.Equal(end))
		assert.True(t, f.TrainEnd.Equal(f.TestStart))
	}
}

func TestBuildFoldsStopsBeforeOverrunningRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 12)
	folds := buildFolds(start, end, 10, 5, 5)
	assert.Empty(t, folds)
}

func TestWalkForwardRunErrorsBelowMinFolds(t *testing.T) {
	base := testRunConfig()
	base.StartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	base.EndDate = base.StartDate.AddDate(0, 0, 10)

	cfg := DefaultWalkForwardConfig(base, DefaultBatchConfig(base))
	cfg.MinFolds = 3
	cfg.TrainWindowDays = 20
	cfg.TestWindowDays = 10
	cfg.StepSizeDays = 10

	orchestrator := NewWalkForwardOrchestrator(cfg, fakeSource{}, newDefaultStrategy)
	_, err := orchestrator.Run(context.Background())
	assert.Error(t, err)
}

func TestWalkForwardSummarizesExpectancyAndStability(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := trendingBars(2000, start, 1)

	base := testRunConfig()
	base.LookbackBars = 5
	base.StartDate = start
	base.EndDate = start.AddDate(0, 0, 20)

	cfg := DefaultWalkForwardConfig(base, DefaultBatchConfig(base))
	cfg.TrainWindowDays = 5
	cfg.TestWindowDays = 3
	cfg.StepSizeDays = 3
	cfg.MinFolds = 1
	cfg.ReoptimizeEachFold = false

	orchestrator := NewWalkForwardOrchestrator(cfg, fakeSource{bars: bars}, func(params map[string]float64) Strategy {
		return &buyOnceStrategy{}
	})
	summary, err := orchestrator.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, summary.Folds)
	assert.GreaterOrEqual(t, summary.StabilityScore, 0.0)
	assert.LessOrEqual(t, summary.StabilityScore, 1.0)
}

func TestWalkForwardReoptimizePopulatesTrainResult(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := trendingBars(2000, start, 1)

	base := testRunConfig()
	base.LookbackBars = 5
	base.StartDate = start
	base.EndDate = start.AddDate(0, 0, 20)

	batchCfg := DefaultBatchConfig(base)
	batchCfg.ParameterSpace = map[string][]float64{"leverage": {1, 2}}
	batchCfg.MaxIterations = 2

	cfg := DefaultWalkForwardConfig(base, batchCfg)
	cfg.TrainWindowDays = 5
	cfg.TestWindowDays = 3
	cfg.StepSizeDays = 3
	cfg.MinFolds = 1
	cfg.ReoptimizeEachFold = true

	orchestrator := NewWalkForwardOrchestrator(cfg, fakeSource{bars: bars}, func(params map[string]float64) Strategy {
		return &buyOnceStrategy{}
	})
	summary, err := orchestrator.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, summary.Folds)
	for _, f := range summary.Folds {
		require.NoError(t, f.Err)
		assert.NotNil(t, f.TrainResult)
		assert.NotNil(t, f.TestResult)
	}
}

func TestSummarizeFoldsIgnoresFailedFolds(t *testing.T) {
	results := []FoldResult{
		{Fold: Fold{Index: 0}, Err: assertErr{}},
		{Fold: Fold{Index: 1}, TestResult: &RunResult{Metrics: BacktestMetrics{Expectancy: 10, TotalReturnPct: 5}}},
	}
	summary := summarizeFolds(results)
	assert.InDelta(t, 10.0, summary.MeanExpectancy, 1e-9)
	assert.Equal(t, 1.0, summary.PassRate)
}
