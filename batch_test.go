package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridCombinationsEnumeratesCartesianProduct(t *testing.T) {
	space := map[string][]float64{"a": {1, 2}, "b": {10, 20}}
	combos := gridCombinations(sortedKeys(space), space, 100)
	assert.Len(t, combos, 4)
}

func TestGridFallsBackToRandomOnCombinatorialBlowup(t *testing.T) {
	cfg := DefaultBatchConfig(testRunConfig())
	cfg.MaxIterations = 5
	cfg.ParameterSpace = map[string][]float64{
		"a": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		"b": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		"c": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	}
	orchestrator := NewBatchOrchestrator(cfg, fakeSource{}, newDefaultStrategy)
	combos := orchestrator.generateCombinations()
	assert.Len(t, combos, cfg.MaxIterations)
}

func TestRandomCombinationsAreSeedReproducible(t *testing.T) {
	space := map[string][]float64{"a": {1, 2, 3, 4, 5}}
	cfg := DefaultBatchConfig(testRunConfig())
	cfg.Seed = 7
	cfg.MaxIterations = 10
	cfg.ParameterSpace = space

	o1 := NewBatchOrchestrator(cfg, fakeSource{}, newDefaultStrategy)
	o2 := NewBatchOrchestrator(cfg, fakeSource{}, newDefaultStrategy)
	assert.Equal(t, o1.randomCombinations(space), o2.randomCombinations(space))
}

func TestBatchOrchestratorRanksByTargetMetric(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := trendingBars(60, start, 1)

	base := testRunConfig()
	base.LookbackBars = 5
	base.StartDate = start
	base.EndDate = start.Add(time.Hour)

	cfg := DefaultBatchConfig(base)
	cfg.ParameterSpace = map[string][]float64{"leverage": {1, 2}}
	cfg.MaxIterations = 4
	cfg.NJobs = 2
	cfg.TargetMetric = "expectancy"

	orchestrator := NewBatchOrchestrator(cfg, fakeSource{bars: bars}, func(params map[string]float64) Strategy {
		return &buyOnceStrategy{}
	})
	summary, err := orchestrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(combosOrDefault(cfg)), summary.TotalRuns)
	assert.NotNil(t, summary.BestRun)
}

func combosOrDefault(cfg BatchConfig) []map[string]float64 {
	o := NewBatchOrchestrator(cfg, fakeSource{}, newDefaultStrategy)
	return o.generateCombinations()
}

func TestMetricValueFailedRunSortsLast(t *testing.T) {
	v := metricValue(nil, "expectancy", false)
	assert.True(t, v < 0)
}
