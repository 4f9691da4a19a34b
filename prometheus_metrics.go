// FILE: prometheus_metrics.go
// Package main – Ambient Prometheus instrumentation of the engine's
// own execution (SPEC_FULL §10.4). This is not the GUI/live-trading
// surface the spec excludes; it's observability of the backtest
// process itself, in the same registration shape as the teacher's
// metrics.go (CounterVec/GaugeVec registered in init()).
package main

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxRunsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtest_runs_started_total",
			Help: "Engine runs started.",
		},
	)

	mtxRunsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_runs_completed_total",
			Help: "Engine runs completed, by outcome (ok|cancelled|error).",
		},
		[]string{"outcome"},
	)

	mtxBarsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtest_bars_processed_total",
			Help: "Base bars processed across all runs.",
		},
	)

	mtxTradesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_trades_closed_total",
			Help: "Trades closed, by exit reason.",
		},
		[]string{"reason"},
	)

	mtxRunEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtest_run_equity",
			Help: "Equity of the run currently in progress.",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxRunsStarted, mtxRunsCompleted, mtxBarsProcessed, mtxTradesClosed, mtxRunEquity)
}
