// FILE: main.go
// Package main – Program entrypoint and HTTP/metrics server.
//
// Boot sequence:
//   1) loadEngineEnv()            – read .env (no shell exports required)
//   2) start Prometheus /healthz + /metrics server on PORT
//   3) dispatch to run / batch / walkforward / trace based on the
//      subcommand; run, batch and walkforward each build their
//      configuration with RunConfigFromEnv()
//
// Usage:
//   engine run -csv candles.csv -symbol BTC-USD -start 2024-01-01 -end 2024-06-01
//   engine batch -csv candles.csv -symbol BTC-USD -start 2024-01-01 -end 2024-06-01
//   engine walkforward -csv candles.csv -symbol BTC-USD -start 2023-01-01 -end 2024-06-01
//
// Notes:
//   - No environment exports are needed; keep editing .env and restart.
//   - Export artifacts land under -out (default ./out).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newSeededRand returns a fixed-seed RNG so the demo strategy's
// weight initialization is reproducible across CLI invocations; batch
// and walk-forward runs vary their own seed at the config level instead.
func newSeededRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	args := os.Args[2:]

	loadEngineEnv()
	port := getEnvInt("PORT", 8090)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		log.Printf("serving metrics on :%d/metrics", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch sub {
	case "run":
		err = cmdRun(ctx, args)
	case "batch":
		err = cmdBatch(ctx, args)
	case "walkforward":
		err = cmdWalkForward(ctx, args)
	case "trace":
		err = cmdTrace(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", sub, err)
	}

	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: engine <run|batch|walkforward> -csv <file> -symbol <sym> -start <date> -end <date> [-out dir]")
	fmt.Fprintln(os.Stderr, "       engine trace -dir <dir> [-run <run_id>] [-side BUY|SELL]")
}

// cmdTrace inspects a decision trace written by a prior run (see
// trace.go, ENGINE_TRACE_DIR), printing entries matching the given
// run id and/or side. Absent predicates match everything.
func cmdTrace(args []string) error {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	dir := fs.String("dir", "", "Directory containing decisions.jsonl")
	runID := fs.String("run", "", "Filter to this run id")
	side := fs.String("side", "", "Filter to this side (BUY or SELL)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("-dir is required")
	}

	ts, err := OpenTraceStore(*dir)
	if err != nil {
		return err
	}
	entries, err := ts.Filter(*runID, *side)
	if err != nil {
		return err
	}
	for _, e := range entries {
		log.Printf("[run=%s bar=%d] %s %s entry=%.2f sl=%.2f reason=%q",
			e.RunID, e.BarIndex, e.BarTime.Format(time.RFC3339), e.Side, e.EntryPrice, e.StopLoss, e.Reason)
	}
	log.Printf("trace: %d entries matched", len(entries))
	return nil
}

func parseCommonFlags(fs *flag.FlagSet, args []string) (csvPath, symbol, outDir string, start, end time.Time, err error) {
	var startStr, endStr string
	fs.StringVar(&csvPath, "csv", "", "Path to CSV (time,open,high,low,close,volume)")
	fs.StringVar(&symbol, "symbol", "", "Symbol label (informational; the CSV is already scoped)")
	fs.StringVar(&startStr, "start", "", "Start date, RFC3339 or YYYY-MM-DD")
	fs.StringVar(&endStr, "end", "", "End date, RFC3339 or YYYY-MM-DD")
	fs.StringVar(&outDir, "out", "./out", "Directory for exported results")
	if ferr := fs.Parse(args); ferr != nil {
		return "", "", "", time.Time{}, time.Time{}, ferr
	}
	if csvPath == "" {
		return "", "", "", time.Time{}, time.Time{}, fmt.Errorf("-csv is required")
	}
	start, err = parseDateFlag(startStr)
	if err != nil {
		return "", "", "", time.Time{}, time.Time{}, fmt.Errorf("-start: %w", err)
	}
	end, err = parseDateFlag(endStr)
	if err != nil {
		return "", "", "", time.Time{}, time.Time{}, fmt.Errorf("-end: %w", err)
	}
	return csvPath, symbol, outDir, start, end, nil
}

func parseDateFlag(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (want RFC3339 or YYYY-MM-DD)", s)
}

func progressLogger(label string) ProgressFunc {
	return func(pct int, msg string) {
		log.Printf("[%s] %d%% %s", label, pct, msg)
	}
}

func newDefaultStrategy(params map[string]float64) Strategy {
	rng := newSeededRand()
	model := NewLogitMicroModel(rng)
	s := NewLogitMAStrategy(model)
	if v, ok := params["buy_threshold"]; ok {
		s.BuyThreshold = v
	}
	if v, ok := params["sell_threshold"]; ok {
		s.SellThreshold = v
	}
	if v, ok := params["leverage"]; ok {
		s.Leverage = v
	}
	return s
}

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	csvPath, symbol, outDir, start, end, err := parseCommonFlags(fs, args)
	if err != nil {
		return err
	}

	cfg := RunConfigFromEnv()
	cfg.Symbol = symbol
	cfg.StartDate = start
	cfg.EndDate = end

	engine := NewEngine(cfg, CSVSource{Path: csvPath}, newDefaultStrategy(nil))
	if traceDir := getEnv("ENGINE_TRACE_DIR", ""); traceDir != "" {
		ts, terr := OpenTraceStore(traceDir)
		if terr != nil {
			return terr
		}
		engine = engine.WithTrace(ts)
	}

	result, err := engine.Run(ctx, progressLogger("run"))
	if err != nil {
		return err
	}
	path, err := ExportRunResult(outDir, result)
	if err != nil {
		return err
	}
	log.Printf("run complete: trades=%d final_capital=%.2f exported=%s", result.Metrics.TotalTrades, result.FinalCapital, path)
	return nil
}

func cmdBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	csvPath, symbol, outDir, start, end, err := parseCommonFlags(fs, args)
	if err != nil {
		return err
	}

	base := RunConfigFromEnv()
	base.Symbol = symbol
	base.StartDate = start
	base.EndDate = end

	batchCfg := BatchConfigFromEnv(base)
	batchCfg.ParameterSpace = map[string][]float64{
		"risk_per_trade_pct": {0.5, 1.0, 1.5, 2.0},
		"max_leverage":       {5, 10, 20},
	}

	orchestrator := NewBatchOrchestrator(batchCfg, CSVSource{Path: csvPath}, newDefaultStrategy).WithProgress(progressLogger("batch"))
	summary, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}
	exports, err := ExportBatchSummary(outDir, summary)
	if err != nil {
		return err
	}
	log.Printf("batch complete: %d/%d runs succeeded, exported=%v", summary.SuccessfulRuns, summary.TotalRuns, exports)
	return nil
}

func cmdWalkForward(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("walkforward", flag.ExitOnError)
	csvPath, symbol, outDir, start, end, err := parseCommonFlags(fs, args)
	if err != nil {
		return err
	}

	base := RunConfigFromEnv()
	base.Symbol = symbol
	base.StartDate = start
	base.EndDate = end

	batchCfg := BatchConfigFromEnv(base)
	wfCfg := WalkForwardConfigFromEnv(base, batchCfg)

	orchestrator := NewWalkForwardOrchestrator(wfCfg, CSVSource{Path: csvPath}, newDefaultStrategy).WithProgress(progressLogger("walkforward"))
	summary, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}
	exports, err := ExportWalkForwardSummary(outDir, summary)
	if err != nil {
		return err
	}
	log.Printf("walk-forward complete: folds=%d mean_expectancy=%.3f stability=%.2f exported=%v",
		len(summary.Folds), summary.MeanExpectancy, summary.StabilityScore, exports)
	return nil
}
