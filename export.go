// FILE: export.go
// Package main – persisted export of run/batch/walk-forward results to
// disk, mirroring original_source's batch_runner.py export_results()
// and walk_forward_export.py: a summary JSON, a results CSV, and a
// top-params JSON per sweep; one JSON file per run result.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ExportRunResult writes <run_id>_summary.json under dir.
func ExportRunResult(dir string, result *RunResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, result.RunID+"_summary.json")
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: marshal run result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	return path, nil
}

// ExportBatchSummary writes the batch's summary JSON, results CSV, and
// top-params JSON (spec §6 "Batch result" export set).
func ExportBatchSummary(dir string, summary *BatchSummary) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: mkdir %s: %w", dir, err)
	}
	out := map[string]string{}

	summaryPath := filepath.Join(dir, summary.BatchID+"_summary.json")
	summaryData, err := json.MarshalIndent(struct {
		BatchID        string `json:"batch_id"`
		TotalRuns      int    `json:"total_runs"`
		SuccessfulRuns int    `json:"successful_runs"`
		FailedRuns     int    `json:"failed_runs"`
	}{summary.BatchID, summary.TotalRuns, summary.SuccessfulRuns, summary.FailedRuns}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal batch summary: %w", err)
	}
	if err := os.WriteFile(summaryPath, summaryData, 0o644); err != nil {
		return nil, fmt.Errorf("export: write %s: %w", summaryPath, err)
	}
	out["summary"] = summaryPath

	resultsPath := filepath.Join(dir, summary.BatchID+"_results.csv")
	if err := writeBatchResultsCSV(resultsPath, summary.AllRuns); err != nil {
		return nil, err
	}
	out["results"] = resultsPath

	topPath := filepath.Join(dir, summary.BatchID+"_top_params.json")
	topData, err := json.MarshalIndent(topParamsPayload(summary.TopRuns), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal top params: %w", err)
	}
	if err := os.WriteFile(topPath, topData, 0o644); err != nil {
		return nil, fmt.Errorf("export: write %s: %w", topPath, err)
	}
	out["top_params"] = topPath

	return out, nil
}

func writeBatchResultsCSV(path string, runs []BatchRunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"rank", "run_id", "total_trades", "win_rate", "profit_factor", "expectancy", "max_drawdown_pct", "total_return_pct", "error"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	for i, r := range runs {
		row := []string{fmt.Sprintf("%d", i+1), r.RunID}
		if r.Result != nil {
			m := r.Result.Metrics
			row = append(row,
				fmt.Sprintf("%d", m.TotalTrades),
				fmt.Sprintf("%.3f", m.WinRate),
				fmt.Sprintf("%.2f", m.ProfitFactor),
				fmt.Sprintf("%.2f", m.Expectancy),
				fmt.Sprintf("%.2f", m.MaxDrawdownPct),
				fmt.Sprintf("%.2f", m.TotalReturnPct),
				"",
			)
		} else {
			errMsg := ""
			if r.Err != nil {
				errMsg = r.Err.Error()
			}
			row = append(row, "", "", "", "", "", "", errMsg)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	return nil
}

func topParamsPayload(runs []BatchRunResult) []map[string]any {
	out := make([]map[string]any, 0, len(runs))
	for _, r := range runs {
		if r.Result == nil {
			continue
		}
		out = append(out, map[string]any{
			"parameters":       r.Parameters,
			"expectancy":       r.Result.Metrics.Expectancy,
			"profit_factor":    r.Result.Metrics.ProfitFactor,
			"win_rate":         r.Result.Metrics.WinRate,
			"total_return_pct": r.Result.Metrics.TotalReturnPct,
		})
	}
	return out
}

// ExportWalkForwardSummary writes one JSON file per fold plus an
// aggregate summary file (spec §6's walk-forward export set).
func ExportWalkForwardSummary(dir string, summary *WalkForwardSummary) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: mkdir %s: %w", dir, err)
	}
	out := map[string]string{}

	aggPath := filepath.Join(dir, "walkforward_summary.json")
	aggData, err := json.MarshalIndent(struct {
		MeanExpectancy float64 `json:"mean_expectancy"`
		StabilityScore float64 `json:"stability_score"`
		PassRate       float64 `json:"pass_rate"`
		Folds          int     `json:"folds"`
	}{summary.MeanExpectancy, summary.StabilityScore, summary.PassRate, len(summary.Folds)}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal walk-forward summary: %w", err)
	}
	if err := os.WriteFile(aggPath, aggData, 0o644); err != nil {
		return nil, fmt.Errorf("export: write %s: %w", aggPath, err)
	}
	out["summary"] = aggPath

	for _, fold := range summary.Folds {
		foldPath := filepath.Join(dir, fmt.Sprintf("fold_%04d.json", fold.Index))
		data, err := json.MarshalIndent(fold, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("export: marshal fold %d: %w", fold.Index, err)
		}
		if err := os.WriteFile(foldPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("export: write %s: %w", foldPath, err)
		}
		out[fmt.Sprintf("fold_%04d", fold.Index)] = foldPath
	}

	return out, nil
}
