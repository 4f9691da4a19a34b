// FILE: replay.go
// Package main – C1 Replay Source: owns the validated base OHLCV
// series and emits an ordered stream of (current bar, history window)
// pairs with no lookahead.
//
// Grounded on the teacher's backtest.go (loadCSV/parseTimeFlexible/
// sortCandles) for the CSV ingestion path, and on
// original_source's replay_provider.py for the validation and
// no-lookahead iteration contract.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Source is the abstract bar-ingestion contract (spec §6: "the Replay
// Source consumes bars via an abstract fetch operation"). Exact
// storage is outside the core; only the shape of the records matters.
type Source interface {
	GetBars(symbol string, startMs, endMs int64) ([]Bar, error)
}

// CSVSource is a Source backed by a CSV file with a header row
// containing time,open,high,low,close,volume (case-insensitive,
// any column order). This is the one concrete Source this module
// ships; anything else (DB, REST API) is an external collaborator.
type CSVSource struct {
	Path string
}

// GetBars ignores symbol/startMs/endMs filtering beyond what the CSV
// already contains — callers pass a file already scoped to one symbol
// and range, matching the teacher's loadCSV usage in backtest.go.
func (s CSVSource) GetBars(symbol string, startMs, endMs int64) ([]Bar, error) {
	return loadCSV(s.Path)
}

func loadCSV(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("replay: read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := func(names ...string) (int, bool) {
		for _, n := range names {
			if i, ok := col[n]; ok {
				return i, true
			}
		}
		return 0, false
	}
	ti, ok := idx("time", "timestamp", "date")
	if !ok {
		return nil, fmt.Errorf("replay: %s missing a time/timestamp/date column", path)
	}
	oi, _ := idx("open")
	hi, _ := idx("high")
	li, _ := idx("low")
	ci, _ := idx("close")
	vi, _ := idx("volume")

	var bars []Bar
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("replay: read row: %w", err)
		}
		t, err := parseTimeFlexible(rec[ti])
		if err != nil {
			continue
		}
		bars = append(bars, Bar{
			Time:   t,
			Open:   parseFloatCol(rec, oi),
			High:   parseFloatCol(rec, hi),
			Low:    parseFloatCol(rec, li),
			Close:  parseFloatCol(rec, ci),
			Volume: parseFloatCol(rec, vi),
		})
	}
	return bars, nil
}

func parseFloatCol(rec []string, i int) float64 {
	if i < 0 || i >= len(rec) {
		return 0
	}
	v, _ := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	return v
}

// parseTimeFlexible accepts RFC3339 or unix-seconds timestamps, the
// same flexibility the teacher's backtest.go CSV loader offers.
func parseTimeFlexible(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ValidationReport counts what load() dropped (spec §4.1: "emit a
// warning count; do not abort").
type ValidationReport struct {
	DuplicatesDropped int
	NonPositiveDropped int
	HighLowDropped    int
}

// validateAndSort implements spec §4.1's "validation on load": drop
// exact duplicate timestamps, drop bars with any non-positive price,
// drop bars whose high < low, then sort ascending by timestamp.
func validateAndSort(bars []Bar) ([]Bar, ValidationReport) {
	var rep ValidationReport
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	seen := make(map[int64]bool, len(bars))
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			rep.NonPositiveDropped++
			continue
		}
		if b.High < b.Low {
			rep.HighLowDropped++
			continue
		}
		key := b.Time.UnixNano()
		if seen[key] {
			rep.DuplicatesDropped++
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, rep
}

// ReplaySource is C1: a validated, sorted base series plus a
// no-lookahead iterator.
type ReplaySource struct {
	bars     []Bar
	lookback int
	Report   ValidationReport
}

// LoadReplaySource fetches bars from src for [start,end), validates
// and sorts them, and returns a ready-to-iterate ReplaySource. Returns
// a ReplaySource with zero bars (not an error) if the range is empty —
// spec §4.1 "Failure modes".
func LoadReplaySource(src Source, symbol string, start, end time.Time, lookback int) (*ReplaySource, error) {
	raw, err := src.GetBars(symbol, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("replay: load: %w", err)
	}
	// Sources may return more than the requested range (CSVSource does).
	inRange := make([]Bar, 0, len(raw))
	for _, b := range raw {
		if !b.Time.Before(start) && b.Time.Before(end) {
			inRange = append(inRange, b)
		}
	}
	bars, rep := validateAndSort(inRange)
	return &ReplaySource{bars: bars, lookback: lookback, Report: rep}, nil
}

// Len returns the number of bars in the base series.
func (r *ReplaySource) Len() int { return len(r.bars) }

// Bar returns the base bar at index i.
func (r *ReplaySource) Bar(i int) Bar { return r.bars[i] }

// All returns the full validated base series (read-only use by the
// MTF resampler).
func (r *ReplaySource) All() []Bar { return r.bars }

// ReplayIter yields, in ascending order starting at index lookback (so
// the first emitted bar has a full history window), the pair
// (current bar, history window). The history window is the exclusive
// slice [max(0,k-lookback), k) — never including the current bar.
//
// Iteration stops early if stop() returns true (checked before each
// bar), satisfying the cancellation contract of spec §5.
func (r *ReplaySource) ReplayIter(stop func() bool, yield func(k int, cur Bar, history []Bar) bool) {
	start := r.lookback
	if start > len(r.bars) {
		start = len(r.bars)
	}
	for k := start; k < len(r.bars); k++ {
		if stop != nil && stop() {
			return
		}
		histStart := k - r.lookback
		if histStart < 0 {
			histStart = 0
		}
		if !yield(k, r.bars[k], r.bars[histStart:k]) {
			return
		}
	}
}
