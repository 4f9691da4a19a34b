// FILE: trace.go
// Package main – optional decision-trace sink (SPEC_FULL §12). When
// ENGINE_TRACE_DIR is set, every admitted entry is appended as one
// JSON line so a run can be audited or replayed deterministically
// after the fact.
//
// Adapted from other_examples' jax-trading-assistant replay package
// (TraceEntry/TraceStore: append-only, JSON-line-backed, sequence
// numbers assigned on write) to this engine's own decision shape.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TraceEntry is one recorded entry admission.
type TraceEntry struct {
	Sequence   uint64    `json:"seq"`
	RecordedAt time.Time `json:"recorded_at"`
	RunID      string    `json:"run_id"`
	BarIndex   int       `json:"bar_index"`
	BarTime    time.Time `json:"bar_time"`
	Side       string    `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

const traceFileName = "decisions.jsonl"

// TraceStore is an append-only JSONL decision trace, safe for
// concurrent use within one process (Append holds a mutex). Only the
// CLI's run subcommand attaches one; batch and walk-forward runs do not.
type TraceStore struct {
	mu   sync.Mutex
	path string
	seq  uint64
}

// OpenTraceStore opens (or creates) a trace store under dir.
func OpenTraceStore(dir string) (*TraceStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("trace: mkdir %s: %w", dir, err)
	}
	ts := &TraceStore{path: filepath.Join(dir, traceFileName)}
	entries, err := ts.ReadAll()
	if err != nil {
		return nil, err
	}
	ts.seq = uint64(len(entries))
	return ts, nil
}

// Append records one decision; Sequence and RecordedAt are assigned
// here, not by the caller.
func (ts *TraceStore) Append(entry TraceEntry) (TraceEntry, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.seq++
	entry.Sequence = ts.seq
	entry.RecordedAt = time.Now().UTC()

	data, err := json.Marshal(entry)
	if err != nil {
		ts.seq--
		return TraceEntry{}, fmt.Errorf("trace: marshal: %w", err)
	}

	f, err := os.OpenFile(ts.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		ts.seq--
		return TraceEntry{}, fmt.Errorf("trace: open: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s\n", data); err != nil {
		ts.seq--
		return TraceEntry{}, fmt.Errorf("trace: write: %w", err)
	}
	return entry, nil
}

// ReadAll returns every entry in append order.
func (ts *TraceStore) ReadAll() ([]TraceEntry, error) {
	data, err := os.ReadFile(ts.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trace: read: %w", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	entries := make([]TraceEntry, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var e TraceEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("trace: line %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Filter returns entries matching all non-zero predicates.
func (ts *TraceStore) Filter(runID string, side string) ([]TraceEntry, error) {
	all, err := ts.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []TraceEntry
	for _, e := range all {
		if runID != "" && e.RunID != runID {
			continue
		}
		if side != "" && e.Side != side {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
