package main

import (
	"testing"
	"time"
)

type fakeSource struct {
	bars []Bar
	err  error
}

func (f fakeSource) GetBars(symbol string, startMs, endMs int64) ([]Bar, error) {
	return f.bars, f.err
}

func TestValidateAndSortDropsDuplicatesAndBadPrices(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Time: t0, Open: 1, High: 2, Low: 1, Close: 1.5},
		{Time: t0, Open: 1, High: 2, Low: 1, Close: 1.5}, // exact duplicate timestamp
		{Time: t0.Add(time.Minute), Open: -1, High: 2, Low: 1, Close: 1}, // non-positive
		{Time: t0.Add(2 * time.Minute), Open: 1, High: 1, Low: 2, Close: 1}, // high < low
		{Time: t0.Add(3 * time.Minute), Open: 1, High: 2, Low: 1, Close: 1.5},
	}
	out, rep := validateAndSort(bars)
	if len(out) != 2 {
		t.Fatalf("expected 2 surviving bars, got %d", len(out))
	}
	if rep.DuplicatesDropped != 1 || rep.NonPositiveDropped != 1 || rep.HighLowDropped != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestReplayIterNoLookahead(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var bars []Bar
	for i := 0; i < 20; i++ {
		c := float64(i)
		bars = append(bars, Bar{Time: t0.Add(time.Duration(i) * time.Minute), Open: c, High: c + 1, Low: c - 1, Close: c})
	}
	rs, err := LoadReplaySource(fakeSource{bars: bars}, "SYM", t0, t0.Add(time.Hour), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rs.ReplayIter(nil, func(k int, cur Bar, history []Bar) bool {
		if len(history) > 5 {
			t.Fatalf("history window too long at k=%d: %d", k, len(history))
		}
		for _, h := range history {
			if !h.Time.Before(cur.Time) {
				t.Fatalf("history bar %v not strictly before current %v", h.Time, cur.Time)
			}
		}
		return true
	})
}

func TestReplayIterStopsOnCancellation(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var bars []Bar
	for i := 0; i < 10; i++ {
		c := float64(i)
		bars = append(bars, Bar{Time: t0.Add(time.Duration(i) * time.Minute), Open: c, High: c + 1, Low: c - 1, Close: c})
	}
	rs, err := LoadReplaySource(fakeSource{bars: bars}, "SYM", t0, t0.Add(time.Hour), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	visited := 0
	rs.ReplayIter(func() bool { return visited >= 2 }, func(k int, cur Bar, history []Bar) bool {
		visited++
		return true
	})
	if visited != 2 {
		t.Fatalf("expected iteration to stop after 2 bars, got %d", visited)
	}
}

func TestLoadReplaySourceEmptyRangeIsNotAnError(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rs, err := LoadReplaySource(fakeSource{bars: nil}, "SYM", t0, t0.Add(time.Hour), 5)
	if err != nil {
		t.Fatalf("empty range should not be an error: %v", err)
	}
	if rs.Len() != 0 {
		t.Fatalf("expected 0 bars, got %d", rs.Len())
	}
}
