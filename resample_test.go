package main

import (
	"testing"
	"time"
)

func baseMinuteBars(n int, start time.Time) []Bar {
	out := make([]Bar, n)
	for i := 0; i < n; i++ {
		t := start.Add(time.Duration(i) * time.Minute)
		c := float64(100 + i)
		out[i] = Bar{Time: t, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10}
	}
	return out
}

func TestParseTimeframeMinutes(t *testing.T) {
	cases := map[string]int{"5m": 5, "15m": 15, "1h": 60, "4h": 240, "1D": 1440}
	for tf, want := range cases {
		got, err := parseTimeframeMinutes(tf)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tf, err)
		}
		if got != want {
			t.Fatalf("%s: got %d want %d", tf, got, want)
		}
	}
}

func TestBuildTFSeriesAggregatesOHLCV(t *testing.T) {
	base := baseMinuteBars(10, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	series := buildTFSeries(base, "5m", 5)
	if len(series.bars) != 2 {
		t.Fatalf("expected 2 bucket bars, got %d", len(series.bars))
	}
	first := series.bars[0]
	if first.Bar.Open != base[0].Open {
		t.Fatalf("open mismatch: got %v want %v", first.Bar.Open, base[0].Open)
	}
	if first.Bar.Close != base[4].Close {
		t.Fatalf("close mismatch: got %v want %v", first.Bar.Close, base[4].Close)
	}
	if first.Bar.Volume != 50 {
		t.Fatalf("volume sum mismatch: got %v want 50", first.Bar.Volume)
	}
}

func TestSnapshotNeverShowsPartialBar(t *testing.T) {
	base := baseMinuteBars(9, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	resampler, err := NewMTFResampler(base, []string{"5m"}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// At k=7 (8th base bar, still within the second incomplete 5m bucket),
	// only the first complete 5m bucket (bars 0-4) should be visible.
	snap := resampler.SnapshotAt(7)
	bars := snap["5m"]
	if len(bars) != 1 {
		t.Fatalf("expected exactly 1 complete 5m bar visible at k=7, got %d", len(bars))
	}
}

func TestAsOfRespectsHistoryLimit(t *testing.T) {
	base := baseMinuteBars(100, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	resampler, err := NewMTFResampler(base, []string{"5m"}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := resampler.SnapshotAt(99)
	if len(snap["5m"]) > 3 {
		t.Fatalf("expected at most 3 bars, got %d", len(snap["5m"]))
	}
}
