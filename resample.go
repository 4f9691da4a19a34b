// FILE: resample.go
// Package main – C2 MTF Resampler: derives higher-timeframe bar
// streams from the base series, exposing only bars whose close time
// has fully elapsed as of the current base-bar position.
//
// The whole base series is already loaded in memory (this is an
// offline replay engine, not a live feed), so resampling runs once at
// load time; MTFResampler.SnapshotAt(k) is then a cheap lookup rather than a
// recomputation, while still honoring the no-lookahead visibility rule.
package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// parseTimeframeMinutes converts a label like "5m", "1h", "4h", "1D"
// into a minute count.
func parseTimeframeMinutes(tf string) (int, error) {
	tf = strings.TrimSpace(tf)
	if tf == "" {
		return 0, fmt.Errorf("resample: empty timeframe")
	}
	unit := tf[len(tf)-1]
	numPart := tf[:len(tf)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("resample: bad timeframe %q", tf)
	}
	switch unit {
	case 'm':
		return n, nil
	case 'h', 'H':
		return n * 60, nil
	case 'd', 'D':
		return n * 1440, nil
	default:
		return 0, fmt.Errorf("resample: unrecognized timeframe unit in %q", tf)
	}
}

// resampledBar pairs an aggregated Bar with the index of the last
// base bar that contributed to it, used to compute visibility.
type resampledBar struct {
	Bar      Bar
	LastBase int
}

// tfSeries is one target timeframe's fully-resampled series, built
// once from the base series at load time.
type tfSeries struct {
	label    string
	minutes  int
	bars     []resampledBar
}

func bucketStart(t time.Time, minutes int) time.Time {
	epochMin := t.UTC().Unix() / 60
	bucket := (epochMin / int64(minutes)) * int64(minutes)
	return time.Unix(bucket*60, 0).UTC()
}

// buildTFSeries aggregates OHLCV per spec §4.2: open=first.open,
// high=max(high), low=min(low), close=last.close, volume=sum(volume),
// grouped by T-minute boundary. Works even when the base timeframe
// does not evenly divide T (spec §4.2 "Failure modes").
func buildTFSeries(base []Bar, label string, minutes int) tfSeries {
	var out []resampledBar
	var cur *resampledBar
	var curBucket time.Time

	for i, b := range base {
		bk := bucketStart(b.Time, minutes)
		if cur == nil || !bk.Equal(curBucket) {
			if cur != nil {
				out = append(out, *cur)
			}
			curBucket = bk
			cur = &resampledBar{
				Bar:      Bar{Time: bk, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume},
				LastBase: i,
			}
			continue
		}
		if b.High > cur.Bar.High {
			cur.Bar.High = b.High
		}
		if b.Low < cur.Bar.Low {
			cur.Bar.Low = b.Low
		}
		cur.Bar.Close = b.Close
		cur.Bar.Volume += b.Volume
		cur.LastBase = i
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return tfSeries{label: label, minutes: minutes, bars: out}
}

// AsOf returns, for this timeframe, the trailing `limit` complete bars
// visible at base index k (i.e. LastBase <= k), oldest first.
func (s tfSeries) AsOf(k, limit int) []Bar {
	// bars are produced in non-decreasing LastBase order.
	n := sort.Search(len(s.bars), func(i int) bool { return s.bars[i].LastBase > k })
	if n == 0 {
		return nil
	}
	from := n - limit
	if from < 0 {
		from = 0
	}
	out := make([]Bar, n-from)
	for i := from; i < n; i++ {
		out[i-from] = s.bars[i].Bar
	}
	return out
}

// MTFResampler is C2: holds one tfSeries per configured higher
// timeframe and answers "what's visible as of base bar k".
type MTFResampler struct {
	series   []tfSeries
	history  int
}

// NewMTFResampler builds the resampler over the full base series for
// every requested timeframe label. Each timeframe's full resampled
// series is kept in memory; snapshots expose at most historyBarsPerTF
// complete bars per timeframe (spec §4.2 default 100).
func NewMTFResampler(base []Bar, timeframes []string, historyBarsPerTF int) (*MTFResampler, error) {
	r := &MTFResampler{history: historyBarsPerTF}
	for _, tf := range timeframes {
		minutes, err := parseTimeframeMinutes(tf)
		if err != nil {
			return nil, err
		}
		r.series = append(r.series, buildTFSeries(base, tf, minutes))
	}
	return r, nil
}

// SnapshotAt returns the MTFSnapshot visible at base index k: for each
// configured timeframe, the trailing history window of bars whose
// close time is <= base bar k's timestamp. Partial in-progress bars
// are never included (spec §4.2 "Visibility rule").
func (r *MTFResampler) SnapshotAt(k int) MTFSnapshot {
	snap := make(MTFSnapshot, len(r.series))
	for _, s := range r.series {
		snap[s.label] = s.AsOf(k, r.history)
	}
	return snap
}
