package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceStoreAppendReadAllRoundTrips(t *testing.T) {
	ts, err := OpenTraceStore(t.TempDir())
	require.NoError(t, err)

	e1, err := ts.Append(TraceEntry{RunID: "run-1", BarIndex: 10, BarTime: time.Now(), Side: "BUY", EntryPrice: 100, Reason: "test"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e1.Sequence)

	e2, err := ts.Append(TraceEntry{RunID: "run-1", BarIndex: 20, BarTime: time.Now(), Side: "SELL", EntryPrice: 110, Reason: "test"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e2.Sequence)

	all, err := ts.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "BUY", all[0].Side)
	assert.Equal(t, "SELL", all[1].Side)
}

func TestTraceStoreFilterMatchesRunAndSide(t *testing.T) {
	ts, err := OpenTraceStore(t.TempDir())
	require.NoError(t, err)

	_, err = ts.Append(TraceEntry{RunID: "run-1", BarIndex: 1, Side: "BUY"})
	require.NoError(t, err)
	_, err = ts.Append(TraceEntry{RunID: "run-1", BarIndex: 2, Side: "SELL"})
	require.NoError(t, err)
	_, err = ts.Append(TraceEntry{RunID: "run-2", BarIndex: 3, Side: "BUY"})
	require.NoError(t, err)

	byRun, err := ts.Filter("run-1", "")
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	bySide, err := ts.Filter("", "BUY")
	require.NoError(t, err)
	assert.Len(t, bySide, 2)

	both, err := ts.Filter("run-1", "SELL")
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, 2, both[0].BarIndex)

	none, err := ts.Filter("run-3", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTraceStoreReadAllOnEmptyDirIsEmptyNotError(t *testing.T) {
	ts, err := OpenTraceStore(t.TempDir())
	require.NoError(t, err)

	entries, err := ts.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
