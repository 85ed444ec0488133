package journal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "nested", "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestOpenCreatesSchema(t *testing.T) {
	j := openTest(t)

	var count int
	err := j.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='sync_events'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.db")
	ctx := context.Background()

	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.Record(ctx, Entry{Profile: "default", Operation: OpStartupPull, State: "SYNC:OK"})
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close(), "second close is a no-op")

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	j := openTest(t)

	e, err := j.Record(context.Background(), Entry{Profile: "work", Operation: OpPublish, State: "SYNC:OK", Status: "ok"})
	require.NoError(t, err)
	assert.Len(t, e.ID, 36)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, time.UTC, e.Timestamp.Location())
}

func TestListOrderAndFilters(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, p := range []string{"work", "home", "work", "work"} {
		_, err := j.Record(ctx, Entry{
			Profile:   p,
			Operation: OpPostSavePush,
			State:     "SYNC:OK",
			Detail:    string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	all, err := j.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].Detail, "newest first")
	assert.True(t, all[0].Timestamp.Equal(base.Add(3*time.Hour)))

	work, err := j.List(ctx, Filter{Profile: "work"})
	require.NoError(t, err)
	assert.Len(t, work, 3)

	recent, err := j.List(ctx, Filter{Since: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := j.List(ctx, Filter{Profile: "work", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "d", limited[0].Detail)
}

func TestSubsecondOrdering(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	// 9:00:00.1 must sort after 9:00:00 even though RFC3339Nano would
	// render them with different lengths.
	_, err := j.Record(ctx, Entry{Profile: "p", Operation: OpExport, State: "x", Detail: "later", Timestamp: base.Add(100 * time.Millisecond)})
	require.NoError(t, err)
	_, err = j.Record(ctx, Entry{Profile: "p", Operation: OpExport, State: "x", Detail: "earlier", Timestamp: base})
	require.NoError(t, err)

	entries, err := j.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "later", entries[0].Detail)
}

func TestPrune(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	now := time.Now()

	for _, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour} {
		_, err := j.Record(ctx, Entry{Profile: "p", Operation: OpStartupPull, State: "x", Timestamp: now.Add(-age)})
		require.NoError(t, err)
	}

	n, err := j.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	left, err := j.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestConcurrentRecord(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := j.Record(ctx, Entry{Profile: "p", Operation: OpPostSavePush, State: "x"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := j.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}
