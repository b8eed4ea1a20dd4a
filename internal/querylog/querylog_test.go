package querylog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.db")
	l, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestOpenAppliesMigrations(t *testing.T) {
	l := openTestLog(t)

	n, err := l.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLog(t)

	now := time.Now()
	l.Record(Entry{
		Time:       now,
		ClientIP:   "203.0.113.7",
		ClientPort: 53000,
		ID:         0x1234,
		QName:      "my.ip4.live.",
		QType:      1,
		Variant:    "answer",
		RCode:      0,
		Answered:   true,
	})
	l.Record(Entry{
		Time:       now.Add(time.Second),
		ClientIP:   "198.51.100.9",
		ClientPort: 40000,
		ID:         0x5678,
		QName:      "example.com.",
		QType:      1,
		Variant:    "refused",
		RCode:      5,
	})

	// Inserts are asynchronous.
	require.Eventually(t, func() bool {
		n, err := l.Count(context.Background())
		return err == nil && n == 2
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := l.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "example.com.", entries[0].QName)
	assert.Equal(t, "refused", entries[0].Variant)
	assert.Equal(t, uint8(5), entries[0].RCode)
	assert.False(t, entries[0].Answered)

	assert.Equal(t, "my.ip4.live.", entries[1].QName)
	assert.Equal(t, uint16(0x1234), entries[1].ID)
	assert.Equal(t, "203.0.113.7", entries[1].ClientIP)
	assert.True(t, entries[1].Answered)
	assert.WithinDuration(t, now, entries[1].Time, time.Second)
}

func TestRecentLimit(t *testing.T) {
	l := openTestLog(t)

	for i := 0; i < 5; i++ {
		l.Record(Entry{Time: time.Now(), ClientIP: "127.0.0.1", QName: "my.ip4.live.", QType: 1, Variant: "answer", Answered: true, ID: uint16(i)})
	}
	require.Eventually(t, func() bool {
		n, err := l.Count(context.Background())
		return err == nil && n == 5
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := l.Recent(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRecordAfterCloseIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.db")
	l, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	// Must not panic.
	l.Record(Entry{Time: time.Now(), Variant: "answer"})
	require.NoError(t, l.Close()) // idempotent
}

func TestOpenReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.db")
	l, err := Open(path, nil)
	require.NoError(t, err)
	l.Record(Entry{Time: time.Now(), ClientIP: "127.0.0.1", QName: "my.ip4.live.", Variant: "answer", Answered: true})
	require.Eventually(t, func() bool {
		n, err := l.Count(context.Background())
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, l.Close())

	l2, err := Open(path, nil)
	require.NoError(t, err)
	defer l2.Close()

	n, err := l2.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
