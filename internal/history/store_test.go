package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendAndRecent(t *testing.T) {
	s := openTestStore(t)
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(Entry{
		AlertID: "a1", Kind: "failover",
		Summary: "failover detected: pool blue -> green",
		Outcome: OutcomeSent, At: at,
	}))
	require.NoError(t, s.Append(Entry{
		AlertID: "a2", Kind: "failover",
		Summary: "failover detected: pool green -> blue",
		Outcome: OutcomeSuppressed, Reason: "maintenance", At: at.Add(time.Minute),
	}))

	entries, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "a2", entries[0].AlertID)
	assert.Equal(t, OutcomeSuppressed, entries[0].Outcome)
	assert.Equal(t, "maintenance", entries[0].Reason)
	assert.Equal(t, "a1", entries[1].AlertID)
	assert.True(t, entries[1].At.Equal(at))
}

func TestStore_RecentHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	at := time.Now().UTC()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(Entry{
			AlertID: "a", Kind: "high_error_rate", Summary: "x",
			Outcome: OutcomeSent, At: at,
		}))
	}

	entries, err := s.Recent(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestStore_EmptyRecent(t *testing.T) {
	s := openTestStore(t)
	entries, err := s.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(Entry{
		AlertID: "a1", Kind: "failover", Summary: "x",
		Outcome: OutcomeFailed, Reason: "webhook delivery: endpoint returned 500",
		At: time.Now().UTC(),
	}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, OutcomeFailed, entries[0].Outcome)
}
