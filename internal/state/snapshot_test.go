package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	snap := Snapshot{
		Timestamp: time.Date(2016, 2, 13, 10, 0, 0, 0, time.UTC),
		Venue:     "TESTEX",
		Balance:   -123456,
		Positions: map[string]int{"FOOB": 250, "QUUX": -40},
	}

	require.NoError(t, WriteSnapshot(path, snap))

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestRestoreMatchingVenue(t *testing.T) {
	snap := Snapshot{
		Venue:     "TESTEX",
		Balance:   9000,
		Positions: map[string]int{"FOOB": 100, "FLAT": 0},
	}

	balance, positions := snap.Restore("TESTEX")
	assert.Equal(t, int64(9000), balance)
	assert.Equal(t, map[string]int{"FOOB": 100}, positions, "zero positions are dropped")
}

func TestRestoreVenueMismatch(t *testing.T) {
	snap := Snapshot{
		Venue:     "TESTEX",
		Balance:   9000,
		Positions: map[string]int{"FOOB": 100},
	}

	// each level spins up a fresh venue; stale state must not leak in
	balance, positions := snap.Restore("OTHEREX")
	assert.Zero(t, balance)
	assert.Nil(t, positions)
}
