// Package state persists engine balance and positions between runs. This is a
// restart convenience, not a durability guarantee.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Snapshot captures the engine's cash balance and per-symbol positions for a
// single venue at a point in time.
type Snapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	Venue     string         `json:"venue"`
	Balance   int64          `json:"balance"`
	Positions map[string]int `json:"positions"`
}

// WriteSnapshot writes a snapshot to disk as JSON, creating parent
// directories as needed.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Restore returns the balance and positions to seed an engine for the given
// venue. A snapshot recorded for a different venue is stale: its balance and
// its positions both belong to that other venue, so neither is restored.
func (s Snapshot) Restore(venue string) (int64, map[string]int) {
	if s.Venue != venue {
		return 0, nil
	}
	positions := make(map[string]int, len(s.Positions))
	for symbol, qty := range s.Positions {
		if qty == 0 {
			continue
		}
		positions[symbol] = qty
	}
	return s.Balance, positions
}
