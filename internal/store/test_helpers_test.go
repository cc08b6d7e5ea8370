package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/junction/internal/junction"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestFiring creates a firing record with one member per channel.
func createTestFiring(id junction.JunctionID, seq int64, pattern int, channels ...junction.ChannelID) junction.FiringRecord {
	rec := junction.FiringRecord{
		Junction: id,
		Seq:      seq,
		Pattern:  pattern,
		Channels: channels,
		Args:     make([]string, len(channels)),
	}
	if len(channels) > 0 {
		rec.Trigger = channels[len(channels)-1]
	}
	return rec
}
