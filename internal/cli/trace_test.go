package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/junction/internal/junction"
	"github.com/roach88/junction/internal/store"
)

// seedJournal writes two firings for junction "j-1" and one for "j-2".
func seedJournal(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "journal.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	for _, rec := range []junction.FiringRecord{
		{Junction: "j-1", Seq: 1, Pattern: 0, Trigger: 2, Channels: []junction.ChannelID{1, 2}, Args: []string{"4", ""}},
		{Junction: "j-1", Seq: 2, Pattern: 1, Trigger: 3, Channels: []junction.ChannelID{3}, Args: []string{"7"}},
		{Junction: "j-2", Seq: 1, Pattern: 0, Trigger: 1, Channels: []junction.ChannelID{1}, Args: []string{"1"}},
	} {
		require.NoError(t, st.RecordFiring(ctx, rec))
	}
	return db
}

func TestTraceCommand_List(t *testing.T) {
	db := seedJournal(t)

	out, _, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "j-1  firings=2  seq=1..2\nj-2  firings=1  seq=1..1\n", out)
}

func TestTraceCommand_ListJSON(t *testing.T) {
	db := seedJournal(t)

	out, _, err := execute(t, "trace", "--db", db, "--format", "json")
	require.NoError(t, err)

	var summaries []store.JunctionSummary
	response := decodeResponse(t, out, &summaries)
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, []store.JunctionSummary{
		{ID: "j-1", Firings: 2, FirstSeq: 1, LastSeq: 2},
		{ID: "j-2", Firings: 1, FirstSeq: 1, LastSeq: 1},
	}, summaries)
}

func TestTraceCommand_Junction(t *testing.T) {
	db := seedJournal(t)

	out, _, err := execute(t, "trace", "--db", db, "--junction", "j-1")
	require.NoError(t, err)
	assert.Equal(t, "Junction j-1: 2 firings\n"+
		"  #1 pattern=0 trigger=2 channels=[1 2] args=[\"4\" \"\"]\n"+
		"  #2 pattern=1 trigger=3 channels=[3] args=[\"7\"]\n", out)
}

func TestTraceCommand_JunctionJSON(t *testing.T) {
	db := seedJournal(t)

	out, _, err := execute(t, "trace", "--db", db, "--junction", "j-2", "--format", "json")
	require.NoError(t, err)

	var result TraceResult
	decodeResponse(t, out, &result)
	assert.Equal(t, "j-2", result.Junction)
	require.Len(t, result.Firings, 1)
	assert.Equal(t, []string{"1"}, result.Firings[0].Args)
}

func TestTraceCommand_UnknownJunction(t *testing.T) {
	db := seedJournal(t)

	out, _, err := execute(t, "trace", "--db", db, "--junction", "j-9")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "no firings for junction j-9")
}

func TestTraceCommand_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No firings journaled.\n", out)
}

func TestTraceCommand_Errors(t *testing.T) {
	_, _, err := execute(t, "trace")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no database given")

	_, _, err = execute(t, "trace", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}
