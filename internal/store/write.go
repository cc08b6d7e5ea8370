package store

import (
	"context"
	"fmt"

	"github.com/roach88/junction/internal/junction"
)

var _ junction.Recorder = (*Store)(nil)

// RecordFiring appends one firing and its members to the journal.
// Implements junction.Recorder.
//
// Uses ON CONFLICT DO NOTHING for idempotency: a (junction, seq) pair that is
// already journaled is silently ignored, members included.
func (s *Store) RecordFiring(ctx context.Context, rec junction.FiringRecord) error {
	if len(rec.Channels) == 0 {
		return fmt.Errorf("record firing: junction %s seq %d has no members", rec.Junction, rec.Seq)
	}
	if len(rec.Args) != len(rec.Channels) {
		return fmt.Errorf("record firing: %d args for %d members", len(rec.Args), len(rec.Channels))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record firing: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO firings
		(junction_id, seq, pattern, trigger, arity)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(junction_id, seq) DO NOTHING
	`,
		string(rec.Junction),
		rec.Seq,
		rec.Pattern,
		int64(rec.Trigger),
		len(rec.Channels),
	)
	if err != nil {
		return fmt.Errorf("record firing: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record firing: rows affected: %w", err)
	}
	if n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO firing_members
		(junction_id, seq, position, channel_id, arg)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("record firing: prepare members: %w", err)
	}
	defer stmt.Close()

	for i, ch := range rec.Channels {
		if _, err := stmt.ExecContext(ctx, string(rec.Junction), rec.Seq, i, int64(ch), rec.Args[i]); err != nil {
			return fmt.Errorf("record firing: member %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record firing: commit: %w", err)
	}
	return nil
}
