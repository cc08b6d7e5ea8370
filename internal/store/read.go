package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/junction/internal/junction"
)

// JunctionSummary describes one journaled junction.
type JunctionSummary struct {
	ID       junction.JunctionID `json:"id"`
	Firings  int64               `json:"firings"`
	FirstSeq int64               `json:"first_seq"`
	LastSeq  int64               `json:"last_seq"`
}

// ReadFirings returns every journaled firing of a junction ordered by seq.
//
// Returns an empty slice (not nil) if the junction has no firings.
func (s *Store) ReadFirings(ctx context.Context, id junction.JunctionID) ([]junction.FiringRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, pattern, trigger
		FROM firings
		WHERE junction_id = ?
		ORDER BY seq ASC
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	records := []junction.FiringRecord{}
	index := make(map[int64]int)
	for rows.Next() {
		rec := junction.FiringRecord{Junction: id}
		var trigger int64
		if err := rows.Scan(&rec.Seq, &rec.Pattern, &trigger); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		rec.Trigger = junction.ChannelID(trigger)
		rec.Channels = []junction.ChannelID{}
		rec.Args = []string{}
		index[rec.Seq] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}
	rows.Close()

	if len(records) == 0 {
		return records, nil
	}

	if err := s.readMembers(ctx, id, 0, records, index); err != nil {
		return nil, err
	}
	return records, nil
}

// readMembers fills Channels and Args of records in construction order.
// A zero only reads the members of every firing of the junction.
func (s *Store) readMembers(ctx context.Context, id junction.JunctionID, only int64, records []junction.FiringRecord, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, channel_id, arg
		FROM firing_members
		WHERE junction_id = ? AND (? = 0 OR seq = ?)
		ORDER BY seq ASC, position ASC
	`, string(id), only, only)
	if err != nil {
		return fmt.Errorf("query firing members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq int64
			ch  int64
			arg string
		)
		if err := rows.Scan(&seq, &ch, &arg); err != nil {
			return fmt.Errorf("scan firing member: %w", err)
		}
		i, ok := index[seq]
		if !ok {
			return fmt.Errorf("firing member references unknown firing %s/%d", id, seq)
		}
		records[i].Channels = append(records[i].Channels, junction.ChannelID(ch))
		records[i].Args = append(records[i].Args, arg)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate firing members: %w", err)
	}
	return nil
}

// ReadFiring returns a single firing by junction and seq.
// Returns sql.ErrNoRows (wrapped) if it was never journaled.
func (s *Store) ReadFiring(ctx context.Context, id junction.JunctionID, seq int64) (junction.FiringRecord, error) {
	rec := junction.FiringRecord{Junction: id, Seq: seq}
	var trigger int64
	err := s.db.QueryRowContext(ctx, `
		SELECT pattern, trigger
		FROM firings
		WHERE junction_id = ? AND seq = ?
	`, string(id), seq).Scan(&rec.Pattern, &trigger)
	if errors.Is(err, sql.ErrNoRows) {
		return junction.FiringRecord{}, fmt.Errorf("firing %s/%d not found: %w", id, seq, err)
	}
	if err != nil {
		return junction.FiringRecord{}, fmt.Errorf("query firing: %w", err)
	}
	rec.Trigger = junction.ChannelID(trigger)
	rec.Channels = []junction.ChannelID{}
	rec.Args = []string{}

	records := []junction.FiringRecord{rec}
	if err := s.readMembers(ctx, id, seq, records, map[int64]int{seq: 0}); err != nil {
		return junction.FiringRecord{}, err
	}
	return records[0], nil
}

// ListJunctions returns a summary of every journaled junction ordered by id.
func (s *Store) ListJunctions(ctx context.Context) ([]JunctionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT junction_id, COUNT(*), MIN(seq), MAX(seq)
		FROM firings
		GROUP BY junction_id
		ORDER BY junction_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query junctions: %w", err)
	}
	defer rows.Close()

	summaries := []JunctionSummary{}
	for rows.Next() {
		var (
			sum JunctionSummary
			id  string
		)
		if err := rows.Scan(&id, &sum.Firings, &sum.FirstSeq, &sum.LastSeq); err != nil {
			return nil, fmt.Errorf("scan junction: %w", err)
		}
		sum.ID = junction.JunctionID(id)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate junctions: %w", err)
	}
	return summaries, nil
}
