package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ethernova/explorer/foundation/collector/peer"
)

const insertCandidate = `
INSERT INTO candidates (enode, node_id, ip, tcp_port, first_seen, status)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(enode) DO NOTHING`

// InsertCandidates enqueues the sighted peers for outbound expansion. The
// insert is keyed by connection string and never mutates an existing row, so
// re-sighting a peer does not reset its attempt or status history.
func (db *DB) InsertCandidates(ctx context.Context, now time.Time, sightings []peer.Sighting) error {
	if len(sightings) == 0 {
		return nil
	}

	stmt, err := db.sql.PrepareContext(ctx, insertCandidate)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	ms := now.UnixMilli()
	for _, s := range sightings {
		if _, err := stmt.ExecContext(ctx, s.Enode, s.NodeID, s.Host, s.Port, ms, peer.StatusPending); err != nil {
			return fmt.Errorf("insert candidate %s: %w", s.NodeID, err)
		}
	}

	return nil
}

// EligibleCandidates returns up to limit candidates whose status still allows
// an attempt. Rows that have never been attempted come first, then the row
// with the oldest attempt, then the oldest first sighting. Backoff is not
// applied here; the scheduler decides per candidate.
func (db *DB) EligibleCandidates(ctx context.Context, limit int) ([]peer.Candidate, error) {
	const q = `
SELECT enode, node_id, ip, tcp_port, first_seen, attempts, last_attempt, status
  FROM candidates
 WHERE status IS NULL OR status IN (?, ?)
 ORDER BY (last_attempt IS NOT NULL), last_attempt ASC, first_seen ASC
 LIMIT ?`

	rows, err := db.sql.QueryContext(ctx, q, peer.StatusPending, peer.StatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []peer.Candidate
	for rows.Next() {
		var c peer.Candidate
		var lastAttempt sql.NullInt64
		var status sql.NullString

		if err := rows.Scan(&c.Enode, &c.NodeID, &c.Host, &c.Port, &c.FirstSeen, &c.Attempts, &lastAttempt, &status); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		c.LastAttempt = lastAttempt.Int64
		c.Status = status.String
		if c.Status == "" {
			c.Status = peer.StatusPending
		}

		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return candidates, nil
}

// RecordAttempt bumps the candidate's attempt counter and stores the outcome
// of the outbound connect call. Called on success and failure alike so a
// consistently failing candidate keeps backing off.
func (db *DB) RecordAttempt(ctx context.Context, enodeURL string, now time.Time, status string) error {
	const q = `
UPDATE candidates
   SET attempts = attempts + 1, last_attempt = ?, status = ?
 WHERE enode = ?`

	if _, err := db.sql.ExecContext(ctx, q, now.UnixMilli(), status, enodeURL); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	return nil
}
