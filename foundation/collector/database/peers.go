package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethernova/explorer/foundation/collector/peer"
)

// sortColumns is the allow-list of columns a peer listing may be ordered by.
// Anything else falls back to last_seen.
var sortColumns = map[string]string{
	"last_seen":    "last_seen",
	"first_seen":   "first_seen",
	"seen_count":   "seen_count",
	"country_code": "country_code",
	"asn_number":   "asn_number",
	"client_name":  "client_name",
	"ip":           "ip",
	"tcp_port":     "tcp_port",
}

// MaxPageSize clamps the page size of a peer listing.
const MaxPageSize = 200

const upsertSighting = `
INSERT INTO peers (
    node_id, enode, ip, tcp_port, client_name, caps,
    first_seen, last_seen, seen_count,
    country_code, country_name, asn_number, asn_org, last_source
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)
ON CONFLICT(node_id) DO UPDATE SET
    enode        = excluded.enode,
    ip           = excluded.ip,
    tcp_port     = excluded.tcp_port,
    client_name  = excluded.client_name,
    caps         = excluded.caps,
    last_seen    = excluded.last_seen,
    seen_count   = peers.seen_count + 1,
    country_code = excluded.country_code,
    country_name = excluded.country_name,
    asn_number   = excluded.asn_number,
    asn_org      = excluded.asn_org,
    last_source  = excluded.last_source`

// UpsertSightings records one poll tick's worth of sightings in a single
// transaction. A new identity is inserted with seen_count 1 and
// first_seen = last_seen = now; a known identity has its mutable fields
// overwritten and its seen_count incremented by exactly 1. Callers must
// dedupe the batch by node id first so an identity never double-increments
// within one tick.
func (db *DB) UpsertSightings(ctx context.Context, now time.Time, sightings []peer.Sighting) error {
	if len(sightings) == 0 {
		return nil
	}

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSighting)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	ms := now.UnixMilli()
	for _, s := range sightings {
		caps, err := json.Marshal(s.Caps)
		if err != nil {
			return fmt.Errorf("marshal caps: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			s.NodeID, s.Enode, s.Host, s.Port,
			nullString(s.ClientName), string(caps),
			ms, ms,
			nullString(s.Geo.CountryCode), nullString(s.Geo.CountryName),
			nullUint(s.Geo.ASNNumber), nullString(s.Geo.ASNOrg),
			nullString(s.Source),
		); err != nil {
			return fmt.Errorf("upsert %s: %w", s.NodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Query returns one page of peers matching the filter plus the total number
// of matching rows. The sort field is restricted to known columns and the
// page size is clamped to MaxPageSize.
func (db *DB) Query(ctx context.Context, filter peer.QueryFilter, sort string, asc bool, page peer.Page, onlineCutoff time.Time) ([]peer.Peer, int, error) {
	var where []string
	var args []any

	if filter.Search != "" {
		v := "%" + filter.Search + "%"
		where = append(where, "(node_id LIKE ? OR enode LIKE ? OR ip LIKE ? OR client_name LIKE ?)")
		args = append(args, v, v, v, v)
	}
	if filter.Client != "" {
		where = append(where, "client_name LIKE ?")
		args = append(args, "%"+filter.Client+"%")
	}
	if filter.Country != "" {
		where = append(where, "(country_code = ? OR country_name LIKE ?)")
		args = append(args, filter.Country, "%"+filter.Country+"%")
	}
	if filter.HasASN {
		where = append(where, "asn_number = ?")
		args = append(args, filter.ASN)
	}

	cutoff := onlineCutoff.UnixMilli()
	if filter.Online {
		where = append(where, "last_seen >= ?")
		args = append(args, cutoff)
	}

	var whereSQL string
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.sql.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM peers %s", whereSQL), args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	col, ok := sortColumns[sort]
	if !ok {
		col = "last_seen"
	}
	dir := "DESC"
	if asc {
		dir = "ASC"
	}

	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = 1
	}
	if page.Size > MaxPageSize {
		page.Size = MaxPageSize
	}
	offset := (page.Number - 1) * page.Size

	q := fmt.Sprintf(`
SELECT node_id, enode, ip, tcp_port, client_name, caps,
       first_seen, last_seen, seen_count,
       country_code, country_name, asn_number, asn_org, last_source
  FROM peers %s
 ORDER BY %s %s
 LIMIT ? OFFSET ?`, whereSQL, col, dir)

	rows, err := db.sql.QueryContext(ctx, q, append(args, page.Size, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var peers []peer.Peer
	for rows.Next() {
		p, err := scanPeer(rows)
		if err != nil {
			return nil, 0, err
		}
		p.Online = p.LastSeen >= cutoff
		peers = append(peers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows: %w", err)
	}

	return peers, total, nil
}

// Enodes returns every stored connection string ordered by most recently
// seen first. Used by the export surfaces.
func (db *DB) Enodes(ctx context.Context) ([]string, error) {
	return db.enodes(ctx, "SELECT enode FROM peers ORDER BY last_seen DESC")
}

// ExportEnodes returns up to limit connection strings for the auto exporter,
// either restricted to peers last seen within the online window or the most
// recently seen overall.
func (db *DB) ExportEnodes(ctx context.Context, onlineOnly bool, onlineCutoff time.Time, limit int) ([]string, error) {
	if onlineOnly {
		return db.enodes(ctx,
			"SELECT enode FROM peers WHERE last_seen >= ? ORDER BY last_seen DESC LIMIT ?",
			onlineCutoff.UnixMilli(), limit)
	}
	return db.enodes(ctx, "SELECT enode FROM peers ORDER BY last_seen DESC LIMIT ?", limit)
}

func (db *DB) enodes(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := db.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query enodes: %w", err)
	}
	defer rows.Close()

	var enodes []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("scan enode: %w", err)
		}
		enodes = append(enodes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return enodes, nil
}

// =============================================================================

// scanner lets scanPeer work against both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPeer(s scanner) (peer.Peer, error) {
	var p peer.Peer
	var client, countryCode, countryName, asnOrg, source sql.NullString
	var asn sql.NullInt64
	var caps string

	if err := s.Scan(&p.NodeID, &p.Enode, &p.Host, &p.Port, &client, &caps,
		&p.FirstSeen, &p.LastSeen, &p.SeenCount,
		&countryCode, &countryName, &asn, &asnOrg, &source); err != nil {
		return peer.Peer{}, fmt.Errorf("scan peer: %w", err)
	}

	p.ClientName = client.String
	p.Source = source.String
	p.Geo = peer.Geo{
		CountryCode: countryCode.String,
		CountryName: countryName.String,
		ASNNumber:   uint(asn.Int64),
		ASNOrg:      asnOrg.String,
	}

	if err := json.Unmarshal([]byte(caps), &p.Caps); err != nil {
		p.Caps = nil
	}

	return p, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullUint(n uint) any {
	if n == 0 {
		return nil
	}
	return int64(n)
}
