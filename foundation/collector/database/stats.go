package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ethernova/explorer/foundation/collector/peer"
)

// topN bounds every stats breakdown.
const topN = 10

// CountryStat is one raw row of the country breakdown. Missing geo data
// reports as UNKNOWN.
type CountryStat struct {
	Code   string
	Name   string
	Online int
	Total  int
}

// Counts returns the total number of distinct peers ever seen and how many
// were last seen within the online window.
func (db *DB) Counts(ctx context.Context, onlineCutoff time.Time) (total int, online int, err error) {
	if err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM peers").Scan(&total); err != nil {
		return 0, 0, fmt.Errorf("count peers: %w", err)
	}

	if err := db.sql.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM peers WHERE last_seen >= ?", onlineCutoff.UnixMilli(),
	).Scan(&online); err != nil {
		return 0, 0, fmt.Errorf("count online: %w", err)
	}

	return total, online, nil
}

// TopCountries returns the top country breakdown ordered by online count,
// then total.
func (db *DB) TopCountries(ctx context.Context, onlineCutoff time.Time) ([]CountryStat, error) {
	const q = `
SELECT COALESCE(country_code, 'UNKNOWN') AS country_code,
       COALESCE(country_name, 'UNKNOWN') AS country_name,
       COUNT(*) AS total,
       SUM(CASE WHEN last_seen >= ? THEN 1 ELSE 0 END) AS online
  FROM peers
 GROUP BY country_code, country_name
 ORDER BY online DESC, total DESC
 LIMIT ?`

	rows, err := db.sql.QueryContext(ctx, q, onlineCutoff.UnixMilli(), topN)
	if err != nil {
		return nil, fmt.Errorf("query countries: %w", err)
	}
	defer rows.Close()

	var stats []CountryStat
	for rows.Next() {
		var cs CountryStat
		if err := rows.Scan(&cs.Code, &cs.Name, &cs.Total, &cs.Online); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		stats = append(stats, cs)
	}

	return stats, rows.Err()
}

// TopASNs returns the top ASN breakdown ordered by online count, then total.
func (db *DB) TopASNs(ctx context.Context, onlineCutoff time.Time) ([]peer.ASNCount, error) {
	const q = `
SELECT COALESCE(asn_number, 0) AS asn_number,
       COALESCE(asn_org, 'UNKNOWN') AS asn_org,
       COUNT(*) AS total,
       SUM(CASE WHEN last_seen >= ? THEN 1 ELSE 0 END) AS online
  FROM peers
 GROUP BY asn_number, asn_org
 ORDER BY online DESC, total DESC
 LIMIT ?`

	rows, err := db.sql.QueryContext(ctx, q, onlineCutoff.UnixMilli(), topN)
	if err != nil {
		return nil, fmt.Errorf("query asns: %w", err)
	}
	defer rows.Close()

	var stats []peer.ASNCount
	for rows.Next() {
		var as peer.ASNCount
		if err := rows.Scan(&as.ASN, &as.Org, &as.Total, &as.Online); err != nil {
			return nil, fmt.Errorf("scan asn: %w", err)
		}
		stats = append(stats, as)
	}

	return stats, rows.Err()
}

// TopClients returns the top client-name breakdown by total count. Client
// names are grouped raw; a missing name reports as UNKNOWN.
func (db *DB) TopClients(ctx context.Context) ([]peer.ClientCount, error) {
	const q = `
SELECT COALESCE(client_name, 'UNKNOWN') AS client,
       COUNT(*) AS count
  FROM peers
 GROUP BY client_name
 ORDER BY count DESC
 LIMIT ?`

	rows, err := db.sql.QueryContext(ctx, q, topN)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var stats []peer.ClientCount
	for rows.Next() {
		var cc peer.ClientCount
		if err := rows.Scan(&cc.Client, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		stats = append(stats, cc)
	}

	return stats, rows.Err()
}
