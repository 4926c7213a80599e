package database

// schema contains the complete DDL for the collector tables. Executed on
// every open; all statements are idempotent.
const schema = `
-- Every distinct peer identity ever sighted, keyed by node id.
CREATE TABLE IF NOT EXISTS peers (
    node_id      TEXT PRIMARY KEY,
    enode        TEXT NOT NULL,
    ip           TEXT NOT NULL,
    tcp_port     INTEGER NOT NULL,
    client_name  TEXT,
    caps         TEXT NOT NULL DEFAULT '[]',
    first_seen   INTEGER NOT NULL,
    last_seen    INTEGER NOT NULL,
    seen_count   INTEGER NOT NULL DEFAULT 1,
    country_code TEXT,
    country_name TEXT,
    asn_number   INTEGER,
    asn_org      TEXT,
    last_source  TEXT
);
CREATE INDEX IF NOT EXISTS idx_peers_last_seen ON peers(last_seen);
CREATE INDEX IF NOT EXISTS idx_peers_country ON peers(country_code);
CREATE INDEX IF NOT EXISTS idx_peers_asn ON peers(asn_number);

-- Peers queued for active outbound expansion, keyed by full enode URL.
CREATE TABLE IF NOT EXISTS candidates (
    enode        TEXT PRIMARY KEY,
    node_id      TEXT NOT NULL,
    ip           TEXT NOT NULL,
    tcp_port     INTEGER NOT NULL,
    first_seen   INTEGER NOT NULL,
    attempts     INTEGER NOT NULL DEFAULT 0,
    last_attempt INTEGER,
    status       TEXT
);
CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status);
`
