// Package database provides the durable peer and candidate stores on top
// of SQLite.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB provides access to the collector tables. Reads may run concurrently
// with the single poll-tick writer; WAL mode keeps readers on a consistent
// snapshot while a batch commits.
type DB struct {
	sql *sql.DB
}

// Open creates the parent directory if needed, opens the SQLite file in WAL
// mode and applies the schema.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?%s", path,
		"_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &DB{sql: sqlDB}, nil
}

// Close cleanly closes the database underneath.
func (db *DB) Close() error {
	return db.sql.Close()
}
