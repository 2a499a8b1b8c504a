package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Register sqlite driver
)

//go:embed migrations/001_initial.sql
var migration string

const memoryDSN = ":memory:"

// pragmas are applied by the driver to every new pooled connection. WAL lets
// API readers proceed while a refresh holds a write transaction.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

type DB struct {
	*sql.DB
}

// Open opens path (or ":memory:") and applies the rate and run-history schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Each connection to ":memory:" is its own database.
	if path == memoryDSN {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}

	if _, err := db.Exec(migration); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{db}, nil
}

// DSN appends the connection pragmas to path, keeping any query it already
// carries.
func DSN(path string) string {
	params := make([]string, len(pragmas))
	for i, p := range pragmas {
		params[i] = "_pragma=" + p
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}
