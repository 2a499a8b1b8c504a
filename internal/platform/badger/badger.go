// Package badger opens the embedded key-value backend.
package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// MemoryDir selects an in-memory database instead of a directory on disk.
const MemoryDir = "memory"

func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" || dir == MemoryDir {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}
