package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		backend Backend
		dsn     string
	}{
		{"sqlite:///currency_exchange.db", BackendSQLite, "currency_exchange.db"},
		{"sqlite:////var/lib/rates.db", BackendSQLite, "/var/lib/rates.db"},
		{"sqlite://rates.db", BackendSQLite, "rates.db"},
		{":memory:", BackendSQLite, ":memory:"},
		{"./data/rates.db", BackendSQLite, "./data/rates.db"},
		{"postgres://u:p@localhost:5432/rates", BackendPostgres, "postgres://u:p@localhost:5432/rates"},
		{"postgresql://localhost/rates", BackendPostgres, "postgresql://localhost/rates"},
		{"badger:///var/lib/rates", BackendBadger, "/var/lib/rates"},
		{"badger://memory", BackendBadger, "memory"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			backend, dsn, err := ParseURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.backend, backend)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestParseURI_AbsoluteTempPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.db")

	backend, dsn, err := ParseURI("sqlite:///" + path)

	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, backend)
	assert.Equal(t, path, dsn)
	assert.True(t, filepath.IsAbs(dsn))
}

func TestParseURI_Errors(t *testing.T) {
	for _, uri := range []string{"", "  ", "mysql://localhost/rates"} {
		_, _, err := ParseURI(uri)
		assert.Error(t, err, uri)
	}
}

func TestOpen(t *testing.T) {
	uris := map[string]string{
		"sqlite": "sqlite:///" + filepath.Join(t.TempDir(), "rates.db"),
		"badger": "badger://memory",
	}
	for name, uri := range uris {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, err := Open(ctx, uri)
			require.NoError(t, err)
			defer func() { require.NoError(t, store.Close()) }()

			assert.Equal(t, Backend(name), store.Backend)

			d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			require.NoError(t, store.Rates.Upsert(ctx, "USD", d, 7.1))
			got, err := store.Rates.QueryRange(ctx, "USD", d, d)
			require.NoError(t, err)
			assert.Len(t, got, 1)

			runs, err := store.Runs.List(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, runs)
		})
	}
}
