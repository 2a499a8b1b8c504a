// Package database opens the configured storage backend and exposes its
// rate and run-history repositories.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/job"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/platform/badger"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/platform/postgres"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/platform/sqlite"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
	jobrepo "github.com/ahmethakanbesel/exchange-rate-api/internal/repository/job"
	raterepo "github.com/ahmethakanbesel/exchange-rate-api/internal/repository/rate"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendBadger   Backend = "badger"
)

// RateStore is a rate repository that can also be emptied, which the
// seeder needs.
type RateStore interface {
	rate.Repository
	DeleteAll(ctx context.Context) (int64, error)
}

type Store struct {
	Backend Backend
	Rates   RateStore
	Runs    job.Repository
	close   func() error
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// ParseURI maps a DATABASE_URI to a backend and its driver-level DSN.
//
//	postgres://... | postgresql://...  -> postgres, unchanged
//	badger://<dir> | badger://memory   -> badger, <dir>
//	sqlite:///<relative path>          -> sqlite, <relative path>
//	sqlite:////<absolute path>         -> sqlite, /<absolute path>
//	sqlite://<path> | <path>           -> sqlite, <path>
func ParseURI(uri string) (Backend, string, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case uri == "":
		return "", "", fmt.Errorf("empty database uri")
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return BackendPostgres, uri, nil
	case strings.HasPrefix(uri, "badger://"):
		return BackendBadger, strings.TrimPrefix(uri, "badger://"), nil
	case strings.HasPrefix(uri, "sqlite:///"):
		return BackendSQLite, strings.TrimPrefix(uri, "sqlite:///"), nil
	case strings.HasPrefix(uri, "sqlite://"):
		return BackendSQLite, strings.TrimPrefix(uri, "sqlite://"), nil
	case strings.Contains(uri, "://"):
		return "", "", fmt.Errorf("unsupported database uri scheme: %s", uri[:strings.Index(uri, "://")])
	default:
		return BackendSQLite, uri, nil
	}
}

func Open(ctx context.Context, uri string) (*Store, error) {
	backend, dsn, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendPostgres:
		pool, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &Store{
			Backend: backend,
			Rates:   raterepo.NewPostgresRepository(pool),
			Runs:    jobrepo.NewPostgresRepository(pool),
			close:   func() error { pool.Close(); return nil },
		}, nil

	case BackendBadger:
		db, err := badger.Open(dsn)
		if err != nil {
			return nil, err
		}
		return &Store{
			Backend: backend,
			Rates:   raterepo.NewBadgerRepository(db),
			Runs:    jobrepo.NewBadgerRepository(db),
			close:   db.Close,
		}, nil

	default:
		db, err := sqlite.Open(dsn)
		if err != nil {
			return nil, err
		}
		return &Store{
			Backend: backend,
			Rates:   raterepo.NewRepository(db.DB),
			Runs:    jobrepo.NewRepository(db.DB),
			close:   db.Close,
		}, nil
	}
}
