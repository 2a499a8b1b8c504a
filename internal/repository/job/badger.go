package job

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/apperror"
	domain "github.com/ahmethakanbesel/exchange-rate-api/internal/job"
)

// Key layout: run/<20-digit id>, so keys sort by id.
const (
	runPrefix = "run/"
	runSeqKey = "meta/run_id"
)

type BadgerRepository struct {
	db *badger.DB
}

func NewBadgerRepository(db *badger.DB) *BadgerRepository {
	return &BadgerRepository{db: db}
}

func runKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", runPrefix, id))
}

func (r *BadgerRepository) Create(_ context.Context, run *domain.Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		id, err := nextRunID(txn)
		if err != nil {
			return err
		}
		run.ID = id
		return putRun(txn, run)
	})
	if err != nil {
		return storageErr("create run", err)
	}
	return nil
}

func (r *BadgerRepository) Update(_ context.Context, run *domain.Run) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(runKey(run.ID)); err != nil {
			return err
		}
		return putRun(txn, run)
	})
	if err != nil {
		return storageErr("update run", err)
	}
	return nil
}

func (r *BadgerRepository) Get(_ context.Context, id int64) (*domain.Run, error) {
	var run domain.Run
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &run) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apperror.New(apperror.NotFound, "run not found")
	}
	if err != nil {
		return nil, storageErr("get run", err)
	}
	return &run, nil
}

func (r *BadgerRepository) List(_ context.Context, limit int) ([]domain.Run, error) {
	var runs []domain.Run
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks to the last key <= the seek key.
		for it.Seek([]byte(runPrefix + "~")); it.Valid() && len(runs) < limit; it.Next() {
			var run domain.Run
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &run) }); err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("list runs", err)
	}
	return runs, nil
}

func (r *BadgerRepository) RecoverStale(_ context.Context) (int64, error) {
	var n int64
	err := r.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		var stale []domain.Run
		for it.Rewind(); it.Valid(); it.Next() {
			var run domain.Run
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &run) }); err != nil {
				return err
			}
			if run.Status == domain.StatusRunning {
				stale = append(stale, run)
			}
		}

		now := time.Now().UTC()
		for i := range stale {
			stale[i].Status = domain.StatusFailed
			stale[i].Error = domain.StaleRunError
			stale[i].FinishedAt = &now
			if err := putRun(txn, &stale[i]); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, storageErr("recover stale runs", err)
	}
	return n, nil
}

func putRun(txn *badger.Txn, run *domain.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	return txn.Set(runKey(run.ID), data)
}

func nextRunID(txn *badger.Txn) (int64, error) {
	key := []byte(runSeqKey)
	var cur uint64
	item, err := txn.Get(key)
	switch {
	case err == nil:
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt counter %q", key)
			}
			cur = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	case !errors.Is(err, badger.ErrKeyNotFound):
		return 0, err
	}

	cur++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, cur)
	if err := txn.Set(key, buf); err != nil {
		return 0, err
	}
	return int64(cur), nil
}
