package rate

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/hashicorp/go-multierror"

	domain "github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
)

// Key layout: rate/<CCY>/<YYYY-MM-DD>. Keys of one currency sort by date.
const (
	ratePrefix = "rate/"
	rateSeqKey = "meta/rate_id"

	maxConflictRetries = 3
)

var (
	errInvalidCurrency = errors.New("currency code must be 3 characters")
	errNonPositiveRate = errors.New("rate must be positive")
)

type badgerRecord struct {
	ID        int64     `json:"id"`
	Rate      float64   `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
}

type BadgerRepository struct {
	db  *badger.DB
	now func() time.Time
}

func NewBadgerRepository(db *badger.DB) *BadgerRepository {
	return &BadgerRepository{db: db, now: time.Now}
}

func rateKey(currency string, date time.Time) []byte {
	return []byte(ratePrefix + currency + "/" + date.Format(domain.DateFormat))
}

func (r *BadgerRepository) Upsert(ctx context.Context, currency string, date time.Time, rate float64) error {
	rt := domain.Rate{Currency: currency, Date: date, Rate: rate}

	var err error
	for range maxConflictRetries {
		if ctx.Err() != nil {
			return storageErr("upsert rate", ctx.Err())
		}
		err = r.db.Update(func(txn *badger.Txn) error {
			return r.put(txn, rt, r.now().UTC())
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return storageErr("upsert rate", err)
	}
	return nil
}

// SaveRates writes the batch in as few transactions as badger allows,
// starting a new one when the current transaction grows too big.
func (r *BadgerRepository) SaveRates(ctx context.Context, rates []domain.Rate) (int64, error) {
	if len(rates) == 0 {
		return 0, nil
	}

	txn := r.db.NewTransaction(true)
	defer func() { txn.Discard() }()

	var (
		total   int64
		pending int64
		ferr    *multierror.Error
	)
	createdAt := r.now().UTC()
	for _, rt := range rates {
		if ctx.Err() != nil {
			return total, storageErr("save rates", ctx.Err())
		}

		err := r.put(txn, rt, createdAt)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err := txn.Commit(); err != nil {
				return total, storageErr("save rates: commit", err)
			}
			total += pending
			pending = 0
			txn = r.db.NewTransaction(true)
			err = r.put(txn, rt, createdAt)
		}
		if err != nil {
			ferr = multierror.Append(ferr, &domain.RecordError{Currency: rt.Currency, Date: rt.Date, Err: err})
			continue
		}
		pending++
	}

	if err := txn.Commit(); err != nil {
		return total, storageErr("save rates: commit", err)
	}
	total += pending

	if err := ferr.ErrorOrNil(); err != nil {
		return total, storageErr("save rates", err)
	}
	return total, nil
}

// put validates rt the way the SQL backends' CHECK constraints do, keeps the
// ID of an existing record and assigns a new one otherwise.
func (r *BadgerRepository) put(txn *badger.Txn, rt domain.Rate, createdAt time.Time) error {
	if len(rt.Currency) != 3 {
		return errInvalidCurrency
	}
	if !(rt.Rate > 0) {
		return errNonPositiveRate
	}

	key := rateKey(rt.Currency, rt.Date)
	rec := badgerRecord{Rate: rt.Rate, CreatedAt: createdAt}

	item, err := txn.Get(key)
	switch {
	case err == nil:
		var old badgerRecord
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &old) }); err != nil {
			return fmt.Errorf("decode existing rate: %w", err)
		}
		rec.ID = old.ID
	case errors.Is(err, badger.ErrKeyNotFound):
		id, err := nextID(txn, []byte(rateSeqKey))
		if err != nil {
			return err
		}
		rec.ID = id
	default:
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode rate: %w", err)
	}
	return txn.Set(key, data)
}

func (r *BadgerRepository) QueryRange(ctx context.Context, currency string, from, to time.Time) ([]domain.Rate, error) {
	prefix := []byte(ratePrefix + currency + "/")
	end := rateKey(currency, to)

	rates := make([]domain.Rate, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(rateKey(currency, from)); it.ValidForPrefix(prefix); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			item := it.Item()
			key := item.KeyCopy(nil)
			if bytes.Compare(key, end) > 0 {
				break
			}

			date, err := time.Parse(domain.DateFormat, string(key[len(prefix):]))
			if err != nil {
				return fmt.Errorf("parse key %q: %w", key, err)
			}
			var rec badgerRecord
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return fmt.Errorf("decode rate: %w", err)
			}
			rates = append(rates, domain.Rate{
				ID:        rec.ID,
				Currency:  currency,
				Date:      date,
				Rate:      rec.Rate,
				CreatedAt: rec.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("query rates", err)
	}
	return rates, nil
}

func (r *BadgerRepository) DeleteAll(_ context.Context) (int64, error) {
	var n int64
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(ratePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, storageErr("delete rates", err)
	}
	if err := r.db.DropPrefix([]byte(ratePrefix)); err != nil {
		return 0, storageErr("delete rates", err)
	}
	return n, nil
}

// nextID increments the big-endian counter stored at key within txn.
func nextID(txn *badger.Txn, key []byte) (int64, error) {
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
