package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Repository persists daily rates. Implementations enforce a single record
// per (currency, date) and report persistence failures as apperror.Storage.
type Repository interface {
	// Upsert writes one record, replacing the rate of an existing one.
	Upsert(ctx context.Context, currency string, date time.Time, rate float64) error
	// SaveRates upserts a batch. Records that fail are skipped and reported in
	// the returned error while the rest are committed.
	SaveRates(ctx context.Context, rates []Rate) (int64, error)
	// QueryRange returns records with from <= date <= to, ascending by date.
	QueryRange(ctx context.Context, currency string, from, to time.Time) ([]Rate, error)
}

// RecordError reports a single record a batch write could not persist.
type RecordError struct {
	Currency string
	Date     time.Time
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("save %s %s: %v", e.Currency, e.Date.Format(DateFormat), e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// FailedRecords extracts the RecordErrors carried by a SaveRates error.
func FailedRecords(err error) []*RecordError {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var out []*RecordError
		for _, e := range merr.Errors {
			var re *RecordError
			if errors.As(e, &re) {
				out = append(out, re)
			}
		}
		return out
	}
	var re *RecordError
	if errors.As(err, &re) {
		return []*RecordError{re}
	}
	return nil
}
