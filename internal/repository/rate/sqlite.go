package rate

import (
	"context"
	"database/sql"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/apperror"
	domain "github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
)

const upsertSQLite = `INSERT INTO exchange_rates (currency_code, date, rate, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (currency_code, date) DO UPDATE
	SET rate = excluded.rate, created_at = excluded.created_at`

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) Upsert(ctx context.Context, currency string, date time.Time, rate float64) error {
	_, err := r.db.ExecContext(ctx, upsertSQLite,
		currency, date.Format(domain.DateFormat), rate, r.now().UTC().Format(time.RFC3339))
	if err != nil {
		return storageErr("upsert rate", err)
	}
	return nil
}

// SaveRates upserts rates in one transaction. A statement that fails only
// aborts itself in SQLite, so the remaining records still commit.
func (r *Repository) SaveRates(ctx context.Context, rates []domain.Rate) (int64, error) {
	if len(rates) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("save rates: begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertSQLite)
	if err != nil {
		return 0, storageErr("save rates: prepare", err)
	}
	defer func() { _ = stmt.Close() }()

	var (
		total int64
		ferr  *multierror.Error
	)
	createdAt := r.now().UTC().Format(time.RFC3339)
	for _, rt := range rates {
		if _, err := stmt.ExecContext(ctx, rt.Currency, rt.Date.Format(domain.DateFormat), rt.Rate, createdAt); err != nil {
			if ctx.Err() != nil {
				return 0, storageErr("save rates", ctx.Err())
			}
			ferr = multierror.Append(ferr, &domain.RecordError{Currency: rt.Currency, Date: rt.Date, Err: err})
			continue
		}
		total++
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("save rates: commit", err)
	}

	if err := ferr.ErrorOrNil(); err != nil {
		return total, storageErr("save rates", err)
	}
	return total, nil
}

func (r *Repository) QueryRange(ctx context.Context, currency string, from, to time.Time) ([]domain.Rate, error) {
	const query = `SELECT id, currency_code, date, rate, created_at
		FROM exchange_rates
		WHERE currency_code = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query, currency, from.Format(domain.DateFormat), to.Format(domain.DateFormat))
	if err != nil {
		return nil, storageErr("query rates", err)
	}
	defer func() { _ = rows.Close() }()

	rates := make([]domain.Rate, 0)
	for rows.Next() {
		var rate domain.Rate
		var dateStr, createdStr string
		if err := rows.Scan(&rate.ID, &rate.Currency, &dateStr, &rate.Rate, &createdStr); err != nil {
			return nil, storageErr("scan rate", err)
		}
		rate.Date, _ = time.Parse(domain.DateFormat, dateStr)
		rate.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query rates", err)
	}

	return rates, nil
}

// DeleteAll removes every rate. Only the seeder uses it.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM exchange_rates`)
	if err != nil {
		return 0, storageErr("delete rates", err)
	}
	return res.RowsAffected()
}

func storageErr(op string, err error) error {
	return apperror.Wrap(apperror.Storage, op, err)
}
