package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
)

const upsertPostgres = `INSERT INTO exchange_rates (currency_code, date, rate, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (currency_code, date) DO UPDATE
	SET rate = EXCLUDED.rate, created_at = EXCLUDED.created_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool, now: time.Now}
}

func (r *PostgresRepository) Upsert(ctx context.Context, currency string, date time.Time, rate float64) error {
	if _, err := r.pool.Exec(ctx, upsertPostgres, currency, domain.Day(date), rate, r.now().UTC()); err != nil {
		return storageErr("upsert rate", err)
	}
	return nil
}

// SaveRates upserts rates in one transaction. Each record runs inside its
// own savepoint because a failed statement aborts a Postgres transaction.
func (r *PostgresRepository) SaveRates(ctx context.Context, rates []domain.Rate) (int64, error) {
	if len(rates) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, storageErr("save rates: begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		total int64
		ferr  *multierror.Error
	)
	createdAt := r.now().UTC()
	for _, rt := range rates {
		if err := upsertInSavepoint(ctx, tx, rt, createdAt); err != nil {
			if ctx.Err() != nil {
				return 0, storageErr("save rates", ctx.Err())
			}
			ferr = multierror.Append(ferr, &domain.RecordError{Currency: rt.Currency, Date: rt.Date, Err: err})
			continue
		}
		total++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, storageErr("save rates: commit", err)
	}

	if err := ferr.ErrorOrNil(); err != nil {
		return total, storageErr("save rates", err)
	}
	return total, nil
}

func upsertInSavepoint(ctx context.Context, tx pgx.Tx, rt domain.Rate, createdAt time.Time) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if _, err := sp.Exec(ctx, upsertPostgres, rt.Currency, domain.Day(rt.Date), rt.Rate, createdAt); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func (r *PostgresRepository) QueryRange(ctx context.Context, currency string, from, to time.Time) ([]domain.Rate, error) {
	const query = `SELECT id, currency_code, date, rate, created_at
		FROM exchange_rates
		WHERE currency_code = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`

	rows, err := r.pool.Query(ctx, query, currency, domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, storageErr("query rates", err)
	}
	defer rows.Close()

	rates := make([]domain.Rate, 0)
	for rows.Next() {
		var rate domain.Rate
		if err := rows.Scan(&rate.ID, &rate.Currency, &rate.Date, &rate.Rate, &rate.CreatedAt); err != nil {
			return nil, storageErr("scan rate", err)
		}
		rate.Date = domain.Day(rate.Date)
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query rates", err)
	}

	return rates, nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exchange_rates`)
	if err != nil {
		return 0, storageErr("delete rates", err)
	}
	return tag.RowsAffected(), nil
}
