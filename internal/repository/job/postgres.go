package job

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/apperror"
	domain "github.com/ahmethakanbesel/exchange-rate-api/internal/job"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, run *domain.Run) error {
	const query = `INSERT INTO refresh_runs (triggered_by, status, requested, started_at)
		VALUES ($1, $2, $3, $4) RETURNING id`

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx, query,
		string(run.Trigger), string(run.Status), run.Requested, run.StartedAt,
	).Scan(&run.ID)
	if err != nil {
		return storageErr("create run", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, run *domain.Run) error {
	const query = `UPDATE refresh_runs SET status = $1, updated = $2, failed = $3,
		failed_currencies = $4, error = NULLIF($5, ''), finished_at = $6
		WHERE id = $7`

	failed := run.FailedCurrencies
	if failed == nil {
		failed = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		string(run.Status), run.Updated, run.Failed, failed, run.Error, run.FinishedAt, run.ID,
	)
	if err != nil {
		return storageErr("update run", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*domain.Run, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM refresh_runs WHERE id = $1`, id)
	run, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "run not found")
	}
	if err != nil {
		return nil, storageErr("get run", err)
	}
	return run, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]domain.Run, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+runColumns+` FROM refresh_runs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, storageErr("list runs", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanPostgresRun(rows)
		if err != nil {
			return nil, storageErr("scan run", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list runs", err)
	}
	return runs, nil
}

func (r *PostgresRepository) RecoverStale(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE refresh_runs SET status = $1, error = $2, finished_at = now() WHERE status = $3`,
		string(domain.StatusFailed), domain.StaleRunError, string(domain.StatusRunning),
	)
	if err != nil {
		return 0, storageErr("recover stale runs", err)
	}
	return tag.RowsAffected(), nil
}

func scanPostgresRun(row pgx.Row) (*domain.Run, error) {
	var (
		run             domain.Run
		trigger, status string
		runErr          *string
	)
	if err := row.Scan(
		&run.ID, &trigger, &status, &run.Requested, &run.Updated, &run.Failed,
		&run.FailedCurrencies, &runErr, &run.StartedAt, &run.FinishedAt,
	); err != nil {
		return nil, err
	}

	run.Trigger = domain.Trigger(trigger)
	run.Status = domain.Status(status)
	if runErr != nil {
		run.Error = *runErr
	}
	if len(run.FailedCurrencies) == 0 {
		run.FailedCurrencies = nil
	}
	return &run, nil
}
