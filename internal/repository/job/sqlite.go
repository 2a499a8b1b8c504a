package job

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/apperror"
	domain "github.com/ahmethakanbesel/exchange-rate-api/internal/job"
)

const runColumns = `id, triggered_by, status, requested, updated, failed,
	failed_currencies, error, started_at, finished_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, run *domain.Run) error {
	const query = `INSERT INTO refresh_runs (triggered_by, status, requested, started_at)
		VALUES (?, ?, ?, ?)`

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, query,
		string(run.Trigger), string(run.Status), run.Requested,
		run.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storageErr("create run", err)
	}

	run.ID, _ = res.LastInsertId()
	return nil
}

func (r *Repository) Update(ctx context.Context, run *domain.Run) error {
	const query = `UPDATE refresh_runs SET status = ?, updated = ?, failed = ?,
		failed_currencies = ?, error = ?, finished_at = ?
		WHERE id = ?`

	var finished sql.NullString
	if run.FinishedAt != nil {
		finished = sql.NullString{String: run.FinishedAt.UTC().Format(time.RFC3339), Valid: true}
	}
	var runErr sql.NullString
	if run.Error != "" {
		runErr = sql.NullString{String: run.Error, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		string(run.Status), run.Updated, run.Failed,
		strings.Join(run.FailedCurrencies, ","), runErr, finished,
		run.ID,
	)
	if err != nil {
		return storageErr("update run", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM refresh_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "run not found")
	}
	if err != nil {
		return nil, storageErr("get run", err)
	}
	return run, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]domain.Run, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM refresh_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("list runs", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
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

func (r *Repository) RecoverStale(ctx context.Context) (int64, error) {
	const query = `UPDATE refresh_runs SET status = ?, error = ?, finished_at = ?
		WHERE status = ?`

	res, err := r.db.ExecContext(ctx, query,
		string(domain.StatusFailed), domain.StaleRunError, time.Now().UTC().Format(time.RFC3339),
		string(domain.StatusRunning),
	)
	if err != nil {
		return 0, storageErr("recover stale runs", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.Run, error) {
	var (
		run                         domain.Run
		trigger, status, failedList string
		startedStr                  string
		runErr, finishedStr         sql.NullString
	)
	if err := s.Scan(
		&run.ID, &trigger, &status, &run.Requested, &run.Updated, &run.Failed,
		&failedList, &runErr, &startedStr, &finishedStr,
	); err != nil {
		return nil, err
	}

	run.Trigger = domain.Trigger(trigger)
	run.Status = domain.Status(status)
	if failedList != "" {
		run.FailedCurrencies = strings.Split(failedList, ",")
	}
	if runErr.Valid {
		run.Error = runErr.String
	}
	run.StartedAt, _ = time.Parse(time.RFC3339, startedStr)
	if finishedStr.Valid {
		t, err := time.Parse(time.RFC3339, finishedStr.String)
		if err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}

func storageErr(op string, err error) error {
	return apperror.Wrap(apperror.Storage, op, err)
}

// compile-time interface checks
var (
	_ domain.Repository = (*Repository)(nil)
	_ domain.Repository = (*PostgresRepository)(nil)
	_ domain.Repository = (*BadgerRepository)(nil)
)
