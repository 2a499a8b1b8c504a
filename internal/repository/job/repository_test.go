package job

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/apperror"
	domain "github.com/ahmethakanbesel/exchange-rate-api/internal/job"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/platform/badger"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/platform/postgres"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/platform/sqlite"
)

type backend struct {
	name string
	open func(t *testing.T) domain.Repository
}

func backends() []backend {
	bs := []backend{
		{"sqlite", func(t *testing.T) domain.Repository {
			t.Helper()
			db, err := sqlite.Open(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return NewRepository(db.DB)
		}},
		{"badger", func(t *testing.T) domain.Repository {
			t.Helper()
			db, err := badger.Open(badger.MemoryDir)
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return NewBadgerRepository(db)
		}},
	}

	if dsn := os.Getenv("TEST_POSTGRES_URI"); dsn != "" {
		bs = append(bs, backend{"postgres", func(t *testing.T) domain.Repository {
			t.Helper()
			ctx := context.Background()
			pool, err := postgres.Open(ctx, dsn)
			require.NoError(t, err)
			t.Cleanup(pool.Close)
			_, err = pool.Exec(ctx, `TRUNCATE refresh_runs`)
			require.NoError(t, err)
			return NewPostgresRepository(pool)
		}})
	}
	return bs
}

func TestRunRepository(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Run("Create and Get", func(t *testing.T) { testCreateAndGet(t, b.open(t)) })
			t.Run("Update", func(t *testing.T) { testUpdate(t, b.open(t)) })
			t.Run("Get missing", func(t *testing.T) { testGetMissing(t, b.open(t)) })
			t.Run("List newest first", func(t *testing.T) { testList(t, b.open(t)) })
			t.Run("RecoverStale", func(t *testing.T) { testRecoverStale(t, b.open(t)) })
		})
	}
}

func testCreateAndGet(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	run := &domain.Run{
		Trigger:   domain.TriggerStartup,
		Status:    domain.StatusRunning,
		Requested: 20,
		StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, run))
	require.NotZero(t, run.ID)

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TriggerStartup, got.Trigger)
	assert.Equal(t, domain.StatusRunning, got.Status)
	assert.Equal(t, 20, got.Requested)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.Nil(t, got.FinishedAt)
}

func testUpdate(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	run := &domain.Run{Trigger: domain.TriggerSchedule, Status: domain.StatusRunning, Requested: 3}
	require.NoError(t, repo.Create(ctx, run))

	finished := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	run.Status = domain.StatusSucceeded
	run.Updated = 2
	run.Failed = 1
	run.FailedCurrencies = []string{"RUB"}
	run.Error = "fetch RUB: timeout"
	run.FinishedAt = &finished
	require.NoError(t, repo.Update(ctx, run))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, got.Status)
	assert.Equal(t, int64(2), got.Updated)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, []string{"RUB"}, got.FailedCurrencies)
	assert.Equal(t, "fetch RUB: timeout", got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))
}

func testGetMissing(t *testing.T, repo domain.Repository) {
	_, err := repo.Get(context.Background(), 999)
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func testList(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	for _, trig := range []domain.Trigger{domain.TriggerStartup, domain.TriggerSchedule, domain.TriggerManual} {
		require.NoError(t, repo.Create(ctx, &domain.Run{Trigger: trig, Status: domain.StatusSucceeded}))
	}

	runs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, domain.TriggerManual, runs[0].Trigger)
	assert.Equal(t, domain.TriggerSchedule, runs[1].Trigger)
	assert.Greater(t, runs[0].ID, runs[1].ID)
}

func testRecoverStale(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	stale := &domain.Run{Trigger: domain.TriggerSchedule, Status: domain.StatusRunning}
	done := &domain.Run{Trigger: domain.TriggerStartup, Status: domain.StatusSucceeded}
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, done))

	n, err := repo.RecoverStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, domain.StaleRunError, got.Error)
	assert.NotNil(t, got.FinishedAt)

	got, err = repo.Get(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, got.Status)
}
