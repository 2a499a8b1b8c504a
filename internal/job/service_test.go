package job

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/apperror"
)

type mockRepo struct {
	mu         sync.Mutex
	runs       map[int64]*Run
	nextID     int64
	staleCount int64
	recoverErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{runs: make(map[int64]*Run), nextID: 1}
}

func (m *mockRepo) Create(_ context.Context, r *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextID
	m.nextID++
	cp := *r
	m.runs[r.ID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, r *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.runs[r.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, apperror.New(apperror.NotFound, "run not found")
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockRepo) RecoverStale(_ context.Context) (int64, error) {
	return m.staleCount, m.recoverErr
}

func TestService_RecoverStaleRuns(t *testing.T) {
	repo := newMockRepo()
	repo.staleCount = 2
	svc := NewService(repo)

	require.NoError(t, svc.RecoverStaleRuns(context.Background()))
}

func TestService_Get(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &Run{Trigger: TriggerStartup, Status: StatusRunning}))

	got, err := svc.Get(ctx, GetRunRequest{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, TriggerStartup, got.Trigger)
}

func TestService_Get_InvalidID(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Get(context.Background(), GetRunRequest{ID: 0})
	assert.True(t, apperror.Is(err, apperror.BadRequest))
}

func TestService_List(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &Run{Trigger: TriggerSchedule, Status: StatusSucceeded}))
	}

	runs, err := svc.List(ctx, ListRunsRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(3), runs[0].ID)

	_, err = svc.List(ctx, ListRunsRequest{Limit: 500})
	assert.True(t, apperror.Is(err, apperror.BadRequest))
}

func TestService_List_Empty(t *testing.T) {
	runs, err := NewService(newMockRepo()).List(context.Background(), ListRunsRequest{})
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestService_Latest(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	latest, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, repo.Create(ctx, &Run{Trigger: TriggerStartup}))
	require.NoError(t, repo.Create(ctx, &Run{Trigger: TriggerManual}))

	latest, err = svc.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, TriggerManual, latest.Trigger)
}
