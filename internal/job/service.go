package job

import (
	"context"
	"log/slog"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) RecoverStaleRuns(ctx context.Context) error {
	n, err := s.repo.RecoverStale(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("marked interrupted refresh runs as failed", "count", n)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, req GetRunRequest) (*Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, req.ID)
}

func (s *Service) List(ctx context.Context, req ListRunsRequest) ([]Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	runs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []Run{}
	}
	return runs, nil
}

// Latest returns the newest run, or nil when none has been recorded.
func (s *Service) Latest(ctx context.Context) (*Run, error) {
	runs, err := s.repo.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
