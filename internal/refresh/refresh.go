// Package refresh pulls the latest rate of every supported currency from a
// provider and commits them as today's records.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/apperror"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/job"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/provider"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
)

// ErrRunInProgress is returned when Run is called while another run holds
// the service.
var ErrRunInProgress = apperror.New(apperror.Conflict, "a refresh run is already in progress")

type Service struct {
	rates      rate.Repository
	runs       job.Repository
	provider   provider.Provider
	currencies []string
	workers    int
	now        func() time.Time

	mu sync.Mutex
}

var _ job.Runner = (*Service)(nil)

func NewService(rates rate.Repository, runs job.Repository, p provider.Provider, opts ...Option) *Service {
	s := &Service{
		rates:      rates,
		runs:       runs,
		provider:   p,
		currencies: rate.SupportedCurrencies(),
		workers:    4,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Option func(*Service)

// WithWorkers bounds how many fetches run at once.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithCurrencies replaces the set of currencies fetched per run.
func WithCurrencies(codes []string) Option {
	return func(s *Service) { s.currencies = append([]string(nil), codes...) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type fetched struct {
	currency string
	value    float64
}

// Run performs one refresh. A currency whose fetch or write fails is logged
// and skipped; its previously stored records are left untouched. The run is
// recorded in the run history whatever the outcome. A history write that
// fails is logged and never stops the refresh itself.
func (s *Service) Run(ctx context.Context, trigger job.Trigger) (*job.Run, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	run := &job.Run{
		Trigger:   trigger,
		Status:    job.StatusRunning,
		Requested: len(s.currencies),
		StartedAt: s.now().UTC(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		slog.Error("refresh: record run start", "trigger", trigger, "error", err)
		run.ID = 0
	}

	slog.Info("refresh started", "run", run.ID, "trigger", trigger,
		"provider", s.provider.Name(), "currencies", len(s.currencies))

	runErr := s.refresh(ctx, run)
	s.finish(ctx, run, runErr)
	if runErr != nil {
		return run, runErr
	}
	return run, nil
}

func (s *Service) refresh(ctx context.Context, run *job.Run) error {
	today := rate.Day(s.now())
	results, fetchErr := s.fetchAll(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	failed := make(map[string]struct{})
	var merr *multierror.Error
	if errors.As(fetchErr, &merr) {
		for _, e := range merr.Errors {
			var fe *provider.FetchError
			if errors.As(e, &fe) {
				failed[fe.Currency] = struct{}{}
			}
		}
	}

	batch := make([]rate.Rate, 0, len(results))
	for _, r := range results {
		batch = append(batch, rate.Rate{Currency: r.currency, Date: today, Rate: r.value})
	}

	var saved int64
	if len(batch) > 0 {
		n, err := s.rates.SaveRates(ctx, batch)
		saved = n
		records := rate.FailedRecords(err)
		for _, re := range records {
			slog.Error("refresh: store rate", "run", run.ID, "currency", re.Currency, "error", re.Err)
			failed[re.Currency] = struct{}{}
		}
		if err != nil && len(records) == 0 {
			// Whole-batch failure: nothing was committed.
			slog.Error("refresh: save batch", "run", run.ID, "error", err)
			for _, r := range batch {
				failed[r.Currency] = struct{}{}
			}
			saved = 0
			run.Error = err.Error()
		}
	}

	run.Updated = saved
	run.Failed = len(failed)
	run.FailedCurrencies = make([]string, 0, len(failed))
	for c := range failed {
		run.FailedCurrencies = append(run.FailedCurrencies, c)
	}
	sort.Strings(run.FailedCurrencies)

	if saved > 0 || len(s.currencies) == 0 {
		run.Status = job.StatusSucceeded
	} else {
		run.Status = job.StatusFailed
		if run.Error == "" {
			run.Error = "no currency was updated"
		}
	}
	return nil
}

// fetchAll queries the provider for every currency with at most s.workers
// requests in flight. Failures are collected, never returned early.
func (s *Service) fetchAll(ctx context.Context) ([]fetched, error) {
	var (
		mu      sync.Mutex
		results = make([]fetched, 0, len(s.currencies))
		errs    *multierror.Error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, code := range s.currencies {
		g.Go(func() error {
			v, err := s.provider.FetchRate(gctx, code)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var fe *provider.FetchError
				if !errors.As(err, &fe) {
					err = &provider.FetchError{Currency: code, Err: err}
				}
				slog.Warn("refresh: fetch rate", "currency", code, "error", err)
				errs = multierror.Append(errs, err)
				return nil
			}
			results = append(results, fetched{currency: code, value: v})
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].currency < results[j].currency })
	return results, errs.ErrorOrNil()
}

// finish persists the final state of run. It runs detached from ctx so a run
// abandoned at shutdown is still closed out.
func (s *Service) finish(ctx context.Context, run *job.Run, runErr error) {
	if runErr != nil {
		run.Status = job.StatusFailed
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			run.Error = job.StaleRunError
		} else {
			run.Error = runErr.Error()
		}
	}
	finished := s.now().UTC()
	run.FinishedAt = &finished

	if run.ID == 0 {
		slog.Info("refresh finished without a history record", "status", run.Status,
			"updated", run.Updated, "failed", run.Failed)
		return
	}

	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.runs.Update(uctx, run); err != nil {
		slog.Error("refresh: record run result", "run", run.ID, "error", err)
		return
	}

	slog.Debug("refresh finished", "run", run.ID, "status", run.Status,
		"updated", run.Updated, "failed", run.Failed)
}
