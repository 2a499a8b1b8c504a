package rate

import (
	"context"
	"strings"
	"time"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/apperror"
)

// Service answers series queries over the rate store.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Option func(*Service)

// WithClock overrides the time source used for default ranges.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func (s *Service) ListCurrencies() []Currency {
	codes := SupportedCurrencies()
	out := make([]Currency, len(codes))
	for i, c := range codes {
		out[i] = Currency{Code: c}
	}
	return out
}

func (s *Service) GetHistorical(ctx context.Context, req SeriesRequest) (*HistoryResponse, error) {
	code, rng, records, err := s.query(ctx, req)
	if err != nil {
		return nil, err
	}

	raw := Raw(records)
	points := make([]RatePoint, len(raw))
	for i, r := range raw {
		points[i] = r.Point()
	}

	return &HistoryResponse{
		CurrencyCode: code,
		StartDate:    rng.Start.Format(DateFormat),
		EndDate:      rng.End.Format(DateFormat),
		Rates:        points,
	}, nil
}

func (s *Service) GetMonthly(ctx context.Context, req SeriesRequest) (*MonthlyResponse, error) {
	code, rng, records, err := s.query(ctx, req)
	if err != nil {
		return nil, err
	}
	return &MonthlyResponse{
		CurrencyCode: code,
		StartDate:    rng.Start.Format(DateFormat),
		EndDate:      rng.End.Format(DateFormat),
		MonthlyRates: MonthlyAverage(records),
	}, nil
}

func (s *Service) GetYearly(ctx context.Context, req SeriesRequest) (*YearlyResponse, error) {
	code, rng, records, err := s.query(ctx, req)
	if err != nil {
		return nil, err
	}
	return &YearlyResponse{
		CurrencyCode: code,
		StartDate:    rng.Start.Format(DateFormat),
		EndDate:      rng.End.Format(DateFormat),
		YearlyRates:  YearlyAverage(records),
	}, nil
}

// query validates the request before reading from the store.
func (s *Service) query(ctx context.Context, req SeriesRequest) (string, DateRange, []Rate, error) {
	if appErr := req.Validate(); appErr != nil {
		return "", DateRange{}, nil, appErr
	}
	rng, appErr := ParseRange(req.StartDate, req.EndDate, s.now())
	if appErr != nil {
		return "", DateRange{}, nil, appErr
	}

	code := strings.ToUpper(strings.TrimSpace(req.Currency))
	records, err := s.repo.QueryRange(ctx, code, rng.Start, rng.End)
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return "", DateRange{}, nil, err
		}
		return "", DateRange{}, nil, apperror.Wrap(apperror.Storage, "query rates", err)
	}
	return code, rng, records, nil
}
