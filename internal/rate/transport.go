package rate

import (
	"strings"
	"time"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/apperror"
)

// DefaultRangeDays is the look-back applied when start_date is omitted.
const DefaultRangeDays = 3 * 365

type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseRange parses optional YYYY-MM-DD bounds. An empty start defaults to
// today minus DefaultRangeDays and an empty end to today, where today is the
// calendar date of now.
func ParseRange(start, end string, now time.Time) (DateRange, *apperror.AppError) {
	today := Day(now)
	rng := DateRange{
		Start: today.AddDate(0, 0, -DefaultRangeDays),
		End:   today,
	}

	if s := strings.TrimSpace(start); s != "" {
		d, err := time.Parse(DateFormat, s)
		if err != nil {
			return DateRange{}, apperror.New(apperror.InvalidRange, "invalid start_date, expected YYYY-MM-DD")
		}
		rng.Start = d
	}
	if s := strings.TrimSpace(end); s != "" {
		d, err := time.Parse(DateFormat, s)
		if err != nil {
			return DateRange{}, apperror.New(apperror.InvalidRange, "invalid end_date, expected YYYY-MM-DD")
		}
		rng.End = d
	}

	if rng.Start.After(rng.End) {
		return DateRange{}, apperror.New(apperror.InvalidRange, "start_date must not be after end_date")
	}
	return rng, nil
}

// SeriesRequest selects a currency and an optional date range, as received
// from a client.
type SeriesRequest struct {
	Currency  string
	StartDate string
	EndDate   string
}

func (r SeriesRequest) Validate() *apperror.AppError {
	code := strings.ToUpper(strings.TrimSpace(r.Currency))
	if len(code) != 3 {
		return apperror.New(apperror.BadRequest, "currency code must be 3 letters")
	}
	if !IsSupported(code) {
		return apperror.New(apperror.NotFound, "unsupported currency: "+code)
	}
	return nil
}

type HistoryResponse struct {
	CurrencyCode string      `json:"currency_code"`
	StartDate    string      `json:"start_date"`
	EndDate      string      `json:"end_date"`
	Rates        []RatePoint `json:"rates"`
}

type MonthlyResponse struct {
	CurrencyCode string        `json:"currency_code"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	MonthlyRates []MonthlyRate `json:"monthly_rates"`
}

type YearlyResponse struct {
	CurrencyCode string       `json:"currency_code"`
	StartDate    string       `json:"start_date"`
	EndDate      string       `json:"end_date"`
	YearlyRates  []YearlyRate `json:"yearly_rates"`
}
