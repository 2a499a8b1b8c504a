package rate

import (
	"slices"
	"time"
)

// BaseCurrency is the currency every stored rate is expressed in.
const BaseCurrency = "CNY"

const (
	DateFormat      = "2006-01-02"
	TimestampFormat = "2006-01-02 15:04:05"
)

var supportedCurrencies = []string{
	"USD", "EUR", "JPY", "GBP", "AUD", "CAD", "CHF", "HKD", "SGD", "NZD",
	"KRW", "THB", "RUB", "INR", "MYR", "ZAR", "BRL", "MXN", "IDR", "TRY",
}

// SupportedCurrencies returns the refreshed currency codes in display order.
func SupportedCurrencies() []string {
	return slices.Clone(supportedCurrencies)
}

func IsSupported(code string) bool {
	return slices.Contains(supportedCurrencies, code)
}

// Rate is one daily record: 1 unit of Currency equals Rate units of
// BaseCurrency on Date.
type Rate struct {
	ID        int64
	Currency  string
	Date      time.Time
	Rate      float64
	CreatedAt time.Time
}

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Currency struct {
	Code string `json:"code"`
}

// RatePoint is the plain-data form of a Rate returned to API clients.
type RatePoint struct {
	ID           int64   `json:"id"`
	CurrencyCode string  `json:"currency_code"`
	Rate         float64 `json:"rate"`
	Date         string  `json:"date"`
	CreatedAt    string  `json:"created_at"`
}

func (r Rate) Point() RatePoint {
	return RatePoint{
		ID:           r.ID,
		CurrencyCode: r.Currency,
		Rate:         r.Rate,
		Date:         r.Date.Format(DateFormat),
		CreatedAt:    r.CreatedAt.UTC().Format(TimestampFormat),
	}
}

type MonthlyRate struct {
	Month       string  `json:"month"`
	AverageRate float64 `json:"average_rate"`
}

type YearlyRate struct {
	Year        string  `json:"year"`
	AverageRate float64 `json:"average_rate"`
}
