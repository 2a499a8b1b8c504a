// Package seed generates synthetic rate history for development databases.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
)

const (
	maxDailyStep = 0.005
	minRate      = 0.001
)

// anchors are the starting rates of the major currencies. Others start at a
// random value in [0.1, 20).
var anchors = map[string]float64{
	"USD": 0.14,
	"EUR": 0.13,
	"JPY": 19.0,
	"GBP": 0.11,
}

// Generate returns a daily random walk for currency covering days days that
// end on end (inclusive), oldest first. Each day moves the previous rate by a
// factor in [1-0.5%, 1+0.5%] and never drops below 0.001.
func Generate(rng *rand.Rand, currency string, end time.Time, days int) []rate.Rate {
	if days <= 0 {
		return nil
	}

	value, ok := anchors[currency]
	if !ok {
		value = 0.1 + rng.Float64()*19.9
	}

	start := rate.Day(end).AddDate(0, 0, -(days - 1))
	out := make([]rate.Rate, days)
	for i := range out {
		if i > 0 {
			step := (rng.Float64()*2 - 1) * maxDailyStep
			value = max(value*(1+step), minRate)
		}
		out[i] = rate.Rate{Currency: currency, Date: start.AddDate(0, 0, i), Rate: value}
	}
	return out
}

// Days is the number of daily records years of history spans up to end.
func Days(end time.Time, years int) int {
	end = rate.Day(end)
	return int(end.Sub(end.AddDate(-years, 0, 0)).Hours()/24) + 1
}

// Populate writes generated history for every currency, one batch each.
func Populate(ctx context.Context, repo rate.Repository, rng *rand.Rand, currencies []string, end time.Time, years int) (int64, error) {
	days := Days(end, years)

	var total int64
	for _, code := range currencies {
		n, err := repo.SaveRates(ctx, Generate(rng, code, end, days))
		total += n
		if err != nil {
			return total, fmt.Errorf("seed %s: %w", code, err)
		}
		slog.Debug("seeded currency", "currency", code, "records", n)
	}
	return total, nil
}
