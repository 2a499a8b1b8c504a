package rate

import (
	"fmt"
	"slices"
	"time"
)

// Raw returns records unchanged. They are already ordered by date.
func Raw(records []Rate) []Rate {
	if records == nil {
		return []Rate{}
	}
	return records
}

// MonthlyAverage averages rates per calendar month, ascending. Months
// without records are omitted.
func MonthlyAverage(records []Rate) []MonthlyRate {
	buckets := average(records, func(d time.Time) int {
		y, m, _ := d.Date()
		return y*100 + int(m)
	})

	out := make([]MonthlyRate, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, MonthlyRate{
			Month:       fmt.Sprintf("%04d-%02d", b.key/100, b.key%100),
			AverageRate: b.mean,
		})
	}
	return out
}

// YearlyAverage averages rates per calendar year, ascending.
func YearlyAverage(records []Rate) []YearlyRate {
	buckets := average(records, func(d time.Time) int { return d.Year() })

	out := make([]YearlyRate, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, YearlyRate{
			Year:        fmt.Sprintf("%04d", b.key),
			AverageRate: b.mean,
		})
	}
	return out
}

type bucket struct {
	key   int
	sum   float64
	count int
	mean  float64
}

func average(records []Rate, keyOf func(time.Time) int) []bucket {
	idx := make(map[int]int)
	var buckets []bucket
	for _, r := range records {
		k := keyOf(r.Date)
		i, ok := idx[k]
		if !ok {
			i = len(buckets)
			idx[k] = i
			buckets = append(buckets, bucket{key: k})
		}
		buckets[i].sum += r.Rate
		buckets[i].count++
	}

	slices.SortFunc(buckets, func(a, b bucket) int { return a.key - b.key })
	for i := range buckets {
		buckets[i].mean = buckets[i].sum / float64(buckets[i].count)
	}
	return buckets
}
