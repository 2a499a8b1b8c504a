package rate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthlyAverage(t *testing.T) {
	records := []Rate{
		{Currency: "USD", Date: day(2024, 1, 1), Rate: 1.0},
		{Currency: "USD", Date: day(2024, 1, 15), Rate: 3.0},
		{Currency: "USD", Date: day(2024, 2, 1), Rate: 5.0},
	}

	got := MonthlyAverage(records)
	want := []MonthlyRate{
		{Month: "2024-01", AverageRate: 2.0},
		{Month: "2024-02", AverageRate: 5.0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MonthlyAverage mismatch (-want +got):\n%s", diff)
	}
}

func TestMonthlyAverage_SkipsEmptyMonthsAndCrossesYears(t *testing.T) {
	records := []Rate{
		{Date: day(2023, 11, 30), Rate: 2},
		{Date: day(2024, 1, 2), Rate: 4},
		{Date: day(2024, 1, 3), Rate: 6},
		{Date: day(2024, 4, 1), Rate: 1},
	}

	got := MonthlyAverage(records)
	want := []MonthlyRate{
		{Month: "2023-11", AverageRate: 2},
		{Month: "2024-01", AverageRate: 5},
		{Month: "2024-04", AverageRate: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MonthlyAverage mismatch (-want +got):\n%s", diff)
	}
}

func TestYearlyAverage(t *testing.T) {
	records := []Rate{
		{Date: day(2022, 6, 1), Rate: 0.5},
		{Date: day(2023, 1, 1), Rate: 1},
		{Date: day(2023, 7, 1), Rate: 2},
		{Date: day(2023, 12, 31), Rate: 3},
	}

	got := YearlyAverage(records)
	want := []YearlyRate{
		{Year: "2022", AverageRate: 0.5},
		{Year: "2023", AverageRate: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("YearlyAverage mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregates_Unordered(t *testing.T) {
	records := []Rate{
		{Date: day(2024, 3, 1), Rate: 3},
		{Date: day(2023, 3, 1), Rate: 1},
	}

	got := YearlyAverage(records)
	want := []YearlyRate{{Year: "2023", AverageRate: 1}, {Year: "2024", AverageRate: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("YearlyAverage mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregates_Empty(t *testing.T) {
	if got := Raw(nil); got == nil || len(got) != 0 {
		t.Errorf("Raw(nil) = %#v, want empty slice", got)
	}
	if got := MonthlyAverage(nil); got == nil || len(got) != 0 {
		t.Errorf("MonthlyAverage(nil) = %#v, want empty slice", got)
	}
	if got := YearlyAverage([]Rate{}); got == nil || len(got) != 0 {
		t.Errorf("YearlyAverage(empty) = %#v, want empty slice", got)
	}
}

func TestRaw_PassThrough(t *testing.T) {
	records := []Rate{
		{ID: 1, Currency: "EUR", Date: day(2024, 1, 1), Rate: 0.13},
		{ID: 2, Currency: "EUR", Date: day(2024, 1, 2), Rate: 0.14},
	}
	if diff := cmp.Diff(records, Raw(records)); diff != "" {
		t.Errorf("Raw mismatch (-want +got):\n%s", diff)
	}
}
