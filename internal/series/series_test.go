package series

import (
	"math"
	"testing"
	"time"
)

// monthly builds a date-ascending monthly sequence starting at the given
// year/month, one point per value.
func monthly(year int, month time.Month, values ...float64) []Point {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Date: start.AddDate(0, i, 0), Value: v}
	}
	return points
}

func TestNormalizeSortsAndBuckets(t *testing.T) {
	raw := []Point{
		{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Value: 30},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Value: 10},
		{Date: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), Value: 20},
	}
	got := Normalize(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(got))
	}
	if got[0].Date.Month() != time.January || got[0].Value != 15 {
		t.Fatalf("expected January mean 15, got %v=%v", got[0].Date, got[0].Value)
	}
	if got[1].Date.Month() != time.March || got[1].Value != 30 {
		t.Fatalf("expected March 30, got %v=%v", got[1].Date, got[1].Value)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestAggregateAveragesAcrossSeries(t *testing.T) {
	a := monthly(2024, time.January, 10, 20)
	b := monthly(2024, time.January, 30, 40)
	got := Aggregate([][]Point{a, b})
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(got))
	}
	if got[0].Value != 20 {
		t.Fatalf("expected January mean 20, got %v", got[0].Value)
	}
	if got[1].Value != 30 {
		t.Fatalf("expected February mean 30, got %v", got[1].Value)
	}
}

func TestAggregateOmitsEmptyBuckets(t *testing.T) {
	a := []Point{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 10},
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Value: 30},
	}
	got := Aggregate([][]Point{a})
	if len(got) != 2 {
		t.Fatalf("february must be omitted, not zero-filled: got %d buckets", len(got))
	}
}

func TestSlopeIncreasingIsPositive(t *testing.T) {
	points := monthly(2024, time.January, 10, 20, 30, 40, 50)
	if got := Slope(points); got <= 0 {
		t.Fatalf("expected strictly positive slope, got %v", got)
	}
}

func TestSlopeConstantIsZero(t *testing.T) {
	points := monthly(2024, time.January, 42, 42, 42, 42)
	if got := Slope(points); got != 0 {
		t.Fatalf("expected slope 0 for constant series, got %v", got)
	}
}

func TestSlopeDegenerateInput(t *testing.T) {
	if got := Slope(nil); got != 0 {
		t.Fatalf("expected 0 for empty input, got %v", got)
	}
	if got := Slope(monthly(2024, time.January, 7)); got != 0 {
		t.Fatalf("expected 0 for single point, got %v", got)
	}
}

func TestSlopeRounding(t *testing.T) {
	points := monthly(2024, time.January, 0, 1, 2, 3)
	got := Slope(points)
	if got != math.Round(got*100)/100 {
		t.Fatalf("slope %v not rounded to 2 decimals", got)
	}
}

func TestCAGRBasic(t *testing.T) {
	points := []Point{
		{Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Value: 100},
		{Date: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), Value: 121},
	}
	got := CAGR(points)
	if got == nil {
		t.Fatal("expected CAGR, got nil")
	}
	if math.Abs(*got-0.10) > 0.005 {
		t.Fatalf("expected ~0.10, got %v", *got)
	}
}

func TestCAGRNilWhenEndpointNonPositive(t *testing.T) {
	zeroFirst := []Point{
		{Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Value: 0},
		{Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Value: 50},
	}
	if CAGR(zeroFirst) != nil {
		t.Fatal("expected nil CAGR for zero first value")
	}
	negLast := []Point{
		{Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Value: 50},
		{Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Value: -1},
	}
	if CAGR(negLast) != nil {
		t.Fatal("expected nil CAGR for negative last value")
	}
}

func TestCAGRNilWhenSpanUnderOneYear(t *testing.T) {
	points := monthly(2024, time.January, 10, 20, 30)
	if CAGR(points) != nil {
		t.Fatal("expected nil CAGR for sub-year span")
	}
}

func TestForecastRequiresTwelvePoints(t *testing.T) {
	points := monthly(2024, time.January, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11)
	if Forecast(points, 3) != nil {
		t.Fatal("expected nil forecast with 11 points")
	}
}

func TestForecastBoundedAndDeterministic(t *testing.T) {
	points := monthly(2023, time.January,
		80, 82, 84, 86, 88, 90, 92, 94, 96, 98, 99, 100)
	first := Forecast(points, 6)
	if first == nil {
		t.Fatal("expected forecast")
	}
	if len(first.Points) != 6 {
		t.Fatalf("expected 6 projected points, got %d", len(first.Points))
	}
	for _, p := range first.Points {
		if p.Value < 0 || p.Value > 100 {
			t.Fatalf("forecast value %v outside [0,100]", p.Value)
		}
	}
	second := Forecast(points, 6)
	for i := range first.Points {
		if first.Points[i] != second.Points[i] {
			t.Fatalf("forecast not deterministic at index %d", i)
		}
	}
}

func TestForecastDatesAdvanceMonthly(t *testing.T) {
	points := monthly(2023, time.January, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21)
	got := Forecast(points, 2)
	if got == nil {
		t.Fatal("expected forecast")
	}
	last := points[len(points)-1].Date
	if !got.Points[0].Date.Equal(last.AddDate(0, 1, 0)) {
		t.Fatalf("first projected date %v should be one month after %v", got.Points[0].Date, last)
	}
}

func TestPearsonPerfectCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{2, 4, 6, 8}
	if got := pearson(a, b); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected correlation 1, got %v", got)
	}
}

func TestPearsonZeroVariance(t *testing.T) {
	a := []float64{5, 5, 5}
	b := []float64{1, 2, 3}
	if got := pearson(a, b); got != 0 {
		t.Fatalf("expected 0 for zero-variance sample, got %v", got)
	}
}
