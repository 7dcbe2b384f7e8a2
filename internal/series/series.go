// Package series implements pure statistical functions over dated value
// sequences: aggregation, trend, growth, seasonality, year-over-year
// consistency, anomaly flagging and short-horizon forecasting. Nothing here
// holds state or touches I/O.
package series

import (
	"math"
	"sort"
	"time"
)

// #region normalize

// monthKey truncates a date to the first day of its month in UTC.
func monthKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Normalize buckets raw observations to months, averaging multiple
// observations that land in the same bucket, and returns the sequence
// date-ascending. Buckets with no observations are simply absent.
func Normalize(raw []Point) []Point {
	if len(raw) == 0 {
		return nil
	}
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, p := range raw {
		k := monthKey(p.Date)
		sums[k] += p.Value
		counts[k]++
	}
	out := make([]Point, 0, len(sums))
	for k, sum := range sums {
		out = append(out, Point{Date: k, Value: sum / float64(counts[k])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Aggregate averages multiple related series per month bucket. A bucket
// contributes the arithmetic mean of all values present for it; buckets with
// no observations in any series are omitted, never zero-filled.
func Aggregate(raw [][]Point) []Point {
	var merged []Point
	for _, s := range raw {
		merged = append(merged, s...)
	}
	return Normalize(merged)
}

// #endregion normalize

// #region slope

// Slope fits ordinary least squares against the index 0..n-1 rather than the
// actual date, so uneven spacing cannot bias the fit. The result is rounded
// to two decimal places. Degenerate input (n < 2) yields 0.
func Slope(points []Point) float64 {
	n := len(points)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range points {
		x := float64(i)
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumXX += x * x
	}
	denom := float64(n)*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (float64(n)*sumXY - sumX*sumY) / denom
	return math.Round(slope*100) / 100
}

// #endregion slope

// #region cagr

// CAGR computes the compound annual growth rate between the first and last
// observed periods. Returns nil when either endpoint is not strictly
// positive or the elapsed span is under one year: an undefined growth rate
// must stay distinguishable from 0% growth.
func CAGR(points []Point) *float64 {
	if len(points) < 2 {
		return nil
	}
	first := points[0]
	last := points[len(points)-1]
	if first.Value <= 0 || last.Value <= 0 {
		return nil
	}
	years := last.Date.Sub(first.Date).Hours() / (24 * 365.25)
	if years < 1 {
		return nil
	}
	rate := math.Pow(last.Value/first.Value, 1/years) - 1
	rate = math.Round(rate*10000) / 10000
	return &rate
}

// #endregion cagr

// #region forecast

// forecastWindow is the moving-average lookback used by Forecast.
const forecastWindow = 3

// Forecast projects the series forward by horizon months using the mean of
// the last forecastWindow values plus the fitted linear trend. Values are
// clamped to [0,100]. Returns nil with fewer than 12 historical points.
func Forecast(points []Point, horizon int) *ForecastResult {
	if len(points) < 12 || horizon <= 0 {
		return nil
	}

	var recent float64
	for _, p := range points[len(points)-forecastWindow:] {
		recent += p.Value
	}
	recent /= forecastWindow

	slope := Slope(points)
	lastDate := points[len(points)-1].Date

	out := make([]Point, 0, horizon)
	for step := 1; step <= horizon; step++ {
		v := recent + slope*float64(step)
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		out = append(out, Point{
			Date:  lastDate.AddDate(0, step, 0),
			Value: math.Round(v*100) / 100,
		})
	}
	return &ForecastResult{Points: out, Method: "moving_average_trend"}
}

// #endregion forecast

// #region helpers

// pearson computes the Pearson correlation of two equal-length samples.
// Returns 0 when either sample has zero variance.
func pearson(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	n := float64(len(a))
	var sumA, sumB float64
	for i := range a {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/n, sumB/n

	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// #endregion helpers
