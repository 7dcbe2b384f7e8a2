package series

import (
	"math"
	"sort"
	"time"
)

// #region seasonality

// Seasonality builds the repeating yearly profile of a normalized sequence.
// Calendar outputs roll forward to the next future occurrence relative to
// now. Returns nil when fewer than 2 distinct months are observed.
func Seasonality(points []Point, now time.Time) *SeasonalProfile {
	sums := make(map[time.Month]float64)
	counts := make(map[time.Month]int)
	for _, p := range points {
		m := p.Date.Month()
		sums[m] += p.Value
		counts[m]++
	}
	if len(sums) < 2 {
		return nil
	}

	averages := make(map[time.Month]float64, len(sums))
	for m, sum := range sums {
		averages[m] = sum / float64(counts[m])
	}

	// Inflection: the month ending the largest positive month-over-month jump
	// in the averaged pattern, wrapping December into January.
	var inflection time.Month
	bestJump := 0.0
	for m := time.January; m <= time.December; m++ {
		prev := time.December
		if m > time.January {
			prev = m - 1
		}
		cur, okCur := averages[m]
		before, okPrev := averages[prev]
		if !okCur || !okPrev {
			continue
		}
		if jump := cur - before; jump > bestJump {
			bestJump = jump
			inflection = m
		}
	}
	if inflection == 0 {
		// Flat or monotonically falling pattern: treat the strongest month
		// as the inflection point.
		inflection = maxMonth(averages)
	}

	// Peak window: top-3 months by average, reported in calendar order.
	peaks := topMonths(averages, 3)

	// Decline begins the month after the peak window's true end.
	decline := declineMonth(peaks)

	return &SeasonalProfile{
		MonthlyAverages: averages,
		InflectionMonth: inflection,
		PeakMonths:      peaks,
		DeclineMonth:    decline,
		NextInflection:  NextOccurrence(inflection, now),
		NextPeakStart:   NextOccurrence(peaks[0], now),
		NextDecline:     NextOccurrence(decline, now),
	}
}

// declineMonth returns the month after the end of the peak window, given
// peak months in calendar order. A window spanning the year boundary
// (Nov-Dec-Jan) ends with the run of months starting in January, so its
// decline lands in February, not inside the window.
func declineMonth(peaks []time.Month) time.Month {
	end := peaks[len(peaks)-1]
	if peaks[0] == time.January && end == time.December {
		end = time.January
		for i := 1; i < len(peaks) && peaks[i] == peaks[i-1]+1; i++ {
			end = peaks[i]
		}
	}
	if end == time.December {
		return time.January
	}
	return end + 1
}

// NextOccurrence returns the first day of the next future occurrence of
// month m, rolling into next year when this year's date has already passed.
func NextOccurrence(m time.Month, now time.Time) time.Time {
	candidate := time.Date(now.Year(), m, 1, 0, 0, 0, 0, time.UTC)
	if !candidate.After(now) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate
}

// #endregion seasonality

// #region yoy

// Consistency thresholds on the variance of year-over-year monthly changes,
// computed on values scaled to [0,1].
const (
	stableVarianceMax   = 0.010
	shiftingVarianceMax = 0.025
)

// minMonthsPerYear excludes partially observed years from the comparison.
const minMonthsPerYear = 6

// YoYConsistency compares each qualifying year's monthly pattern against the
// first qualifying year. Years with fewer than minMonthsPerYear observed
// months are excluded. With fewer than 2 qualifying years the pattern is
// reported erratic with InsufficientData set rather than guessed.
func YoYConsistency(points []Point) ConsistencyResult {
	years, order := yearlyPatterns(points)

	var qualifying []int
	for _, y := range order {
		if len(years[y]) >= minMonthsPerYear {
			qualifying = append(qualifying, y)
		}
	}
	if len(qualifying) < 2 {
		return ConsistencyResult{
			Class:            ConsistencyErratic,
			QualifyingYears:  len(qualifying),
			InsufficientData: true,
		}
	}

	base := years[qualifying[0]]
	var correlations []float64
	for _, y := range qualifying[1:] {
		a, b := alignedMonths(base, years[y])
		correlations = append(correlations, pearson(a, b))
	}

	// Change variance: variance of month-by-month deltas between consecutive
	// qualifying years, on a 0-1 scale.
	var changes []float64
	for i := 1; i < len(qualifying); i++ {
		prev, cur := years[qualifying[i-1]], years[qualifying[i]]
		a, b := alignedMonths(prev, cur)
		for j := range a {
			changes = append(changes, (b[j]-a[j])/100)
		}
	}
	variance := sampleVariance(changes)

	class := ConsistencyErratic
	switch {
	case variance < stableVarianceMax:
		class = ConsistencyStable
	case variance < shiftingVarianceMax:
		class = ConsistencyShifting
	}

	return ConsistencyResult{
		Class:           class,
		QualifyingYears: len(qualifying),
		Correlations:    correlations,
		ChangeVariance:  math.Round(variance*10000) / 10000,
	}
}

// #endregion yoy

// #region anomalies

// Anomalies flags months deviating more than two standard deviations above
// their own year's mean, capped at max entries, most recent first.
func Anomalies(points []Point, max int) []Anomaly {
	if max <= 0 {
		return nil
	}
	byYear := make(map[int][]Point)
	for _, p := range points {
		byYear[p.Date.Year()] = append(byYear[p.Date.Year()], p)
	}

	var found []Anomaly
	for _, yearPoints := range byYear {
		if len(yearPoints) < 3 {
			continue
		}
		var sum float64
		for _, p := range yearPoints {
			sum += p.Value
		}
		mean := sum / float64(len(yearPoints))
		var sq float64
		for _, p := range yearPoints {
			d := p.Value - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(len(yearPoints)))
		if std == 0 {
			continue
		}
		for _, p := range yearPoints {
			if dev := (p.Value - mean) / std; dev > 2 {
				found = append(found, Anomaly{
					Date:      p.Date,
					Value:     p.Value,
					YearMean:  math.Round(mean*100) / 100,
					Deviation: math.Round(dev*100) / 100,
				})
			}
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Date.After(found[j].Date) })
	if len(found) > max {
		found = found[:max]
	}
	return found
}

// #endregion anomalies

// #region helpers

// yearlyPatterns groups a sequence into per-year month→value maps and
// returns the years in ascending order.
func yearlyPatterns(points []Point) (map[int]map[time.Month]float64, []int) {
	years := make(map[int]map[time.Month]float64)
	for _, p := range points {
		y := p.Date.Year()
		if years[y] == nil {
			years[y] = make(map[time.Month]float64)
		}
		years[y][p.Date.Month()] = p.Value
	}
	order := make([]int, 0, len(years))
	for y := range years {
		order = append(order, y)
	}
	sort.Ints(order)
	return years, order
}

// alignedMonths returns parallel value slices for the months present in
// both patterns, calendar order.
func alignedMonths(a, b map[time.Month]float64) ([]float64, []float64) {
	var va, vb []float64
	for m := time.January; m <= time.December; m++ {
		x, okA := a[m]
		y, okB := b[m]
		if okA && okB {
			va = append(va, x)
			vb = append(vb, y)
		}
	}
	return va, vb
}

// sampleVariance returns the population variance of vals, 0 for empty input.
func sampleVariance(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(vals))
}

// maxMonth returns the month with the highest average.
func maxMonth(averages map[time.Month]float64) time.Month {
	best := time.January
	bestVal := math.Inf(-1)
	for m := time.January; m <= time.December; m++ {
		if v, ok := averages[m]; ok && v > bestVal {
			bestVal = v
			best = m
		}
	}
	return best
}

// topMonths returns the n months with the highest averages, calendar order.
func topMonths(averages map[time.Month]float64, n int) []time.Month {
	type mv struct {
		m time.Month
		v float64
	}
	ranked := make([]mv, 0, len(averages))
	for m, v := range averages {
		ranked = append(ranked, mv{m, v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].v != ranked[j].v {
			return ranked[i].v > ranked[j].v
		}
		return ranked[i].m < ranked[j].m
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	months := make([]time.Month, 0, len(ranked))
	for _, r := range ranked {
		months = append(months, r.m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })
	return months
}

// #endregion helpers
