package series

import "time"

// #region point

// Point is a single dated observation. Sequences handed to this package are
// normalized and date-ascending; raw input goes through Normalize first.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// #endregion point

// #region seasonal-profile

// SeasonalProfile describes the repeating yearly shape of a series.
type SeasonalProfile struct {
	// MonthlyAverages holds the mean value per calendar month across all
	// observed years. Months with no observations are absent from the map.
	MonthlyAverages map[time.Month]float64

	// InflectionMonth is the month at the end of the largest positive
	// month-over-month jump in the averaged pattern.
	InflectionMonth time.Month

	// PeakMonths are the top-3 months by average value, calendar order.
	PeakMonths []time.Month

	// DeclineMonth is the month after the last peak month.
	DeclineMonth time.Month

	// NextInflection, NextPeakStart and NextDecline are the calendar dates of
	// the next future occurrence of each phase, rolled forward past "now".
	NextInflection time.Time
	NextPeakStart  time.Time
	NextDecline    time.Time
}

// #endregion seasonal-profile

// #region consistency

// Consistency classifies how repeatable the yearly pattern is.
type Consistency string

const (
	ConsistencyStable   Consistency = "stable"
	ConsistencyShifting Consistency = "shifting"
	ConsistencyErratic  Consistency = "erratic"
)

// ConsistencyResult is the output of the year-over-year comparison.
type ConsistencyResult struct {
	Class            Consistency
	QualifyingYears  int
	Correlations     []float64 // each later year vs the first qualifying year
	ChangeVariance   float64
	InsufficientData bool // true when fewer than 2 qualifying years exist
}

// #endregion consistency

// #region anomaly

// Anomaly is a month whose value sits more than two standard deviations
// above its year's mean.
type Anomaly struct {
	Date      time.Time
	Value     float64
	YearMean  float64
	Deviation float64 // value distance from the year mean, in standard deviations
}

// #endregion anomaly

// #region forecast

// ForecastResult is a short-horizon projection. Values are clamped to the
// [0,100] index-normalized domain.
type ForecastResult struct {
	Points []Point
	Method string
}

// #endregion forecast
