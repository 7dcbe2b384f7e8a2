package modules

import (
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/context-insight/internal/contract"
	"github.com/danielpatrickdp/context-insight/internal/disposition"
	"github.com/danielpatrickdp/context-insight/internal/enrich"
	"github.com/danielpatrickdp/context-insight/internal/match"
	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/provider"
	"github.com/danielpatrickdp/context-insight/internal/series"
	"github.com/danielpatrickdp/context-insight/internal/severity"
)

// #region module

const sourceSeriesProvider = "series_provider"

// DemandTiming answers "when does demand for this category move". It pulls
// comparative interest series for the context's seed queries, runs the
// analytics engine over each, and dispositions the terms by how actionable
// their timing signal is.
type DemandTiming struct {
	deps Deps
}

// NewDemandTiming builds the module around its collaborators.
func NewDemandTiming(deps Deps) *DemandTiming {
	return &DemandTiming{deps: deps}
}

// Contract returns the module's static execution contract.
func (m *DemandTiming) Contract() contract.ModuleContract {
	c, _ := contract.Lookup(contract.ModuleDemandTiming)
	return c
}

// #endregion module

// #region extract

// Extract pulls one interest series per seed query. When the provider is
// down the module falls back to the bare context terms with no series, which
// downstream stages surface as insufficient data.
func (m *DemandTiming) Extract(rc *pipeline.RunContext) ([]pipeline.Raw, error) {
	terms := m.seedTerms(rc)
	if len(terms) == 0 {
		rc.Warn(pipeline.CodeInsufficientData, "context record declares no seed queries or demand themes")
		return nil, nil
	}

	opts := provider.DefaultSeriesOptions(rc.Now)
	opts.Geo = rc.StringParam("geo", m.contextGeo(rc))

	if m.deps.Series == nil {
		rc.MarkSourceUnavailable(sourceSeriesProvider, "no series provider configured")
		return m.fallbackRaw(rc, terms), nil
	}
	byTerm, err := m.deps.Series.CompareSeries(rc.Context(), terms, opts)
	if err != nil {
		rc.MarkSourceUnavailable(sourceSeriesProvider, err.Error())
		return m.fallbackRaw(rc, terms), nil
	}
	rc.MarkSourceAvailable(sourceSeriesProvider)
	rc.Trace("demand_timing.extract", "", fmt.Sprintf("pulled %d interest series for %d terms", len(byTerm), len(terms)), "info")

	var raw []pipeline.Raw
	for _, term := range terms {
		raw = append(raw, pipeline.Raw{
			Kind:   "series",
			Name:   term,
			Series: byTerm[term],
		})
	}
	return raw, nil
}

// seedTerms collects query terms from the demand definition, topping up from
// category terms when seed queries are sparse.
func (m *DemandTiming) seedTerms(rc *pipeline.RunContext) []string {
	var terms []string
	if rc.Record.Demand != nil {
		rc.UseSection("demand_definition")
		terms = append(terms, rc.Record.Demand.SeedQueries...)
		if len(terms) == 0 {
			terms = append(terms, rc.Record.Demand.DemandThemes...)
		}
	}
	if len(terms) == 0 && rc.Record.Category != nil {
		rc.UseSection("category_definition")
		terms = append(terms, rc.Record.Category.CategoryTerms...)
	}
	return terms
}

func (m *DemandTiming) contextGeo(rc *pipeline.RunContext) string {
	if rc.Record.Demand != nil {
		return rc.Record.Demand.Geo
	}
	return ""
}

// fallbackRaw derives bare records from context terms when no series data is
// reachable.
func (m *DemandTiming) fallbackRaw(rc *pipeline.RunContext, terms []string) []pipeline.Raw {
	rc.Trace("demand_timing.fallback", "demand_definition", "series provider unavailable; falling back to context terms without series data", "warning")
	raw := make([]pipeline.Raw, 0, len(terms))
	for _, term := range terms {
		raw = append(raw, pipeline.Raw{Kind: "series", Name: term})
	}
	return raw
}

// #endregion extract

// #region transform

// Transform runs the analytics engine per term: slope, growth, seasonality,
// year-over-year consistency, anomalies, and a short forecast.
func (m *DemandTiming) Transform(rc *pipeline.RunContext, raw []pipeline.Raw) ([]pipeline.Item, error) {
	horizon := rc.IntParam("horizon_months", 6)
	items := make([]pipeline.Item, 0, len(raw))
	for _, r := range raw {
		it := pipeline.Item{
			Type:   pipeline.ItemKeyword,
			Name:   r.Name,
			Fields: map[string]any{},
		}
		pts := series.Normalize(r.Series)
		if len(pts) == 0 {
			it.Fields["consistency"] = string(series.ConsistencyErratic)
			it.Fields["seasonal_phase"] = "unknown"
			it.Trace = append(it.Trace, pipeline.TraceEntry{
				RuleID:   "demand_timing.no_data",
				Reason:   "no series observations for term",
				Severity: "warning",
			})
			items = append(items, it)
			continue
		}

		it.RawMagnitude = recentMean(pts, 12)
		slope := series.Slope(pts)
		it.Fields["slope"] = slope
		if cagr := series.CAGR(pts); cagr != nil {
			it.Fields["cagr"] = *cagr
		}

		cons := series.YoYConsistency(pts)
		it.Fields["consistency"] = string(cons.Class)
		if cons.InsufficientData {
			it.Trace = append(it.Trace, pipeline.TraceEntry{
				RuleID:   "demand_timing.short_history",
				Reason:   fmt.Sprintf("only %d qualifying years; consistency reported as erratic", cons.QualifyingYears),
				Severity: "warning",
			})
		}

		it.Fields["seasonal_phase"] = "unknown"
		if prof := series.Seasonality(pts, rc.Now); prof != nil {
			it.Fields["seasonal_phase"] = seasonalPhase(prof, rc.Now)
			it.Fields["peak_months"] = monthNames(prof.PeakMonths)
			it.Fields["inflection_month"] = prof.InflectionMonth.String()
			it.Fields["next_peak_start"] = prof.NextPeakStart.Format("2006-01")
		}

		if anomalies := series.Anomalies(pts, 3); len(anomalies) > 0 {
			it.Fields["anomaly_months"] = anomalyMonths(anomalies)
		}
		if fc := series.Forecast(pts, horizon); fc != nil {
			it.Fields["forecast_end"] = fc.Points[len(fc.Points)-1].Value
		}

		items = append(items, it)
	}
	return items, nil
}

// recentMean averages the trailing n points.
func recentMean(pts []series.Point, n int) float64 {
	if len(pts) == 0 {
		return 0
	}
	start := len(pts) - n
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, p := range pts[start:] {
		sum += p.Value
	}
	return sum / float64(len(pts)-start)
}

// seasonalPhase names where "now" sits relative to the seasonal shape.
func seasonalPhase(prof *series.SeasonalProfile, now time.Time) string {
	current := now.Month()
	for _, p := range prof.PeakMonths {
		if p == current {
			return "peak"
		}
	}
	if current == prof.DeclineMonth {
		return "decline"
	}
	if current == prof.InflectionMonth {
		return "ramp"
	}
	return "off_season"
}

func monthNames(months []time.Month) []string {
	out := make([]string, len(months))
	for i, mo := range months {
		out[i] = mo.String()
	}
	return out
}

func anomalyMonths(anoms []series.Anomaly) []string {
	out := make([]string, len(anoms))
	for i, a := range anoms {
		out[i] = a.Date.Format("2006-01")
	}
	return out
}

// #endregion transform

// #region correlate-score

// Correlate scores each term's overlap with the declared demand themes and
// category vocabulary.
func (m *DemandTiming) Correlate(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	var vocab []string
	if rc.Record.Demand != nil {
		rc.UseSection("demand_definition")
		vocab = append(vocab, rc.Record.Demand.DemandThemes...)
	}
	if rc.Record.Category != nil {
		rc.UseSection("category_definition")
		vocab = append(vocab, rc.Record.Category.PrimaryCategory)
		vocab = append(vocab, rc.Record.Category.CategoryTerms...)
	}
	for i := range items {
		items[i].Alignment = match.AlignmentScore(items[i].Name, vocab)
	}
	return items, nil
}

// Score blends recent interest level with context alignment. Interest counts
// for more than alignment here: the question is when demand moves, not
// whether the term is on-brand.
func (m *DemandTiming) Score(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	for i := range items {
		interest := clamp01(items[i].RawMagnitude / 100)
		items[i].Score = math.Round((interest*0.6+items[i].Alignment*0.4)*100) / 100
	}
	return items, nil
}

// #endregion correlate-score

// #region disposition

// Disposition assigns severity from the timing signal's quality, classifies
// each term, and derives run-level decisions for the strongest signals.
func (m *DemandTiming) Disposition(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, []pipeline.Decision, error) {
	th := thresholdsFor(rc.Record)
	var decisions []pipeline.Decision

	for i := range items {
		it := &items[i]
		it.Excluded = excludedByScope(rc.Record, it.Name)
		if it.Excluded {
			rc.UseSection("negative_scope")
		}

		base := severity.TierMedium
		if cons, _ := it.Fields["consistency"].(string); cons == string(series.ConsistencyStable) {
			base = severity.TierHigh
		} else if cons == string(series.ConsistencyErratic) {
			base = severity.TierLow
		}
		applyAdjustment(rc, it, base, "")
		it.Fields["confidence"] = it.Severity.String()
		classify(rc, it, th)
	}

	for i := range items {
		it := items[i]
		if it.Outcome != disposition.Pass || it.Fields["seasonal_phase"] == "unknown" {
			continue
		}
		ins := insightFor(rc.Context(), m.deps.Enricher, enrich.KindSeasonalPeak, it.Name, it.Fields)
		decisions = append(decisions, pipeline.Decision{
			Signal:         fmt.Sprintf("Seasonal demand window for %q approaching", it.Name),
			Confidence:     it.Severity,
			Action:         pipeline.ActionActNow,
			Evidence:       []string{it.Name},
			Impact:         ins.Impact,
			Recommendation: ins.Recommendation,
		})
		break // one headline timing decision per run
	}

	if name, slope := strongestShift(items); name != "" {
		direction := "upward"
		if slope < 0 {
			direction = "downward"
		}
		ins := insightFor(rc.Context(), m.deps.Enricher, enrich.KindDemandShift, name, map[string]any{
			"direction": direction,
			"slope":     fmt.Sprintf("%.2f", slope),
		})
		decisions = append(decisions, pipeline.Decision{
			Signal:         fmt.Sprintf("Demand for %q is trending %s", name, direction),
			Confidence:     severity.TierMedium,
			Action:         pipeline.ActionMonitor,
			Evidence:       []string{name},
			Impact:         ins.Impact,
			Recommendation: ins.Recommendation,
		})
	}

	return items, decisions, nil
}

// strongestShift finds the non-excluded item with the largest absolute slope.
func strongestShift(items []pipeline.Item) (string, float64) {
	name, best := "", 0.0
	for _, it := range items {
		if it.Excluded {
			continue
		}
		slope, ok := it.Fields["slope"].(float64)
		if !ok {
			continue
		}
		if math.Abs(slope) > math.Abs(best) && math.Abs(slope) >= 0.5 {
			name, best = it.Name, slope
		}
	}
	return name, best
}

// #endregion disposition

var _ pipeline.Module = (*DemandTiming)(nil)
