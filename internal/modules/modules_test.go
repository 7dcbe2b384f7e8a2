package modules

import (
	"context"
	"errors"
	"time"

	"github.com/danielpatrickdp/context-insight/internal/provider"
	"github.com/danielpatrickdp/context-insight/internal/series"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// fullRecord returns a locked context record with every section populated.
func fullRecord() ucr.Record {
	return ucr.Record{
		ID:      "ctx-test",
		Version: 4,
		State:   ucr.StateLocked,
		Brand: &ucr.BrandIdentity{
			Name:   "TrailForge",
			Domain: "trailforge.com",
		},
		Category: &ucr.CategoryDefinition{
			PrimaryCategory: "hiking boots",
			CategoryTerms:   []string{"hiking boots", "trail footwear"},
		},
		Competitive: &ucr.CompetitiveSet{
			Competitors: []ucr.Competitor{
				{Name: "SummitStep", Domain: "summitstep.com", Tier: ucr.TierTop, Approved: true},
				{Name: "PeakWear", Domain: "peakwear.io", Tier: ucr.TierSecondary, Approved: true},
			},
		},
		Demand: &ucr.DemandDefinition{
			DemandThemes: []string{"waterproof hiking", "lightweight boots"},
			SeedQueries:  []string{"waterproof hiking boots", "lightweight trail boots"},
			Geo:          "US",
		},
		Strategy: &ucr.StrategicIntent{
			Priorities: []string{"waterproof", "durability"},
			Goals:      []string{"own the waterproof hiking message"},
		},
		Channels: &ucr.ChannelContext{
			Channels:       []string{"organic search", "paid social", "email"},
			PrimaryChannel: "organic search",
		},
		NegativeScope: &ucr.NegativeScope{
			ExcludedTerms: []string{"ski boots"},
		},
		Governance: &ucr.Governance{
			ApprovedBy: "analyst",
			Thresholds: map[string]float64{},
		},
	}
}

// #region fakes

type fakeSeries struct {
	byTerm map[string][]series.Point
	err    error
	calls  int
}

func (f *fakeSeries) CompareSeries(_ context.Context, terms []string, _ provider.SeriesOptions) (map[string][]series.Point, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string][]series.Point, len(terms))
	for _, t := range terms {
		if pts, ok := f.byTerm[t]; ok {
			out[t] = pts
		}
	}
	return out, nil
}

type fakeSearch struct {
	results []provider.SearchResult
	err     error
}

func (f *fakeSearch) Search(context.Context, string, int) ([]provider.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakePriorRuns struct {
	runs []provider.RunRecord
	err  error
}

func (f *fakePriorRuns) PriorRuns(context.Context, string, string, int) ([]provider.RunRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.runs, nil
}

var errProviderDown = errors.New("provider unreachable")

// #endregion fakes

// novemberPeakSeries builds years of monthly points peaking each November
// and dipping each February.
func novemberPeakSeries(startYear, years int) []series.Point {
	template := [12]float64{40, 20, 35, 40, 45, 50, 55, 60, 65, 75, 95, 90}
	var pts []series.Point
	for y := 0; y < years; y++ {
		for mo := 0; mo < 12; mo++ {
			pts = append(pts, series.Point{
				Date:  time.Date(startYear+y, time.Month(mo+1), 1, 0, 0, 0, 0, time.UTC),
				Value: template[mo],
			})
		}
	}
	return pts
}

// priorRun builds a compact run record with ranks assigned in order.
func priorRun(runID string, generatedAt time.Time, names ...string) provider.RunRecord {
	rr := provider.RunRecord{
		RunID:       runID,
		ModuleID:    "serp_signals",
		ContextID:   "ctx-test",
		GeneratedAt: generatedAt,
		ItemNames:   names,
		Fields:      map[string]map[string]any{},
	}
	for i, n := range names {
		rr.Fields[n] = map[string]any{"rank": float64(i + 1)}
	}
	return rr
}
