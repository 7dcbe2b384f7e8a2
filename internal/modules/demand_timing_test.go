package modules

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/runlog"
	"github.com/danielpatrickdp/context-insight/internal/series"
)

func TestDemandTimingEndToEnd(t *testing.T) {
	pts := novemberPeakSeries(2021, 5)
	m := NewDemandTiming(Deps{Series: &fakeSeries{byTerm: map[string][]series.Point{
		"waterproof hiking boots": pts,
		"lightweight trail boots": pts,
	}}})

	env, err := pipeline.NewRunner(nil).Run(context.Background(), m, fullRecord(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(env.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(env.Items))
	}
	for _, it := range env.Items {
		peaks, ok := it.Fields["peak_months"].([]string)
		if !ok {
			t.Fatalf("%s: missing peak_months field", it.Name)
		}
		foundNovember := false
		for _, p := range peaks {
			if p == "November" {
				foundNovember = true
			}
		}
		if !foundNovember {
			t.Errorf("%s: peak window %v does not include November", it.Name, peaks)
		}
		if cons := it.Fields["consistency"]; cons == string(series.ConsistencyErratic) {
			t.Errorf("%s: five repeated years classified erratic", it.Name)
		}
	}
	if !env.Sources["series_provider"].Available {
		t.Fatal("series provider should be recorded available")
	}
}

func TestDemandTimingProviderDownFallsBack(t *testing.T) {
	m := NewDemandTiming(Deps{Series: &fakeSeries{err: errProviderDown}})

	env, err := pipeline.NewRunner(nil).Run(context.Background(), m, fullRecord(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	src, ok := env.Sources["series_provider"]
	if !ok || src.Available {
		t.Fatalf("expected series_provider marked unavailable, got %+v", env.Sources)
	}
	foundWarning := false
	for _, w := range env.Warnings {
		if w.Code == pipeline.CodeSourceUnavailable {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Fatalf("expected SOURCE_UNAVAILABLE warning, got %v", env.Warnings)
	}
	// Fallback items exist but carry no timing signal.
	if len(env.Items) != 2 {
		t.Fatalf("expected fallback items for both seed queries, got %d", len(env.Items))
	}
	for _, it := range env.Items {
		if it.Fields["seasonal_phase"] != "unknown" {
			t.Errorf("%s: fallback item should have unknown seasonal phase", it.Name)
		}
	}
}

func TestDemandTimingNilProvider(t *testing.T) {
	m := NewDemandTiming(Deps{})
	env, err := pipeline.NewRunner(nil).Run(context.Background(), m, fullRecord(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if env.Sources["series_provider"].Available {
		t.Fatal("nil provider must be recorded unavailable")
	}
}

func TestDemandTimingIdempotent(t *testing.T) {
	pts := novemberPeakSeries(2021, 5)
	deps := Deps{Series: &fakeSeries{byTerm: map[string][]series.Point{
		"waterproof hiking boots": pts,
		"lightweight trail boots": pts,
	}}}
	rec := fullRecord()

	run := func() pipeline.Envelope {
		env, err := pipeline.NewRunner(nil).Run(context.Background(), NewDemandTiming(deps), rec, nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		return env
	}
	a, b := run(), run()
	if len(a.Items) != len(b.Items) {
		t.Fatalf("item counts differ: %d vs %d", len(a.Items), len(b.Items))
	}
	for i := range a.Items {
		if a.Items[i].Name != b.Items[i].Name ||
			a.Items[i].Outcome != b.Items[i].Outcome ||
			a.Items[i].Severity != b.Items[i].Severity ||
			a.Items[i].Score != b.Items[i].Score {
			t.Fatalf("item %d differs across identical runs: %+v vs %+v", i, a.Items[i], b.Items[i])
		}
	}
}

func TestDemandTimingExcludedTermOutOfPlay(t *testing.T) {
	pts := novemberPeakSeries(2021, 5)
	rec := fullRecord()
	rec.Demand.SeedQueries = []string{"waterproof hiking boots", "ski boots"}

	m := NewDemandTiming(Deps{Series: &fakeSeries{byTerm: map[string][]series.Point{
		"waterproof hiking boots": pts,
		"ski boots":               pts,
	}}})
	env, err := pipeline.NewRunner(nil).Run(context.Background(), m, rec, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, it := range env.Items {
		if it.Name == "ski boots" {
			if !it.Excluded || it.Outcome != "out_of_play" {
				t.Fatalf("excluded term not suppressed: %+v", it)
			}
			return
		}
	}
	t.Fatal("ski boots item missing from envelope")
}

func TestDemandTimingGateRefusesDraft(t *testing.T) {
	rec := fullRecord()
	rec.State = "draft"
	fake := &fakeSeries{}
	_, err := pipeline.NewRunner(nil).Run(context.Background(), NewDemandTiming(Deps{Series: fake}), rec, nil)
	if err == nil {
		t.Fatal("expected gate refusal for draft record")
	}
	if fake.calls != 0 {
		t.Fatal("provider must not be called after gate refusal")
	}
}

func TestDemandTimingRunTracePersisted(t *testing.T) {
	pts := novemberPeakSeries(2021, 5)
	m := NewDemandTiming(Deps{Series: &fakeSeries{byTerm: map[string][]series.Point{
		"waterproof hiking boots": pts,
		"lightweight trail boots": pts,
	}}})

	env, err := pipeline.NewRunner(nil).Run(context.Background(), m, fullRecord(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(env.Trace) == 0 {
		t.Fatal("envelope carries no run trace")
	}
	foundExtract := false
	for _, entry := range env.Trace {
		if entry.RuleID == "demand_timing.extract" {
			foundExtract = true
		}
	}
	if !foundExtract {
		t.Fatalf("extract trace entry missing: %+v", env.Trace)
	}

	l, err := runlog.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open run log: %v", err)
	}
	defer l.Close()
	if err := l.Record(env); err != nil {
		t.Fatalf("record: %v", err)
	}
	stored, err := l.TraceForRun(env.RunID)
	if err != nil {
		t.Fatalf("trace for run: %v", err)
	}
	if len(stored) != len(env.Trace) {
		t.Fatalf("expected %d stored trace rows, got %d", len(env.Trace), len(stored))
	}
}
