package replay

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/context-insight/internal/disposition"
	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/series"
	"github.com/danielpatrickdp/context-insight/internal/severity"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

func demandFixture() *Fixture {
	template := [12]float64{40, 20, 35, 40, 45, 50, 55, 60, 65, 75, 95, 90}
	var pts []series.Point
	for y := 2021; y <= 2025; y++ {
		for mo := 0; mo < 12; mo++ {
			pts = append(pts, series.Point{
				Date:  time.Date(y, time.Month(mo+1), 1, 0, 0, 0, 0, time.UTC),
				Value: template[mo],
			})
		}
	}
	return &Fixture{
		Description: "demand timing over five recorded years",
		ModuleID:    "demand_timing",
		Now:         time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Context: FixtureContext{
			ID:      "ctx-replay",
			Version: 2,
			State:   "locked",
			Brand:   &ucr.BrandIdentity{Name: "TrailForge"},
			Category: &ucr.CategoryDefinition{
				PrimaryCategory: "hiking boots",
				CategoryTerms:   []string{"hiking boots"},
			},
			Demand: &ucr.DemandDefinition{
				DemandThemes: []string{"waterproof hiking", "boots"},
				SeedQueries:  []string{"waterproof hiking boots"},
			},
			Strategy: &ucr.StrategicIntent{Priorities: []string{"waterproof"}},
		},
		Raw: []FixtureRaw{
			{Kind: "series", Name: "waterproof hiking boots", Series: pts},
		},
		Expected: []ExpectedOutcome{
			{Name: "waterproof hiking boots", Outcome: "pass", Severity: "critical"},
		},
	}
}

func TestReplayMatchesExpectedOutcomes(t *testing.T) {
	res, err := Run(context.Background(), demandFixture())
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(res.Mismatches) != 0 {
		t.Fatalf("unexpected mismatches: %v", res.Mismatches)
	}
	if len(res.Envelope.Items) != 1 {
		t.Fatalf("expected 1 replayed item, got %d", len(res.Envelope.Items))
	}
}

func TestReplayReportsMismatch(t *testing.T) {
	f := demandFixture()
	f.Expected = []ExpectedOutcome{
		{Name: "waterproof hiking boots", Outcome: "out_of_play", Severity: "low"},
	}
	res, err := Run(context.Background(), f)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(res.Mismatches) != 2 {
		t.Fatalf("expected outcome and severity mismatches, got %v", res.Mismatches)
	}
}

func TestReplayReportsMissingItem(t *testing.T) {
	f := demandFixture()
	f.Expected = append(f.Expected, ExpectedOutcome{Name: "ghost term", Outcome: "pass", Severity: "high"})
	res, err := Run(context.Background(), f)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	found := false
	for _, m := range res.Mismatches {
		if m.Name == "ghost term" && m.Field == "presence" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected presence mismatch for ghost term, got %v", res.Mismatches)
	}
}

func TestReplayIdempotent(t *testing.T) {
	mismatches, err := VerifyIdempotent(context.Background(), demandFixture())
	if err != nil {
		t.Fatalf("idempotence replay failed: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("byte-identical replays diverged: %v", mismatches)
	}
}

func TestDiffItemsLabelsDivergenceField(t *testing.T) {
	first := []pipeline.Item{
		{Name: "alpha", Outcome: disposition.Pass, Severity: severity.TierHigh},
		{Name: "beta", Outcome: disposition.Review, Severity: severity.TierMedium},
	}

	renamed := []pipeline.Item{
		{Name: "gamma", Outcome: disposition.Pass, Severity: severity.TierHigh},
		{Name: "beta", Outcome: disposition.Review, Severity: severity.TierMedium},
	}
	out := diffItems(first, renamed)
	if len(out) != 1 || out[0].Field != "presence" || out[0].Got != "gamma" {
		t.Fatalf("renamed item must report a presence mismatch, got %v", out)
	}

	flipped := []pipeline.Item{
		{Name: "alpha", Outcome: disposition.OutOfPlay, Severity: severity.TierHigh},
		{Name: "beta", Outcome: disposition.Review, Severity: severity.TierLow},
	}
	out = diffItems(first, flipped)
	if len(out) != 2 {
		t.Fatalf("expected 2 mismatches, got %v", out)
	}
	if out[0].Field != "outcome" || out[0].Name != "alpha" {
		t.Fatalf("changed outcome must report an outcome mismatch, got %+v", out[0])
	}
	if out[1].Field != "severity" || out[1].Name != "beta" {
		t.Fatalf("changed severity must report a severity mismatch, got %+v", out[1])
	}
}

func TestDiffItemsLengthMismatch(t *testing.T) {
	first := []pipeline.Item{{Name: "alpha"}}
	out := diffItems(first, nil)
	if len(out) != 1 || out[0].Field != "presence" || out[0].Name != "envelope" {
		t.Fatalf("length divergence must report one envelope presence mismatch, got %v", out)
	}
}

func TestReplayUnknownModule(t *testing.T) {
	f := demandFixture()
	f.ModuleID = "nonexistent"
	if _, err := Run(context.Background(), f); err == nil {
		t.Fatal("expected error for unknown module")
	}
}

func TestFixtureRoundTripsThroughJSON(t *testing.T) {
	f := demandFixture()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	loaded, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	if loaded.ModuleID != f.ModuleID || len(loaded.Raw) != 1 {
		t.Fatalf("fixture did not round trip: %+v", loaded)
	}
	res, err := Run(context.Background(), loaded)
	if err != nil {
		t.Fatalf("replay of loaded fixture failed: %v", err)
	}
	if len(res.Mismatches) != 0 {
		t.Fatalf("loaded fixture mismatches: %v", res.Mismatches)
	}
}
