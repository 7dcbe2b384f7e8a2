package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

func testLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open run log: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func testEnvelope(runID string, generatedAt time.Time, itemNames ...string) pipeline.Envelope {
	env := pipeline.Envelope{
		ModuleID:       "serp_signals",
		RunID:          runID,
		GeneratedAt:    generatedAt,
		ContextID:      "ctx-1",
		ContextVersion: 3,
		Warnings:       []pipeline.Warning{},
		Items:          []pipeline.Item{},
	}
	for i, name := range itemNames {
		env.Items = append(env.Items, pipeline.Item{
			Type: pipeline.ItemEntity,
			Name: name,
			Fields: map[string]any{
				"rank": float64(i + 1),
			},
		})
	}
	env.Summary.TotalItems = len(env.Items)
	return env
}

func TestRecordAndGetEnvelope(t *testing.T) {
	l := testLog(t)
	env := testEnvelope("run-1", time.Now().UTC(), "acme.com", "rival.io")

	if err := l.Record(env); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := l.GetEnvelope("run-1")
	if err != nil {
		t.Fatalf("get envelope: %v", err)
	}
	if got.ModuleID != "serp_signals" || got.ContextVersion != 3 {
		t.Fatalf("envelope did not round trip: %+v", got)
	}
	if len(got.Items) != 2 || got.Items[0].Name != "acme.com" {
		t.Fatalf("items did not round trip: %+v", got.Items)
	}
}

func TestPriorRunsMostRecentFirst(t *testing.T) {
	l := testLog(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, names := range [][]string{
		{"acme.com"},
		{"acme.com", "rival.io"},
		{"rival.io", "upstart.co"},
	} {
		env := testEnvelope(
			"run-"+string(rune('a'+i)),
			base.Add(time.Duration(i)*time.Hour),
			names...,
		)
		if err := l.Record(env); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	runs, err := l.PriorRuns(context.Background(), "serp_signals", "ctx-1", 2)
	if err != nil {
		t.Fatalf("prior runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-c" || runs[1].RunID != "run-b" {
		t.Fatalf("runs out of order: %s, %s", runs[0].RunID, runs[1].RunID)
	}
	if len(runs[0].ItemNames) != 2 || runs[0].ItemNames[0] != "rival.io" {
		t.Fatalf("item names missing: %v", runs[0].ItemNames)
	}
	if rank, ok := runs[0].Fields["rival.io"]["rank"]; !ok || rank != float64(1) {
		t.Fatalf("per-item fields missing: %v", runs[0].Fields)
	}
}

func TestPriorRunsEmptyHistory(t *testing.T) {
	l := testLog(t)
	runs, err := l.PriorRuns(context.Background(), "serp_signals", "ctx-nope", 5)
	if err != nil {
		t.Fatalf("prior runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no history, got %d runs", len(runs))
	}
}

func TestTraceRoundTrip(t *testing.T) {
	l := testLog(t)
	env := testEnvelope("run-t", time.Now().UTC())
	env.Trace = []pipeline.TraceEntry{
		{RuleID: "gate.optional_missing", Reason: "channel context absent", Severity: "warning"},
		{RuleID: "severity.priority_boost", Section: ucr.SectionStrategicIntent, Reason: "matches growth priority", Severity: "info"},
	}
	if err := l.Record(env); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := l.TraceForRun("run-t")
	if err != nil {
		t.Fatalf("trace for run: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 trace rows, got %d", len(got))
	}
	if got[0].RuleID != "gate.optional_missing" || got[0].Section != "" {
		t.Fatalf("first row mismatch: %+v", got[0])
	}
	if got[1].Section != ucr.SectionStrategicIntent {
		t.Fatalf("section did not round trip: %+v", got[1])
	}
}

func TestDuplicateRunIDRejected(t *testing.T) {
	l := testLog(t)
	env := testEnvelope("run-dup", time.Now().UTC())
	if err := l.Record(env); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := l.Record(env); err == nil {
		t.Fatal("expected duplicate run_id insert to fail")
	}
}

func TestListRuns(t *testing.T) {
	l := testLog(t)
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if err := l.Record(testEnvelope("run-1", base)); err != nil {
		t.Fatal(err)
	}
	if err := l.Record(testEnvelope("run-2", base.Add(time.Minute))); err != nil {
		t.Fatal(err)
	}
	ids, err := l.ListRuns("ctx-1", 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "run-2" {
		t.Fatalf("unexpected run list: %v", ids)
	}
}
