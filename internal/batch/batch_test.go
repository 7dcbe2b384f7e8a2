package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielpatrickdp/context-insight/internal/contract"
	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// countingModule tracks peak concurrency across runs.
type countingModule struct {
	mu      sync.Mutex
	current int32
	peak    int32
	fail    bool
}

func (m *countingModule) Contract() contract.ModuleContract {
	return contract.ModuleContract{
		ModuleID:         "counting",
		RequiredSections: []ucr.Section{ucr.SectionBrandIdentity},
		AllowedStates:    []ucr.LifecycleState{ucr.StateLocked},
	}
}

func (m *countingModule) Extract(rc *pipeline.RunContext) ([]pipeline.Raw, error) {
	cur := atomic.AddInt32(&m.current, 1)
	defer atomic.AddInt32(&m.current, -1)
	m.mu.Lock()
	if cur > m.peak {
		m.peak = cur
	}
	m.mu.Unlock()
	if m.fail {
		panic("simulated fault")
	}
	return []pipeline.Raw{{Kind: "keyword", Name: "alpha", Value: 1}}, nil
}

func (m *countingModule) Transform(rc *pipeline.RunContext, raw []pipeline.Raw) ([]pipeline.Item, error) {
	items := make([]pipeline.Item, len(raw))
	for i, r := range raw {
		items[i] = pipeline.Item{Type: pipeline.ItemKeyword, Name: r.Name, RawMagnitude: r.Value}
	}
	return items, nil
}

func (m *countingModule) Correlate(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	return items, nil
}

func (m *countingModule) Score(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	return items, nil
}

func (m *countingModule) Disposition(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, []pipeline.Decision, error) {
	return items, nil, nil
}

func lockedRecord(id string) ucr.Record {
	return ucr.Record{
		ID:      id,
		Version: 1,
		State:   ucr.StateLocked,
		Brand:   &ucr.BrandIdentity{Name: "Acme"},
	}
}

func TestRunAllReturnsResultPerJob(t *testing.T) {
	m := &countingModule{}
	r := New(pipeline.NewRunner(nil), 3, nil)

	jobs := make([]Job, 8)
	for i := range jobs {
		jobs[i] = Job{Module: m, Record: lockedRecord("ctx")}
	}
	results := r.RunAll(context.Background(), jobs)
	if len(results) != len(jobs) {
		t.Fatalf("expected %d results, got %d", len(jobs), len(results))
	}
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("job %d failed: %v", i, res.Err)
		}
		if len(res.Envelope.Items) != 1 {
			t.Fatalf("job %d: expected 1 item, got %d", i, len(res.Envelope.Items))
		}
	}
}

func TestRunAllBoundsConcurrency(t *testing.T) {
	m := &countingModule{}
	r := New(pipeline.NewRunner(nil), 3, nil)

	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = Job{Module: m, Record: lockedRecord("ctx")}
	}
	r.RunAll(context.Background(), jobs)
	if m.peak > 3 {
		t.Fatalf("peak concurrency %d exceeded limit 3", m.peak)
	}
}

func TestRunAllIsolatesGateRefusals(t *testing.T) {
	m := &countingModule{}
	r := New(pipeline.NewRunner(nil), 2, nil)

	draft := lockedRecord("ctx-draft")
	draft.State = ucr.StateDraft
	jobs := []Job{
		{Module: m, Record: lockedRecord("ctx-ok")},
		{Module: m, Record: draft},
		{Module: m, Record: lockedRecord("ctx-ok-2")},
	}
	results := r.RunAll(context.Background(), jobs)
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatal("healthy jobs must not be affected by a refused sibling")
	}
	if results[1].Err == nil {
		t.Fatal("draft record should have been refused")
	}
}

func TestRunAllIsolatesFaults(t *testing.T) {
	good := &countingModule{}
	bad := &countingModule{fail: true}
	r := New(pipeline.NewRunner(nil), 2, nil)

	results := r.RunAll(context.Background(), []Job{
		{Module: bad, Record: lockedRecord("ctx-a")},
		{Module: good, Record: lockedRecord("ctx-b")},
	})
	// A stage fault degrades to an empty envelope with a warning, not an error.
	if results[0].Err != nil {
		t.Fatalf("fault should degrade, not error: %v", results[0].Err)
	}
	if len(results[0].Envelope.Items) != 0 {
		t.Fatal("faulted job should carry an empty envelope")
	}
	if len(results[1].Envelope.Items) != 1 {
		t.Fatal("sibling of a faulted job must complete normally")
	}
}

func TestNewDefaultsLimit(t *testing.T) {
	r := New(pipeline.NewRunner(nil), 0, nil)
	if r.limit != DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultLimit, r.limit)
	}
}
