package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/context-insight/internal/contract"
	"github.com/danielpatrickdp/context-insight/internal/modules"
	"github.com/danielpatrickdp/context-insight/internal/pipeline"
)

// #region types

// Mismatch is one divergence between a replayed run and the fixture's
// expectations.
type Mismatch struct {
	Name  string
	Field string // "presence" | "outcome" | "severity"
	Want  string
	Got   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s want %q got %q", m.Name, m.Field, m.Want, m.Got)
}

// Result is the outcome of replaying one fixture.
type Result struct {
	Envelope   pipeline.Envelope
	Mismatches []Mismatch
}

// #endregion types

// #region recorded-module

// recordedModule wraps a live module, replacing only its extraction with the
// fixture's recorded records. Transform through disposition run live.
type recordedModule struct {
	pipeline.Module
	raw []pipeline.Raw
}

func (m recordedModule) Extract(rc *pipeline.RunContext) ([]pipeline.Raw, error) {
	rc.MarkSourceAvailable("recorded_fixture")
	rc.Trace("replay.recorded_extract", "",
		fmt.Sprintf("replayed %d recorded extraction records", len(m.raw)), "info")
	return m.raw, nil
}

// moduleForID builds the concrete module behind a fixture. Replayed modules
// get no live collaborators; everything they need is in the recording.
func moduleForID(id string) (pipeline.Module, error) {
	deps := modules.Deps{}
	switch id {
	case contract.ModuleDemandTiming:
		return modules.NewDemandTiming(deps), nil
	case contract.ModuleSERPSignals:
		return modules.NewSERPSignals(deps), nil
	case contract.ModuleIntentScoring:
		return modules.NewIntentScoring(deps), nil
	case contract.ModuleROIAttribution:
		return modules.NewROIAttribution(deps), nil
	case contract.ModuleMessagingPatterns:
		return modules.NewMessagingPatterns(deps), nil
	}
	return nil, fmt.Errorf("unknown module %q", id)
}

// #endregion recorded-module

// #region run

// Run replays a fixture once and verifies the envelope against its expected
// results.
func Run(ctx context.Context, f *Fixture) (Result, error) {
	env, err := replayOnce(ctx, f)
	if err != nil {
		return Result{}, err
	}
	return Result{Envelope: env, Mismatches: verify(env, f.Expected)}, nil
}

// VerifyIdempotent replays a fixture twice and reports any item whose
// disposition or severity differs between the two runs.
func VerifyIdempotent(ctx context.Context, f *Fixture) ([]Mismatch, error) {
	first, err := replayOnce(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("first replay: %w", err)
	}
	second, err := replayOnce(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("second replay: %w", err)
	}

	return diffItems(first.Items, second.Items), nil
}

// diffItems compares two item lists position by position, labeling each
// divergence with the field that actually differed.
func diffItems(first, second []pipeline.Item) []Mismatch {
	var out []Mismatch
	if len(first) != len(second) {
		out = append(out, Mismatch{
			Name:  "envelope",
			Field: "presence",
			Want:  fmt.Sprintf("%d items", len(first)),
			Got:   fmt.Sprintf("%d items", len(second)),
		})
		return out
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Name != b.Name {
			out = append(out, Mismatch{Name: a.Name, Field: "presence", Want: a.Name, Got: b.Name})
			continue
		}
		if a.Outcome != b.Outcome {
			out = append(out, Mismatch{Name: a.Name, Field: "outcome", Want: string(a.Outcome), Got: string(b.Outcome)})
		}
		if a.Severity != b.Severity {
			out = append(out, Mismatch{Name: a.Name, Field: "severity", Want: a.Severity.String(), Got: b.Severity.String()})
		}
	}
	return out
}

func replayOnce(ctx context.Context, f *Fixture) (pipeline.Envelope, error) {
	m, err := moduleForID(f.ModuleID)
	if err != nil {
		return pipeline.Envelope{}, err
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	env, err := pipeline.NewRunner(nil).RunAt(ctx, recordedModule{Module: m, raw: f.ToRaw()},
		f.Context.ToRecord(), f.Params, now)
	if err != nil {
		return pipeline.Envelope{}, fmt.Errorf("replay %s: %w", f.ModuleID, err)
	}
	return env, nil
}

// verify checks every expected outcome against the envelope.
func verify(env pipeline.Envelope, expected []ExpectedOutcome) []Mismatch {
	byName := make(map[string]pipeline.Item, len(env.Items))
	for _, it := range env.Items {
		byName[it.Name] = it
	}

	var out []Mismatch
	for _, want := range expected {
		it, ok := byName[want.Name]
		if !ok {
			out = append(out, Mismatch{Name: want.Name, Field: "presence", Want: "present", Got: "missing"})
			continue
		}
		if string(it.Outcome) != want.Outcome {
			out = append(out, Mismatch{Name: want.Name, Field: "outcome", Want: want.Outcome, Got: string(it.Outcome)})
		}
		if it.Severity.String() != want.Severity {
			out = append(out, Mismatch{Name: want.Name, Field: "severity", Want: want.Severity, Got: it.Severity.String()})
		}
	}
	return out
}

// #endregion run
