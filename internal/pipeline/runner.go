// Package pipeline implements the five-stage execution skeleton shared by
// every analysis module: extract, transform, correlate, score, disposition.
// The runner gates each run against the module's contract, threads one
// isolated RunContext through the stages, and always hands back a
// structurally valid envelope.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/context-insight/internal/disposition"
	"github.com/danielpatrickdp/context-insight/internal/gate"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// ErrGateRefused is returned when the context gate blocks a run. The
// accompanying envelope is still valid, with zero items and the gate's
// errors attached as warnings.
var ErrGateRefused = errors.New("context gate refused execution")

// #region runner

// Runner orchestrates module runs. One Runner may serve concurrent runs;
// all per-run state lives in the RunContext.
type Runner struct {
	log *zap.Logger
}

// NewRunner creates a runner. Pass nil to run silently.
func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log}
}

// #endregion runner

// #region run

// Run executes one module against a context-record snapshot. The gate is
// evaluated before any stage; a refusal returns ErrGateRefused with a
// zero-item envelope. Any fault inside a stage is caught here, recorded as
// a single EXECUTION_ERROR warning, and the run still returns a valid
// envelope. The ctx is passed through to extraction sources only.
func (r *Runner) Run(ctx context.Context, m Module, rec ucr.Record, params map[string]any) (Envelope, error) {
	return r.RunAt(ctx, m, rec, params, time.Now().UTC())
}

// RunAt is Run with a pinned clock. Replay uses it so calendar-relative
// outputs reproduce exactly.
func (r *Runner) RunAt(ctx context.Context, m Module, rec ucr.Record, params map[string]any, now time.Time) (Envelope, error) {
	c := m.Contract()
	runID := uuid.New().String()

	env := Envelope{
		ModuleID:       c.ModuleID,
		RunID:          runID,
		GeneratedAt:    now,
		ContextID:      rec.ID,
		ContextVersion: rec.Version,
		FiltersApplied: []string{},
		Warnings:       []Warning{},
		Items:          []Item{},
	}

	// Gate first. No extraction happens on refusal.
	gateResult := gate.Evaluate(rec.State, rec.AvailableSections(), c)
	for _, w := range gateResult.Warnings {
		env.Warnings = append(env.Warnings, Warning{Code: CodeDegradedConfidence, Message: w})
	}
	if !gateResult.Allowed {
		for _, e := range gateResult.Errors {
			env.Warnings = append(env.Warnings, Warning{Code: CodeGateViolation, Message: e})
		}
		r.log.Info("run refused by gate",
			zap.String("module", c.ModuleID),
			zap.String("run_id", runID),
			zap.Strings("errors", gateResult.Errors))
		return env, fmt.Errorf("module %s: %w", c.ModuleID, ErrGateRefused)
	}

	merged := c.DefaultParams()
	for k, v := range params {
		merged[k] = v
	}
	rc := NewRunContext(rec, merged)
	rc.Now = now
	if ctx != nil {
		rc.ctx = ctx
	}
	for _, w := range gateResult.Warnings {
		rc.Trace("gate.optional_missing", "", w, "warning")
	}

	items, decisions, err := r.runStages(m, rc)
	if err != nil {
		// Single catch point: the run degrades to an empty envelope
		// instead of propagating the fault to the caller.
		rc.Warn(CodeExecutionError, err.Error())
		r.log.Warn("run aborted",
			zap.String("module", c.ModuleID),
			zap.String("run_id", runID),
			zap.Error(err))
		items, decisions = nil, nil
	}

	env.SectionsUsed = rc.SectionsUsed()
	env.FiltersApplied = append(env.FiltersApplied, rc.Filters()...)
	env.Sources = rc.Sources()
	env.Warnings = append(env.Warnings, rc.Warnings()...)
	env.Trace = rc.TraceEntries()
	if items != nil {
		env.Items = items
	}
	env.Summary = summarize(env.Items, decisions)

	r.log.Debug("run complete",
		zap.String("module", c.ModuleID),
		zap.String("run_id", runID),
		zap.Int("items", len(env.Items)),
		zap.Int("warnings", len(env.Warnings)))
	return env, nil
}

// runStages executes the five stages in order. Panics in module code are
// converted to errors here so a misbehaving module cannot crash the caller.
func (r *Runner) runStages(m Module, rc *RunContext) (items []Item, decisions []Decision, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stage panic: %v", rec)
		}
	}()

	raw, err := m.Extract(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: %w", err)
	}

	items, err = m.Transform(rc, raw)
	if err != nil {
		return nil, nil, fmt.Errorf("transform: %w", err)
	}

	items, err = m.Correlate(rc, items)
	if err != nil {
		return nil, nil, fmt.Errorf("correlate: %w", err)
	}

	items, err = m.Score(rc, items)
	if err != nil {
		return nil, nil, fmt.Errorf("score: %w", err)
	}

	// Deterministic ordering: score descending, name as tiebreak.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Name < items[j].Name
	})

	items, decisions, err = m.Disposition(rc, items)
	if err != nil {
		return nil, nil, fmt.Errorf("disposition: %w", err)
	}

	// Fill the serialized tier names once the stages are done.
	for i := range items {
		items[i].Tier = items[i].Severity.String()
	}
	for i := range decisions {
		decisions[i].ConfidenceTier = decisions[i].Confidence.String()
	}
	return items, decisions, nil
}

// #endregion run

// #region summary

func summarize(items []Item, decisions []Decision) Summary {
	s := Summary{TotalItems: len(items), Decisions: decisions}
	for _, it := range items {
		switch it.Outcome {
		case disposition.Pass:
			s.Passed++
		case disposition.Review:
			s.InReview++
		case disposition.OutOfPlay:
			s.OutOfPlay++
		}
	}
	return s
}

// #endregion summary
