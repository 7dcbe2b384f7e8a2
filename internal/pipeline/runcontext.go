package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region run-context

// RunContext is the mutable accumulator for a single run: the context
// snapshot, which sections were actually consulted, per-source availability,
// warnings, and the append-only trace. It is created at run start, never
// shared across runs, and discarded once the envelope is built.
type RunContext struct {
	Record ucr.Record
	Params map[string]any

	// Now anchors calendar-relative outputs (seasonal roll-forward) so runs
	// over identical inputs stay reproducible under test.
	Now time.Time

	ctx          context.Context
	sectionsUsed map[ucr.Section]bool
	sources      map[string]SourceStatus
	filters      []string
	warnings     []Warning
	trace        []TraceEntry
}

// NewRunContext builds a run context around a context-record snapshot.
func NewRunContext(rec ucr.Record, params map[string]any) *RunContext {
	return &RunContext{
		Record:       rec,
		Params:       params,
		Now:          time.Now().UTC(),
		ctx:          context.Background(),
		sectionsUsed: make(map[ucr.Section]bool),
		sources:      make(map[string]SourceStatus),
	}
}

// Context returns the cancellation context for extraction-time source calls.
func (rc *RunContext) Context() context.Context {
	return rc.ctx
}

// #endregion run-context

// #region sections

// UseSection records that a stage consulted the given context section.
func (rc *RunContext) UseSection(s ucr.Section) {
	rc.sectionsUsed[s] = true
}

// SectionsUsed returns the consulted sections in canonical order.
func (rc *RunContext) SectionsUsed() []ucr.Section {
	var out []ucr.Section
	for _, s := range ucr.AllSections() {
		if rc.sectionsUsed[s] {
			out = append(out, s)
		}
	}
	return out
}

// #endregion sections

// #region sources

// MarkSourceAvailable records a successful pull from a named data source.
func (rc *RunContext) MarkSourceAvailable(name string) {
	rc.sources[name] = SourceStatus{Available: true}
}

// MarkSourceUnavailable records a failed source with its reason and emits
// the matching warning, so downstream stages can branch to a fallback.
func (rc *RunContext) MarkSourceUnavailable(name, reason string) {
	rc.sources[name] = SourceStatus{Available: false, Reason: reason}
	rc.Warn(CodeSourceUnavailable, fmt.Sprintf("source %s unavailable: %s", name, reason))
}

// SourceAvailable reports the recorded status of a source.
func (rc *RunContext) SourceAvailable(name string) bool {
	return rc.sources[name].Available
}

// Sources returns a copy of the per-source status map.
func (rc *RunContext) Sources() map[string]SourceStatus {
	out := make(map[string]SourceStatus, len(rc.sources))
	for k, v := range rc.sources {
		out[k] = v
	}
	return out
}

// #endregion sources

// #region filters-warnings

// AddFilter records an applied filter for the envelope.
func (rc *RunContext) AddFilter(name string) {
	rc.filters = append(rc.filters, name)
}

// Filters returns the applied filters in order.
func (rc *RunContext) Filters() []string {
	return rc.filters
}

// Warn appends a coded warning.
func (rc *RunContext) Warn(code, message string) {
	rc.warnings = append(rc.warnings, Warning{Code: code, Message: message})
}

// Warnings returns accumulated warnings in order.
func (rc *RunContext) Warnings() []Warning {
	return rc.warnings
}

// #endregion filters-warnings

// #region trace

// Trace appends one rule application to the run trace. Entries are only
// ever appended, never removed.
func (rc *RunContext) Trace(ruleID string, section ucr.Section, reason, severityTag string) {
	rc.trace = append(rc.trace, TraceEntry{
		RuleID:   ruleID,
		Section:  section,
		Reason:   reason,
		Severity: severityTag,
	})
}

// TraceEntries returns the accumulated run-level trace in order.
func (rc *RunContext) TraceEntries() []TraceEntry {
	return rc.trace
}

// #endregion trace

// #region params

// IntParam returns a named int parameter, falling back to def when absent
// or mistyped. JSON-decoded params arrive as float64 and are accepted.
func (rc *RunContext) IntParam(name string, def int) int {
	switch v := rc.Params[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// FloatParam returns a named float parameter with a default.
func (rc *RunContext) FloatParam(name string, def float64) float64 {
	switch v := rc.Params[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// StringParam returns a named string parameter with a default.
func (rc *RunContext) StringParam(name, def string) string {
	if v, ok := rc.Params[name].(string); ok && v != "" {
		return v
	}
	return def
}

// #endregion params
