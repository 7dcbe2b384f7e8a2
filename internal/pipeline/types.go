package pipeline

import (
	"time"

	"github.com/danielpatrickdp/context-insight/internal/contract"
	"github.com/danielpatrickdp/context-insight/internal/disposition"
	"github.com/danielpatrickdp/context-insight/internal/series"
	"github.com/danielpatrickdp/context-insight/internal/severity"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region trace

// TraceEntry is one rule application in a run's append-only audit trace.
type TraceEntry struct {
	RuleID   string      `json:"rule_id"`
	Section  ucr.Section `json:"section,omitempty"`
	Reason   string      `json:"reason"`
	Severity string      `json:"severity"` // "info" | "warning" | "error"
}

// #endregion trace

// #region warnings

// Warning codes used across the pipeline.
const (
	CodeGateViolation      = "GATE_VIOLATION"
	CodeExecutionError     = "EXECUTION_ERROR"
	CodeSourceUnavailable  = "SOURCE_UNAVAILABLE"
	CodeDegradedConfidence = "DEGRADED_CONFIDENCE"
	CodeInsufficientData   = "INSUFFICIENT_DATA"
)

// Warning is a coded, non-fatal problem attached to a run envelope.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// #endregion warnings

// #region source-status

// SourceStatus records the availability of one named external data source.
type SourceStatus struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// #endregion source-status

// #region raw

// Raw is one extracted record before transformation.
type Raw struct {
	Kind   string
	Name   string
	Text   string
	Value  float64
	Series []series.Point
	Meta   map[string]string
}

// #endregion raw

// #region item

// ItemType distinguishes the polymorphic item shapes in an envelope.
type ItemType string

const (
	ItemKeyword ItemType = "keyword"
	ItemCluster ItemType = "cluster"
	ItemEntity  ItemType = "entity"
)

// Item is the per-entity unit of analysis flowing through the stages. The
// stages fill it in progressively: Transform sets the raw magnitude,
// Correlate the alignment, Score the ranking value, Disposition the outcome.
type Item struct {
	Type ItemType `json:"type"`
	Name string   `json:"name"`

	RawMagnitude float64 `json:"raw_magnitude"`
	Alignment    float64 `json:"alignment"` // [0,1] context overlap
	Score        float64 `json:"score"`

	Severity severity.Tier       `json:"-"`
	Tier     string              `json:"severity"`
	Excluded bool                `json:"excluded,omitempty"`
	Outcome  disposition.Outcome `json:"disposition"`

	// Fields carries the module-specific explainability fields declared in
	// the module's contract.
	Fields map[string]any `json:"fields,omitempty"`

	Trace []TraceEntry `json:"trace"`
}

// #endregion item

// #region decision

// ActionType tags what the caller should do about a decision.
type ActionType string

const (
	ActionMonitor      ActionType = "monitor"
	ActionInvestigate  ActionType = "investigate"
	ActionActNow       ActionType = "act_now"
	ActionDeprioritize ActionType = "deprioritize"
)

// Decision is the externally visible output unit: a described signal, its
// confidence, a recommended action, and the items that produced it.
// Decisions are derived each run, never stored independently.
type Decision struct {
	Signal         string        `json:"signal"`
	Confidence     severity.Tier `json:"-"`
	ConfidenceTier string        `json:"confidence"`
	Action         ActionType    `json:"action"`
	Evidence       []string      `json:"evidence"` // names of contributing items
	Impact         string        `json:"impact,omitempty"`
	Recommendation string        `json:"recommendation,omitempty"`
}

// #endregion decision

// #region envelope

// Summary aggregates the run's outcome counts and derived decisions.
type Summary struct {
	TotalItems int        `json:"total_items"`
	Passed     int        `json:"passed"`
	InReview   int        `json:"in_review"`
	OutOfPlay  int        `json:"out_of_play"`
	Decisions  []Decision `json:"decisions,omitempty"`
}

// Envelope is the stable output contract of a run.
type Envelope struct {
	ModuleID       string                  `json:"module_id"`
	RunID          string                  `json:"run_id"`
	GeneratedAt    time.Time               `json:"generated_at"`
	ContextID      string                  `json:"context_id"`
	ContextVersion int                     `json:"context_version"`
	SectionsUsed   []ucr.Section           `json:"sections_used"`
	FiltersApplied []string                `json:"filters_applied"`
	Sources        map[string]SourceStatus `json:"sources,omitempty"`
	Warnings       []Warning               `json:"warnings"`
	Items          []Item                  `json:"items"`
	Summary        Summary                 `json:"summary"`

	// Trace is the run-level audit trace. The run log stores it as
	// individual rows, not inside the envelope JSON.
	Trace []TraceEntry `json:"-"`
}

// #endregion envelope

// #region module-interface

// Module is the five-function execution contract every concrete analysis
// module satisfies. The runner orchestrates the stages in fixed order; a
// module never calls its own stages.
type Module interface {
	// Contract returns the module's static execution contract.
	Contract() contract.ModuleContract

	// Extract pulls raw records from external sources, recording an
	// availability status per source touched and falling back to
	// context-derived records when a source is down.
	Extract(rc *RunContext) ([]Raw, error)

	// Transform normalizes raw records into items with a raw magnitude,
	// without consulting business-priority context fields.
	Transform(rc *RunContext, raw []Raw) ([]Item, error)

	// Correlate sets each item's context-alignment score in [0,1].
	Correlate(rc *RunContext, items []Item) ([]Item, error)

	// Score combines magnitude and alignment into one deterministic ranking
	// value per item. The runner sorts descending afterwards.
	Score(rc *RunContext, items []Item) ([]Item, error)

	// Disposition maps every scored item to an outcome and derives the
	// run's decisions.
	Disposition(rc *RunContext, items []Item) ([]Item, []Decision, error)
}

// #endregion module-interface
