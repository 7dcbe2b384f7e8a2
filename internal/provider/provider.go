// Package provider declares the external collaborator boundaries the analysis
// modules depend on. Everything behind these interfaces is replaceable: real
// network clients in production, fixtures under replay, fakes under test. A
// nil or failing provider never aborts a run; modules record the source as
// unavailable and fall back to context-derived inputs.
package provider

import (
	"context"
	"time"

	"github.com/danielpatrickdp/context-insight/internal/series"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region context-source

// ContextSource resolves context records by ID. The sqlite store satisfies
// this; replay fixtures carry their own snapshot instead.
type ContextSource interface {
	GetContext(contextID string) (ucr.Record, error)
	GetVersion(contextID string, version int) (ucr.Record, error)
}

// #endregion context-source

// #region series-provider

// SeriesOptions narrows a comparative series request.
type SeriesOptions struct {
	Geo      string
	From     time.Time
	To       time.Time
	Interval string // "month" is the only interval the engine aggregates
}

// DefaultSeriesOptions covers the trailing five years of monthly data with no
// geo restriction, anchored at now.
func DefaultSeriesOptions(now time.Time) SeriesOptions {
	return SeriesOptions{
		From:     now.AddDate(-5, 0, 0),
		To:       now,
		Interval: "month",
	}
}

// SeriesProvider returns one normalized interest series per requested term.
// Terms with no data may be absent from the result map; that is not an error.
type SeriesProvider interface {
	CompareSeries(ctx context.Context, terms []string, opts SeriesOptions) (map[string][]series.Point, error)
}

// #endregion series-provider

// #region search-provider

// SearchResult is one ranked organic result for a query.
type SearchResult struct {
	Rank    int
	Title   string
	Domain  string
	URL     string
	Snippet string
}

// SearchProvider returns ranked results for a query, best rank first.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// #endregion search-provider

// #region prior-runs

// RunRecord is a persisted prior run in compact form: enough to diff against
// without rehydrating the full envelope.
type RunRecord struct {
	RunID          string
	ModuleID       string
	ContextID      string
	ContextVersion int
	GeneratedAt    time.Time

	// ItemNames holds the envelope's item names in ranked order. Diffing
	// modules compare these across consecutive runs.
	ItemNames []string

	// Fields carries per-item ranks and domains keyed by item name.
	Fields map[string]map[string]any
}

// PriorRunSource lists persisted runs for a module and context, most recent
// first. An empty result is valid and means no history exists yet.
type PriorRunSource interface {
	PriorRuns(ctx context.Context, moduleID, contextID string, limit int) ([]RunRecord, error)
}

// #endregion prior-runs
