// Package modules contains the concrete analysis modules. Each one wires the
// five-stage skeleton to a single question, parametrized by its static
// contract: demand timing, competitive SERP signals, keyword intent scoring,
// simulated ROI attribution, and messaging-pattern analysis.
package modules

import (
	"context"

	"github.com/danielpatrickdp/context-insight/internal/disposition"
	"github.com/danielpatrickdp/context-insight/internal/enrich"
	"github.com/danielpatrickdp/context-insight/internal/match"
	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/provider"
	"github.com/danielpatrickdp/context-insight/internal/severity"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region deps

// Deps bundles the external collaborators a module may use. Any field may be
// nil; modules degrade to context-derived fallbacks instead of failing.
type Deps struct {
	Series   provider.SeriesProvider
	Search   provider.SearchProvider
	PriorRun provider.PriorRunSource
	Enricher enrich.Enricher
}

// #endregion deps

// #region helpers

// insightFor enriches one signal, never failing: the Safe wrapper falls back
// to the deterministic templates.
func insightFor(ctx context.Context, e enrich.Enricher, kind, subject string, fields map[string]any) enrich.Insight {
	ins, _ := enrich.Safe(e).Enrich(ctx, kind, subject, fields)
	return ins
}

// applyAdjustment runs the severity scorer for one item and appends each
// applied rule to the item's trace.
func applyAdjustment(rc *pipeline.RunContext, it *pipeline.Item, base severity.Tier, competitor string) {
	adjusted, rules := severity.Adjust(base, severity.ItemDescriptor{
		Text:       it.Name,
		Competitor: competitor,
	}, rc.Record)
	it.Severity = adjusted
	for _, r := range rules {
		it.Trace = append(it.Trace, pipeline.TraceEntry{
			RuleID:   r.RuleID,
			Reason:   r.Reason,
			Severity: "info",
		})
	}
}

// thresholdsFor reads the disposition cutoffs from the governance section,
// falling back to the shared defaults when unset.
func thresholdsFor(rec ucr.Record) disposition.Thresholds {
	th := disposition.DefaultThresholds()
	if rec.Governance != nil {
		if v, ok := rec.Governance.Thresholds["pass_min"]; ok {
			th.PassMin = v
		}
		if v, ok := rec.Governance.Thresholds["review_min"]; ok {
			th.ReviewMin = v
		}
	}
	return th
}

// excludedByScope reports whether text matches a negative-scope term.
func excludedByScope(rec ucr.Record, text string) bool {
	return match.OverlapsAny(text, rec.ExclusionTerms())
}

// classify runs the disposition classifier for one item and appends the
// deciding rule to its trace.
func classify(rc *pipeline.RunContext, it *pipeline.Item, th disposition.Thresholds) {
	d := disposition.Classify(it.Score, it.Severity, it.Excluded, th)
	it.Outcome = d.Outcome
	section := ucr.Section("")
	if it.Excluded {
		section = ucr.SectionNegativeScope
	}
	it.Trace = append(it.Trace, pipeline.TraceEntry{
		RuleID:   d.RuleID,
		Section:  section,
		Reason:   d.Reason,
		Severity: "info",
	})
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
