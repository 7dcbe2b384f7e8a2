// Package enrich turns classified signals into impact statements and
// recommended actions. The Enricher boundary allows an external generator to
// be plugged in; TemplateEnricher is the deterministic fallback that is always
// available, so enrichment can never block an envelope.
package enrich

import (
	"context"
	"fmt"
	"strings"
)

// #region kinds

// Signal kinds the enricher understands.
const (
	KindSeasonalPeak = "seasonal_peak"
	KindDemandShift  = "demand_shift"
	KindAnomaly      = "anomaly"
	KindRankingShift = "ranking_shift"
	KindNewEntrant   = "new_entrant"
	KindIntentMatch  = "intent_match"
	KindAttribution  = "attribution"
	KindMessaging    = "messaging_pattern"
)

// #endregion kinds

// #region interface

// Insight is the enrichment output for one signal.
type Insight struct {
	Impact         string
	Recommendation string
}

// Enricher produces an insight for a signal. kind is one of the Kind
// constants, subject names the entity the signal is about, and fields carries
// the signal's explainability values.
type Enricher interface {
	Enrich(ctx context.Context, kind, subject string, fields map[string]any) (Insight, error)
}

// #endregion interface

// #region template

// TemplateEnricher renders fixed templates per signal kind. Identical inputs
// always yield identical output.
type TemplateEnricher struct{}

// Enrich renders the template for the given kind. Unknown kinds get a generic
// insight rather than an error.
func (TemplateEnricher) Enrich(_ context.Context, kind, subject string, fields map[string]any) (Insight, error) {
	switch kind {
	case KindSeasonalPeak:
		return Insight{
			Impact:         fmt.Sprintf("Demand for %s concentrates in %s.", subject, fieldString(fields, "peak_months", "its peak window")),
			Recommendation: fmt.Sprintf("Build inventory and campaign assets before %s.", fieldString(fields, "inflection_month", "the ramp begins")),
		}, nil
	case KindDemandShift:
		return Insight{
			Impact:         fmt.Sprintf("Interest in %s is trending %s (slope %s).", subject, fieldString(fields, "direction", "flat"), fieldString(fields, "slope", "0")),
			Recommendation: "Re-weigh budget toward the terms gaining momentum.",
		}, nil
	case KindAnomaly:
		return Insight{
			Impact:         fmt.Sprintf("%s spiked well above its typical level in %s.", subject, fieldString(fields, "month", "a recent month")),
			Recommendation: "Investigate the spike before treating it as a durable shift.",
		}, nil
	case KindRankingShift:
		return Insight{
			Impact:         fmt.Sprintf("%s moved %s positions since the previous run.", subject, fieldString(fields, "delta", "several")),
			Recommendation: "Compare the affected pages against the movers before the next run.",
		}, nil
	case KindNewEntrant:
		return Insight{
			Impact:         fmt.Sprintf("%s appeared in the tracked result set for the first time.", subject),
			Recommendation: fmt.Sprintf("Profile %s's positioning and add it to competitive monitoring.", subject),
		}, nil
	case KindIntentMatch:
		return Insight{
			Impact:         fmt.Sprintf("%s carries %s intent aligned with declared demand themes.", subject, fieldString(fields, "intent", "mixed")),
			Recommendation: "Prioritize this term in the channel that serves its intent.",
		}, nil
	case KindAttribution:
		return Insight{
			Impact:         fmt.Sprintf("Simulated attribution credits %s with %s of modeled conversions.", subject, fieldString(fields, "share", "a share")),
			Recommendation: "Validate the modeled share against observed conversion data.",
		}, nil
	case KindMessaging:
		return Insight{
			Impact:         fmt.Sprintf("Competitors lean on the \"%s\" message.", subject),
			Recommendation: "Decide whether to contest this message or differentiate away from it.",
		}, nil
	default:
		return Insight{
			Impact:         fmt.Sprintf("Signal observed for %s.", subject),
			Recommendation: "Review the underlying items for next steps.",
		}, nil
	}
}

// fieldString renders a named field for a template, with a fallback when the
// field is absent.
func fieldString(fields map[string]any, name, def string) string {
	v, ok := fields[name]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return def
		}
		return t
	case []string:
		if len(t) == 0 {
			return def
		}
		return strings.Join(t, ", ")
	case float64:
		return fmt.Sprintf("%.2f", t)
	case int:
		return fmt.Sprintf("%d", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// #endregion template

// #region safe

type safeEnricher struct {
	primary  Enricher
	fallback Enricher
}

// Safe wraps an enricher so that a nil primary or a primary failure falls
// back to the deterministic templates. Enrichment through Safe never returns
// an error.
func Safe(primary Enricher) Enricher {
	return safeEnricher{primary: primary, fallback: TemplateEnricher{}}
}

func (s safeEnricher) Enrich(ctx context.Context, kind, subject string, fields map[string]any) (Insight, error) {
	if s.primary != nil {
		if ins, err := s.primary.Enrich(ctx, kind, subject, fields); err == nil {
			return ins, nil
		}
	}
	return s.fallback.Enrich(ctx, kind, subject, fields)
}

// #endregion safe
