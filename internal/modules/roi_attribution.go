package modules

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/danielpatrickdp/context-insight/internal/contract"
	"github.com/danielpatrickdp/context-insight/internal/enrich"
	"github.com/danielpatrickdp/context-insight/internal/match"
	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/severity"
)

// #region module

const sourceAttributionSim = "attribution_sim"

// ROIAttribution models how conversion credit would distribute across the
// brand's channels. It is the one module allowed randomized placeholder data:
// the simulation runs behind a caller-supplied seed, so a fixed seed is
// reproducible but the module sits outside the cross-run idempotence
// guarantee the deterministic modules carry.
type ROIAttribution struct {
	deps Deps
}

// NewROIAttribution builds the module around its collaborators.
func NewROIAttribution(deps Deps) *ROIAttribution {
	return &ROIAttribution{deps: deps}
}

// Contract returns the module's static execution contract.
func (m *ROIAttribution) Contract() contract.ModuleContract {
	c, _ := contract.Lookup(contract.ModuleROIAttribution)
	return c
}

// #endregion module

// #region extract

// Extract simulates per-channel conversion observations. All randomness in
// this module lives here, behind the seed parameter.
func (m *ROIAttribution) Extract(rc *pipeline.RunContext) ([]pipeline.Raw, error) {
	rc.UseSection("channel_context")
	if rc.Record.Channels == nil || len(rc.Record.Channels.Channels) == 0 {
		rc.Warn(pipeline.CodeInsufficientData, "channel context lists no channels to attribute")
		return nil, nil
	}

	seed := int64(rc.IntParam("seed", 1))
	rng := rand.New(rand.NewSource(seed))
	rc.MarkSourceAvailable(sourceAttributionSim)
	rc.Trace("roi_attribution.extract", "channel_context",
		fmt.Sprintf("simulated conversions for %d channels with seed %d", len(rc.Record.Channels.Channels), seed), "info")

	raw := make([]pipeline.Raw, 0, len(rc.Record.Channels.Channels))
	for _, ch := range rc.Record.Channels.Channels {
		weight := 0.5 + rng.Float64() // base draw per channel
		if strings.EqualFold(ch, rc.Record.Channels.PrimaryChannel) {
			weight *= 1.5
		}
		raw = append(raw, pipeline.Raw{
			Kind:  "channel_sim",
			Name:  ch,
			Value: weight,
		})
	}
	return raw, nil
}

// #endregion extract

// #region transform

// Transform normalizes simulated weights into attribution shares that sum
// to 1 and spreads the modeled spend across them.
func (m *ROIAttribution) Transform(rc *pipeline.RunContext, raw []pipeline.Raw) ([]pipeline.Item, error) {
	total := 0.0
	for _, r := range raw {
		total += r.Value
	}
	spend := rc.FloatParam("spend_total", 10000)

	items := make([]pipeline.Item, 0, len(raw))
	for _, r := range raw {
		share := 0.0
		if total > 0 {
			share = r.Value / total
		}
		items = append(items, pipeline.Item{
			Type:         pipeline.ItemCluster,
			Name:         r.Name,
			RawMagnitude: share,
			Fields: map[string]any{
				"channel":          r.Name,
				"attributed_share": math.Round(share*1000) / 1000,
				"modeled_spend":    math.Round(share * spend),
			},
		})
	}
	return items, nil
}

// #endregion transform

// #region correlate-score

// Correlate checks each channel against the strategic priorities so channels
// the strategy names outrank incidental ones.
func (m *ROIAttribution) Correlate(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	priorities := rc.Record.PriorityTerms()
	if len(priorities) > 0 {
		rc.UseSection("strategic_intent")
	}
	for i := range items {
		if match.OverlapsAny(items[i].Name, priorities) {
			items[i].Alignment = 1
		} else {
			items[i].Alignment = 0.5
		}
	}
	return items, nil
}

// Score ranks channels by modeled share with a strategic tilt.
func (m *ROIAttribution) Score(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	for i := range items {
		items[i].Score = math.Round((items[i].RawMagnitude*0.7+items[i].Alignment*0.3)*100) / 100
	}
	return items, nil
}

// #endregion correlate-score

// #region disposition

// Disposition classifies channels and recommends where the modeled credit
// concentrates. Governance thresholds drive the cutoffs since this module
// only runs on confirmed records.
func (m *ROIAttribution) Disposition(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, []pipeline.Decision, error) {
	rc.UseSection("governance")
	th := thresholdsFor(rc.Record)
	for i := range items {
		it := &items[i]
		applyAdjustment(rc, it, severity.TierMedium, "")
		it.Fields["confidence"] = it.Severity.String()
		it.Trace = append(it.Trace, pipeline.TraceEntry{
			RuleID:   "roi_attribution.simulated",
			Reason:   "share is modeled from simulated data, not observed conversions",
			Severity: "warning",
		})
		classify(rc, it, th)
	}

	var decisions []pipeline.Decision
	if len(items) > 0 {
		top := items[0]
		for _, it := range items[1:] {
			if it.Score > top.Score {
				top = it
			}
		}
		share, _ := top.Fields["attributed_share"].(float64)
		ins := insightFor(rc.Context(), m.deps.Enricher, enrich.KindAttribution, top.Name, map[string]any{
			"share": fmt.Sprintf("%.0f%%", share*100),
		})
		decisions = append(decisions, pipeline.Decision{
			Signal:         fmt.Sprintf("Modeled attribution concentrates in %s", top.Name),
			Confidence:     top.Severity,
			Action:         pipeline.ActionInvestigate,
			Evidence:       []string{top.Name},
			Impact:         ins.Impact,
			Recommendation: ins.Recommendation,
		})
	}
	return items, decisions, nil
}

// #endregion disposition

var _ pipeline.Module = (*ROIAttribution)(nil)
