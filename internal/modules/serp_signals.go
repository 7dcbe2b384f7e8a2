package modules

import (
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/context-insight/internal/contract"
	"github.com/danielpatrickdp/context-insight/internal/enrich"
	"github.com/danielpatrickdp/context-insight/internal/match"
	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/severity"
)

// #region module

const (
	sourceSearchProvider = "search_provider"
	sourceRunHistory     = "run_history"
)

// SERPSignals tracks who occupies the result page for the brand's category
// and diffs consecutive runs for movement: ranking shifts among known
// entities and first-time entrants.
type SERPSignals struct {
	deps Deps
}

// NewSERPSignals builds the module around its collaborators.
func NewSERPSignals(deps Deps) *SERPSignals {
	return &SERPSignals{deps: deps}
}

// Contract returns the module's static execution contract.
func (m *SERPSignals) Contract() contract.ModuleContract {
	c, _ := contract.Lookup(contract.ModuleSERPSignals)
	return c
}

// #endregion module

// #region extract

// Extract searches for the brand's category query and captures the ranked
// result set. When the search provider is down the competitive set itself
// serves as the (rank-less) fallback.
func (m *SERPSignals) Extract(rc *pipeline.RunContext) ([]pipeline.Raw, error) {
	limit := rc.IntParam("max_signals", 10)
	query := m.query(rc)

	if m.deps.Search == nil {
		rc.MarkSourceUnavailable(sourceSearchProvider, "no search provider configured")
		return m.fallbackRaw(rc), nil
	}
	results, err := m.deps.Search.Search(rc.Context(), query, limit)
	if err != nil {
		rc.MarkSourceUnavailable(sourceSearchProvider, err.Error())
		return m.fallbackRaw(rc), nil
	}
	rc.MarkSourceAvailable(sourceSearchProvider)
	rc.Trace("serp_signals.extract", "brand_identity",
		fmt.Sprintf("captured %d ranked results for query %q", len(results), query), "info")

	raw := make([]pipeline.Raw, 0, len(results))
	for _, r := range results {
		raw = append(raw, pipeline.Raw{
			Kind:  "serp_result",
			Name:  r.Domain,
			Text:  r.Title + " " + r.Snippet,
			Value: float64(r.Rank),
			Meta:  map[string]string{"url": r.URL},
		})
	}
	return raw, nil
}

// query derives the search query from brand and category context.
func (m *SERPSignals) query(rc *pipeline.RunContext) string {
	rc.UseSection("brand_identity")
	parts := []string{}
	if rc.Record.Category != nil && rc.Record.Category.PrimaryCategory != "" {
		rc.UseSection("category_definition")
		parts = append(parts, rc.Record.Category.PrimaryCategory)
	}
	if len(parts) == 0 && rc.Record.Brand != nil {
		parts = append(parts, rc.Record.Brand.Name)
	}
	return strings.Join(parts, " ")
}

// fallbackRaw lists the known competitive set without ranks so downstream
// diffing still has a presence snapshot to work with.
func (m *SERPSignals) fallbackRaw(rc *pipeline.RunContext) []pipeline.Raw {
	rc.Trace("serp_signals.fallback", "competitive_set",
		"search provider unavailable; using declared competitive set as presence snapshot", "warning")
	if rc.Record.Competitive == nil {
		return nil
	}
	rc.UseSection("competitive_set")
	var raw []pipeline.Raw
	for _, c := range rc.Record.Competitive.Competitors {
		name := c.Domain
		if name == "" {
			name = c.Name
		}
		raw = append(raw, pipeline.Raw{Kind: "serp_result", Name: name, Text: c.Name})
	}
	return raw
}

// #endregion extract

// #region transform

// Transform turns ranked results into entity items.
func (m *SERPSignals) Transform(rc *pipeline.RunContext, raw []pipeline.Raw) ([]pipeline.Item, error) {
	items := make([]pipeline.Item, 0, len(raw))
	for _, r := range raw {
		it := pipeline.Item{
			Type:         pipeline.ItemEntity,
			Name:         r.Name,
			RawMagnitude: r.Value,
			Fields: map[string]any{
				"signal_kind": "presence",
			},
		}
		if r.Value > 0 {
			it.Fields["rank"] = r.Value
		}
		items = append(items, it)
	}
	return items, nil
}

// #endregion transform

// #region correlate-score

// Correlate marks which result entities map to declared competitors.
func (m *SERPSignals) Correlate(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	rc.UseSection("competitive_set")
	var categoryVocab []string
	if rc.Record.Category != nil {
		categoryVocab = append(categoryVocab, rc.Record.Category.PrimaryCategory)
		categoryVocab = append(categoryVocab, rc.Record.Category.CategoryTerms...)
	}
	for i := range items {
		if name := m.matchCompetitor(rc, items[i].Name); name != "" {
			items[i].Alignment = 1
			items[i].Fields["competitor"] = name
			continue
		}
		items[i].Alignment = match.AlignmentScore(items[i].Name, categoryVocab)
		items[i].Fields["competitor"] = ""
	}
	return items, nil
}

// matchCompetitor resolves a result domain or name against the competitive
// set, case-insensitively.
func (m *SERPSignals) matchCompetitor(rc *pipeline.RunContext, name string) string {
	if rc.Record.Competitive == nil {
		return ""
	}
	for _, c := range rc.Record.Competitive.Competitors {
		if strings.EqualFold(c.Name, name) || (c.Domain != "" && strings.EqualFold(c.Domain, name)) {
			return c.Name
		}
	}
	return ""
}

// Score favors better ranks, weighted by how clearly the entity belongs to
// the tracked competitive landscape.
func (m *SERPSignals) Score(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	for i := range items {
		rankScore := 0.3 // rank-less fallback entries
		if rank, ok := items[i].Fields["rank"].(float64); ok && rank >= 1 {
			rankScore = 1 / rank
		}
		items[i].Score = math.Round((rankScore*0.5+items[i].Alignment*0.5)*100) / 100
	}
	return items, nil
}

// #endregion correlate-score

// #region disposition

// Disposition classifies each entity and derives the diff-based decisions by
// comparing the two most recent persisted runs. With fewer than two prior
// runs no diff signal is emitted at all.
func (m *SERPSignals) Disposition(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, []pipeline.Decision, error) {
	th := thresholdsFor(rc.Record)
	for i := range items {
		it := &items[i]
		it.Excluded = excludedByScope(rc.Record, it.Name)
		if it.Excluded {
			rc.UseSection("negative_scope")
		}
		competitor, _ := it.Fields["competitor"].(string)
		applyAdjustment(rc, it, severity.TierMedium, competitor)
		it.Fields["confidence"] = it.Severity.String()
		classify(rc, it, th)
	}

	decisions := m.diffDecisions(rc)
	return items, decisions, nil
}

// diffDecisions compares run N against run N-1 from the persisted history:
// one ranking-shift signal per moved entity, exactly one new-entrant signal
// per entity present in N but absent from N-1.
func (m *SERPSignals) diffDecisions(rc *pipeline.RunContext) []pipeline.Decision {
	if m.deps.PriorRun == nil {
		rc.MarkSourceUnavailable(sourceRunHistory, "no prior-run source configured")
		return nil
	}
	runs, err := m.deps.PriorRun.PriorRuns(rc.Context(), contract.ModuleSERPSignals, rc.Record.ID, 2)
	if err != nil {
		rc.MarkSourceUnavailable(sourceRunHistory, err.Error())
		return nil
	}
	rc.MarkSourceAvailable(sourceRunHistory)
	if len(runs) < 2 {
		rc.Warn(pipeline.CodeInsufficientData,
			fmt.Sprintf("%d prior runs on record; at least 2 needed for diff-based signals", len(runs)))
		return nil
	}
	current, previous := runs[0], runs[1]

	prevRanks := make(map[string]float64, len(previous.ItemNames))
	for _, name := range previous.ItemNames {
		prevRanks[name] = fieldFloat(previous.Fields, name, "rank")
	}

	var decisions []pipeline.Decision
	seen := make(map[string]bool)
	for _, name := range current.ItemNames {
		if seen[name] {
			continue
		}
		seen[name] = true

		prevRank, existed := prevRanks[name]
		if !existed {
			ins := insightFor(rc.Context(), m.deps.Enricher, enrich.KindNewEntrant, name, nil)
			rc.Trace("serp_signals.new_entrant", "competitive_set",
				fmt.Sprintf("%s present in latest run but absent from the preceding one", name), "info")
			decisions = append(decisions, pipeline.Decision{
				Signal:         fmt.Sprintf("New entrant %s appeared in the tracked results", name),
				Confidence:     severity.TierHigh,
				Action:         pipeline.ActionInvestigate,
				Evidence:       []string{name},
				Impact:         ins.Impact,
				Recommendation: ins.Recommendation,
			})
			continue
		}

		curRank := fieldFloat(current.Fields, name, "rank")
		if curRank == 0 || prevRank == 0 || curRank == prevRank {
			continue
		}
		delta := int(prevRank - curRank) // positive = moved up
		ins := insightFor(rc.Context(), m.deps.Enricher, enrich.KindRankingShift, name, map[string]any{
			"delta": fmt.Sprintf("%+d", delta),
		})
		action := pipeline.ActionMonitor
		conf := severity.TierMedium
		if delta <= -3 || delta >= 3 {
			action = pipeline.ActionInvestigate
			conf = severity.TierHigh
		}
		rc.Trace("serp_signals.ranking_shift", "competitive_set",
			fmt.Sprintf("%s moved from rank %.0f to %.0f", name, prevRank, curRank), "info")
		decisions = append(decisions, pipeline.Decision{
			Signal:         fmt.Sprintf("%s moved %+d positions", name, delta),
			Confidence:     conf,
			Action:         action,
			Evidence:       []string{name},
			Impact:         ins.Impact,
			Recommendation: ins.Recommendation,
		})
	}
	return decisions
}

// fieldFloat reads a numeric per-item field from a prior-run record.
func fieldFloat(fields map[string]map[string]any, name, key string) float64 {
	if fields == nil || fields[name] == nil {
		return 0
	}
	if v, ok := fields[name][key].(float64); ok {
		return v
	}
	return 0
}

// #endregion disposition

var _ pipeline.Module = (*SERPSignals)(nil)
