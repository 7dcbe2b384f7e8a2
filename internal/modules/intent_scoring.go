package modules

import (
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/context-insight/internal/contract"
	"github.com/danielpatrickdp/context-insight/internal/disposition"
	"github.com/danielpatrickdp/context-insight/internal/enrich"
	"github.com/danielpatrickdp/context-insight/internal/match"
	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/severity"
)

// #region intent-classes

// IntentClass buckets a keyword by the searcher's likely goal.
type IntentClass string

const (
	IntentTransactional IntentClass = "transactional"
	IntentCommercial    IntentClass = "commercial"
	IntentNavigational  IntentClass = "navigational"
	IntentInformational IntentClass = "informational"
)

var transactionalMarkers = []string{"buy", "price", "pricing", "cheap", "discount", "order", "deal", "coupon", "sale", "shop"}
var commercialMarkers = []string{"review", "reviews", "compare", "comparison", "vs", "alternative", "alternatives", "rating"}
var informationalMarkers = []string{"how", "what", "why", "guide", "tutorial", "ideas", "tips", "examples", "meaning"}

// intentWeight orders classes by commercial value for scoring.
var intentWeight = map[IntentClass]float64{
	IntentTransactional: 1.0,
	IntentCommercial:    0.8,
	IntentNavigational:  0.5,
	IntentInformational: 0.4,
}

// #endregion intent-classes

// #region module

// IntentScoring classifies the context's keyword universe by search intent
// and ranks each keyword by how well its intent serves the declared demand.
type IntentScoring struct {
	deps Deps
}

// NewIntentScoring builds the module around its collaborators.
func NewIntentScoring(deps Deps) *IntentScoring {
	return &IntentScoring{deps: deps}
}

// Contract returns the module's static execution contract.
func (m *IntentScoring) Contract() contract.ModuleContract {
	c, _ := contract.Lookup(contract.ModuleIntentScoring)
	return c
}

// #endregion module

// #region extract

// Extract expands the seed queries through the search provider's result
// titles; without a provider the seed queries alone are the keyword universe.
func (m *IntentScoring) Extract(rc *pipeline.RunContext) ([]pipeline.Raw, error) {
	rc.UseSection("demand_definition")
	seeds := []string{}
	if rc.Record.Demand != nil {
		seeds = append(seeds, rc.Record.Demand.SeedQueries...)
	}
	if rc.Record.Category != nil {
		rc.UseSection("category_definition")
		seeds = append(seeds, rc.Record.Category.CategoryTerms...)
	}
	if len(seeds) == 0 {
		rc.Warn(pipeline.CodeInsufficientData, "no seed queries or category terms to classify")
		return nil, nil
	}

	keywords := dedupe(seeds)
	if m.deps.Search == nil {
		rc.MarkSourceUnavailable(sourceSearchProvider, "no search provider configured")
		rc.Trace("intent_scoring.fallback", "demand_definition",
			"search provider unavailable; classifying seed queries only", "warning")
	} else {
		expanded, err := m.expand(rc, keywords)
		if err != nil {
			rc.MarkSourceUnavailable(sourceSearchProvider, err.Error())
		} else {
			rc.MarkSourceAvailable(sourceSearchProvider)
			keywords = expanded
		}
	}

	raw := make([]pipeline.Raw, 0, len(keywords))
	for _, kw := range keywords {
		raw = append(raw, pipeline.Raw{Kind: "keyword", Name: kw})
	}
	rc.Trace("intent_scoring.extract", "", fmt.Sprintf("keyword universe of %d terms", len(raw)), "info")
	return raw, nil
}

// expand grows the keyword set with result titles for the first few seeds.
func (m *IntentScoring) expand(rc *pipeline.RunContext, seeds []string) ([]string, error) {
	out := append([]string{}, seeds...)
	limit := 3
	if len(seeds) < limit {
		limit = len(seeds)
	}
	for _, seed := range seeds[:limit] {
		results, err := m.deps.Search.Search(rc.Context(), seed, 5)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", seed, err)
		}
		for _, r := range results {
			if t := strings.ToLower(strings.TrimSpace(r.Title)); t != "" {
				out = append(out, t)
			}
		}
	}
	return dedupe(out), nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// #endregion extract

// #region transform

// Transform classifies each keyword's intent from its marker tokens. Brand
// and competitor mentions take precedence as navigational.
func (m *IntentScoring) Transform(rc *pipeline.RunContext, raw []pipeline.Raw) ([]pipeline.Item, error) {
	items := make([]pipeline.Item, 0, len(raw))
	for _, r := range raw {
		class := m.classifyIntent(rc, r.Name)
		items = append(items, pipeline.Item{
			Type:         pipeline.ItemKeyword,
			Name:         r.Name,
			RawMagnitude: intentWeight[class],
			Fields: map[string]any{
				"intent_class": string(class),
			},
		})
	}
	return items, nil
}

func (m *IntentScoring) classifyIntent(rc *pipeline.RunContext, keyword string) IntentClass {
	if m.mentionsBrand(rc, keyword) {
		return IntentNavigational
	}
	tokens := strings.Fields(strings.ToLower(keyword))
	has := func(markers []string) bool {
		for _, t := range tokens {
			for _, marker := range markers {
				if t == marker {
					return true
				}
			}
		}
		return false
	}
	switch {
	case has(transactionalMarkers):
		return IntentTransactional
	case has(commercialMarkers):
		return IntentCommercial
	case has(informationalMarkers):
		return IntentInformational
	default:
		return IntentCommercial
	}
}

func (m *IntentScoring) mentionsBrand(rc *pipeline.RunContext, keyword string) bool {
	if rc.Record.Brand == nil {
		return false
	}
	lower := strings.ToLower(keyword)
	names := append([]string{rc.Record.Brand.Name}, rc.Record.Brand.Aliases...)
	for _, n := range names {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// #endregion transform

// #region correlate-score

// Correlate measures each keyword against the demand themes.
func (m *IntentScoring) Correlate(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	rc.UseSection("demand_definition")
	var themes []string
	if rc.Record.Demand != nil {
		themes = rc.Record.Demand.DemandThemes
	}
	for i := range items {
		items[i].Alignment = match.AlignmentScore(items[i].Name, themes)
		items[i].Fields["alignment"] = items[i].Alignment
	}
	return items, nil
}

// Score blends intent value and demand alignment evenly, then drops
// keywords under the caller's alignment floor.
func (m *IntentScoring) Score(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	minAlignment := rc.FloatParam("min_alignment", 0)
	kept := items[:0]
	for i := range items {
		if items[i].Alignment < minAlignment {
			continue
		}
		items[i].Score = math.Round((items[i].RawMagnitude*0.5+items[i].Alignment*0.5)*100) / 100
		kept = append(kept, items[i])
	}
	if len(kept) < len(items) {
		rc.AddFilter(fmt.Sprintf("min_alignment=%.2f", minAlignment))
	}
	return kept, nil
}

// #endregion correlate-score

// #region disposition

// Disposition classifies keywords and recommends where to spend effort.
func (m *IntentScoring) Disposition(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, []pipeline.Decision, error) {
	th := thresholdsFor(rc.Record)
	for i := range items {
		it := &items[i]
		it.Excluded = excludedByScope(rc.Record, it.Name)
		if it.Excluded {
			rc.UseSection("negative_scope")
		}
		base := severity.TierMedium
		if class, _ := it.Fields["intent_class"].(string); class == string(IntentTransactional) {
			base = severity.TierHigh
		}
		applyAdjustment(rc, it, base, "")
		it.Fields["confidence"] = it.Severity.String()
		classify(rc, it, th)
	}

	var decisions []pipeline.Decision
	if top := topPassing(items); top != nil {
		class, _ := top.Fields["intent_class"].(string)
		ins := insightFor(rc.Context(), m.deps.Enricher, enrich.KindIntentMatch, top.Name, map[string]any{
			"intent": class,
		})
		decisions = append(decisions, pipeline.Decision{
			Signal:         fmt.Sprintf("%q leads the %s-intent keyword set", top.Name, class),
			Confidence:     top.Severity,
			Action:         pipeline.ActionActNow,
			Evidence:       []string{top.Name},
			Impact:         ins.Impact,
			Recommendation: ins.Recommendation,
		})
	}
	return items, decisions, nil
}

// topPassing returns the highest-scored non-excluded passing item.
func topPassing(items []pipeline.Item) *pipeline.Item {
	var best *pipeline.Item
	for i := range items {
		it := &items[i]
		if it.Excluded || it.Outcome != disposition.Pass {
			continue
		}
		if best == nil || it.Score > best.Score {
			best = it
		}
	}
	return best
}

// #endregion disposition

var _ pipeline.Module = (*IntentScoring)(nil)
