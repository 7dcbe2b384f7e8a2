package modules

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/danielpatrickdp/context-insight/internal/contract"
	"github.com/danielpatrickdp/context-insight/internal/enrich"
	"github.com/danielpatrickdp/context-insight/internal/match"
	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/severity"
)

// #region module

// MessagingPatterns mines competitor positioning copy for the recurring
// messages they lean on, then scores each message against the brand's own
// strategic priorities: a heavily used message the strategy also claims is a
// contested battleground worth deciding about.
type MessagingPatterns struct {
	deps Deps
}

// NewMessagingPatterns builds the module around its collaborators.
func NewMessagingPatterns(deps Deps) *MessagingPatterns {
	return &MessagingPatterns{deps: deps}
}

// Contract returns the module's static execution contract.
func (m *MessagingPatterns) Contract() contract.ModuleContract {
	c, _ := contract.Lookup(contract.ModuleMessagingPatterns)
	return c
}

// #endregion module

// #region extract

// Extract gathers positioning copy per competitor from the search provider's
// snippets. Without a provider the strategy's own goals seed the pattern set
// so the run still surfaces which messages the brand intends to claim.
func (m *MessagingPatterns) Extract(rc *pipeline.RunContext) ([]pipeline.Raw, error) {
	rc.UseSection("competitive_set")
	if rc.Record.Competitive == nil || len(rc.Record.Competitive.Competitors) == 0 {
		rc.Warn(pipeline.CodeInsufficientData, "competitive set lists no competitors to mine")
		return nil, nil
	}

	if m.deps.Search == nil {
		rc.MarkSourceUnavailable(sourceSearchProvider, "no search provider configured")
		return m.fallbackRaw(rc), nil
	}

	var raw []pipeline.Raw
	for _, c := range rc.Record.Competitive.Competitors {
		results, err := m.deps.Search.Search(rc.Context(), c.Name+" positioning", 3)
		if err != nil {
			rc.MarkSourceUnavailable(sourceSearchProvider, err.Error())
			return m.fallbackRaw(rc), nil
		}
		var copyParts []string
		for _, r := range results {
			copyParts = append(copyParts, r.Title, r.Snippet)
		}
		raw = append(raw, pipeline.Raw{
			Kind: "positioning_copy",
			Name: c.Name,
			Text: strings.Join(copyParts, " "),
		})
	}
	rc.MarkSourceAvailable(sourceSearchProvider)
	rc.Trace("messaging_patterns.extract", "competitive_set",
		fmt.Sprintf("collected positioning copy for %d competitors", len(raw)), "info")
	return raw, nil
}

// fallbackRaw seeds the pattern set from the brand's own strategic goals.
func (m *MessagingPatterns) fallbackRaw(rc *pipeline.RunContext) []pipeline.Raw {
	rc.Trace("messaging_patterns.fallback", "strategic_intent",
		"search provider unavailable; mining the brand's own goals instead of competitor copy", "warning")
	if rc.Record.Strategy == nil {
		return nil
	}
	rc.UseSection("strategic_intent")
	var raw []pipeline.Raw
	for _, goal := range rc.Record.Strategy.Goals {
		raw = append(raw, pipeline.Raw{Kind: "positioning_copy", Name: "self", Text: goal})
	}
	return raw
}

// #endregion extract

// #region transform

// Transform distills the copy into pattern clusters: the tokens most shared
// across competitors, each becoming one cluster item whose magnitude is how
// many competitors use it.
func (m *MessagingPatterns) Transform(rc *pipeline.RunContext, raw []pipeline.Raw) ([]pipeline.Item, error) {
	maxPatterns := rc.IntParam("max_patterns", 8)

	usage := map[string]map[string]bool{} // token -> competitors using it
	for _, r := range raw {
		for _, tok := range match.Tokenize(r.Text) {
			if m.isEntityToken(rc, tok) {
				continue
			}
			if usage[tok] == nil {
				usage[tok] = map[string]bool{}
			}
			usage[tok][r.Name] = true
		}
	}

	type pattern struct {
		token string
		users []string
	}
	patterns := make([]pattern, 0, len(usage))
	for tok, users := range usage {
		names := make([]string, 0, len(users))
		for n := range users {
			names = append(names, n)
		}
		sort.Strings(names)
		patterns = append(patterns, pattern{token: tok, users: names})
	}
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i].users) != len(patterns[j].users) {
			return len(patterns[i].users) > len(patterns[j].users)
		}
		return patterns[i].token < patterns[j].token
	})
	if len(patterns) > maxPatterns {
		patterns = patterns[:maxPatterns]
		rc.AddFilter(fmt.Sprintf("max_patterns=%d", maxPatterns))
	}

	items := make([]pipeline.Item, 0, len(patterns))
	for _, p := range patterns {
		items = append(items, pipeline.Item{
			Type:         pipeline.ItemCluster,
			Name:         p.token,
			RawMagnitude: float64(len(p.users)),
			Fields: map[string]any{
				"pattern":           p.token,
				"competitors_using": p.users,
			},
		})
	}
	return items, nil
}

// isEntityToken filters brand and competitor names out of the pattern pool.
func (m *MessagingPatterns) isEntityToken(rc *pipeline.RunContext, tok string) bool {
	if rc.Record.Brand != nil && strings.EqualFold(tok, rc.Record.Brand.Name) {
		return true
	}
	if rc.Record.Competitive != nil {
		for _, c := range rc.Record.Competitive.Competitors {
			for _, nameTok := range match.Tokenize(c.Name) {
				if tok == nameTok {
					return true
				}
			}
		}
	}
	return false
}

// #endregion transform

// #region correlate-score

// Correlate measures each pattern against the brand's strategic priorities.
func (m *MessagingPatterns) Correlate(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	rc.UseSection("strategic_intent")
	var vocab []string
	if rc.Record.Strategy != nil {
		vocab = append(vocab, rc.Record.Strategy.Priorities...)
		vocab = append(vocab, rc.Record.Strategy.Goals...)
	}
	for i := range items {
		items[i].Alignment = match.AlignmentScore(items[i].Name, vocab)
	}
	return items, nil
}

// Score weighs competitive usage breadth against strategic overlap. Usage is
// normalized by the competitive set size so scores stay comparable across
// contexts of different sizes.
func (m *MessagingPatterns) Score(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, error) {
	setSize := 1.0
	if rc.Record.Competitive != nil && len(rc.Record.Competitive.Competitors) > 0 {
		setSize = float64(len(rc.Record.Competitive.Competitors))
	}
	for i := range items {
		usageShare := clamp01(items[i].RawMagnitude / setSize)
		items[i].Score = math.Round((usageShare*0.5+items[i].Alignment*0.5)*100) / 100
	}
	return items, nil
}

// #endregion correlate-score

// #region disposition

// Disposition classifies patterns and flags the most contested message: the
// one most competitors use that the strategy also claims.
func (m *MessagingPatterns) Disposition(rc *pipeline.RunContext, items []pipeline.Item) ([]pipeline.Item, []pipeline.Decision, error) {
	th := thresholdsFor(rc.Record)
	for i := range items {
		it := &items[i]
		it.Excluded = excludedByScope(rc.Record, it.Name)
		if it.Excluded {
			rc.UseSection("negative_scope")
		}
		base := severity.TierMedium
		if it.RawMagnitude >= 2 {
			base = severity.TierHigh // multiple competitors lean on it
		}
		applyAdjustment(rc, it, base, "")
		it.Fields["confidence"] = it.Severity.String()
		classify(rc, it, th)
	}

	var decisions []pipeline.Decision
	for _, it := range items {
		if it.Excluded || it.Alignment == 0 || it.RawMagnitude < 2 {
			continue
		}
		users, _ := it.Fields["competitors_using"].([]string)
		ins := insightFor(rc.Context(), m.deps.Enricher, enrich.KindMessaging, it.Name, nil)
		decisions = append(decisions, pipeline.Decision{
			Signal:         fmt.Sprintf("Message %q is contested: claimed by strategy and used by %d competitors", it.Name, int(it.RawMagnitude)),
			Confidence:     it.Severity,
			Action:         pipeline.ActionInvestigate,
			Evidence:       append([]string{it.Name}, users...),
			Impact:         ins.Impact,
			Recommendation: ins.Recommendation,
		})
		if len(decisions) == 3 {
			break
		}
	}
	return items, decisions, nil
}

// #endregion disposition

var _ pipeline.Module = (*MessagingPatterns)(nil)
