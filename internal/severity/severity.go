// Package severity implements the four-level severity/confidence scale and
// the context-alignment adjustment rules applied to raw statistical signals.
package severity

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/context-insight/internal/match"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region tier

// Tier is an integer-backed severity level. The scale is totally ordered
// and saturating: step operations never wrap past the ends.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
	TierCritical
)

var tierNames = map[Tier]string{
	TierLow:      "low",
	TierMedium:   "medium",
	TierHigh:     "high",
	TierCritical: "critical",
}

// String returns the lowercase tier name.
func (t Tier) String() string {
	if n, ok := tierNames[t]; ok {
		return n
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Valid reports whether t is on the scale.
func (t Tier) Valid() bool {
	return t >= TierLow && t <= TierCritical
}

// Bump moves one step up, saturating at critical.
func (t Tier) Bump() Tier {
	if t >= TierCritical {
		return TierCritical
	}
	return t + 1
}

// Lower moves one step down, saturating at low.
func (t Tier) Lower() Tier {
	if t <= TierLow {
		return TierLow
	}
	return t - 1
}

// ParseTier maps a tier name to its value; unknown names come back as
// (TierLow, false).
func ParseTier(name string) (Tier, bool) {
	for t, n := range tierNames {
		if n == name {
			return t, true
		}
	}
	return TierLow, false
}

// #endregion tier

// #region descriptor

// ItemDescriptor is what the scorer knows about the item being adjusted.
type ItemDescriptor struct {
	Text       string // keyword, signal description, or pattern text
	Competitor string // associated competitor name, empty when none
}

// AppliedRule records one adjustment step for the item's trace.
type AppliedRule struct {
	RuleID string
	Reason string
	From   Tier
	To     Tier
}

// #endregion descriptor

// #region adjust

// Rule identifiers recorded in traces.
const (
	RulePriorityBoost     = "severity.priority_boost"
	RuleCompetitorBoost   = "severity.competitor_boost"
	RuleExclusionSuppress = "severity.exclusion_suppress"
)

// Adjust applies the context-alignment rules to a base severity in fixed
// order: strategic-priority overlap bumps once, approved top-tier competitor
// association bumps once, and a negative-scope match lowers twice. The double
// lower is intentional: suppressing excluded content outweighs any single
// relevance boost. Steps compose sequentially and saturate at the scale ends.
func Adjust(base Tier, d ItemDescriptor, rec ucr.Record) (Tier, []AppliedRule) {
	current := base
	var applied []AppliedRule

	if priorities := rec.PriorityTerms(); match.OverlapsAny(d.Text, priorities) {
		next := current.Bump()
		applied = append(applied, AppliedRule{
			RuleID: RulePriorityBoost,
			Reason: "item overlaps a strategic priority term",
			From:   current,
			To:     next,
		})
		current = next
	}

	if d.Competitor != "" && isTopCompetitor(d.Competitor, rec) {
		next := current.Bump()
		applied = append(applied, AppliedRule{
			RuleID: RuleCompetitorBoost,
			Reason: fmt.Sprintf("associated with approved top-tier competitor %q", d.Competitor),
			From:   current,
			To:     next,
		})
		current = next
	}

	if exclusions := rec.ExclusionTerms(); match.OverlapsAny(d.Text, exclusions) {
		for i := 0; i < 2; i++ {
			next := current.Lower()
			applied = append(applied, AppliedRule{
				RuleID: RuleExclusionSuppress,
				Reason: "item matches a negative-scope exclusion term",
				From:   current,
				To:     next,
			})
			current = next
		}
	}

	return current, applied
}

// isTopCompetitor reports whether name matches an approved top-tier entry in
// the competitive set (case-insensitive exact name match).
func isTopCompetitor(name string, rec ucr.Record) bool {
	for _, c := range rec.TopCompetitors() {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// #endregion adjust
