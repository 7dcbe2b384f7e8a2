// Package disposition sorts every scored item into one of three final
// outcomes: pass (actionable), review (surface for human judgment), or
// out-of-play (excluded, retained only in the audit trace).
package disposition

import (
	"fmt"

	"github.com/danielpatrickdp/context-insight/internal/severity"
)

// #region outcome

// Outcome is the three-way disposition of an analyzed item.
type Outcome string

const (
	Pass      Outcome = "pass"
	Review    Outcome = "review"
	OutOfPlay Outcome = "out_of_play"
)

// #endregion outcome

// #region thresholds

// Thresholds are the module-specific score cutoffs. PassMin must be at
// least ReviewMin so the mapping stays monotonic in the score.
type Thresholds struct {
	PassMin   float64
	ReviewMin float64
}

// DefaultThresholds returns the cutoffs shared by most modules.
func DefaultThresholds() Thresholds {
	return Thresholds{PassMin: 0.65, ReviewMin: 0.35}
}

// #endregion thresholds

// #region decision

// Rule identifiers recorded in traces.
const (
	RuleExcluded       = "disposition.excluded"
	RuleScorePass      = "disposition.score_pass"
	RuleScoreReview    = "disposition.score_review"
	RuleScoreBelow     = "disposition.score_below_review"
	RuleLowSeverityCap = "disposition.low_severity_cap"
)

// Decision is a classified outcome plus the rule that produced it.
type Decision struct {
	Outcome Outcome
	RuleID  string
	Reason  string
}

// Classify maps a scored item to its outcome. Exclusion dominates
// everything; otherwise the score decides, and a low severity tier caps the
// outcome at review so weak signals never pass silently. Higher scores never
// yield a worse outcome than lower scores for the same tier and exclusion
// state.
func Classify(score float64, tier severity.Tier, excluded bool, th Thresholds) Decision {
	if excluded {
		return Decision{
			Outcome: OutOfPlay,
			RuleID:  RuleExcluded,
			Reason:  "item matches the context's negative scope; hidden by default",
		}
	}

	switch {
	case score >= th.PassMin:
		if tier == severity.TierLow {
			return Decision{
				Outcome: Review,
				RuleID:  RuleLowSeverityCap,
				Reason:  fmt.Sprintf("score %.2f clears pass threshold %.2f but severity is low; flagged for human judgment", score, th.PassMin),
			}
		}
		return Decision{
			Outcome: Pass,
			RuleID:  RuleScorePass,
			Reason:  fmt.Sprintf("score %.2f meets pass threshold %.2f", score, th.PassMin),
		}
	case score >= th.ReviewMin:
		return Decision{
			Outcome: Review,
			RuleID:  RuleScoreReview,
			Reason:  fmt.Sprintf("score %.2f in review band [%.2f, %.2f)", score, th.ReviewMin, th.PassMin),
		}
	default:
		return Decision{
			Outcome: OutOfPlay,
			RuleID:  RuleScoreBelow,
			Reason:  fmt.Sprintf("score %.2f below review threshold %.2f", score, th.ReviewMin),
		}
	}
}

// rank orders outcomes from worst to best for monotonicity checks.
func rank(o Outcome) int {
	switch o {
	case OutOfPlay:
		return 0
	case Review:
		return 1
	case Pass:
		return 2
	}
	return -1
}

// Better reports whether outcome a is at least as good as b.
func Better(a, b Outcome) bool {
	return rank(a) >= rank(b)
}

// #endregion decision
