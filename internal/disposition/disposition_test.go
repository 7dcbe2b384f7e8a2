package disposition

import (
	"testing"

	"github.com/danielpatrickdp/context-insight/internal/severity"
)

func TestClassifyPass(t *testing.T) {
	d := Classify(0.9, severity.TierHigh, false, DefaultThresholds())
	if d.Outcome != Pass {
		t.Fatalf("expected pass, got %s (%s)", d.Outcome, d.Reason)
	}
	if d.RuleID != RuleScorePass {
		t.Fatalf("expected %s, got %s", RuleScorePass, d.RuleID)
	}
}

func TestClassifyReviewBand(t *testing.T) {
	d := Classify(0.5, severity.TierMedium, false, DefaultThresholds())
	if d.Outcome != Review {
		t.Fatalf("expected review, got %s", d.Outcome)
	}
}

func TestClassifyBelowReview(t *testing.T) {
	d := Classify(0.1, severity.TierHigh, false, DefaultThresholds())
	if d.Outcome != OutOfPlay {
		t.Fatalf("expected out_of_play, got %s", d.Outcome)
	}
}

func TestClassifyExclusionDominates(t *testing.T) {
	d := Classify(0.99, severity.TierCritical, true, DefaultThresholds())
	if d.Outcome != OutOfPlay {
		t.Fatalf("excluded item must be out_of_play, got %s", d.Outcome)
	}
	if d.RuleID != RuleExcluded {
		t.Fatalf("expected %s, got %s", RuleExcluded, d.RuleID)
	}
}

func TestClassifyLowSeverityCappedAtReview(t *testing.T) {
	d := Classify(0.9, severity.TierLow, false, DefaultThresholds())
	if d.Outcome != Review {
		t.Fatalf("low-severity item must cap at review, got %s", d.Outcome)
	}
	if d.RuleID != RuleLowSeverityCap {
		t.Fatalf("expected %s, got %s", RuleLowSeverityCap, d.RuleID)
	}
}

func TestClassifyEveryDecisionNamesARule(t *testing.T) {
	scores := []float64{0.0, 0.35, 0.5, 0.65, 1.0}
	for _, s := range scores {
		d := Classify(s, severity.TierMedium, false, DefaultThresholds())
		if d.RuleID == "" || d.Reason == "" {
			t.Fatalf("decision for score %v missing rule or reason: %+v", s, d)
		}
	}
}

func TestClassifyMonotonicInScore(t *testing.T) {
	th := DefaultThresholds()
	for _, tier := range []severity.Tier{severity.TierLow, severity.TierMedium, severity.TierHigh, severity.TierCritical} {
		prev := Classify(0.0, tier, false, th).Outcome
		for s := 0.05; s <= 1.0; s += 0.05 {
			cur := Classify(s, tier, false, th).Outcome
			if !Better(cur, prev) {
				t.Fatalf("tier %s: outcome worsened from %s to %s as score rose to %v", tier, prev, cur, s)
			}
			prev = cur
		}
	}
}
