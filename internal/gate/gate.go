// Package gate decides whether an analysis module may run against a context
// record, given the record's lifecycle state and which sections it has
// populated. Evaluation is pure and happens once per run, before any stage.
package gate

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/context-insight/internal/contract"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region evaluate

// Evaluate checks the lifecycle state first, then required sections, then
// optional sections. Lifecycle and required-section violations are fatal;
// missing optional sections degrade to warnings unless the contract is
// strict about them.
func Evaluate(state ucr.LifecycleState, available []ucr.Section, c contract.ModuleContract) Result {
	result := Result{}

	// 1. Lifecycle check. Fatal, and checked before anything else.
	if !state.Valid() {
		result.Errors = append(result.Errors,
			fmt.Sprintf("context lifecycle state %q is not a known state", state))
		return result
	}
	if !c.AllowsState(state) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("module %s does not run in lifecycle state %q (allowed: %s)",
				c.ModuleID, state, stateList(c.AllowedStates)))
		return result
	}

	availSet := make(map[ucr.Section]bool, len(available))
	for _, s := range available {
		availSet[s] = true
	}

	// 2. Required sections. Any gap is fatal.
	for _, s := range c.RequiredSections {
		if !availSet[s] {
			result.MissingRequired = append(result.MissingRequired, s)
			result.Errors = append(result.Errors,
				fmt.Sprintf("required section %q (%s) is missing", s, s.DisplayName()))
		}
	}
	if len(result.MissingRequired) > 0 {
		return result
	}

	// 3. Optional sections. Non-fatal by default; the run proceeds with a
	// degraded-confidence warning per gap.
	for _, s := range c.OptionalSections {
		if !availSet[s] {
			result.MissingOptional = append(result.MissingOptional, s)
			msg := fmt.Sprintf("optional section %q (%s) is missing; confidence will be reduced",
				s, s.DisplayName())
			if c.StrictOptional {
				result.Errors = append(result.Errors, msg)
			} else {
				result.Warnings = append(result.Warnings, msg)
			}
		}
	}
	if len(result.Errors) > 0 {
		return result
	}

	result.Allowed = true
	return result
}

// #endregion evaluate

// #region helpers

func stateList(states []ucr.LifecycleState) string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// #endregion helpers
