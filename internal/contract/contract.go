// Package contract holds the static execution contracts for analysis
// modules: which context sections a module needs, which lifecycle states it
// may run under, its declared parameters, and the explainability fields its
// output must carry.
package contract

import (
	"fmt"

	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region param-spec

// ParamType enumerates declared parameter types.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamInt    ParamType = "int"
	ParamFloat  ParamType = "float"
	ParamBool   ParamType = "bool"
)

// ParamSpec declares one input parameter of a module.
type ParamSpec struct {
	Name       string
	Type       ParamType
	Default    any
	Constraint string // human-readable constraint, e.g. "1..24"
}

// #endregion param-spec

// #region module-contract

// ModuleContract is the immutable descriptor for one analysis module.
type ModuleContract struct {
	ModuleID string

	RequiredSections []ucr.Section
	OptionalSections []ucr.Section
	AllowedStates    []ucr.LifecycleState

	// StrictOptional promotes missing optional sections from warning to error.
	StrictOptional bool

	Params []ParamSpec

	// OutputFields are the explainability fields every produced item must
	// carry (beyond disposition and trace, which are always mandatory).
	OutputFields []string
}

// AllowsState reports whether the contract permits execution in state s.
func (c ModuleContract) AllowsState(s ucr.LifecycleState) bool {
	for _, allowed := range c.AllowedStates {
		if allowed == s {
			return true
		}
	}
	return false
}

// #endregion module-contract

// #region registry

// Module identifiers.
const (
	ModuleDemandTiming      = "demand_timing"
	ModuleSERPSignals       = "serp_signals"
	ModuleIntentScoring     = "intent_scoring"
	ModuleROIAttribution    = "roi_attribution"
	ModuleMessagingPatterns = "messaging_patterns"
)

// analysisReadyStates are the states mature enough for any analysis at all.
var analysisReadyStates = []ucr.LifecycleState{
	ucr.StateAIReady, ucr.StateAIAnalyzed, ucr.StateHumanConfirmed, ucr.StateLocked,
}

// confirmedStates require a human to have signed off on the record.
var confirmedStates = []ucr.LifecycleState{
	ucr.StateHumanConfirmed, ucr.StateLocked,
}

// contracts is the static registry, keyed by module ID.
var contracts = map[string]ModuleContract{
	ModuleDemandTiming: {
		ModuleID: ModuleDemandTiming,
		RequiredSections: []ucr.Section{
			ucr.SectionBrandIdentity, ucr.SectionCategoryDefinition, ucr.SectionDemandDefinition,
		},
		OptionalSections: []ucr.Section{
			ucr.SectionStrategicIntent, ucr.SectionNegativeScope,
		},
		AllowedStates: analysisReadyStates,
		Params: []ParamSpec{
			{Name: "horizon_months", Type: ParamInt, Default: 6, Constraint: "1..24"},
			{Name: "geo", Type: ParamString, Default: ""},
		},
		OutputFields: []string{"seasonal_phase", "consistency", "confidence"},
	},
	ModuleSERPSignals: {
		ModuleID: ModuleSERPSignals,
		RequiredSections: []ucr.Section{
			ucr.SectionBrandIdentity, ucr.SectionCompetitiveSet,
		},
		OptionalSections: []ucr.Section{
			ucr.SectionStrategicIntent, ucr.SectionNegativeScope,
		},
		AllowedStates: confirmedStates,
		Params: []ParamSpec{
			{Name: "max_signals", Type: ParamInt, Default: 10, Constraint: "1..50"},
		},
		OutputFields: []string{"signal_kind", "competitor", "confidence"},
	},
	ModuleIntentScoring: {
		ModuleID: ModuleIntentScoring,
		RequiredSections: []ucr.Section{
			ucr.SectionBrandIdentity, ucr.SectionCategoryDefinition, ucr.SectionDemandDefinition,
		},
		OptionalSections: []ucr.Section{
			ucr.SectionStrategicIntent, ucr.SectionChannelContext, ucr.SectionNegativeScope,
		},
		AllowedStates: analysisReadyStates,
		Params: []ParamSpec{
			{Name: "min_alignment", Type: ParamFloat, Default: 0.0, Constraint: "0..1"},
		},
		OutputFields: []string{"intent_class", "alignment", "confidence"},
	},
	ModuleROIAttribution: {
		ModuleID: ModuleROIAttribution,
		RequiredSections: []ucr.Section{
			ucr.SectionBrandIdentity, ucr.SectionChannelContext, ucr.SectionGovernance,
		},
		OptionalSections: []ucr.Section{
			ucr.SectionStrategicIntent,
		},
		AllowedStates:  confirmedStates,
		StrictOptional: false,
		Params: []ParamSpec{
			{Name: "seed", Type: ParamInt, Default: 1, Constraint: ">=1"},
			{Name: "spend_total", Type: ParamFloat, Default: 10000.0, Constraint: ">0"},
		},
		OutputFields: []string{"channel", "attributed_share", "confidence"},
	},
	ModuleMessagingPatterns: {
		ModuleID: ModuleMessagingPatterns,
		RequiredSections: []ucr.Section{
			ucr.SectionBrandIdentity, ucr.SectionCompetitiveSet, ucr.SectionStrategicIntent,
		},
		OptionalSections: []ucr.Section{
			ucr.SectionNegativeScope,
		},
		AllowedStates: analysisReadyStates,
		Params: []ParamSpec{
			{Name: "max_patterns", Type: ParamInt, Default: 8, Constraint: "1..20"},
		},
		OutputFields: []string{"pattern", "competitors_using", "confidence"},
	},
}

// Registry returns all registered module contracts keyed by module ID.
// The returned map is a copy; contracts themselves are immutable.
func Registry() map[string]ModuleContract {
	out := make(map[string]ModuleContract, len(contracts))
	for id, c := range contracts {
		out[id] = c
	}
	return out
}

// Lookup returns the contract for a module ID.
func Lookup(moduleID string) (ModuleContract, error) {
	c, ok := contracts[moduleID]
	if !ok {
		return ModuleContract{}, fmt.Errorf("unknown module %q", moduleID)
	}
	return c, nil
}

// DefaultParams returns the declared default value per parameter name.
func (c ModuleContract) DefaultParams() map[string]any {
	out := make(map[string]any, len(c.Params))
	for _, p := range c.Params {
		out[p.Name] = p.Default
	}
	return out
}

// #endregion registry
