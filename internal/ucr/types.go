package ucr

import "time"

// #region lifecycle

// LifecycleState is the maturity level of a context record. States are
// ordered; a record only moves forward except by explicit human edit.
type LifecycleState string

const (
	StateDraft          LifecycleState = "draft"
	StateAIReady        LifecycleState = "ai_ready"
	StateAIAnalyzed     LifecycleState = "ai_analyzed"
	StateHumanConfirmed LifecycleState = "human_confirmed"
	StateLocked         LifecycleState = "locked"
)

// lifecycleOrder maps each state to its position in the maturity ladder.
var lifecycleOrder = map[LifecycleState]int{
	StateDraft:          0,
	StateAIReady:        1,
	StateAIAnalyzed:     2,
	StateHumanConfirmed: 3,
	StateLocked:         4,
}

// Valid reports whether s is a known lifecycle state.
func (s LifecycleState) Valid() bool {
	_, ok := lifecycleOrder[s]
	return ok
}

// Rank returns the position of s in the maturity ladder, -1 for unknown states.
func (s LifecycleState) Rank() int {
	if r, ok := lifecycleOrder[s]; ok {
		return r
	}
	return -1
}

// AllStates returns every lifecycle state in maturity order.
func AllStates() []LifecycleState {
	return []LifecycleState{StateDraft, StateAIReady, StateAIAnalyzed, StateHumanConfirmed, StateLocked}
}

// #endregion lifecycle

// #region sections

// Section names one of the eight independently present-or-absent partitions
// of a context record.
type Section string

const (
	SectionBrandIdentity      Section = "brand_identity"
	SectionCategoryDefinition Section = "category_definition"
	SectionCompetitiveSet     Section = "competitive_set"
	SectionDemandDefinition   Section = "demand_definition"
	SectionStrategicIntent    Section = "strategic_intent"
	SectionChannelContext     Section = "channel_context"
	SectionNegativeScope      Section = "negative_scope"
	SectionGovernance         Section = "governance"
)

// displayNames gives each section a human-readable name for warnings.
var displayNames = map[Section]string{
	SectionBrandIdentity:      "Brand Identity",
	SectionCategoryDefinition: "Category Definition",
	SectionCompetitiveSet:     "Competitive Set",
	SectionDemandDefinition:   "Demand Definition",
	SectionStrategicIntent:    "Strategic Intent",
	SectionChannelContext:     "Channel Context",
	SectionNegativeScope:      "Negative Scope",
	SectionGovernance:         "Governance & Thresholds",
}

// DisplayName returns the human-readable name of the section.
func (s Section) DisplayName() string {
	if n, ok := displayNames[s]; ok {
		return n
	}
	return string(s)
}

// AllSections returns every section in canonical order.
func AllSections() []Section {
	return []Section{
		SectionBrandIdentity, SectionCategoryDefinition, SectionCompetitiveSet,
		SectionDemandDefinition, SectionStrategicIntent, SectionChannelContext,
		SectionNegativeScope, SectionGovernance,
	}
}

// #endregion sections

// #region section-payloads

// BrandIdentity describes the brand under analysis.
type BrandIdentity struct {
	Name        string   `json:"name"`
	Domain      string   `json:"domain"`
	Aliases     []string `json:"aliases,omitempty"`
	Description string   `json:"description,omitempty"`
}

// CategoryDefinition scopes the market category the brand competes in.
type CategoryDefinition struct {
	PrimaryCategory string   `json:"primary_category"`
	CategoryTerms   []string `json:"category_terms,omitempty"`
	Subcategories   []string `json:"subcategories,omitempty"`
}

// CompetitorTier ranks how seriously a competitor is taken.
type CompetitorTier string

const (
	TierTop       CompetitorTier = "top"
	TierSecondary CompetitorTier = "secondary"
	TierEmerging  CompetitorTier = "emerging"
)

// Competitor is a single entry in the competitive set.
type Competitor struct {
	Name     string         `json:"name"`
	Domain   string         `json:"domain,omitempty"`
	Tier     CompetitorTier `json:"tier"`
	Approved bool           `json:"approved"`
}

// CompetitiveSet lists known competitors with their tier and approval state.
type CompetitiveSet struct {
	Competitors []Competitor `json:"competitors"`
}

// DemandDefinition describes what demand the brand serves and where.
type DemandDefinition struct {
	DemandThemes []string `json:"demand_themes,omitempty"`
	SeedQueries  []string `json:"seed_queries,omitempty"`
	Geo          string   `json:"geo,omitempty"`
}

// StrategicIntent captures the priorities analysis should align with.
type StrategicIntent struct {
	Priorities  []string `json:"priorities,omitempty"`
	Goals       []string `json:"goals,omitempty"`
	TimeHorizon string   `json:"time_horizon,omitempty"`
}

// ChannelContext records where the brand is active.
type ChannelContext struct {
	Channels       []string `json:"channels,omitempty"`
	PrimaryChannel string   `json:"primary_channel,omitempty"`
}

// NegativeScope lists what analysis must suppress.
type NegativeScope struct {
	ExcludedTerms       []string `json:"excluded_terms,omitempty"`
	ExcludedCompetitors []string `json:"excluded_competitors,omitempty"`
	ExcludedCategories  []string `json:"excluded_categories,omitempty"`
}

// Governance holds approval metadata and tunable thresholds.
type Governance struct {
	ApprovedBy string             `json:"approved_by,omitempty"`
	Thresholds map[string]float64 `json:"thresholds,omitempty"`
}

// #endregion section-payloads

// #region record

// Record is the versioned unified context record: the single source of truth
// for a business entity under analysis. Each section pointer is nil when the
// section has not been populated.
type Record struct {
	ID      string
	Version int
	State   LifecycleState

	Brand         *BrandIdentity
	Category      *CategoryDefinition
	Competitive   *CompetitiveSet
	Demand        *DemandDefinition
	Strategy      *StrategicIntent
	Channels      *ChannelContext
	NegativeScope *NegativeScope
	Governance    *Governance

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSection reports whether the named section is populated.
func (r Record) HasSection(s Section) bool {
	switch s {
	case SectionBrandIdentity:
		return r.Brand != nil
	case SectionCategoryDefinition:
		return r.Category != nil
	case SectionCompetitiveSet:
		return r.Competitive != nil
	case SectionDemandDefinition:
		return r.Demand != nil
	case SectionStrategicIntent:
		return r.Strategy != nil
	case SectionChannelContext:
		return r.Channels != nil
	case SectionNegativeScope:
		return r.NegativeScope != nil
	case SectionGovernance:
		return r.Governance != nil
	}
	return false
}

// AvailableSections returns the populated sections in canonical order.
func (r Record) AvailableSections() []Section {
	var out []Section
	for _, s := range AllSections() {
		if r.HasSection(s) {
			out = append(out, s)
		}
	}
	return out
}

// PriorityTerms returns the strategic priority terms, empty when the
// strategic intent section is absent.
func (r Record) PriorityTerms() []string {
	if r.Strategy == nil {
		return nil
	}
	return r.Strategy.Priorities
}

// ExclusionTerms returns the negative-scope exclusion terms, empty when the
// negative scope section is absent.
func (r Record) ExclusionTerms() []string {
	if r.NegativeScope == nil {
		return nil
	}
	return r.NegativeScope.ExcludedTerms
}

// TopCompetitors returns approved top-tier competitors, empty when the
// competitive set section is absent.
func (r Record) TopCompetitors() []Competitor {
	if r.Competitive == nil {
		return nil
	}
	var out []Competitor
	for _, c := range r.Competitive.Competitors {
		if c.Tier == TierTop && c.Approved {
			out = append(out, c)
		}
	}
	return out
}

// #endregion record
