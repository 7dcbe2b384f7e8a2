// Package replay re-executes recorded extractions through the live pipeline
// and checks the dispositions against what the fixture expects. Fixtures are
// plain JSON so a failing production run can be snapshotted once and stepped
// through deterministically forever after.
package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/series"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string            `json:"description"`
	ModuleID    string            `json:"module_id"`
	Context     FixtureContext    `json:"context"`
	Params      map[string]any    `json:"params,omitempty"`
	Raw         []FixtureRaw      `json:"raw"`
	Now         time.Time         `json:"now"`
	Expected    []ExpectedOutcome `json:"expected_results"`
}

// FixtureContext mirrors ucr.Record with JSON tags.
type FixtureContext struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
	State   string `json:"state"`

	Brand         *ucr.BrandIdentity      `json:"brand_identity,omitempty"`
	Category      *ucr.CategoryDefinition `json:"category_definition,omitempty"`
	Competitive   *ucr.CompetitiveSet     `json:"competitive_set,omitempty"`
	Demand        *ucr.DemandDefinition   `json:"demand_definition,omitempty"`
	Strategy      *ucr.StrategicIntent    `json:"strategic_intent,omitempty"`
	Channels      *ucr.ChannelContext     `json:"channel_context,omitempty"`
	NegativeScope *ucr.NegativeScope      `json:"negative_scope,omitempty"`
	Governance    *ucr.Governance         `json:"governance,omitempty"`
}

// FixtureRaw mirrors one recorded extraction record.
type FixtureRaw struct {
	Kind   string            `json:"kind"`
	Name   string            `json:"name"`
	Text   string            `json:"text,omitempty"`
	Value  float64           `json:"value,omitempty"`
	Series []series.Point    `json:"series,omitempty"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// ExpectedOutcome pins the disposition and severity one item must reproduce.
type ExpectedOutcome struct {
	Name     string `json:"name"`
	Outcome  string `json:"outcome"`
	Severity string `json:"severity"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToRecord converts the fixture context to a domain record.
func (c *FixtureContext) ToRecord() ucr.Record {
	return ucr.Record{
		ID:            c.ID,
		Version:       c.Version,
		State:         ucr.LifecycleState(c.State),
		Brand:         c.Brand,
		Category:      c.Category,
		Competitive:   c.Competitive,
		Demand:        c.Demand,
		Strategy:      c.Strategy,
		Channels:      c.Channels,
		NegativeScope: c.NegativeScope,
		Governance:    c.Governance,
	}
}

// ToRaw converts the recorded extraction records to pipeline input.
func (f *Fixture) ToRaw() []pipeline.Raw {
	out := make([]pipeline.Raw, 0, len(f.Raw))
	for _, r := range f.Raw {
		out = append(out, pipeline.Raw{
			Kind:   r.Kind,
			Name:   r.Name,
			Text:   r.Text,
			Value:  r.Value,
			Series: r.Series,
			Meta:   r.Meta,
		})
	}
	return out
}

// #endregion fixture-loader
