// Command bootstrap-context seeds the store with a context record so the
// analysis commands have something to run against. It reads a record from a
// JSON file, or writes a complete demo record when asked.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region main

func main() {
	dbPath := flag.String("db", "insight.db", "path to insight.db")
	fromFile := flag.String("file", "", "JSON file with the context record to store")
	demo := flag.Bool("demo", false, "seed a complete demo context record")
	state := flag.String("state", "", "override the record's lifecycle state before saving")
	flag.Parse()

	if *fromFile == "" && !*demo {
		fmt.Fprintln(os.Stderr, "usage: bootstrap-context --db insight.db (--file record.json | --demo) [--state locked]")
		os.Exit(2)
	}

	store, err := ucr.NewStore(*dbPath)
	if err != nil {
		fatal("open store: %v", err)
	}
	defer store.Close()

	var rec ucr.Record
	if *demo {
		rec = demoRecord()
	} else {
		rec, err = loadRecord(*fromFile)
		if err != nil {
			fatal("%v", err)
		}
	}
	if *state != "" {
		s := ucr.LifecycleState(*state)
		if !s.Valid() {
			fatal("invalid lifecycle state %q", *state)
		}
		rec.State = s
	}

	saved, err := store.Save(rec)
	if err != nil {
		fatal("save: %v", err)
	}
	fmt.Printf("stored %s v%d (%s) with %d sections\n",
		saved.ID, saved.Version, saved.State, len(saved.AvailableSections()))
}

// #endregion main

// #region record

// recordFile mirrors ucr.Record for JSON input.
type recordFile struct {
	ID    string `json:"id"`
	State string `json:"state"`

	Brand         *ucr.BrandIdentity      `json:"brand_identity,omitempty"`
	Category      *ucr.CategoryDefinition `json:"category_definition,omitempty"`
	Competitive   *ucr.CompetitiveSet     `json:"competitive_set,omitempty"`
	Demand        *ucr.DemandDefinition   `json:"demand_definition,omitempty"`
	Strategy      *ucr.StrategicIntent    `json:"strategic_intent,omitempty"`
	Channels      *ucr.ChannelContext     `json:"channel_context,omitempty"`
	NegativeScope *ucr.NegativeScope      `json:"negative_scope,omitempty"`
	Governance    *ucr.Governance         `json:"governance,omitempty"`
}

func loadRecord(path string) (ucr.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ucr.Record{}, fmt.Errorf("read record %s: %w", path, err)
	}
	var rf recordFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return ucr.Record{}, fmt.Errorf("parse record %s: %w", path, err)
	}
	if rf.ID == "" {
		return ucr.Record{}, fmt.Errorf("record %s: missing id", path)
	}
	return ucr.Record{
		ID:            rf.ID,
		State:         ucr.LifecycleState(rf.State),
		Brand:         rf.Brand,
		Category:      rf.Category,
		Competitive:   rf.Competitive,
		Demand:        rf.Demand,
		Strategy:      rf.Strategy,
		Channels:      rf.Channels,
		NegativeScope: rf.NegativeScope,
		Governance:    rf.Governance,
	}, nil
}

func demoRecord() ucr.Record {
	return ucr.Record{
		ID:    "demo-trailforge",
		State: ucr.StateLocked,
		Brand: &ucr.BrandIdentity{
			Name:   "TrailForge",
			Domain: "trailforge.com",
		},
		Category: &ucr.CategoryDefinition{
			PrimaryCategory: "hiking boots",
			CategoryTerms:   []string{"hiking boots", "trail footwear"},
		},
		Competitive: &ucr.CompetitiveSet{
			Competitors: []ucr.Competitor{
				{Name: "SummitStep", Domain: "summitstep.com", Tier: ucr.TierTop, Approved: true},
				{Name: "PeakWear", Domain: "peakwear.io", Tier: ucr.TierSecondary, Approved: true},
			},
		},
		Demand: &ucr.DemandDefinition{
			DemandThemes: []string{"waterproof hiking", "lightweight boots"},
			SeedQueries:  []string{"waterproof hiking boots", "lightweight trail boots"},
			Geo:          "US",
		},
		Strategy: &ucr.StrategicIntent{
			Priorities: []string{"waterproof", "durability"},
			Goals:      []string{"own the waterproof hiking message"},
		},
		Channels: &ucr.ChannelContext{
			Channels:       []string{"organic search", "paid social", "email"},
			PrimaryChannel: "organic search",
		},
		NegativeScope: &ucr.NegativeScope{
			ExcludedTerms: []string{"ski boots"},
		},
		Governance: &ucr.Governance{
			ApprovedBy: "demo",
			Thresholds: map[string]float64{},
		},
	}
}

// #endregion record

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
