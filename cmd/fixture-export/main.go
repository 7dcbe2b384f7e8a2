// Command fixture-export snapshots a persisted run as a replay fixture. The
// context record is pinned at the version the run used, the clock at the
// run's timestamp, and the expected results at the dispositions the run
// produced, so the fixture replays cleanly until the pipeline logic changes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/context-insight/internal/contract"
	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/replay"
	"github.com/danielpatrickdp/context-insight/internal/runlog"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region main

func main() {
	dbPath := flag.String("db", "insight.db", "path to insight.db")
	runID := flag.String("run", "", "run ID to export")
	outPath := flag.String("out", "", "output file (default stdout)")
	description := flag.String("description", "", "fixture description")
	flag.Parse()

	if *runID == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db insight.db --run id [--out fixture.json] [--description text]")
		os.Exit(2)
	}

	store, err := ucr.NewStore(*dbPath)
	if err != nil {
		fatal("open store: %v", err)
	}
	defer store.Close()

	runs, err := runlog.Attach(store.DB())
	if err != nil {
		fatal("open run log: %v", err)
	}

	env, err := runs.GetEnvelope(*runID)
	if err != nil {
		fatal("load run %s: %v", *runID, err)
	}
	rec, err := store.GetVersion(env.ContextID, env.ContextVersion)
	if err != nil {
		fatal("load context %s v%d: %v", env.ContextID, env.ContextVersion, err)
	}

	f := buildFixture(env, rec, *description)
	if len(f.Raw) == 0 {
		fmt.Fprintf(os.Stderr, "note: %s extraction is not reconstructible from stored items; fill in the raw records by hand\n", env.ModuleID)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		fatal("encode fixture: %v", err)
	}
	data = append(data, '\n')

	if *outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		fatal("write %s: %v", *outPath, err)
	}
	fmt.Printf("wrote %s (%d raw records, %d expectations)\n", *outPath, len(f.Raw), len(f.Expected))
}

// #endregion main

// #region build

func buildFixture(env pipeline.Envelope, rec ucr.Record, description string) replay.Fixture {
	if description == "" {
		description = fmt.Sprintf("exported from run %s", env.RunID)
	}
	f := replay.Fixture{
		Description: description,
		ModuleID:    env.ModuleID,
		Context: replay.FixtureContext{
			ID:            rec.ID,
			Version:       rec.Version,
			State:         string(rec.State),
			Brand:         rec.Brand,
			Category:      rec.Category,
			Competitive:   rec.Competitive,
			Demand:        rec.Demand,
			Strategy:      rec.Strategy,
			Channels:      rec.Channels,
			NegativeScope: rec.NegativeScope,
			Governance:    rec.Governance,
		},
		Raw: rawFromItems(env),
		Now: env.GeneratedAt,
	}
	for _, it := range env.Items {
		f.Expected = append(f.Expected, replay.ExpectedOutcome{
			Name:     it.Name,
			Outcome:  string(it.Outcome),
			Severity: it.Tier,
		})
	}
	return f
}

// rawFromItems rebuilds the extraction records for the modules whose raw
// input survives in the item fields. Series- and text-driven extractions
// (demand_timing, messaging_patterns) cannot be recovered from an envelope.
func rawFromItems(env pipeline.Envelope) []replay.FixtureRaw {
	var raw []replay.FixtureRaw
	switch env.ModuleID {
	case contract.ModuleSERPSignals:
		for _, it := range env.Items {
			r := replay.FixtureRaw{Kind: "serp_result", Name: it.Name}
			if rank, ok := it.Fields["rank"].(float64); ok {
				r.Value = rank
			}
			raw = append(raw, r)
		}
	case contract.ModuleIntentScoring:
		for _, it := range env.Items {
			raw = append(raw, replay.FixtureRaw{Kind: "keyword", Name: it.Name})
		}
	case contract.ModuleROIAttribution:
		// Normalized shares re-normalize to themselves, so they stand in
		// for the original simulation weights.
		for _, it := range env.Items {
			raw = append(raw, replay.FixtureRaw{Kind: "channel_sim", Name: it.Name, Value: it.RawMagnitude})
		}
	}
	return raw
}

// #endregion build

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
