// Command inspect dumps what the store knows: context records and their
// version history, run envelopes, and per-run audit traces.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/context-insight/internal/runlog"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to insight.db")
	contextID := flag.String("context", "", "show version history for one context")
	runsFor := flag.String("runs", "", "list runs for one context")
	runID := flag.String("run", "", "show one run's envelope and trace")
	last := flag.Int("last", 10, "limit history listings to N entries")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/insight.db [--context id | --runs id | --run id] [--last N] [--json]")
		os.Exit(2)
	}

	store, err := ucr.NewStore(*dbPath)
	if err != nil {
		fatal("open db: %v", err)
	}
	defer store.Close()

	runs, err := runlog.Attach(store.DB())
	if err != nil {
		fatal("open run log: %v", err)
	}

	switch {
	case *runID != "":
		err = showRun(runs, *runID, *jsonOut)
	case *runsFor != "":
		err = listRuns(runs, *runsFor, *last, *jsonOut)
	case *contextID != "":
		err = showVersions(store, *contextID, *last, *jsonOut)
	default:
		err = listContexts(store, *jsonOut)
	}
	if err != nil {
		fatal("error: %v", err)
	}
}

// #endregion main

// #region modes

func listContexts(store *ucr.Store, jsonOut bool) error {
	ids, err := store.ListContexts()
	if err != nil {
		return err
	}
	if jsonOut {
		return encode(ids)
	}
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "no contexts found")
		return nil
	}
	for _, id := range ids {
		rec, err := store.GetContext(id)
		if err != nil {
			return err
		}
		fmt.Printf("%-24s v%-3d %-16s sections=%d\n",
			rec.ID, rec.Version, rec.State, len(rec.AvailableSections()))
	}
	return nil
}

func showVersions(store *ucr.Store, contextID string, last int, jsonOut bool) error {
	records, err := store.ListVersions(contextID, last)
	if err != nil {
		return err
	}
	if jsonOut {
		return encode(records)
	}
	for _, rec := range records {
		sections := rec.AvailableSections()
		names := make([]string, len(sections))
		for i, s := range sections {
			names[i] = string(s)
		}
		fmt.Printf("v%-3d %-16s %s  %v\n",
			rec.Version, rec.State, rec.UpdatedAt.Format("2006-01-02 15:04"), names)
	}
	return nil
}

func listRuns(runs *runlog.Log, contextID string, last int, jsonOut bool) error {
	ids, err := runs.ListRuns(contextID, last)
	if err != nil {
		return err
	}
	if jsonOut {
		return encode(ids)
	}
	for _, id := range ids {
		env, err := runs.GetEnvelope(id)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %-20s v%-3d items=%-3d warnings=%d\n",
			env.GeneratedAt.Format("2006-01-02 15:04"), env.ModuleID,
			env.ContextVersion, len(env.Items), len(env.Warnings))
		fmt.Printf("  run_id=%s\n", env.RunID)
	}
	return nil
}

func showRun(runs *runlog.Log, runID string, jsonOut bool) error {
	env, err := runs.GetEnvelope(runID)
	if err != nil {
		return err
	}
	trace, err := runs.TraceForRun(runID)
	if err != nil {
		return err
	}
	if jsonOut {
		return encode(map[string]any{"envelope": env, "trace": trace})
	}

	fmt.Printf("%s run %s (context %s v%d)\n", env.ModuleID, env.RunID, env.ContextID, env.ContextVersion)
	fmt.Printf("  items=%d pass=%d review=%d out_of_play=%d\n",
		env.Summary.TotalItems, env.Summary.Passed, env.Summary.InReview, env.Summary.OutOfPlay)
	for _, w := range env.Warnings {
		fmt.Printf("  warning [%s] %s\n", w.Code, w.Message)
	}
	for _, it := range env.Items {
		fmt.Printf("  %-30s score=%.2f severity=%-8s %s\n", it.Name, it.Score, it.Tier, it.Outcome)
	}
	for _, t := range trace {
		fmt.Printf("  trace %-32s %s\n", t.RuleID, t.Reason)
	}
	return nil
}

// #endregion modes

// #region helpers

func encode(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// #endregion helpers
