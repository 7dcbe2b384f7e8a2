// Command insight runs one analysis module against a stored context record
// and prints the result envelope as JSON. Completed runs are persisted to the
// run log so diff-based modules accumulate history.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/context-insight/internal/batch"
	"github.com/danielpatrickdp/context-insight/internal/config"
	"github.com/danielpatrickdp/context-insight/internal/contract"
	"github.com/danielpatrickdp/context-insight/internal/modules"
	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/runlog"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
	"github.com/danielpatrickdp/context-insight/internal/websearch"
)

// #region main

func main() {
	cfgPath := flag.String("config", "", "optional YAML config file")
	contextID := flag.String("context", "", "context record ID to analyze")
	moduleID := flag.String("module", "", "module to run (or 'all')")
	paramsJSON := flag.String("params", "", "module parameters as JSON object")
	flag.Parse()

	if *contextID == "" || *moduleID == "" {
		fmt.Fprintln(os.Stderr, "usage: insight --context id --module name|all [--params '{...}'] [--config file]")
		os.Exit(2)
	}

	cfg := config.DefaultConfig()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fatal("load config: %v", err)
		}
		cfg = loaded
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fatal("logger: %v", err)
	}
	defer log.Sync()

	store, err := ucr.NewStore(cfg.DBPath)
	if err != nil {
		fatal("open store: %v", err)
	}
	defer store.Close()

	runs, err := runlog.Attach(store.DB())
	if err != nil {
		fatal("open run log: %v", err)
	}

	rec, err := store.GetContext(*contextID)
	if err != nil {
		fatal("load context %s: %v", *contextID, err)
	}

	params := map[string]any{}
	if *paramsJSON != "" {
		if err := json.Unmarshal([]byte(*paramsJSON), &params); err != nil {
			fatal("parse params: %v", err)
		}
	}

	deps := modules.Deps{PriorRun: runs}
	if sc := websearch.DefaultConfig(); sc.Enabled && sc.Endpoint != "" {
		deps.Search = websearch.New(sc)
		log.Info("web search enabled", zap.String("endpoint", sc.Endpoint))
	}
	runner := pipeline.NewRunner(log)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var envelopes []pipeline.Envelope
	if *moduleID == "all" {
		envelopes = runAll(ctx, runner, deps, rec, params, cfg.BatchLimit, log)
	} else {
		env, err := runOne(ctx, runner, deps, *moduleID, rec, params)
		if err != nil {
			fatal("%v", err)
		}
		envelopes = []pipeline.Envelope{env}
	}

	for _, env := range envelopes {
		if err := runs.Record(env); err != nil {
			log.Warn("persist run", zap.String("run_id", env.RunID), zap.Error(err))
		}
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	for _, env := range envelopes {
		if err := out.Encode(env); err != nil {
			fatal("encode envelope: %v", err)
		}
	}
}

// #endregion main

// #region run

func runOne(ctx context.Context, runner *pipeline.Runner, deps modules.Deps, moduleID string, rec ucr.Record, params map[string]any) (pipeline.Envelope, error) {
	m, err := moduleByID(moduleID, deps)
	if err != nil {
		return pipeline.Envelope{}, err
	}
	env, err := runner.Run(ctx, m, rec, params)
	if err != nil {
		// A gate refusal still hands back a valid envelope worth showing.
		fmt.Fprintf(os.Stderr, "run refused: %v\n", err)
	}
	return env, nil
}

func runAll(ctx context.Context, runner *pipeline.Runner, deps modules.Deps, rec ucr.Record, params map[string]any, limit int, log *zap.Logger) []pipeline.Envelope {
	ids := []string{
		contract.ModuleDemandTiming,
		contract.ModuleSERPSignals,
		contract.ModuleIntentScoring,
		contract.ModuleROIAttribution,
		contract.ModuleMessagingPatterns,
	}
	jobs := make([]batch.Job, 0, len(ids))
	for _, id := range ids {
		m, err := moduleByID(id, deps)
		if err != nil {
			continue
		}
		jobs = append(jobs, batch.Job{Module: m, Record: rec, Params: params})
	}

	results := batch.New(runner, limit, log).RunAll(ctx, jobs)
	envelopes := make([]pipeline.Envelope, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "run refused: %v\n", res.Err)
		}
		envelopes = append(envelopes, res.Envelope)
	}
	return envelopes
}

func moduleByID(id string, deps modules.Deps) (pipeline.Module, error) {
	switch id {
	case contract.ModuleDemandTiming:
		return modules.NewDemandTiming(deps), nil
	case contract.ModuleSERPSignals:
		return modules.NewSERPSignals(deps), nil
	case contract.ModuleIntentScoring:
		return modules.NewIntentScoring(deps), nil
	case contract.ModuleROIAttribution:
		return modules.NewROIAttribution(deps), nil
	case contract.ModuleMessagingPatterns:
		return modules.NewMessagingPatterns(deps), nil
	}
	return nil, fmt.Errorf("unknown module %q", id)
}

// #endregion run

// #region helpers

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return cfg.Build()
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// #endregion helpers
