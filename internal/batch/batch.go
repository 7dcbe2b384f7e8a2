// Package batch runs many independent analyses with bounded concurrency.
// Each job gets its own isolated run; one failing or refused job never
// affects its siblings, and work beyond the concurrency cap queues.
package batch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/context-insight/internal/pipeline"
	"github.com/danielpatrickdp/context-insight/internal/ucr"
)

// DefaultLimit caps in-flight runs to respect downstream rate limits.
const DefaultLimit = 3

// #region types

// Job is one module run against one context record.
type Job struct {
	Module pipeline.Module
	Record ucr.Record
	Params map[string]any
}

// Result pairs a job's envelope with its terminal error, positionally
// matched to the submitted jobs.
type Result struct {
	Envelope pipeline.Envelope
	Err      error
}

// Runner executes job batches over a shared pipeline runner.
type Runner struct {
	runner *pipeline.Runner
	limit  int
	log    *zap.Logger
}

// New builds a batch runner. A limit below 1 falls back to DefaultLimit and
// a nil logger runs silently.
func New(runner *pipeline.Runner, limit int, log *zap.Logger) *Runner {
	if limit < 1 {
		limit = DefaultLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{runner: runner, limit: limit, log: log}
}

// #endregion types

// #region run-all

// RunAll executes every job, at most limit at a time, and returns one result
// per job in submission order. Job failures are captured per result, never
// propagated across the batch.
func (r *Runner) RunAll(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(r.limit)
	for i, job := range jobs {
		g.Go(func() error {
			env, err := r.runner.Run(ctx, job.Module, job.Record, job.Params)
			results[i] = Result{Envelope: env, Err: err}
			if err != nil {
				r.log.Warn("batch job failed",
					zap.Int("job", i),
					zap.String("module", env.ModuleID),
					zap.String("context", job.Record.ID),
					zap.Error(err))
			}
			return nil
		})
	}
	g.Wait() // always nil: job errors live in results

	return results
}

// #endregion run-all
