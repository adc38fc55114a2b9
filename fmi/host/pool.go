package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofmu/gofmu/fmi"
	"github.com/gofmu/gofmu/fmi/trace"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Job is one independent instance to run. Each job owns its instance, and
// with it its registry; jobs share no state.
type Job struct {
	Instance   *fmi.Instance
	Experiment Experiment
	Trace      *trace.Trace
	// Metrics is optional and may be shared between jobs.
	Metrics *Metrics
}

// RunAll drives every job on its own goroutine, at most workers at a time
// (unbounded when workers < 1). Results are returned in job order.
//
// A step returning error fails only its own instance; the result records it
// and the other jobs continue. A fatal status, a host error or cancellation of
// ctx stops the remaining jobs and is returned.
func RunAll(ctx context.Context, jobs []Job, workers int) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = &Result{Instance: job.Instance.Name(), State: job.Instance.State()}
				return err
			}
			res, err := run(gctx, job.Instance, job.Experiment, job.Trace, job.Metrics)
			results[i] = res
			var stepErr *StepError
			if errors.As(err, &stepErr) && stepErr.Status != fmi.StatusFatal {
				logrus.Errorf("%v; continuing with the other instances", err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("running %s: %w", job.Instance.Name(), err)
			}
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

// Failed returns the results whose instance did not terminate cleanly.
func Failed(results []*Result) []*Result {
	var out []*Result
	for _, r := range results {
		if r != nil && r.State != fmi.StateTerminated {
			out = append(out, r)
		}
	}
	return out
}
