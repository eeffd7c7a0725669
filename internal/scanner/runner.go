package scanner

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/optimizer"
	"github.com/therealutkarshpriyadarshi/torsionscan/pkg/observability"
)

// ConstraintRenderer produces the constraint-file text for a job
// (component H); it is injected so this package stays independent of the
// dihedral/constraint file format.
type ConstraintRenderer func(j job.Job) (string, error)

// Persister appends one completed (non-cached) optimization to durable
// storage, letting the CLI resume a long-running scan without repeating
// finished work (spec.md §4.F). It is invoked once per genuinely new
// engine result, never for a job short-circuited from the task cache
// (which was already logged the first time it completed).
type Persister func(identity, target string, rr job.ResultRecord) error

// Runner drives a State to completion against a live optimizer.Engine: the
// in-process counterpart of the server-style driver (component G), used
// directly by the CLI. It owns no state of its own beyond wiring.
type Runner struct {
	State       *State
	Engine      optimizer.Engine
	Constraints ConstraintRenderer
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	Persist     Persister
}

// Run executes Dispatch/Collect/Integrate until Pending is empty and no
// optimizer handle is outstanding (spec.md §4.E "Termination").
func (r *Runner) Run(ctx context.Context) error {
	outstanding := make(map[optimizer.Handle]job.Job)

	for !r.State.Terminal() || len(outstanding) > 0 {
		if err := r.dispatchAll(ctx, outstanding); err != nil {
			return err
		}
		if len(outstanding) == 0 {
			continue
		}
		if err := r.collectOne(ctx, outstanding); err != nil {
			return err
		}
	}
	return nil
}

// dispatchAll drains Pending: cached identities are integrated
// immediately in-process, everything else is submitted to the engine.
func (r *Runner) dispatchAll(ctx context.Context, outstanding map[optimizer.Handle]job.Job) error {
	for !r.State.Terminal() {
		j, cached, ok := r.State.PopDispatchable()
		if !ok {
			return nil
		}
		if cached != nil {
			r.integrate(j, *cached)
			continue
		}

		constraints := ""
		if r.Constraints != nil {
			var err error
			constraints, err = r.Constraints(j)
			if err != nil {
				return fmt.Errorf("scanner: rendering constraints for grid point %s: %w", j.Target.Key(), err)
			}
		}

		if r.Metrics != nil {
			r.Metrics.RecordSubmit()
		}
		h, err := r.Engine.Submit(ctx, j, constraints)
		if err != nil {
			return fmt.Errorf("scanner: submitting job for grid point %s: %w", j.Target.Key(), err)
		}
		outstanding[h] = j
	}
	return nil
}

// collectOne blocks (Phase Collect) until the engine reports at least one
// ready handle, then integrates every ready result.
func (r *Runner) collectOne(ctx context.Context, outstanding map[optimizer.Handle]job.Job) error {
	for {
		ready, err := r.Engine.PollReady(ctx)
		if err != nil {
			return fmt.Errorf("scanner: polling optimizer: %w", err)
		}
		if len(ready) > 0 {
			for _, h := range ready {
				j, known := outstanding[h]
				if !known {
					continue
				}
				delete(outstanding, h)
				rr, err := r.Engine.Collect(h)
				if err != nil {
					return fmt.Errorf("scanner: collecting handle %v: %w", h, err)
				}
				if r.Persist != nil {
					if err := r.Persist(j.Identity, j.Target.Key(), rr); err != nil {
						return fmt.Errorf("scanner: persisting result for grid point %s: %w", j.Target.Key(), err)
					}
				}
				r.integrate(j, rr)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			// A production async engine would block here on its own
			// transport; the reference engines in this module always
			// report ready synchronously, so this path is never busy-spun
			// in practice.
		}
	}
}

func (r *Runner) integrate(j job.Job, rr job.ResultRecord) {
	newJobs := r.State.RecordResult(j, rr)

	if r.Metrics != nil {
		r.Metrics.SetQueueDepth(r.State.Pending.Len())
	}

	switch rr.Status {
	case job.StatusFailed:
		if r.Metrics != nil {
			r.Metrics.RecordFailed()
		}
		if r.Logger != nil {
			r.Logger.LogGridFailed(j.Target.Key())
		}
	default:
		accepted := len(newJobs) > 0 || r.State.BestEnergy(j.Target) == rr.FinalEnergy
		if accepted && r.Metrics != nil {
			r.Metrics.RecordAccepted(j.Target.Key(), rr.FinalEnergy)
		}
		if accepted && r.Logger != nil {
			r.Logger.LogGridAccepted(j.Target.Key(), rr.FinalEnergy)
		}
	}
}
