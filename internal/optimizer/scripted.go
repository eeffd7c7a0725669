package optimizer

import (
	"context"
	"fmt"
	"sync"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
)

// ScriptedOutcome is the pre-programmed result a Scripted engine returns
// for one submitted job.
type ScriptedOutcome struct {
	FinalEnergy   float64
	FinalGeometry []float64
	Fail          bool
}

// Scripted is a deterministic, in-memory Engine used only in tests: it
// looks up a pre-programmed outcome for each submitted job and completes
// synchronously, so scanner behavior is fully reproducible (spec.md §8).
// It is safe for concurrent use.
type Scripted struct {
	mu        sync.Mutex
	outcomeOf func(j job.Job) ScriptedOutcome
	results   map[Handle]job.ResultRecord
	ready     []Handle
	nextSeq   int
	Submitted []job.Job // records every job passed to Submit, in order
}

// NewScripted builds a Scripted engine that computes each job's outcome
// via outcomeOf.
func NewScripted(outcomeOf func(j job.Job) ScriptedOutcome) *Scripted {
	return &Scripted{
		outcomeOf: outcomeOf,
		results:   make(map[Handle]job.ResultRecord),
	}
}

// Submit implements Engine. The outcome is computed and queued ready
// immediately, modeling a synchronous local runner.
func (s *Scripted) Submit(_ context.Context, j job.Job, _ string) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	h := Handle(fmt.Sprintf("scripted-%d", s.nextSeq))
	s.Submitted = append(s.Submitted, j)

	outcome := s.outcomeOf(j)
	status := job.StatusOK
	if outcome.Fail {
		status = job.StatusFailed
	}
	s.results[h] = job.ResultRecord{
		StartGeometry: j.StartGeometry,
		FinalGeometry: outcome.FinalGeometry,
		FinalEnergy:   outcome.FinalEnergy,
		Status:        status,
	}
	s.ready = append(s.ready, h)
	return h, nil
}

// PollReady implements Engine, draining every handle completed since the
// last call.
func (s *Scripted) PollReady(_ context.Context) ([]Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ready := s.ready
	s.ready = nil
	return ready, nil
}

// Collect implements Engine.
func (s *Scripted) Collect(h Handle) (job.ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rr, ok := s.results[h]
	if !ok {
		return job.ResultRecord{}, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	delete(s.results, h)
	return rr, nil
}
