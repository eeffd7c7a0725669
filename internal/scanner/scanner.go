// Package scanner implements the wavefront dihedral scan: the core state
// machine that pops the best pending job, submits it, integrates its
// result into the per-grid best-energy table, and enqueues successor jobs
// for its neighbors (spec.md §3, §4.E). This is the heart of the module;
// everything else exists to feed it inputs or drain its outputs.
package scanner

import (
	"fmt"
	"math"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/geom"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/grid"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/griddef"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/pqueue"
)

// DefaultEnergyThreshold is the default energy_decrease_threshold
// (spec.md §4.E): a result must improve on the current best by more than
// this to be accepted, preventing oscillation from numerical noise.
const DefaultEnergyThreshold = 1e-5

// Dihedral is the zero-based atom quadruple (i, j, k, l) defining one
// scanned torsion.
type Dihedral [4]int

// BestRecord is the per-GridPoint best result seen so far (spec.md §3).
// A record whose Energy is +Inf has never been set; use Known.
type BestRecord struct {
	Energy   float64
	Geometry []float64
}

// Known reports whether this record has ever been set by an accepted
// result.
func (b BestRecord) Known() bool {
	return !math.IsInf(b.Energy, 1)
}

// State is ScanState (spec.md §3): the single piece of persistent state
// the scanner owns. Nothing is deleted from it during a scan; GridStatus
// and TaskCache entries are append- or monotonically-improve-only.
type State struct {
	Grid            *grid.Model
	Dihedrals       []Dihedral
	EnergyThreshold float64

	GridStatus        map[string]*BestRecord
	Pending           *pqueue.Queue
	TaskCache         map[string]job.ResultRecord
	CurrentBestEnergy float64

	inFlight map[string]bool
}

// NewState builds an empty ScanState over g, scanning the given
// dihedrals, with the given energy_decrease_threshold.
func NewState(g *grid.Model, dihedrals []Dihedral, energyThreshold float64) *State {
	return &State{
		Grid:              g,
		Dihedrals:         dihedrals,
		EnergyThreshold:   energyThreshold,
		GridStatus:        make(map[string]*BestRecord),
		Pending:           pqueue.New(),
		TaskCache:         make(map[string]job.ResultRecord),
		CurrentBestEnergy: math.Inf(1),
		inFlight:          make(map[string]bool),
	}
}

// BestEnergy returns the current best energy at p, or +Inf if p has never
// been accepted.
func (s *State) BestEnergy(p griddef.Point) float64 {
	if r, ok := s.GridStatus[p.Key()]; ok {
		return r.Energy
	}
	return math.Inf(1)
}

// BestGeometry returns the geometry of the current best record at p, or
// nil if p has never been accepted.
func (s *State) BestGeometry(p griddef.Point) []float64 {
	if r, ok := s.GridStatus[p.Key()]; ok {
		return r.Geometry
	}
	return nil
}

// Energies returns grid_id -> best_energy for every point on the grid,
// including points never reached (reported as +Inf), matching the
// "distinguish unreachable from finite" requirement of spec.md §7 error
// kind 3.
func (s *State) Energies() map[string]float64 {
	out := make(map[string]float64, len(s.GridStatus))
	for _, p := range s.Grid.Enumerate() {
		out[p.Key()] = math.Inf(1)
	}
	for key, r := range s.GridStatus {
		out[key] = r.Energy
	}
	return out
}

// Seed enqueues one job per provided starting geometry, quantized to its
// nearest grid point, with priority_energy +Inf and insertion sequence
// following submission order (Phase Seed, spec.md §4.E). It returns the
// seed jobs in the order they were enqueued.
func (s *State) Seed(seedGeometries [][]float64) []job.Job {
	idx := dihedralIndices(s.Dihedrals)
	jobs := make([]job.Job, 0, len(seedGeometries))
	for _, geo := range seedGeometries {
		angles := geom.AllDihedrals(geo, idx)
		target := s.Grid.QuantizePoint(angles)
		j := job.New(geo, target)
		s.Pending.Push(j, math.Inf(1))
		jobs = append(jobs, j)
	}
	return jobs
}

// PopDispatchable pops the next job to run (Phase Dispatch, spec.md
// §4.E). Three outcomes are possible:
//
//   - ok=false: the queue is empty.
//   - rr!=nil: the job's identity is already in TaskCache; the caller
//     should feed rr straight to RecordResult without submitting
//     anything to the optimizer.
//   - rr==nil, ok=true: a genuinely new job to submit. It is marked
//     in-flight so a second, not-yet-completed duplicate pending entry
//     with the same identity is dropped rather than resubmitted
//     (invariant: no two optimizations with identical identity are ever
//     submitted in one run).
func (s *State) PopDispatchable() (job.Job, *job.ResultRecord, bool) {
	for {
		j, _, ok := s.Pending.Pop()
		if !ok {
			return job.Job{}, nil, false
		}
		if rr, cached := s.TaskCache[j.Identity]; cached {
			return j, &rr, true
		}
		if s.inFlight[j.Identity] {
			continue
		}
		s.inFlight[j.Identity] = true
		return j, nil, true
	}
}

// RecordResult stores a completed result in TaskCache and runs Phase
// Integrate, returning the successor jobs it enqueued (empty if the
// result was rejected or failed).
func (s *State) RecordResult(j job.Job, rr job.ResultRecord) []job.Job {
	delete(s.inFlight, j.Identity)
	s.TaskCache[j.Identity] = rr
	return s.integrate(rr)
}

// integrate implements Phase Integrate (spec.md §4.E).
func (s *State) integrate(rr job.ResultRecord) []job.Job {
	if rr.Status == job.StatusFailed {
		return nil
	}

	idx := dihedralIndices(s.Dihedrals)
	angles := geom.AllDihedrals(rr.FinalGeometry, idx)
	landing := s.Grid.QuantizePoint(angles)

	current := s.BestEnergy(landing)
	accept := math.IsInf(current, 1) || rr.FinalEnergy+s.EnergyThreshold < current
	if !accept {
		return nil
	}

	s.setBest(landing, rr.FinalEnergy, rr.FinalGeometry)

	var newJobs []job.Job
	for _, q := range s.Grid.Neighbors(landing) {
		nj := job.New(rr.FinalGeometry, q)
		if _, cached := s.TaskCache[nj.Identity]; cached {
			continue
		}
		s.Pending.Push(nj, rr.FinalEnergy)
		newJobs = append(newJobs, nj)
	}
	return newJobs
}

// setBest records a new best at p, panicking if it would violate the
// monotonic-non-increasing invariant (spec.md §7: "any internal invariant
// violation... is a programmer error and must terminate the process with
// a clear diagnostic").
func (s *State) setBest(p griddef.Point, energy float64, geometry []float64) {
	key := p.Key()
	rec, ok := s.GridStatus[key]
	if !ok {
		rec = &BestRecord{Energy: math.Inf(1)}
		s.GridStatus[key] = rec
	}
	if energy > rec.Energy {
		panic(fmt.Sprintf("scanner: best_energy invariant violated at grid point %s: new %v > existing %v", key, energy, rec.Energy))
	}
	rec.Energy = energy
	rec.Geometry = geometry
	if energy < s.CurrentBestEnergy {
		s.CurrentBestEnergy = energy
	}
}

// ConfigSignature returns a stable signature of this scan's dihedral
// indices and grid configuration, for use as the persistence layer's
// replay-mismatch key (spec.md §7 error kind 4).
func (s *State) ConfigSignature() string {
	sig := s.Grid.Signature()
	for _, d := range s.Dihedrals {
		sig += fmt.Sprintf("|%d-%d-%d-%d", d[0], d[1], d[2], d[3])
	}
	return sig
}

// LoadTaskCache primes TaskCache from a persistence replay without
// reconstructing GridStatus or Pending. This is enough for a dispatcher
// that already has its own serialized grid_status/pending_jobs (component
// G's driver facade persists the whole ScanState, not just a log); it is
// not enough, by itself, to resume the log-only CLI scan — see Replay.
func (s *State) LoadTaskCache(cache map[string]job.ResultRecord) {
	for identity, rr := range cache {
		s.TaskCache[identity] = rr
	}
}

// ReplayEntry is one previously-completed result to be re-applied to a
// freshly constructed State, in original completion order.
type ReplayEntry struct {
	Identity string
	Result   job.ResultRecord
}

// Replay reconstructs GridStatus and the pending wavefront from a
// sequence of previously-completed results, by re-running Phase Integrate
// for each one in the order it originally completed. This is how the
// log-only CLI scan resumes: Seed() re-enqueues the original seed jobs
// afterward, and since their identities (and every already-propagated
// neighbor's identity) are now in TaskCache, they short-circuit on
// dispatch exactly as spec.md §4.F describes, reaching the same frontier
// the original run had without repeating any live optimization
// (spec.md §8 scenario 5).
func (s *State) Replay(entries []ReplayEntry) {
	for _, e := range entries {
		s.RecordResult(job.Job{Identity: e.Identity}, e.Result)
	}
}

// Terminal reports whether the scan has nothing left to dispatch.
// Combined with zero outstanding optimizer handles, this is the
// termination condition of spec.md §4.E.
func (s *State) Terminal() bool {
	return s.Pending.Len() == 0
}

func dihedralIndices(ds []Dihedral) [][4]int {
	out := make([][4]int, len(ds))
	for i, d := range ds {
		out[i] = [4]int(d)
	}
	return out
}
