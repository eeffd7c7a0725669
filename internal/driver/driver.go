// Package driver implements the stateless server-style driver (spec.md
// §4.G): a pure function façade around the scanner state machine, taking a
// serializable ScanState snapshot and a batch of newly completed results,
// and returning the next batch of jobs to run (or an empty batch on
// completion). No goroutine or process holds ScanState between calls; the
// HTTP driver facade (component J, pkg/api/rest) is the only caller that
// matters in practice, but this package has no HTTP dependency of its own.
package driver

import (
	"fmt"
	"sort"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/grid"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/griddef"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/scanner"
)

// Config describes a new scan: the dihedrals to drive, the grid they are
// scanned over, the energy_decrease_threshold, and the seed geometries.
type Config struct {
	Dihedrals       []scanner.Dihedral
	GridDims        []grid.DimConfig
	EnergyThreshold float64
	InitCoords      [][]float64
}

// ResultEntry is one completed optimization reported back to Advance:
// (start_geom, final_geom, final_energy, status), matching the tuple
// spec.md §4.G describes.
type ResultEntry struct {
	StartGeometry []float64
	FinalGeometry []float64
	FinalEnergy   float64
	Status        job.Status
}

// Batch maps a grid-point-string to the starting geometries of the jobs
// targeting it, the wire shape spec.md §4.G specifies for both Advance's
// input batch grouping and its output next-batch.
type Batch map[string][][]float64

// NewState creates a fresh ScanState from cfg and returns it along with the
// seed batch — equivalent to calling Advance against that state with an
// empty results mapping (spec.md §4.G invariant).
func NewState(cfg Config) (scanner.Snapshot, Batch, error) {
	threshold := cfg.EnergyThreshold
	if threshold == 0 {
		threshold = scanner.DefaultEnergyThreshold
	}

	g, err := grid.New(cfg.GridDims)
	if err != nil {
		return scanner.Snapshot{}, nil, fmt.Errorf("driver: building grid: %w", err)
	}

	state := scanner.NewState(g, cfg.Dihedrals, threshold)
	state.Seed(cfg.InitCoords)

	return state.Snapshot(), drainBatch(state), nil
}

// Advance applies every completed result in results to the ScanState
// encoded by snap, then drains the resulting wavefront into the next
// dispatchable batch. An empty returned Batch signifies the scan is
// finished (spec.md §4.G).
//
// The caller (the remote orchestrator driving the HTTP facade) is
// responsible for not reporting the same grid point's job as "in flight"
// to two concurrent Advance calls; ScanState carries no in-flight set of
// its own across the wire boundary, since nothing here is a continuously
// running process.
func Advance(snap scanner.Snapshot, results map[string][]ResultEntry) (scanner.Snapshot, Batch, error) {
	state, err := scanner.FromSnapshot(snap)
	if err != nil {
		return scanner.Snapshot{}, nil, fmt.Errorf("driver: restoring ScanState: %w", err)
	}

	for gridID, entries := range results {
		target, err := griddef.ParseKey(gridID)
		if err != nil {
			return scanner.Snapshot{}, nil, fmt.Errorf("driver: invalid grid-point key %q: %w", gridID, err)
		}
		for _, e := range entries {
			j := job.New(e.StartGeometry, target)
			rr := job.ResultRecord{
				StartGeometry: e.StartGeometry,
				FinalGeometry: e.FinalGeometry,
				FinalEnergy:   e.FinalEnergy,
				Status:        e.Status,
			}
			state.RecordResult(j, rr)
		}
	}

	return state.Snapshot(), drainBatch(state), nil
}

// CollectEnergies returns the grid_id -> best_energy table for every grid
// point (unreached points report +Inf), the same final output the in-process
// CLI prints (spec.md §6).
func CollectEnergies(snap scanner.Snapshot) (map[string]float64, error) {
	state, err := scanner.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("driver: restoring ScanState: %w", err)
	}
	return state.Energies(), nil
}

// SortedGridIDs returns the keys of an energies map in the lexicographic
// integer-tuple order spec.md §6 requires for the final CLI table.
func SortedGridIDs(energies map[string]float64) []string {
	ids := make([]string, 0, len(energies))
	for id := range energies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, _ := griddef.ParseKey(ids[i])
		pj, _ := griddef.ParseKey(ids[j])
		for k := 0; k < len(pi) && k < len(pj); k++ {
			if pi[k] != pj[k] {
				return pi[k] < pj[k]
			}
		}
		return len(pi) < len(pj)
	})
	return ids
}

// drainBatch pops every currently dispatchable job from state (resolving
// cached identities in-process, same as Runner.dispatchAll) and groups the
// genuinely new ones by target grid point.
func drainBatch(state *scanner.State) Batch {
	batch := make(Batch)
	for !state.Terminal() {
		j, cached, ok := state.PopDispatchable()
		if !ok {
			break
		}
		if cached != nil {
			state.RecordResult(j, *cached)
			continue
		}
		key := j.Target.Key()
		batch[key] = append(batch[key], j.StartGeometry)
	}
	if len(batch) == 0 {
		return Batch{}
	}
	return batch
}
