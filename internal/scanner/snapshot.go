package scanner

import (
	"fmt"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/grid"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/griddef"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/pqueue"
)

// SchemaVersion identifies the shape of Snapshot, so the HTTP driver facade
// (component J) can reject a payload from an incompatible future version
// instead of silently misreading it (spec.md §6 "self-describing mapping").
const SchemaVersion = 1

// GridStatusEntry is one serializable GridStatus record.
type GridStatusEntry struct {
	Point    griddef.Point
	Energy   float64
	Geometry []float64
}

// Snapshot is the plain-data, JSON-marshalable form of ScanState (spec.md
// §6's "server-API payload"): schema version, dihedrals, grid configuration,
// grid_status, task_cache and a priority_queue snapshot. It is what
// component G's driver facade persists between HTTP requests.
type Snapshot struct {
	SchemaVersion     int
	Dihedrals         []Dihedral
	GridDims          []grid.DimConfig
	EnergyThreshold   float64
	GridStatus        []GridStatusEntry
	TaskCache         map[string]job.ResultRecord
	Pending           []pqueue.Entry
	CurrentBestEnergy float64
}

// Snapshot captures s as a plain-data Snapshot.
func (s *State) Snapshot() Snapshot {
	gridStatus := make([]GridStatusEntry, 0, len(s.GridStatus))
	for key, rec := range s.GridStatus {
		p, err := griddef.ParseKey(key)
		if err != nil {
			panic("scanner: corrupt GridStatus key " + key + ": " + err.Error())
		}
		gridStatus = append(gridStatus, GridStatusEntry{Point: p, Energy: rec.Energy, Geometry: rec.Geometry})
	}

	taskCache := make(map[string]job.ResultRecord, len(s.TaskCache))
	for k, v := range s.TaskCache {
		taskCache[k] = v
	}

	return Snapshot{
		SchemaVersion:     SchemaVersion,
		Dihedrals:         append([]Dihedral(nil), s.Dihedrals...),
		GridDims:          s.Grid.Dims(),
		EnergyThreshold:   s.EnergyThreshold,
		GridStatus:        gridStatus,
		TaskCache:         taskCache,
		Pending:           s.Pending.Snapshot(),
		CurrentBestEnergy: s.CurrentBestEnergy,
	}
}

// FromSnapshot rebuilds a State from a Snapshot produced by (*State).Snapshot,
// restoring GridStatus, TaskCache, Pending and CurrentBestEnergy exactly.
// In-flight marks are not part of a snapshot: jobs handed out in a batch
// and not yet reported back are not tracked across calls. A snapshot whose
// SchemaVersion differs from SchemaVersion is rejected.
func FromSnapshot(snap Snapshot) (*State, error) {
	if snap.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("scanner: snapshot schema version %d, want %d", snap.SchemaVersion, SchemaVersion)
	}
	g, err := grid.New(snap.GridDims)
	if err != nil {
		return nil, err
	}

	s := NewState(g, snap.Dihedrals, snap.EnergyThreshold)
	for _, e := range snap.GridStatus {
		s.GridStatus[e.Point.Key()] = &BestRecord{Energy: e.Energy, Geometry: e.Geometry}
	}
	for k, v := range snap.TaskCache {
		s.TaskCache[k] = v
	}
	s.Pending = pqueue.Restore(snap.Pending)
	s.CurrentBestEnergy = snap.CurrentBestEnergy
	return s, nil
}
