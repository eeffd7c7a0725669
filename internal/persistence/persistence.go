// Package persistence implements the append-only scan log: every
// completed optimization is recorded as it completes, and a prior log is
// replayed into a fresh task_cache before seeding so that long-running
// scans can be interrupted and resumed without repeating finished work
// (spec.md §4.F).
package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
)

// Record is one line of the persisted scan log: (identity, start_geom,
// target_grid, final_geom, final_energy, status), plus a configuration
// signature used to detect a replay mismatch (spec.md §7 error kind 4).
// Unknown trailing JSON fields are ignored on replay, keeping the format
// forward-compatible (spec.md §6).
type Record struct {
	Identity      string    `json:"identity"`
	Target        string    `json:"target"`
	ConfigSig     string    `json:"config_sig"`
	StartGeometry []float64 `json:"start_geom"`
	FinalGeometry []float64 `json:"final_geom"`
	FinalEnergy   float64   `json:"final_energy"`
	Status        string    `json:"status"`
}

// statusString renders a job.Status for the log.
func statusString(s job.Status) string {
	return s.String()
}

// parseStatus parses a logged status string, defaulting unknown values to
// failed (never silently treating an unrecognized status as ok).
func parseStatus(s string) job.Status {
	if s == "ok" {
		return job.StatusOK
	}
	return job.StatusFailed
}

// Log is the single-writer, append-only scan log file.
type Log struct {
	mu         sync.Mutex
	f          *os.File
	syncWrites bool
}

// Open opens (creating if necessary) the log file at path for appending.
func Open(path string, syncWrites bool) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("persistence: opening log %s: %w", path, err)
	}
	return &Log{f: f, syncWrites: syncWrites}, nil
}

// Append writes one completed optimization to the log.
func (l *Log) Append(identity, target, configSig string, rr job.ResultRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		Identity:      identity,
		Target:        target,
		ConfigSig:     configSig,
		StartGeometry: rr.StartGeometry,
		FinalGeometry: rr.FinalGeometry,
		FinalEnergy:   rr.FinalEnergy,
		Status:        statusString(rr.Status),
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("persistence: marshaling record for %s: %w", identity, err)
	}
	line = append(line, '\n')
	if _, err := l.f.Write(line); err != nil {
		return fmt.Errorf("persistence: appending record for %s: %w", identity, err)
	}
	if l.syncWrites {
		if err := l.f.Sync(); err != nil {
			return fmt.Errorf("persistence: syncing log: %w", err)
		}
	}
	return nil
}

// Close closes the underlying log file.
func (l *Log) Close() error {
	return l.f.Close()
}

// ResultRecord converts a logged Record back into a job.ResultRecord.
func (r Record) ResultRecord() job.ResultRecord {
	return job.ResultRecord{
		StartGeometry: r.StartGeometry,
		FinalGeometry: r.FinalGeometry,
		FinalEnergy:   r.FinalEnergy,
		Status:        parseStatus(r.Status),
	}
}

// ReplayResult summarizes a log replay. TaskCache is the deduplication
// map a dispatcher checks before resubmitting a job; Ordered is the same
// accepted records in file (= original completion) order, needed to
// reconstruct the wavefront a resumed scan had reached rather than merely
// its dedup cache (spec.md §8 scenario 5).
type ReplayResult struct {
	TaskCache  map[string]job.ResultRecord
	Ordered    []Record
	Replayed   int
	Mismatched int
}

// Replay reads every record in the log at path. A record whose ConfigSig
// disagrees with the caller's current configSig is discarded rather than
// trusted (spec.md §7 error kind 4: "the cache entry is discarded and the
// job re-run"). A missing log file is not an error: it replays as empty,
// matching a fresh scan.
func Replay(path string, configSig string) (ReplayResult, error) {
	result := ReplayResult{TaskCache: make(map[string]job.ResultRecord)}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("persistence: opening log %s for replay: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return result, fmt.Errorf("persistence: malformed record at line %d: %w", lineNo, err)
		}
		if rec.ConfigSig != configSig {
			result.Mismatched++
			continue
		}
		result.TaskCache[rec.Identity] = rec.ResultRecord()
		result.Ordered = append(result.Ordered, rec)
		result.Replayed++
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("persistence: reading log %s: %w", path, err)
	}
	return result, nil
}
