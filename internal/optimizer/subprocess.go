package optimizer

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
)

// Subprocess is an Engine that renders each job's input with a
// TemplateEngine, shells out to a configured QM program command, and parses
// its output for the final energy and geometry. It runs each optimization
// synchronously inside Submit and reports ready immediately, matching the
// single-local-process mode of the CLI (spec.md §6: `--wq_port` selects a
// distributed dispatcher instead; that variant is out of scope here, only
// its flag plumbing is implemented by cmd/torsionscan).
//
// Output convention: the command's stdout ends with a line `ENERGY <float>`
// followed by one `x y z` triplet per atom until end of output. Real
// engine-specific output parsers are intentionally not implemented — the
// scanner treats every optimization as a black box (spec.md §1 Non-goals),
// so this module owns only the wiring, not quantum chemistry.
type Subprocess struct {
	Command  string
	Template TemplateEngine
	WorkDir  string

	mu      sync.Mutex
	results map[Handle]job.ResultRecord
	nextSeq int
}

// NewSubprocess builds a Subprocess engine invoking command (e.g. the path
// to a wrapper script around psi4/qchem/terachem) for every job, rendering
// its input with template.
func NewSubprocess(command string, template TemplateEngine, workDir string) *Subprocess {
	return &Subprocess{
		Command:  command,
		Template: template,
		WorkDir:  workDir,
		results:  make(map[Handle]job.ResultRecord),
	}
}

// Submit renders j's input, runs the configured command against it, and
// parses the result synchronously.
func (s *Subprocess) Submit(ctx context.Context, j job.Job, constraints string) (Handle, error) {
	input, err := s.Template.Render(j, constraints)
	if err != nil {
		return "", fmt.Errorf("optimizer: rendering input for grid point %s: %w", j.Target.Key(), err)
	}

	s.mu.Lock()
	seq := s.nextSeq
	s.nextSeq++
	s.mu.Unlock()

	dir := s.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	inputPath := filepath.Join(dir, fmt.Sprintf("torsionscan-job-%d-%s.in", seq, j.Identity[:12]))
	if err := os.WriteFile(inputPath, []byte(input), 0o644); err != nil {
		return "", fmt.Errorf("optimizer: writing input file %s: %w", inputPath, err)
	}

	cmd := exec.CommandContext(ctx, s.Command, inputPath)
	out, runErr := cmd.Output()

	handle := Handle(fmt.Sprintf("h-%d", seq))
	rr := job.ResultRecord{StartGeometry: j.StartGeometry}
	if runErr != nil {
		rr.Status = job.StatusFailed
	} else if energy, geometry, parseErr := parseOutput(out); parseErr != nil {
		rr.Status = job.StatusFailed
	} else {
		rr.Status = job.StatusOK
		rr.FinalEnergy = energy
		rr.FinalGeometry = geometry
	}

	s.mu.Lock()
	s.results[handle] = rr
	s.mu.Unlock()

	return handle, nil
}

// PollReady reports every submitted handle not yet collected as ready,
// since Submit runs its command synchronously before returning.
func (s *Subprocess) PollReady(ctx context.Context) ([]Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ready := make([]Handle, 0, len(s.results))
	for h := range s.results {
		ready = append(ready, h)
	}
	return ready, nil
}

// Collect returns and removes the result for handle.
func (s *Subprocess) Collect(handle Handle) (job.ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rr, ok := s.results[handle]
	if !ok {
		return job.ResultRecord{}, ErrUnknownHandle
	}
	delete(s.results, handle)
	return rr, nil
}

// parseOutput parses the `ENERGY <float>` + coordinate-triplet convention
// documented on Subprocess.
func parseOutput(out []byte) (float64, []float64, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	var energy float64
	sawEnergy := false
	var geometry []float64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ENERGY") {
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return 0, nil, fmt.Errorf("optimizer: malformed ENERGY line %q", line)
			}
			e, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return 0, nil, fmt.Errorf("optimizer: malformed ENERGY value %q: %w", fields[1], err)
			}
			energy, sawEnergy = e, true
			continue
		}
		if sawEnergy {
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return 0, nil, fmt.Errorf("optimizer: malformed coordinate line %q", line)
			}
			for _, f := range fields {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return 0, nil, fmt.Errorf("optimizer: malformed coordinate value %q: %w", f, err)
				}
				geometry = append(geometry, v)
			}
		}
	}
	if !sawEnergy {
		return 0, nil, fmt.Errorf("optimizer: output had no ENERGY line")
	}
	if err := scanner.Err(); err != nil {
		return 0, nil, err
	}
	return energy, geometry, nil
}
