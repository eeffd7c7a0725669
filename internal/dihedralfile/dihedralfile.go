// Package dihedralfile parses the dihedral definition file and renders
// the per-job constraint file consumed by an optimizer engine (spec.md
// §6). Indexing defaults to one-based and is converted to zero-based
// internally by subtracting 1. The source this was distilled from
// contains a suspicious `[i+i for i in d]` expression when applying
// zero-based numbering, which doubles indices rather than shifting them;
// that is a bug, not intent, and is not reproduced here (spec.md §9 Open
// Question 1).
package dihedralfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/grid"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
)

// Entry is one parsed line: an atom quadruple, and an optional explicit
// angle range (present only for 6-integer lines).
type Entry struct {
	Atoms [4]int // zero-based, after index-shift resolution
	Range *grid.Range
}

// Parse reads a dihedral file from r. zeroBased selects whether the file
// already uses zero-based atom indices; if false (the default), every
// atom index is shifted by -1. A `#zero_based_numbering` comment line
// inside the file overrides zeroBased for the rest of the file, matching
// the documented CLI flag of the same name (spec.md §6).
func Parse(r io.Reader, zeroBased bool) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if strings.Contains(line, "zero_based_numbering") {
				zeroBased = true
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 4 && len(fields) != 6 {
			return nil, fmt.Errorf("dihedralfile: line %d: expected 4 or 6 integers, got %d", lineNo, len(fields))
		}

		ints := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("dihedralfile: line %d: field %q is not an integer: %w", lineNo, f, err)
			}
			ints[i] = v
		}

		shift := -1
		if zeroBased {
			shift = 0
		}
		var atoms [4]int
		for i := 0; i < 4; i++ {
			atoms[i] = ints[i] + shift
		}

		entry := Entry{Atoms: atoms}
		if len(ints) == 6 {
			entry.Range = &grid.Range{Low: ints[4], High: ints[5]}
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dihedralfile: reading: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("dihedralfile: no dihedrals defined")
	}
	return entries, nil
}

// RenderConstraints produces the `$set` constraint block fixing each
// scanned dihedral in atoms at its corresponding value in targetDegrees
// (one-based atom indices, matching the optimizer engines' convention),
// followed by any user-supplied extra constraints (spec.md §6). Any line
// in extra naming one of the scanned dihedrals is dropped first, matching
// make_constraints_dict(..., exclude=dihedral_idxs) in the source this
// was distilled from: a scanned dihedral must only ever appear once, in
// the scanner's own $set block, never duplicated from the extra file.
func RenderConstraints(atoms [][4]int, targetDegrees []int, extra string) (string, error) {
	if len(atoms) != len(targetDegrees) {
		return "", fmt.Errorf("dihedralfile: %d dihedrals but %d target values", len(atoms), len(targetDegrees))
	}

	var sb strings.Builder
	sb.WriteString("$set\n")
	for i, a := range atoms {
		fmt.Fprintf(&sb, "dihedral %d %d %d %d %d\n", a[0]+1, a[1]+1, a[2]+1, a[3]+1, targetDegrees[i])
	}
	sb.WriteString("$end\n")

	filtered := excludeScannedDihedrals(extra, atoms)
	if strings.TrimSpace(filtered) != "" {
		sb.WriteString(filtered)
		if !strings.HasSuffix(filtered, "\n") {
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// excludeScannedDihedrals drops every "dihedral i j k l ..." line in extra
// whose one-based atom quadruple names one of the scanned dihedrals in
// atoms (in either traversal order, since i-j-k-l and l-k-j-i name the
// same torsion). Lines that aren't a dihedral constraint, and dihedral
// lines naming unrelated atoms, are passed through unchanged.
func excludeScannedDihedrals(extra string, atoms [][4]int) string {
	if strings.TrimSpace(extra) == "" {
		return extra
	}

	excluded := make(map[[4]int]bool, len(atoms)*2)
	for _, a := range atoms {
		oneBased := [4]int{a[0] + 1, a[1] + 1, a[2] + 1, a[3] + 1}
		excluded[oneBased] = true
		excluded[[4]int{oneBased[3], oneBased[2], oneBased[1], oneBased[0]}] = true
	}

	lines := strings.Split(extra, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if quad, ok := dihedralQuad(line); ok && excluded[quad] {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// dihedralQuad reports the one-based atom quadruple of a "dihedral i j k l
// [...]" constraint line, and whether line is such a line.
func dihedralQuad(line string) ([4]int, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 || !strings.EqualFold(fields[0], "dihedral") {
		return [4]int{}, false
	}
	var quad [4]int
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return [4]int{}, false
		}
		quad[i] = v
	}
	return quad, true
}

// NewRenderer binds a fixed set of scanned dihedral atom quadruples and
// extra constraint text into a function matching scanner.ConstraintRenderer
// (job.Job -> (string, error)), reading each job's target grid point as the
// per-dihedral angle to fix (spec.md §4.E Phase Dispatch).
func NewRenderer(atoms [][4]int, extra string) func(j job.Job) (string, error) {
	return func(j job.Job) (string, error) {
		if len(j.Target) != len(atoms) {
			return "", fmt.Errorf("dihedralfile: job targets %d dimensions but %d dihedrals configured", len(j.Target), len(atoms))
		}
		return RenderConstraints(atoms, []int(j.Target), extra)
	}
}
