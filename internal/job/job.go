// Package job defines the plain-data Job and ResultRecord types that
// cross the optimizer boundary (spec.md §3, §4.B), and the deterministic
// identity fingerprint used to deduplicate work.
package job

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/griddef"
)

// RoundDecimals is the number of decimal places geometries are rounded to
// before hashing, so that floating-point noise at the bohr-rounding level
// does not change a job's identity (spec.md §4.B, §9).
const RoundDecimals = 6

// Status is the terminal state of a completed optimization.
type Status int

const (
	// StatusOK indicates the optimizer returned a usable geometry/energy.
	StatusOK Status = iota
	// StatusFailed indicates the optimizer failed or was cancelled.
	StatusFailed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	if s == StatusFailed {
		return "failed"
	}
	return "ok"
}

// Job is a single constrained optimization request: a starting geometry
// and the grid point its torsions should be driven to.
type Job struct {
	StartGeometry []float64
	Target        griddef.Point
	Identity      string
}

// New builds a Job and computes its identity fingerprint.
func New(startGeometry []float64, target griddef.Point) Job {
	return Job{
		StartGeometry: startGeometry,
		Target:        target,
		Identity:      Fingerprint(startGeometry, target),
	}
}

// ResultRecord is the outcome of a completed optimization (spec.md §3).
type ResultRecord struct {
	StartGeometry []float64
	FinalGeometry []float64
	FinalEnergy   float64
	Status        Status
}

// Fingerprint computes a stable identity over the canonicalized tuple
// (round(start_geometry, RoundDecimals), target), per spec.md §4.B. Two
// jobs with effectively the same start geometry aiming at the same grid
// point collide intentionally, so later submissions can be deduplicated
// against the task cache.
func Fingerprint(startGeometry []float64, target griddef.Point) string {
	var sb strings.Builder
	sb.WriteString(target.Key())
	sb.WriteByte('|')
	for _, v := range startGeometry {
		fmt.Fprintf(&sb, "%.*f,", RoundDecimals, roundTo(v, RoundDecimals))
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func roundTo(v float64, decimals int) float64 {
	scale := 1.0
	for i := 0; i < decimals; i++ {
		scale *= 10
	}
	if v >= 0 {
		return float64(int64(v*scale+0.5)) / scale
	}
	return float64(int64(v*scale-0.5)) / scale
}
