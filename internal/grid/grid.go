// Package grid implements the dihedral grid model: quantizing angles onto
// a discrete N-torus, enumerating its grid points, and computing the
// neighbors of a point (spec.md §4.A).
package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/griddef"
)

// Default range bounds when a dihedral has no explicit configured range.
const (
	defaultLow  = -180
	defaultHigh = 180
	period      = 360
)

var (
	// ErrInvalidSpacing indicates a non-positive grid spacing.
	ErrInvalidSpacing = errors.New("grid: spacing must be a positive number of degrees")
	// ErrInvalidRange indicates a range violating spec.md's documented
	// semantics: low >= -180, high <= 180, low < high.
	ErrInvalidRange = errors.New("grid: range must satisfy -180 <= low < high <= 180")
	// ErrNoDimensions indicates a Model was constructed with zero dihedrals.
	ErrNoDimensions = errors.New("grid: model must have at least one dimension")
)

// Range is an explicit, non-wrapping angle range for one dihedral,
// inclusive of both ends. A nil *Range means the default wrapping
// [-180, 180) domain applies.
type Range struct {
	Low  int
	High int
}

// DimConfig is the per-dihedral configuration of the grid: its spacing in
// degrees, and an optional explicit range.
type DimConfig struct {
	Spacing int
	Range   *Range
}

// Model is the grid over one or more dihedral dimensions.
type Model struct {
	dims []DimConfig
	// legal[i] is the sorted list of legal integer values for dimension i.
	legal [][]int
}

// New validates dims and builds a Model. Range validation follows the
// documented semantics of spec.md §9 Open Question 2 (low >= -180, high <=
// 180, low < high), not the inverted expression found in the source.
func New(dims []DimConfig) (*Model, error) {
	if len(dims) == 0 {
		return nil, ErrNoDimensions
	}

	legal := make([][]int, len(dims))
	for i, d := range dims {
		if d.Spacing <= 0 {
			return nil, fmt.Errorf("%w (dimension %d: %d)", ErrInvalidSpacing, i, d.Spacing)
		}
		low, high := defaultLow, defaultHigh
		wrap := true
		if d.Range != nil {
			if d.Range.Low < -180 || d.Range.High > 180 || d.Range.Low >= d.Range.High {
				return nil, fmt.Errorf("%w (dimension %d: [%d, %d])", ErrInvalidRange, i, d.Range.Low, d.Range.High)
			}
			low, high = d.Range.Low, d.Range.High
			wrap = false
		}
		legal[i] = legalValues(low, high, d.Spacing, wrap)
	}

	return &Model{dims: dims, legal: legal}, nil
}

// legalValues enumerates {low + k*spacing : low+k*spacing <= high}. When
// wrap is true (no explicit range configured), the top value equal to
// low+360 is excluded because it is the same physical angle as low
// (spec.md's 1-D example with spacing 60 yields 6 points, not 7).
func legalValues(low, high, spacing int, wrap bool) []int {
	var out []int
	for v := low; v <= high; v += spacing {
		if wrap && v >= low+period {
			break
		}
		out = append(out, v)
	}
	return out
}

// NDim returns the number of scanned dimensions.
func (m *Model) NDim() int {
	return len(m.dims)
}

// Dims returns a copy of this model's per-dimension configuration, for
// serializing a ScanState snapshot (spec.md §6).
func (m *Model) Dims() []DimConfig {
	out := make([]DimConfig, len(m.dims))
	copy(out, m.dims)
	return out
}

// Signature returns a stable string encoding of this grid's configuration
// (spacing and range per dimension), used to detect a persistence replay
// mismatch against a differently-configured scan (spec.md §7 error kind
// 4: "different dihedrals or spacing").
func (m *Model) Signature() string {
	var sb strings.Builder
	for i, d := range m.dims {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, "s=%d", d.Spacing)
		if d.Range != nil {
			fmt.Fprintf(&sb, ",r=%d:%d", d.Range.Low, d.Range.High)
		}
	}
	return sb.String()
}

// Enumerate returns every grid point in the N-torus, in dimension-major
// lexicographic order.
func (m *Model) Enumerate() []griddef.Point {
	var out []griddef.Point
	cur := make(griddef.Point, len(m.dims))
	var rec func(dim int)
	rec = func(dim int) {
		if dim == len(m.dims) {
			out = append(out, cur.Clone())
			return
		}
		for _, v := range m.legal[dim] {
			cur[dim] = v
			rec(dim + 1)
		}
	}
	rec(0)
	return out
}

// Neighbors returns the grid points one step away from p in each
// dimension, in dimension-major order with the positive step before the
// negative step (spec.md §4.A). A step that wraps is only taken when the
// dimension has no configured range; a step that leaves an explicit range
// is dropped.
func (m *Model) Neighbors(p griddef.Point) []griddef.Point {
	var out []griddef.Point
	for dim, cfg := range m.dims {
		for _, sign := range []int{1, -1} {
			stepped := p[dim] + sign*cfg.Spacing
			v, ok := m.stepValue(dim, stepped)
			if !ok {
				continue
			}
			q := p.Clone()
			q[dim] = v
			out = append(out, q)
		}
	}
	return out
}

// stepValue validates (and wraps, if applicable) a stepped value for
// dimension dim, returning ok=false if the step must be dropped.
func (m *Model) stepValue(dim, v int) (int, bool) {
	cfg := m.dims[dim]
	if cfg.Range == nil {
		return wrapInto180(v), true
	}
	if v < cfg.Range.Low || v > cfg.Range.High {
		return 0, false
	}
	return v, true
}

// wrapInto180 wraps v modulo 360 into [-180, 180).
func wrapInto180(v int) int {
	v = ((v+180)%period + period) % period
	return v - 180
}

// QuantizeAngle returns the nearest legal grid value for dimension dim,
// rounding away from zero on exact halves (spec.md §4.A). The result is
// always a member of that dimension's legal set, which is itself bounded
// by the configured range, so this implements the "clamped" branch of
// "clamped or discarded" for out-of-range inputs.
func (m *Model) QuantizeAngle(dim int, value float64) int {
	cfg := m.dims[dim]
	low, wrap := defaultLow, true
	if cfg.Range != nil {
		low, wrap = cfg.Range.Low, false
	}

	v := value
	if wrap {
		// Normalize into [-180, 180) before snapping to the grid.
		v = float64(wrapInto180(int(math.Round(v))))
		if math.Mod(value, 1) != 0 {
			v = wrapFloat(value)
		}
	}

	steps := roundHalfAwayFromZero((v - float64(low)) / float64(cfg.Spacing))
	candidate := low + steps*cfg.Spacing
	if wrap {
		candidate = wrapInto180(candidate)
	}

	return nearestInSet(m.legal[dim], candidate, wrap)
}

// QuantizePoint quantizes an angle per scanned dimension into a GridPoint.
func (m *Model) QuantizePoint(angles []float64) griddef.Point {
	p := make(griddef.Point, len(angles))
	for i, a := range angles {
		p[i] = m.QuantizeAngle(i, a)
	}
	return p
}

func wrapFloat(v float64) float64 {
	w := math.Mod(v+180, period)
	if w < 0 {
		w += period
	}
	return w - 180
}

func roundHalfAwayFromZero(v float64) int {
	if v >= 0 {
		return int(math.Floor(v + 0.5))
	}
	return int(math.Ceil(v - 0.5))
}

// nearestInSet returns the element of set closest to candidate; when wrap
// is true, distance is measured on the 360-degree circle.
func nearestInSet(set []int, candidate int, wrap bool) int {
	best := set[0]
	bestDist := dist(best, candidate, wrap)
	for _, v := range set[1:] {
		d := dist(v, candidate, wrap)
		if d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

func dist(a, b int, wrap bool) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if wrap && d > period/2 {
		d = period - d
	}
	return d
}
