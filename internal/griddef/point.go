// Package griddef defines the GridPoint type shared by the grid model,
// job identity, the scanner state machine and persistence: an ordered
// tuple of integer dihedral angles in degrees, one per scanned dimension.
package griddef

import (
	"errors"
	"strconv"
	"strings"
)

// ErrEmptyKey indicates a grid-id string had no components.
var ErrEmptyKey = errors.New("griddef: grid-id string must have at least one component")

// Point is an ordered N-tuple of integer dihedral angles, one per
// scanned dimension. Equality is exact tuple equality.
type Point []int

// Equal reports whether p and q agree on every dimension.
func (p Point) Equal(q Point) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of p.
func (p Point) Clone() Point {
	out := make(Point, len(p))
	copy(out, p)
	return out
}

// Key returns the canonical comma-joined serialization used as a map key
// and as the wire encoding in the persisted log and server-API payload
// (spec.md §6: "comma-joined integers with no spaces").
func (p Point) Key() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// ParseKey decodes a grid-id string produced by Key back into a Point.
// Encoding then decoding a grid-id string is the identity (spec.md §8).
func ParseKey(s string) (Point, error) {
	if s == "" {
		return nil, ErrEmptyKey
	}
	parts := strings.Split(s, ",")
	out := make(Point, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.New("griddef: invalid grid-id component " + strconv.Quote(part))
		}
		out[i] = v
	}
	return out, nil
}
