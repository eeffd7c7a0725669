// Package geom computes the dihedral (torsion) angle of four atoms from a
// flat cartesian geometry. This is the one piece of physical geometry
// interpretation the scanner needs to re-quantize an optimizer's landing
// point (spec.md §4.E step 2) — a fixed vector-algebra formula, not an
// electronic-structure calculation, so it stays inside the "black box"
// non-goal of spec.md §1.
package geom

import "math"

// Atom returns the 3-vector of atom index i (zero-based) within a flat
// 3*N coordinate slice.
func Atom(coords []float64, i int) [3]float64 {
	return [3]float64{coords[3*i], coords[3*i+1], coords[3*i+2]}
}

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func norm(a [3]float64) float64 {
	return math.Sqrt(dot(a, a))
}

func scale(a [3]float64, s float64) [3]float64 {
	return [3]float64{a[0] * s, a[1] * s, a[2] * s}
}

// Dihedral returns the torsion angle in degrees, within (-180, 180],
// defined by the four zero-based atom indices i-j-k-l in coords (a flat
// 3*N bohr geometry).
func Dihedral(coords []float64, i, j, k, l int) float64 {
	p1, p2, p3, p4 := Atom(coords, i), Atom(coords, j), Atom(coords, k), Atom(coords, l)

	b1 := sub(p2, p1)
	b2 := sub(p3, p2)
	b3 := sub(p4, p3)

	n1 := cross(b1, b2)
	n2 := cross(b2, b3)

	b2n := norm(b2)
	var m1 [3]float64
	if b2n > 0 {
		m1 = cross(n1, scale(b2, 1/b2n))
	}

	x := dot(n1, n2)
	y := dot(m1, n2)

	angle := math.Atan2(y, x) * 180 / math.Pi
	if angle == -180 {
		angle = 180
	}
	return angle
}

// AllDihedrals evaluates Dihedral once per 4-tuple in indices, in order.
func AllDihedrals(coords []float64, indices [][4]int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = Dihedral(coords, idx[0], idx[1], idx[2], idx[3])
	}
	return out
}
