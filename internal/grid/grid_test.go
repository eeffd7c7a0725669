package grid

import (
	"testing"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/griddef"
)

func TestNewRejectsBadSpacing(t *testing.T) {
	if _, err := New([]DimConfig{{Spacing: 0}}); err == nil {
		t.Error("expected error for zero spacing")
	}
	if _, err := New([]DimConfig{{Spacing: -30}}); err == nil {
		t.Error("expected error for negative spacing")
	}
}

func TestNewRejectsBadRange(t *testing.T) {
	cases := []*Range{
		{Low: -200, High: 180},
		{Low: -180, High: 200},
		{Low: 90, High: 90},
		{Low: 90, High: 0},
	}
	for _, r := range cases {
		if _, err := New([]DimConfig{{Spacing: 30, Range: r}}); err == nil {
			t.Errorf("expected error for range [%d, %d]", r.Low, r.High)
		}
	}
}

func TestNewRejectsEmptyDims(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

// TestEnumerate1DMatchesSpecExample reproduces spec.md §8 scenario 1: a
// 1-D scan with spacing 60 over the default range yields exactly 6 points.
func TestEnumerate1DMatchesSpecExample(t *testing.T) {
	m, err := New([]DimConfig{{Spacing: 60}})
	if err != nil {
		t.Fatal(err)
	}
	pts := m.Enumerate()
	want := []int{-180, -120, -60, 0, 60, 120}
	if len(pts) != len(want) {
		t.Fatalf("got %d points, want %d: %v", len(pts), len(want), pts)
	}
	for i, p := range pts {
		if p[0] != want[i] {
			t.Errorf("point %d = %d, want %d", i, p[0], want[i])
		}
	}
}

func TestEnumerateExplicitRangeIsInclusive(t *testing.T) {
	m, err := New([]DimConfig{{Spacing: 30, Range: &Range{Low: -90, High: 90}}})
	if err != nil {
		t.Fatal(err)
	}
	pts := m.Enumerate()
	want := []int{-90, -60, -30, 0, 30, 60, 90}
	if len(pts) != len(want) {
		t.Fatalf("got %d points, want %d: %v", len(pts), len(want), pts)
	}
}

func TestEnumerate2D(t *testing.T) {
	m, err := New([]DimConfig{{Spacing: 120}, {Spacing: 180}})
	if err != nil {
		t.Fatal(err)
	}
	pts := m.Enumerate()
	// dim0 has 3 legal values (-180,-60,60), dim1 has 2 (-180,0)
	if len(pts) != 6 {
		t.Fatalf("got %d points, want 6: %v", len(pts), pts)
	}
	if !pts[0].Equal(griddef.Point{-180, -180}) {
		t.Errorf("first point = %v, want [-180 -180]", pts[0])
	}
}

func TestNeighborsDefaultRangeWraps(t *testing.T) {
	m, err := New([]DimConfig{{Spacing: 60}})
	if err != nil {
		t.Fatal(err)
	}
	neighbors := m.Neighbors(griddef.Point{-180})
	if len(neighbors) != 2 {
		t.Fatalf("got %d neighbors, want 2: %v", len(neighbors), neighbors)
	}
	if !neighbors[0].Equal(griddef.Point{-120}) {
		t.Errorf("+step neighbor = %v, want [-120]", neighbors[0])
	}
	if !neighbors[1].Equal(griddef.Point{120}) {
		t.Errorf("-step neighbor (wrapped) = %v, want [120]", neighbors[1])
	}
}

func TestNeighborsExplicitRangeDropsOutOfBounds(t *testing.T) {
	m, err := New([]DimConfig{{Spacing: 30, Range: &Range{Low: -90, High: 90}}})
	if err != nil {
		t.Fatal(err)
	}
	neighbors := m.Neighbors(griddef.Point{90})
	if len(neighbors) != 1 {
		t.Fatalf("got %d neighbors, want 1 (the +step must be dropped): %v", len(neighbors), neighbors)
	}
	if !neighbors[0].Equal(griddef.Point{60}) {
		t.Errorf("remaining neighbor = %v, want [60]", neighbors[0])
	}
}

func TestNeighborsDimensionMajorOrder(t *testing.T) {
	m, err := New([]DimConfig{{Spacing: 60}, {Spacing: 60}})
	if err != nil {
		t.Fatal(err)
	}
	neighbors := m.Neighbors(griddef.Point{0, 0})
	want := []griddef.Point{{60, 0}, {-60, 0}, {0, 60}, {0, -60}}
	if len(neighbors) != len(want) {
		t.Fatalf("got %d neighbors, want %d", len(neighbors), len(want))
	}
	for i, w := range want {
		if !neighbors[i].Equal(w) {
			t.Errorf("neighbor %d = %v, want %v", i, neighbors[i], w)
		}
	}
}

func TestQuantizeAngleSnapsToNearestGridValue(t *testing.T) {
	m, err := New([]DimConfig{{Spacing: 60}})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{29, 0},
		{31, 60},
		{-179, -180},
		{179, 180 - 360}, // wraps to -180
	}
	for _, c := range cases {
		got := m.QuantizeAngle(0, c.in)
		if got != c.want {
			t.Errorf("QuantizeAngle(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestQuantizeAngleClampsToExplicitRange(t *testing.T) {
	m, err := New([]DimConfig{{Spacing: 30, Range: &Range{Low: -90, High: 90}}})
	if err != nil {
		t.Fatal(err)
	}
	// A value outside the explicit range must clamp to the nearest legal
	// value rather than be discarded or extrapolated past the boundary.
	got := m.QuantizeAngle(0, 150)
	if got != 90 {
		t.Errorf("QuantizeAngle(150) = %d, want 90 (clamped)", got)
	}
}

func TestQuantizePoint(t *testing.T) {
	m, err := New([]DimConfig{{Spacing: 60}, {Spacing: 90}})
	if err != nil {
		t.Fatal(err)
	}
	got := m.QuantizePoint([]float64{31, -46})
	want := griddef.Point{60, -90}
	if !got.Equal(want) {
		t.Errorf("QuantizePoint = %v, want %v", got, want)
	}
}

func TestNDim(t *testing.T) {
	m, err := New([]DimConfig{{Spacing: 30}, {Spacing: 30}, {Spacing: 30}})
	if err != nil {
		t.Fatal(err)
	}
	if m.NDim() != 3 {
		t.Errorf("NDim() = %d, want 3", m.NDim())
	}
}
