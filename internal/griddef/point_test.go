package griddef

import "testing"

func TestPointEqual(t *testing.T) {
	a := Point{0, 60, -120}
	b := Point{0, 60, -120}
	c := Point{0, 60, -60}

	if !a.Equal(b) {
		t.Error("expected equal points to compare equal")
	}
	if a.Equal(c) {
		t.Error("expected differing points to compare unequal")
	}
	if a.Equal(Point{0, 60}) {
		t.Error("expected points of differing length to compare unequal")
	}
}

func TestPointClone(t *testing.T) {
	a := Point{1, 2, 3}
	b := a.Clone()
	b[0] = 99

	if a[0] != 1 {
		t.Error("mutating the clone must not affect the original")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	cases := []Point{
		{0},
		{0, 60, -120},
		{-180, 180, 0, 90},
	}

	for _, p := range cases {
		key := p.Key()
		got, err := ParseKey(key)
		if err != nil {
			t.Fatalf("ParseKey(%q) error: %v", key, err)
		}
		if !got.Equal(p) {
			t.Errorf("round trip mismatch: %v -> %q -> %v", p, key, got)
		}
	}
}

func TestKeyFormat(t *testing.T) {
	p := Point{0, 60, -120}
	if got, want := p.Key(), "0,60,-120"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestParseKeyErrors(t *testing.T) {
	if _, err := ParseKey(""); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := ParseKey("1,x,3"); err == nil {
		t.Error("expected error for non-integer component")
	}
}
