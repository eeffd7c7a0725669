package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/optimizer"
)

func TestGridSpacingFlagCollectsRepeatedValues(t *testing.T) {
	var f gridSpacingFlag
	if err := f.Set("60"); err != nil {
		t.Fatal(err)
	}
	if err := f.Set("30"); err != nil {
		t.Fatal(err)
	}
	if len(f.values) != 2 || f.values[0] != 60 || f.values[1] != 30 {
		t.Errorf("values = %v", f.values)
	}
	if f.String() != "60,30" {
		t.Errorf("String() = %q", f.String())
	}
}

func TestGridSpacingFlagRejectsNonInteger(t *testing.T) {
	var f gridSpacingFlag
	if err := f.Set("abc"); err == nil {
		t.Error("expected error for non-integer value")
	}
}

func TestEngineConfigBuildsPerKind(t *testing.T) {
	cases := []optimizer.EngineKind{optimizer.EnginePsi4, optimizer.EngineQChem, optimizer.EngineTeraChem}
	for _, kind := range cases {
		cfg, err := engineConfig(kind, false)
		if err != nil {
			t.Fatalf("engineConfig(%v) error: %v", kind, err)
		}
		if cfg.Kind != kind {
			t.Errorf("Kind = %v, want %v", cfg.Kind, kind)
		}
		if _, err := optimizer.NewTemplateEngine(cfg); err != nil {
			t.Errorf("NewTemplateEngine(%v) error: %v", kind, err)
		}
	}
}

func TestLoadDihedralFileBuildsDimConfigs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dihedrals.txt")
	if err := os.WriteFile(path, []byte("1 2 3 4\n5 6 7 8 -90 90\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, dims, err := loadDihedralFile(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || len(dims) != 2 {
		t.Fatalf("got %d entries, %d dims, want 2 and 2", len(entries), len(dims))
	}
	if entries[0].Atoms != [4]int{0, 1, 2, 3} {
		t.Errorf("entries[0].Atoms = %v", entries[0].Atoms)
	}
	if dims[0].Range != nil {
		t.Errorf("dims[0].Range = %v, want nil (4-field line)", dims[0].Range)
	}
	if dims[1].Range == nil || dims[1].Range.Low != -90 || dims[1].Range.High != 90 {
		t.Errorf("dims[1].Range = %v, want {-90 90}", dims[1].Range)
	}
}

func TestLoadSeedGeometriesIncludesInitCoords(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "start.xyz")
	if err := os.WriteFile(inputPath, []byte("2\ncomment\nH 0.0 0.0 0.0\nH 1.0 0.0 0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	initPath := filepath.Join(dir, "init.xyz")
	frame := "2\ncomment\nH 0.0 0.0 0.0\nH 2.0 0.0 0.0\n"
	if err := os.WriteFile(initPath, []byte(frame+frame), 0o644); err != nil {
		t.Fatal(err)
	}

	seeds, err := loadSeedGeometries(inputPath, initPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(seeds) != 3 {
		t.Fatalf("got %d seed geometries, want 3 (1 input + 2 init_coords)", len(seeds))
	}
}
