package optimizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/griddef"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
)

// fakeEngineScript writes an executable shell script to dir that ignores its
// argument and prints a fixed ENERGY/geometry block, standing in for a real
// psi4/qchem/terachem wrapper binary.
func fakeEngineScript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-engine.sh")
	script := "#!/bin/sh\necho 'ENERGY 0.125'\necho '0.0 0.0 0.0'\necho '1.0 0.0 0.0'\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func failingEngineScript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "failing-engine.sh")
	script := "#!/bin/sh\nexit 1\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubprocessSubmitParsesEnergyAndGeometry(t *testing.T) {
	dir := t.TempDir()
	script := fakeEngineScript(t, dir)

	template, err := NewTemplateEngine(EngineConfig{
		Kind: EnginePsi4,
		Psi4: &Psi4Config{Method: "b3lyp", Basis: "6-31g*"},
	})
	if err != nil {
		t.Fatal(err)
	}

	eng := NewSubprocess(script, template, dir)
	j := job.New([]float64{0, 0, 0, 1, 0, 0}, griddef.Point{0})

	h, err := eng.Submit(context.Background(), j, "$set\ndihedral 1 2 3 4 0.0\n$end\n")
	if err != nil {
		t.Fatal(err)
	}

	ready, err := eng.PollReady(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 1 || ready[0] != h {
		t.Fatalf("PollReady = %v, want [%v]", ready, h)
	}

	rr, err := eng.Collect(h)
	if err != nil {
		t.Fatal(err)
	}
	if rr.Status != job.StatusOK {
		t.Fatalf("Status = %v, want ok", rr.Status)
	}
	if rr.FinalEnergy != 0.125 {
		t.Errorf("FinalEnergy = %v, want 0.125", rr.FinalEnergy)
	}
	wantGeometry := []float64{0.0, 0.0, 0.0, 1.0, 0.0, 0.0}
	if len(rr.FinalGeometry) != len(wantGeometry) {
		t.Fatalf("FinalGeometry = %v, want %v", rr.FinalGeometry, wantGeometry)
	}
	for i := range wantGeometry {
		if rr.FinalGeometry[i] != wantGeometry[i] {
			t.Errorf("FinalGeometry[%d] = %v, want %v", i, rr.FinalGeometry[i], wantGeometry[i])
		}
	}
}

func TestSubprocessCollectUnknownHandleErrors(t *testing.T) {
	eng := NewSubprocess("/bin/true", nil, "")
	if _, err := eng.Collect("nope"); err == nil {
		t.Error("expected error collecting an unknown handle")
	}
}

func TestSubprocessSubmitReportsFailureOnNonzeroExit(t *testing.T) {
	dir := t.TempDir()
	script := failingEngineScript(t, dir)

	template, err := NewTemplateEngine(EngineConfig{
		Kind: EngineQChem,
		QChem: &QChemConfig{Method: "hf", Basis: "sto-3g"},
	})
	if err != nil {
		t.Fatal(err)
	}

	eng := NewSubprocess(script, template, dir)
	j := job.New([]float64{0, 0, 0}, griddef.Point{0})

	h, err := eng.Submit(context.Background(), j, "")
	if err != nil {
		t.Fatal(err)
	}
	rr, err := eng.Collect(h)
	if err != nil {
		t.Fatal(err)
	}
	if rr.Status != job.StatusFailed {
		t.Errorf("Status = %v, want failed", rr.Status)
	}
}

func TestSubprocessParseOutputRejectsMissingEnergy(t *testing.T) {
	if _, _, err := parseOutput([]byte("0.0 0.0 0.0\n")); err == nil {
		t.Error("expected error when ENERGY line is absent")
	}
}

func TestSubprocessParseOutputRejectsMalformedCoordinateLine(t *testing.T) {
	if _, _, err := parseOutput([]byte("ENERGY 1.0\n0.0 0.0\n")); err == nil {
		t.Error("expected error for a coordinate line with the wrong field count")
	}
}
