package optimizer

import (
	"context"
	"testing"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/griddef"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
)

func TestParseEngineKind(t *testing.T) {
	cases := map[string]EngineKind{
		"psi4":     EnginePsi4,
		"qchem":    EngineQChem,
		"terachem": EngineTeraChem,
	}
	for s, want := range cases {
		got, err := ParseEngineKind(s)
		if err != nil {
			t.Fatalf("ParseEngineKind(%q) error: %v", s, err)
		}
		if got != want {
			t.Errorf("ParseEngineKind(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := ParseEngineKind("gaussian"); err == nil {
		t.Error("expected error for unsupported engine kind")
	}
}

func TestEngineKindString(t *testing.T) {
	if EnginePsi4.String() != "psi4" {
		t.Errorf("EnginePsi4.String() = %q", EnginePsi4.String())
	}
	if EngineUnknown.String() != "unknown" {
		t.Errorf("EngineUnknown.String() = %q", EngineUnknown.String())
	}
}

func TestNewTemplateEngineRequiresMatchingConfig(t *testing.T) {
	if _, err := NewTemplateEngine(EngineConfig{Kind: EnginePsi4}); err == nil {
		t.Error("expected error when Psi4Config is nil for EnginePsi4")
	}
	if _, err := NewTemplateEngine(EngineConfig{Kind: EngineUnknown}); err == nil {
		t.Error("expected error for unsupported kind")
	}
}

func TestPsi4TemplateRenders(t *testing.T) {
	te, err := NewTemplateEngine(EngineConfig{
		Kind: EnginePsi4,
		Psi4: &Psi4Config{Method: "b3lyp", Basis: "6-31g*"},
	})
	if err != nil {
		t.Fatal(err)
	}
	j := job.New([]float64{0, 0, 0, 1, 0, 0}, griddef.Point{0})
	out, err := te.Render(j, "$set\ndihedral 1 2 3 4 0.0\n$end\n")
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		t.Error("expected non-empty rendered input")
	}
}

func TestQChemAndTeraChemTemplatesRender(t *testing.T) {
	qc, err := NewTemplateEngine(EngineConfig{Kind: EngineQChem, QChem: &QChemConfig{Method: "hf", Basis: "sto-3g"}})
	if err != nil {
		t.Fatal(err)
	}
	tc, err := NewTemplateEngine(EngineConfig{Kind: EngineTeraChem, TeraChem: &TeraChemConfig{Method: "pbe0", Basis: "6-31g"}})
	if err != nil {
		t.Fatal(err)
	}
	j := job.New([]float64{0, 0, 0}, griddef.Point{0})
	if _, err := qc.Render(j, ""); err != nil {
		t.Errorf("qchem render error: %v", err)
	}
	if _, err := tc.Render(j, ""); err != nil {
		t.Errorf("terachem render error: %v", err)
	}
}

func TestScriptedSubmitPollCollect(t *testing.T) {
	eng := NewScripted(func(j job.Job) ScriptedOutcome {
		return ScriptedOutcome{FinalEnergy: 1.5, FinalGeometry: j.StartGeometry}
	})

	j := job.New([]float64{1, 2, 3}, griddef.Point{60})
	h, err := eng.Submit(context.Background(), j, "")
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
	if rr.FinalEnergy != 1.5 || rr.Status != job.StatusOK {
		t.Errorf("Collect result = %+v", rr)
	}
}

func TestScriptedCollectUnknownHandleErrors(t *testing.T) {
	eng := NewScripted(func(j job.Job) ScriptedOutcome { return ScriptedOutcome{} })
	if _, err := eng.Collect("nope"); err == nil {
		t.Error("expected error collecting an unknown handle")
	}
}

func TestScriptedReportsFailure(t *testing.T) {
	eng := NewScripted(func(j job.Job) ScriptedOutcome {
		return ScriptedOutcome{Fail: true}
	})
	j := job.New([]float64{0}, griddef.Point{60})
	h, _ := eng.Submit(context.Background(), j, "")
	rr, err := eng.Collect(h)
	if err != nil {
		t.Fatal(err)
	}
	if rr.Status != job.StatusFailed {
		t.Errorf("Status = %v, want failed", rr.Status)
	}
}

func TestScriptedPollReadyDrainsOnce(t *testing.T) {
	eng := NewScripted(func(j job.Job) ScriptedOutcome { return ScriptedOutcome{} })
	j := job.New([]float64{0}, griddef.Point{0})
	eng.Submit(context.Background(), j, "")

	first, _ := eng.PollReady(context.Background())
	if len(first) != 1 {
		t.Fatalf("first poll = %v, want 1 ready", first)
	}
	second, _ := eng.PollReady(context.Background())
	if len(second) != 0 {
		t.Fatalf("second poll = %v, want 0 ready (already drained)", second)
	}
}

func TestScriptedRecordsSubmittedJobs(t *testing.T) {
	eng := NewScripted(func(j job.Job) ScriptedOutcome { return ScriptedOutcome{} })
	j1 := job.New([]float64{0}, griddef.Point{0})
	j2 := job.New([]float64{1}, griddef.Point{60})
	eng.Submit(context.Background(), j1, "")
	eng.Submit(context.Background(), j2, "")

	if len(eng.Submitted) != 2 {
		t.Fatalf("Submitted = %v, want 2 entries", eng.Submitted)
	}
	if eng.Submitted[0].Identity != j1.Identity || eng.Submitted[1].Identity != j2.Identity {
		t.Error("Submitted must preserve submission order and identity")
	}
}
