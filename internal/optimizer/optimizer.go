// Package optimizer defines the capability interface the scanner requires
// of any constrained-optimization back end (spec.md §4.D, §9 "deep class
// hierarchy for engines → capability interface"), plus the tagged-variant
// engine configuration and template rendering used to drive a real
// quantum-chemistry engine.
package optimizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
)

// Handle identifies one submitted optimization; its shape is opaque to the
// scanner and meaningful only to the Engine that issued it.
type Handle string

// Engine is the capability required of any plugged-in optimizer: a
// synchronous local runner and an asynchronous batch runner are both valid
// implementations, and the scanner's correctness must not depend on which
// is used (spec.md §4.D).
type Engine interface {
	// Submit starts a constrained optimization from j.StartGeometry
	// toward j.Target, with constraints as the already-rendered
	// constraint-file text (spec.md §6). An asynchronous engine returns
	// as soon as the job is queued; a synchronous engine (Scripted,
	// Subprocess) runs the optimization to completion inside Submit.
	Submit(ctx context.Context, j job.Job, constraints string) (Handle, error)

	// PollReady returns the handles whose results are available to
	// Collect. It may return an empty slice; the scanner calls it
	// repeatedly (synchronously blocking as needed) until at least one
	// handle is ready.
	PollReady(ctx context.Context) ([]Handle, error)

	// Collect returns the ResultRecord for a handle previously reported
	// ready by PollReady. Failure is reported via ResultRecord.Status,
	// never as an error from Collect, so that a single job's failure
	// never halts the scan (spec.md §4.D, §7).
	Collect(handle Handle) (job.ResultRecord, error)
}

// ErrUnknownHandle is returned by Collect for a handle that was never
// submitted, or was already collected.
var ErrUnknownHandle = errors.New("optimizer: unknown or already-collected handle")

// EngineKind enumerates the supported quantum-chemistry back ends,
// replacing the free-form keyword dictionary of the source with a small
// tagged-variant configuration (spec.md §9).
type EngineKind int

const (
	EngineUnknown EngineKind = iota
	EnginePsi4
	EngineQChem
	EngineTeraChem
)

// String implements fmt.Stringer.
func (k EngineKind) String() string {
	switch k {
	case EnginePsi4:
		return "psi4"
	case EngineQChem:
		return "qchem"
	case EngineTeraChem:
		return "terachem"
	default:
		return "unknown"
	}
}

// ParseEngineKind parses the --engine CLI flag value.
func ParseEngineKind(s string) (EngineKind, error) {
	switch s {
	case "psi4":
		return EnginePsi4, nil
	case "qchem":
		return EngineQChem, nil
	case "terachem":
		return EngineTeraChem, nil
	default:
		return EngineUnknown, fmt.Errorf("optimizer: unsupported engine kind %q", s)
	}
}

// Psi4Config captures the fields a psi4 constrained optimization needs.
type Psi4Config struct {
	Method        string
	Basis         string
	ExtraKeywords map[string]string
}

// QChemConfig captures the fields a Q-Chem constrained optimization needs.
type QChemConfig struct {
	Method        string
	Basis         string
	ExtraRemKeys  map[string]string
	Jobtype       string
}

// TeraChemConfig captures the fields a TeraChem constrained optimization
// needs.
type TeraChemConfig struct {
	Method        string
	Basis         string
	GPUs          int
	ExtraKeywords map[string]string
}

// EngineConfig is the tagged-variant engine configuration: exactly one of
// Psi4, QChem, TeraChem is populated, selected by Kind.
type EngineConfig struct {
	Kind      EngineKind
	NativeOpt bool // --native_opt: use the QM program's own constrained optimizer
	Psi4      *Psi4Config
	QChem     *QChemConfig
	TeraChem  *TeraChemConfig
}

// TemplateEngine renders the text input handed to an engine's Submit for
// one job. This is the behavioral-polymorphism replacement for the "deep
// class hierarchy for engines" design note (spec.md §9): a small interface,
// not an inheritance chain.
type TemplateEngine interface {
	Render(j job.Job, constraints string) (string, error)
}

// NewTemplateEngine returns the TemplateEngine for cfg.Kind.
func NewTemplateEngine(cfg EngineConfig) (TemplateEngine, error) {
	switch cfg.Kind {
	case EnginePsi4:
		if cfg.Psi4 == nil {
			return nil, errors.New("optimizer: engine kind psi4 requires Psi4Config")
		}
		return psi4Template{cfg: *cfg.Psi4, nativeOpt: cfg.NativeOpt}, nil
	case EngineQChem:
		if cfg.QChem == nil {
			return nil, errors.New("optimizer: engine kind qchem requires QChemConfig")
		}
		return qchemTemplate{cfg: *cfg.QChem, nativeOpt: cfg.NativeOpt}, nil
	case EngineTeraChem:
		if cfg.TeraChem == nil {
			return nil, errors.New("optimizer: engine kind terachem requires TeraChemConfig")
		}
		return terachemTemplate{cfg: *cfg.TeraChem, nativeOpt: cfg.NativeOpt}, nil
	default:
		return nil, fmt.Errorf("optimizer: unsupported engine kind %q", cfg.Kind)
	}
}

type psi4Template struct {
	cfg       Psi4Config
	nativeOpt bool
}

func (t psi4Template) Render(j job.Job, constraints string) (string, error) {
	var extra string
	for k, v := range t.cfg.ExtraKeywords {
		extra += fmt.Sprintf("set %s %s\n", k, v)
	}
	optimizer := "external"
	if t.nativeOpt {
		optimizer = "native"
	}
	return fmt.Sprintf(
		"# psi4 input (%s optimizer)\nmemory 4 GB\nmolecule {\n%s}\nset basis %s\n%sset optimizer_method %s\noptimize('%s')\n%s",
		optimizer, renderGeometry(j.StartGeometry), t.cfg.Basis, extra, t.cfg.Method, t.cfg.Method, constraints,
	), nil
}

type qchemTemplate struct {
	cfg       QChemConfig
	nativeOpt bool
}

func (t qchemTemplate) Render(j job.Job, constraints string) (string, error) {
	jobtype := t.cfg.Jobtype
	if jobtype == "" {
		jobtype = "opt"
	}
	if t.nativeOpt {
		jobtype = "opt"
	}
	var rem string
	for k, v := range t.cfg.ExtraRemKeys {
		rem += fmt.Sprintf("%s %s\n", k, v)
	}
	return fmt.Sprintf(
		"$molecule\n0 1\n%s$end\n\n$rem\njobtype %s\nmethod %s\nbasis %s\n%s$end\n\n%s",
		renderGeometry(j.StartGeometry), jobtype, t.cfg.Method, t.cfg.Basis, rem, constraints,
	), nil
}

type terachemTemplate struct {
	cfg       TeraChemConfig
	nativeOpt bool
}

func (t terachemTemplate) Render(j job.Job, constraints string) (string, error) {
	gpus := t.cfg.GPUs
	if gpus <= 0 {
		gpus = 1
	}
	run := "minimize"
	if t.nativeOpt {
		run = "minimize"
	}
	var extra string
	for k, v := range t.cfg.ExtraKeywords {
		extra += fmt.Sprintf("%s %s\n", k, v)
	}
	return fmt.Sprintf(
		"run %s\nmethod %s\nbasis %s\ngpus %d\ncoordinates start.xyz\n%s%s",
		run, t.cfg.Method, t.cfg.Basis, gpus, extra, constraints,
	), nil
}

func renderGeometry(coords []float64) string {
	var s string
	for i := 0; i+2 < len(coords); i += 3 {
		s += fmt.Sprintf("%.8f %.8f %.8f\n", coords[i], coords[i+1], coords[i+2])
	}
	return s
}
