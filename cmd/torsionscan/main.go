// Command torsionscan runs a single-process wavefront dihedral scan driven
// by a live optimizer engine (spec.md §6), the in-process counterpart of
// the torsionscan-api driver facade.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/dihedralfile"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/geomfile"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/grid"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/griddef"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/job"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/optimizer"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/persistence"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/scanner"
	"github.com/therealutkarshpriyadarshi/torsionscan/pkg/observability"
)

var version = "1.0.0"

// gridSpacingFlag collects --grid_spacing, which may be repeated (once per
// dihedral) or given once and broadcast to every dihedral (spec.md §6).
type gridSpacingFlag struct{ values []int }

func (f *gridSpacingFlag) String() string {
	strs := make([]string, len(f.values))
	for i, v := range f.values {
		strs[i] = strconv.Itoa(v)
	}
	return strings.Join(strs, ",")
}

func (f *gridSpacingFlag) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid --grid_spacing value %q: %w", s, err)
	}
	f.values = append(f.values, v)
	return nil
}

func main() {
	var spacing gridSpacingFlag
	var (
		engineFlag   = flag.String("engine", "psi4", "optimizer engine: psi4, qchem, or terachem")
		constraints  = flag.String("constraints", "", "path to an extra freeze/set file (optional)")
		nativeOpt    = flag.Bool("native_opt", false, "use the QM program's own constrained optimizer")
		energyThresh = flag.Float64("energy_thresh", scanner.DefaultEnergyThreshold, "energy_decrease_threshold in a.u.")
		wqPort       = flag.Int("wq_port", 0, "enable distributed dispatch on this work-queue port (0 disables)")
		initCoords   = flag.String("init_coords", "", "path to a multi-geometry file for multiple seeds")
		zeroBased    = flag.Bool("zero_based_numbering", false, "dihedral file atom indices are already zero-based")
		verbose      = flag.Bool("verbose", false, "enable debug logging")
		verboseShort = flag.Bool("v", false, "shorthand for --verbose")
		logDir       = flag.String("log_dir", ".", "directory for the scan's append-only log")
		syncWrites   = flag.Bool("sync_writes", false, "fsync the scan log after every appended record")
		showVersion  = flag.Bool("version", false, "show version and exit")
	)
	flag.Var(&spacing, "grid_spacing", "integer degrees per dihedral (repeat, or give once to broadcast)")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("torsionscan version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 2 {
		usage()
		os.Exit(1)
	}
	inputFile, dihedralFilePath := args[0], args[1]

	level := observability.INFO
	if *verbose || *verboseShort {
		level = observability.DEBUG
	}
	logger := observability.NewLogger(level, os.Stdout)
	metrics := observability.NewMetrics()

	logger.Infof("%s", strings.Join(os.Args, " "))

	if *wqPort != 0 {
		logger.Warnf("--wq_port %d requested; distributed work-queue dispatch is not implemented by this build, running single-process instead", *wqPort)
	}

	kind, err := optimizer.ParseEngineKind(*engineFlag)
	if err != nil {
		fatal(logger, err)
	}

	dihedralEntries, gridDims, err := loadDihedralFile(dihedralFilePath, *zeroBased)
	if err != nil {
		fatal(logger, err)
	}

	if len(spacing.values) == 0 {
		fatal(logger, fmt.Errorf("--grid_spacing must be given at least once"))
	}
	if len(spacing.values) != 1 && len(spacing.values) != len(gridDims) {
		fatal(logger, fmt.Errorf("--grid_spacing given %d times but %d dihedrals configured", len(spacing.values), len(gridDims)))
	}
	for i := range gridDims {
		s := spacing.values[0]
		if len(spacing.values) > 1 {
			s = spacing.values[i]
		}
		gridDims[i].Spacing = s
	}

	g, err := grid.New(gridDims)
	if err != nil {
		fatal(logger, err)
	}

	dihedrals := make([]scanner.Dihedral, len(dihedralEntries))
	atoms := make([][4]int, len(dihedralEntries))
	for i, e := range dihedralEntries {
		dihedrals[i] = scanner.Dihedral(e.Atoms)
		atoms[i] = e.Atoms
	}

	seedGeometries, err := loadSeedGeometries(inputFile, *initCoords)
	if err != nil {
		fatal(logger, err)
	}

	extraConstraints := ""
	if *constraints != "" {
		b, err := os.ReadFile(*constraints)
		if err != nil {
			fatal(logger, fmt.Errorf("reading --constraints file: %w", err))
		}
		extraConstraints = string(b)
	}
	render := dihedralfile.NewRenderer(atoms, extraConstraints)

	state := scanner.NewState(g, dihedrals, *energyThresh)
	configSig := state.ConfigSignature()

	logPath := filepath.Join(*logDir, "torsionscan.log")
	replayed, err := resumeFromLog(state, logPath, configSig)
	if err != nil {
		fatal(logger, err)
	}
	if replayed > 0 {
		logger.LogReplay(logPath, replayed)
		metrics.ReplayedResults.Add(float64(replayed))
	}

	scanLog, err := persistence.Open(logPath, *syncWrites)
	if err != nil {
		fatal(logger, err)
	}
	defer scanLog.Close()

	templateCfg, err := engineConfig(kind, *nativeOpt)
	if err != nil {
		fatal(logger, err)
	}
	template, err := optimizer.NewTemplateEngine(templateCfg)
	if err != nil {
		fatal(logger, err)
	}
	engineBinary := os.Getenv("TORSIONSCAN_ENGINE_COMMAND")
	if engineBinary == "" {
		engineBinary = kind.String()
	}
	engine := optimizer.NewSubprocess(engineBinary, template, *logDir)

	seeds := state.Seed(seedGeometries)
	logger.Infof("seeded %d starting geometr%s", len(seeds), plural(len(seeds), "y", "ies"))

	runner := &scanner.Runner{
		State:       state,
		Engine:      engine,
		Logger:      logger,
		Metrics:     metrics,
		Constraints: render,
		Persist: func(identity, target string, rr job.ResultRecord) error {
			metrics.RecordPersisted()
			return scanLog.Append(identity, target, configSig, rr)
		},
	}

	if err := runner.Run(context.Background()); err != nil {
		fatal(logger, err)
	}

	printResults(state)
}

// loadDihedralFile parses dihedralFilePath, returning the scanned dihedrals
// and a grid.DimConfig per dihedral with Range populated from any 6-field
// lines (Spacing is filled in by the caller from --grid_spacing).
func loadDihedralFile(path string, zeroBased bool) ([]dihedralfile.Entry, []grid.DimConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dihedral file: %w", err)
	}
	defer f.Close()

	entries, err := dihedralfile.Parse(f, zeroBased)
	if err != nil {
		return nil, nil, err
	}

	dims := make([]grid.DimConfig, len(entries))
	for i, e := range entries {
		dims[i] = grid.DimConfig{Range: e.Range}
	}
	return entries, dims, nil
}

// loadSeedGeometries reads the starting geometry from inputFile, plus any
// additional seeds from --init_coords.
func loadSeedGeometries(inputFile, initCoordsPath string) ([][]float64, error) {
	f, err := os.Open(inputFile)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()
	frames, err := geomfile.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing input file: %w", err)
	}
	seeds := [][]float64{frames[0].Coords}

	if initCoordsPath != "" {
		g, err := os.Open(initCoordsPath)
		if err != nil {
			return nil, fmt.Errorf("opening --init_coords file: %w", err)
		}
		defer g.Close()
		extra, err := geomfile.Parse(g)
		if err != nil {
			return nil, fmt.Errorf("parsing --init_coords file: %w", err)
		}
		for _, fr := range extra {
			seeds = append(seeds, fr.Coords)
		}
	}
	return seeds, nil
}

// resumeFromLog replays any prior log at logPath into state, reconstructing
// the wavefront it had reached (spec.md §4.F, §8 scenario 5).
func resumeFromLog(state *scanner.State, logPath, configSig string) (int, error) {
	replay, err := persistence.Replay(logPath, configSig)
	if err != nil {
		return 0, fmt.Errorf("replaying scan log: %w", err)
	}
	if replay.Replayed == 0 {
		return 0, nil
	}
	entries := make([]scanner.ReplayEntry, 0, len(replay.Ordered))
	for _, rec := range replay.Ordered {
		entries = append(entries, scanner.ReplayEntry{Identity: rec.Identity, Result: rec.ResultRecord()})
	}
	state.Replay(entries)
	return replay.Replayed, nil
}

// engineConfig builds an optimizer.EngineConfig for kind from the process
// environment, since the dihedral/constraints CLI surface says nothing
// about method/basis (spec.md §6 leaves these to the QM engine's own
// configuration conventions).
func engineConfig(kind optimizer.EngineKind, nativeOpt bool) (optimizer.EngineConfig, error) {
	method := envOr("TORSIONSCAN_METHOD", "b3lyp")
	basis := envOr("TORSIONSCAN_BASIS", "6-31g*")

	cfg := optimizer.EngineConfig{Kind: kind, NativeOpt: nativeOpt}
	switch kind {
	case optimizer.EnginePsi4:
		cfg.Psi4 = &optimizer.Psi4Config{Method: method, Basis: basis}
	case optimizer.EngineQChem:
		cfg.QChem = &optimizer.QChemConfig{Method: method, Basis: basis}
	case optimizer.EngineTeraChem:
		cfg.TeraChem = &optimizer.TeraChemConfig{Method: method, Basis: basis}
	default:
		return cfg, fmt.Errorf("unsupported engine kind %v", kind)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// printResults writes the final grid_id -> best_energy table, sorted by
// grid point, to stdout.
func printResults(state *scanner.State) {
	energies := state.Energies()
	ids := make([]string, 0, len(energies))
	for id := range energies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, _ := griddef.ParseKey(ids[i])
		pj, _ := griddef.ParseKey(ids[j])
		for k := 0; k < len(pi) && k < len(pj); k++ {
			if pi[k] != pj[k] {
				return pi[k] < pj[k]
			}
		}
		return len(pi) < len(pj)
	})

	fmt.Println("grid_id\tbest_energy")
	for _, id := range ids {
		e := energies[id]
		if math.IsInf(e, 1) {
			fmt.Printf("%s\tunreachable\n", id)
			continue
		}
		fmt.Printf("%s\t%.10f\n", id, e)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "torsionscan runs a wavefront dihedral potential-energy scan.")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  torsionscan [options] inputfile dihedralfile")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Options:")
	flag.PrintDefaults()
}

func fatal(logger *observability.Logger, err error) {
	logger.Errorf("%v", err)
	os.Exit(1)
}

func plural(n int, singular, pl string) string {
	if n == 1 {
		return singular
	}
	return pl
}
