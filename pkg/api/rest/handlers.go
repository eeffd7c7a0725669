// Package rest implements the HTTP driver facade (spec.md §4.J): a JSON/HTTP
// wrapper around the stateless internal/driver package. Handlers
// deserialize a ScanState, call the same pure driver functions the
// in-process CLI uses, and serialize the result; no handler holds a
// long-lived reference into scanner internals (spec.md §5 single-owner
// rule is preserved across the wire boundary).
package rest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/therealutkarshpriyadarshi/torsionscan/internal/driver"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/grid"
	"github.com/therealutkarshpriyadarshi/torsionscan/internal/scanner"
	"github.com/therealutkarshpriyadarshi/torsionscan/pkg/observability"
)

// scanRecord is the server-held copy of a scan's current Snapshot. The
// facade is conceptually stateless (every handler calls through to
// driver.Advance the same way a caller holding the snapshot itself would),
// but an HTTP client shouldn't have to round-trip the whole ScanState
// payload on every call, so the facade keeps the latest Snapshot per scan
// ID; it is the only copy of the scan's state, and every request advances
// from it.
type scanRecord struct {
	mu   sync.Mutex
	snap scanner.Snapshot
}

// Handler holds the in-memory scan registry and observability hooks for the
// driver facade.
type Handler struct {
	mu      sync.RWMutex
	scans   map[string]*scanRecord
	nextID  int64
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewHandler creates a new driver facade handler.
func NewHandler(logger *observability.Logger, metrics *observability.Metrics) *Handler {
	return &Handler{
		scans:   make(map[string]*scanRecord),
		logger:  logger,
		metrics: metrics,
	}
}

// CreateScanRequest is the POST /v1/scans request body.
type CreateScanRequest struct {
	Dihedrals       [][4]int        `json:"dihedrals"`
	GridSpacing     []int           `json:"grid_spacing"`
	DihedralRanges  [][2]*int       `json:"dihedral_ranges,omitempty"`
	EnergyThreshold float64         `json:"energy_threshold,omitempty"`
	InitCoords      [][]float64     `json:"init_coords"`
}

// CreateScanResponse is the POST /v1/scans response body.
type CreateScanResponse struct {
	ScanID string        `json:"scan_id"`
	Batch  driver.Batch  `json:"batch"`
}

// CreateScan handles POST /v1/scans: builds a ScanState from the posted
// configuration and returns its ID plus the seed batch.
func (h *Handler) CreateScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	dims, err := buildDimConfigs(req.GridSpacing, req.DihedralRanges, len(req.Dihedrals))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	dihedrals := make([]scanner.Dihedral, len(req.Dihedrals))
	for i, d := range req.Dihedrals {
		dihedrals[i] = scanner.Dihedral(d)
	}

	snap, batch, err := driver.NewState(driver.Config{
		Dihedrals:       dihedrals,
		GridDims:        dims,
		EnergyThreshold: req.EnergyThreshold,
		InitCoords:      req.InitCoords,
	})
	if err != nil {
		writeError(w, fmt.Sprintf("creating scan: %v", err), http.StatusBadRequest)
		return
	}

	id := h.register(snap)
	if h.logger != nil {
		h.logger.WithField("scan_id", id).Info("scan created")
	}

	writeJSON(w, CreateScanResponse{ScanID: id, Batch: batch}, http.StatusCreated)
}

// PostResultsRequest is the POST /v1/scans/{id}/results request body: a
// grid-point-string -> list of completed results, exactly the wire shape
// spec.md §4.G describes for advancing the wavefront.
type PostResultsRequest map[string][]driver.ResultEntry

// PostResultsResponse is the POST /v1/scans/{id}/results response body. An
// empty Batch signifies the scan is finished.
type PostResultsResponse struct {
	Batch driver.Batch `json:"batch"`
}

// PostResults handles POST /v1/scans/{id}/results: applies newly completed
// results to the named scan and returns the next batch (or an empty batch
// on completion).
func (h *Handler) PostResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := scanIDFromPath(r.URL.Path, "/results")
	if !ok {
		writeError(w, "invalid URL, expected /v1/scans/{id}/results", http.StatusBadRequest)
		return
	}

	rec, ok := h.lookup(id)
	if !ok {
		writeError(w, fmt.Sprintf("unknown scan id %q", id), http.StatusNotFound)
		return
	}

	var req PostResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	newSnap, batch, err := driver.Advance(rec.snap, map[string][]driver.ResultEntry(req))
	if err != nil {
		writeError(w, fmt.Sprintf("advancing scan: %v", err), http.StatusBadRequest)
		return
	}
	rec.snap = newSnap

	if h.logger != nil {
		h.logger.WithField("scan_id", id).WithField("next_batch_size", len(batch)).Info("scan advanced")
	}

	writeJSON(w, PostResultsResponse{Batch: batch}, http.StatusOK)
}

// GetScan handles GET /v1/scans/{id}: returns the current serialized
// ScanState, for checkpointing by the caller.
func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := scanIDFromPath(r.URL.Path, "")
	if !ok {
		writeError(w, "invalid URL, expected /v1/scans/{id}", http.StatusBadRequest)
		return
	}
	rec, ok := h.lookup(id)
	if !ok {
		writeError(w, fmt.Sprintf("unknown scan id %q", id), http.StatusNotFound)
		return
	}

	rec.mu.Lock()
	snap := rec.snap
	rec.mu.Unlock()

	writeJSON(w, snap, http.StatusOK)
}

// EnergiesResponse is the GET /v1/scans/{id}/energies response body.
// GridIDs lists every grid point in sorted order; Energies holds the best
// energy of each point reached so far, and a point never reached has no
// entry in Energies.
type EnergiesResponse struct {
	GridIDs  []string           `json:"grid_ids"`
	Energies map[string]float64 `json:"energies"`
}

// GetEnergies handles GET /v1/scans/{id}/energies: returns the sorted
// grid_id -> best_energy table, the server-API equivalent of the CLI's
// final output table (spec.md §6).
func (h *Handler) GetEnergies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := scanIDFromPath(r.URL.Path, "/energies")
	if !ok {
		writeError(w, "invalid URL, expected /v1/scans/{id}/energies", http.StatusBadRequest)
		return
	}
	rec, ok := h.lookup(id)
	if !ok {
		writeError(w, fmt.Sprintf("unknown scan id %q", id), http.StatusNotFound)
		return
	}

	rec.mu.Lock()
	snap := rec.snap
	rec.mu.Unlock()

	energies, err := driver.CollectEnergies(snap)
	if err != nil {
		writeError(w, fmt.Sprintf("collecting energies: %v", err), http.StatusInternalServerError)
		return
	}

	// encoding/json cannot represent +Inf, so unreached points are left
	// out of Energies and remain listed in GridIDs.
	finite := make(map[string]float64, len(energies))
	for id, e := range energies {
		if !math.IsInf(e, 1) {
			finite[id] = e
		}
	}

	writeJSON(w, EnergiesResponse{GridIDs: driver.SortedGridIDs(energies), Energies: finite}, http.StatusOK)
}

// HealthCheck handles GET /v1/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *Handler) register(snap scanner.Snapshot) string {
	id := fmt.Sprintf("scan-%d", atomic.AddInt64(&h.nextID, 1))
	h.mu.Lock()
	h.scans[id] = &scanRecord{snap: snap}
	h.mu.Unlock()
	return id
}

func (h *Handler) lookup(id string) (*scanRecord, bool) {
	h.mu.RLock()
	rec, ok := h.scans[id]
	h.mu.RUnlock()
	return rec, ok
}

// scanIDFromPath extracts {id} from "/v1/scans/{id}"+suffix.
func scanIDFromPath(path, suffix string) (string, bool) {
	const prefix = "/v1/scans/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.TrimSuffix(rest, suffix)
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// buildDimConfigs merges per-dihedral grid spacing (broadcast from a single
// value if only one is given) and optional explicit ranges into grid.DimConfig
// entries, per spec.md §9's "grid spacing may be given once... or once per
// dihedral; a mismatched count is a configuration error" supplement.
func buildDimConfigs(spacing []int, ranges [][2]*int, nDihedrals int) ([]grid.DimConfig, error) {
	if len(spacing) == 0 {
		return nil, fmt.Errorf("grid_spacing must have at least one value")
	}
	if len(spacing) != 1 && len(spacing) != nDihedrals {
		return nil, fmt.Errorf("grid_spacing has %d values but %d dihedrals configured", len(spacing), nDihedrals)
	}
	if len(ranges) != 0 && len(ranges) != nDihedrals {
		return nil, fmt.Errorf("dihedral_ranges has %d entries but %d dihedrals configured", len(ranges), nDihedrals)
	}

	dims := make([]grid.DimConfig, nDihedrals)
	for i := range dims {
		s := spacing[0]
		if len(spacing) > 1 {
			s = spacing[i]
		}
		dims[i] = grid.DimConfig{Spacing: s}
		if len(ranges) != 0 && ranges[i][0] != nil && ranges[i][1] != nil {
			dims[i].Range = &grid.Range{Low: *ranges[i][0], High: *ranges[i][1]}
		}
	}
	return dims, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}
