package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fatumlabs/fatum/internal/application/domain"
	"github.com/fatumlabs/fatum/internal/application/ports"
	"github.com/fatumlabs/fatum/internal/application/services"
	"github.com/fatumlabs/fatum/internal/engine"
)

// maxPoolBytes caps the raw pool requested per decision run so a huge
// trial count cannot trigger an unbounded beacon walk.
const maxPoolBytes = 1024

// Server exposes the decision tools and harvest control over HTTP.
type Server struct {
	acquirer  *services.EntropyAcquirer
	harvester *services.Harvester
	store     ports.EntropyStore
}

// New constructs a Server with dependencies injected.
func New(acquirer *services.EntropyAcquirer, harvester *services.Harvester, store ports.EntropyStore) *Server {
	return &Server{
		acquirer:  acquirer,
		harvester: harvester,
		store:     store,
	}
}

// Routes returns the HTTP handler for all API endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tools/decision", s.handleDecision)
	mux.HandleFunc("POST /api/tools/timeline", s.handleTimeline)
	mux.HandleFunc("POST /api/harvest/start", s.handleHarvestStart)
	mux.HandleFunc("POST /api/harvest/stop", s.handleHarvestStop)
	mux.HandleFunc("GET /api/harvest/status", s.handleHarvestStatus)
	mux.HandleFunc("GET /api/batches", s.handleListBatches)
	mux.HandleFunc("GET /api/batches/{id}", s.handleGetBatch)
	mux.HandleFunc("GET /api/batches/{id}/entropy", s.handleBatchEntropy)
	return mux
}

type decisionRequest struct {
	Options         []string  `json:"options"`
	Weights         []float64 `json:"weights"`
	SimulationCount int       `json:"simulation_count"`
}

type decisionResponse struct {
	Winner        string            `json:"winner"`
	Report        string            `json:"report"`
	TotalTrials   int               `json:"total_simulations"`
	Distribution  map[string]int    `json:"distribution"`
	Anomalies     []string          `json:"anomalies"`
	TimeSeries    []engine.Snapshot `json:"time_series"`
	EntropySource string            `json:"entropy_source"`
}

// handleDecision acquires entropy, seeds a fresh session, and runs one
// weighted decision simulation. Beacon outages never surface here; the
// session is transparently OS-seeded instead.
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	poolBytes := req.SimulationCount * 8
	if poolBytes > maxPoolBytes {
		poolBytes = maxPoolBytes
	}

	entropy, source := s.acquirer.AcquirePool(r.Context(), poolBytes)
	session := engine.NewSession(entropy)

	report, err := session.SimulateDecision(req.Options, req.Weights, req.SimulationCount)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, decisionResponse{
		Winner: report.Winner,
		Report: fmt.Sprintf(
			"Ran %d simulations. The quantum noise patterns favored '%s' with %d hits.",
			report.TotalTrials, report.Winner, report.Distribution[report.Winner]),
		TotalTrials:   report.TotalTrials,
		Distribution:  report.Distribution,
		Anomalies:     report.Anomalies,
		TimeSeries:    report.TimeSeries,
		EntropySource: string(source),
	})
}

type timelineRequest struct {
	StartElements map[string]float64 `json:"start_elements"`
	Duration      int                `json:"duration"`
	NumWorlds     int                `json:"num_worlds"`
}

type timelineResponse struct {
	engine.ManyWorldsResult
	EntropySource string `json:"entropy_source"`
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	var req timelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Duration <= 0 || req.NumWorlds <= 0 {
		writeError(w, http.StatusBadRequest, "duration and num_worlds must be positive")
		return
	}
	if len(req.StartElements) == 0 {
		writeError(w, http.StatusBadRequest, "start_elements must not be empty")
		return
	}

	entropy, source := s.acquirer.AcquireSeedBytes(r.Context())
	session := engine.NewSession(entropy)

	result := session.SimulateTimelines(req.StartElements, req.Duration, req.NumWorlds)
	writeJSON(w, http.StatusOK, timelineResponse{
		ManyWorldsResult: result,
		EntropySource:    string(source),
	})
}

type harvestStartRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleHarvestStart(w http.ResponseWriter, r *http.Request) {
	var req harvestStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "batch name is required")
		return
	}

	// Single-flight: if a loop is already active, report it instead of
	// creating a batch nothing would fill.
	if active := s.harvester.Status(); active != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "already running",
			"active_batch": *active,
		})
		return
	}

	batchID, err := s.store.CreateBatch(r.Context(), req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !s.harvester.Start(batchID) {
		// A concurrent start won the slot between our check and claim.
		active := s.harvester.Status()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "already running",
			"active_batch": active,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   string(domain.BatchCollecting),
		"batch_id": batchID,
	})
}

func (s *Server) handleHarvestStop(w http.ResponseWriter, r *http.Request) {
	if err := s.harvester.Stop(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "stopped"})
}

func (s *Server) handleHarvestStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"active_batch": s.harvester.Status()})
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.store.ListBatches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if batches == nil {
		batches = []domain.HarvestBatch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := batchID(w, r)
	if !ok {
		return
	}

	batch, err := s.store.GetBatch(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	size, err := s.store.GetBatchSize(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batch":        batch,
		"record_count": size,
	})
}

func (s *Server) handleBatchEntropy(w http.ResponseWriter, r *http.Request) {
	id, ok := batchID(w, r)
	if !ok {
		return
	}

	records, err := s.store.GetBatchEntropy(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []domain.EntropyRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func batchID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
