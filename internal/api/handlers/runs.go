package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/hvkconsulling1/momo-sub000/internal/contracts"
	"github.com/hvkconsulling1/momo-sub000/pkg/logger"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// RunHandler serves stored backtest runs
// ⭐ SSOT: 실행 결과 API 핸들러는 이 구조체에서만
type RunHandler struct {
	repo   contracts.RunRepository
	logger *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(repo contracts.RunRepository, log *logger.Logger) *RunHandler {
	return &RunHandler{
		repo:   repo,
		logger: log,
	}
}

// RunsResponse is the listing payload
type RunsResponse struct {
	Count int                    `json:"count"`
	Runs  []contracts.RunSummary `json:"runs"`
}

// ReturnsResponse is the return series payload
type ReturnsResponse struct {
	RunID   string                   `json:"run_id"`
	Count   int                      `json:"count"`
	Returns []contracts.ReturnRecord `json:"returns"`
}

// ListRuns returns recent runs
// GET /api/runs?limit=50
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunLimit {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected 1-500)")
			return
		}
		limit = n
	}

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	respondJSON(w, http.StatusOK, RunsResponse{Count: len(runs), Runs: runs})
}

// GetRun returns one run with its metrics
// GET /api/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := h.repo.GetRun(r.Context(), runID)
	if err != nil {
		h.fail(w, runID, err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// GetReturns returns the period return series of one run
// GET /api/runs/{id}/returns
func (h *RunHandler) GetReturns(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	returns, err := h.repo.GetReturns(r.Context(), runID)
	if err != nil {
		h.fail(w, runID, err)
		return
	}

	respondJSON(w, http.StatusOK, ReturnsResponse{RunID: runID, Count: len(returns), Returns: returns})
}

func (h *RunHandler) fail(w http.ResponseWriter, runID string, err error) {
	var notFound contracts.ErrRunNotFound
	if errors.As(err, &notFound) {
		respondError(w, http.StatusNotFound, notFound.Error())
		return
	}
	h.logger.WithError(err).WithField("run_id", runID).Error("Failed to get run")
	respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
}
