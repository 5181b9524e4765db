// Package httptransport is the operator-facing HTTP surface. Handlers stay
// thin and delegate to the scheduler and registry services.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ballotwatch/internal/discovery/models"
	registry "ballotwatch/internal/registry/models"
	"ballotwatch/internal/report"
	"ballotwatch/internal/scheduler"
	"ballotwatch/pkg/platform/sentinel"
)

// Pipeline is the scheduler surface the handlers need.
type Pipeline interface {
	RunNow(ctx context.Context) (*report.Report, error)
	State() scheduler.State
	LastReport() *report.Report
	LastConflicts() []models.Conflict
}

// RegistryReader exposes the registry queries served over HTTP.
type RegistryReader interface {
	CandidatesNeedingParty(ctx context.Context) ([]registry.Record, error)
}

// Handler holds the HTTP layer's collaborators.
type Handler struct {
	pipeline Pipeline
	registry RegistryReader
	logger   *slog.Logger
}

// NewHandler wires handlers to their services.
func NewHandler(pipeline Pipeline, registry RegistryReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{pipeline: pipeline, registry: registry, logger: logger}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  string(h.pipeline.State()),
	})
}

// handleTriggerRun executes one discovery run synchronously and returns its
// report. A run already in flight yields 409.
func (h *Handler) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.pipeline.State() == scheduler.StateRunning {
		writeError(w, http.StatusConflict, "a discovery run is already in progress")
		return
	}

	rep, err := h.pipeline.RunNow(r.Context())
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			writeError(w, http.StatusConflict, "a discovery run is already in progress")
			return
		}
		h.logger.ErrorContext(r.Context(), "triggered run failed",
			"operator", Operator(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "discovery run failed")
		return
	}

	h.logger.InfoContext(r.Context(), "discovery run triggered",
		"operator", Operator(r.Context()), "run_id", rep.RunID)
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	rep := h.pipeline.LastReport()
	if rep == nil {
		writeError(w, http.StatusNotFound, "no completed run")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts := h.pipeline.LastConflicts()
	if r.URL.Query().Get("pending") == "true" {
		pending := conflicts[:0:0]
		for _, c := range conflicts {
			if c.RequiresReview {
				pending = append(pending, c)
			}
		}
		conflicts = pending
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conflicts": conflicts,
		"count":     len(conflicts),
	})
}

func (h *Handler) handleNeedsParty(w http.ResponseWriter, r *http.Request) {
	records, err := h.registry.CandidatesNeedingParty(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "needs-party query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registry query failed")
		return
	}
	if records == nil {
		records = []registry.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"candidates": records,
		"count":      len(records),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
