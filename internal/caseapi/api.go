// Package caseapi exposes the triage case lifecycle over HTTP.
package caseapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/navigator/internal/triage"
)

// CaseService defines the business operations caseapi needs.
type CaseService interface {
	Open(ctx context.Context, utterance string) (*triage.TurnResult, error)
	Turn(ctx context.Context, id, utterance string) (*triage.TurnResult, error)
	Get(ctx context.Context, id string) (*triage.CaseState, bool, error)
	Active(ctx context.Context) ([]*triage.CaseState, error)
	Abandon(ctx context.Context, id string) error
	Cleanup(ctx context.Context, retention time.Duration) (int, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger    log.Logger
	svc       CaseService
	retention time.Duration
}

// New creates a new API handler. retention bounds the cleanup endpoint.
func New(logger log.Logger, svc CaseService, retention time.Duration) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("case service is required"))
	}
	return &API{
		logger:    logger,
		svc:       svc,
		retention: retention,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/cases", a.handleOpenCase)
		r.Get("/cases", a.handleListActive)
		r.Post("/cases/cleanup", a.handleCleanup)
		r.Post("/cases/{id}/turns", a.handleTurn)
		r.Get("/cases/{id}", a.handleGetCase)
		r.Delete("/cases/{id}", a.handleAbandon)
	})
}

func (a *API) handleGetCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("navigator.case.id", id))

	state, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get case", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("navigator.case.phase", string(state.Phase)))

	writeJSON(w, http.StatusOK, state)
}

func (a *API) handleListActive(w http.ResponseWriter, r *http.Request) {
	states, err := a.svc.Active(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list active cases")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(states),
		"cases": states,
	})
}

func (a *API) handleAbandon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := a.svc.Abandon(r.Context(), id); err != nil {
		a.writeServiceError(w, r, err, "failed to abandon case", "id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCleanup(w http.ResponseWriter, r *http.Request) {
	n, err := a.svc.Cleanup(r.Context(), a.retention)
	if err != nil {
		a.logger.Error(r.Context(), err, "cleanup failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
