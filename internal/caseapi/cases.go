package caseapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/navigator/internal/extract"
	"github.com/linnemanlabs/navigator/internal/triage"
)

// maxUtteranceLen caps a single turn's text; phone transcriptions never come
// close to this.
const maxUtteranceLen = 4096

type turnRequest struct {
	Utterance string `json:"utterance"`
}

func readUtterance(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req turnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUtteranceLen+1024)).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return "", false
	}
	utt := strings.TrimSpace(req.Utterance)
	if utt == "" || len(utt) > maxUtteranceLen {
		http.Error(w, `{"error":"utterance must be 1..4096 characters"}`, http.StatusBadRequest)
		return "", false
	}
	return utt, true
}

func (a *API) handleOpenCase(w http.ResponseWriter, r *http.Request) {
	utt, ok := readUtterance(w, r)
	if !ok {
		return
	}

	res, err := a.svc.Open(r.Context(), utt)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to open case")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("navigator.case.id", res.State.ID),
		attribute.String("navigator.case.path", string(res.State.Path)),
	)
	a.logger.Info(r.Context(), "case opened via api",
		"case_id", res.State.ID,
		"path", string(res.State.Path),
		"urgency", res.State.Meta.Urgency,
	)

	writeJSON(w, http.StatusCreated, res)
}

func (a *API) handleTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	utt, ok := readUtterance(w, r)
	if !ok {
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("navigator.case.id", id))

	res, err := a.svc.Turn(r.Context(), id, utt)
	if err != nil {
		a.writeServiceError(w, r, err, "turn failed", "id", id)
		return
	}

	span.SetAttributes(attribute.String("navigator.case.phase", string(res.Phase)))
	writeJSON(w, http.StatusOK, res)
}

// writeServiceError maps service errors onto HTTP statuses: a validation
// failure is the caller's to fix, a missing case is 404, a turn against a
// resolved case is a conflict, anything else is internal.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string, kv ...any) {
	var verr *extract.ValidationError
	var nfe *triage.NotFoundError
	var ierr *triage.InvariantError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"slot":   verr.Slot,
			"value":  verr.Value,
			"reason": verr.Reason,
		})
	case errors.As(err, &nfe):
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	case errors.As(err, &ierr):
		writeJSON(w, http.StatusConflict, map[string]any{"error": ierr.Reason})
	default:
		a.logger.Error(r.Context(), err, msg, kv...)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}
