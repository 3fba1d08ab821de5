package caseapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/navigator/internal/extract"
	"github.com/linnemanlabs/navigator/internal/normalize"
	"github.com/linnemanlabs/navigator/internal/refdata"
	"github.com/linnemanlabs/navigator/internal/triage"
	"github.com/linnemanlabs/navigator/internal/triage/memstore"
)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) Next(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%04d_150126", s.n), nil
}

func newTestService() *triage.Service {
	ref := refdata.MustLoad()
	norm := normalize.New(normalize.Options{Logger: log.Nop()})
	engine := triage.NewEngine(norm, extract.New(norm, ref), ref, log.Nop())
	return triage.NewService(memstore.New(), &seqIDs{}, engine, nil, nil, nil, log.Nop())
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	api := New(nil, newTestService(), 24*time.Hour)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, r chi.Router, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func openCase(t *testing.T, r chi.Router, utterance string) triage.TurnResult {
	t.Helper()
	rec := postJSON(t, r, "/api/v1/cases", fmt.Sprintf(`{"utterance":%q}`, utterance))
	if rec.Code != http.StatusCreated {
		t.Fatalf("open case = %d: %s", rec.Code, rec.Body.String())
	}
	var res triage.TurnResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode open response: %v", err)
	}
	return res
}

//  New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	api := New(nil, newTestService(), time.Hour)
	if api == nil {
		t.Fatal("New(nil, svc) returned nil API")
	}
	if api.logger == nil {
		t.Fatal("New(nil, svc) left logger nil; expected Nop logger")
	}
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil) did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil, time.Hour)
}

// Routing

func TestRegisterRoutes_Methods(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"POST open case", http.MethodPost, "/api/v1/cases", `{"utterance":"ho mal di testa"}`, http.StatusCreated},
		{"POST invalid JSON", http.MethodPost, "/api/v1/cases", `{bad`, http.StatusBadRequest},
		{"POST empty utterance", http.MethodPost, "/api/v1/cases", `{"utterance":"  "}`, http.StatusBadRequest},
		{"PUT cases not allowed", http.MethodPut, "/api/v1/cases", "", http.StatusMethodNotAllowed},
		{"GET active cases", http.MethodGet, "/api/v1/cases", "", http.StatusOK},
		{"GET missing case", http.MethodGet, "/api/v1/cases/9999_150126", "", http.StatusNotFound},
		{"DELETE missing case", http.MethodDelete, "/api/v1/cases/9999_150126", "", http.StatusNotFound},
		{"POST turn on missing case", http.MethodPost, "/api/v1/cases/9999_150126/turns", `{"utterance":"ciao"}`, http.StatusNotFound},
		{"POST cleanup", http.MethodPost, "/api/v1/cases/cleanup", "", http.StatusOK},
		{"GET unknown path", http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s = %d, want %d (body %s)", tt.method, tt.path, rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

// Case lifecycle over HTTP

func TestOpenCase_ReturnsQuestionAndState(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	res := openCase(t, r, "ho 35 anni e da ieri ho un forte mal di pancia, dolore 7/10")

	if res.State.ID != "0001_150126" {
		t.Errorf("id = %q", res.State.ID)
	}
	if res.Phase != triage.PhaseLocation {
		t.Errorf("phase = %s, want location", res.Phase)
	}
	if res.Completeness.Percent == 0 {
		t.Error("completeness should reflect slots filled on first turn")
	}
}

func TestTurn_AdvancesToDisposition(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	res := openCase(t, r, "ho 35 anni e da ieri ho un forte mal di pancia, dolore 7/10")
	id := res.State.ID

	for _, utt := range []string{
		"abito a Bologna",
		"no, nessun altro sintomo",
		"non prendo farmaci e non ho allergie",
	} {
		rec := postJSON(t, r, "/api/v1/cases/"+id+"/turns", fmt.Sprintf(`{"utterance":%q}`, utt))
		if rec.Code != http.StatusOK {
			t.Fatalf("turn %q = %d: %s", utt, rec.Code, rec.Body.String())
		}
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("decode turn response: %v", err)
		}
	}

	if res.Disposition == nil {
		t.Fatal("expected disposition after full path")
	}
	if res.Disposition.FacilityKind != "CAU" {
		t.Errorf("facility kind = %s, want CAU", res.Disposition.FacilityKind)
	}
}

func TestTurn_ValidationErrorIs422(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	res := openCase(t, r, "ho mal di testa da ieri")

	rec := postJSON(t, r, "/api/v1/cases/"+res.State.ID+"/turns", `{"utterance":"ho 150 anni"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp["slot"] != "age" {
		t.Errorf("slot = %v, want age", resp["slot"])
	}
}

func TestTurn_ResolvedCaseIs409(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	res := openCase(t, r, "ho un forte dolore al petto e non riesco a respirare")
	if res.Disposition == nil || res.Disposition.FacilityKind != "112" {
		t.Fatalf("expected immediate 112 disposition, got %+v", res.Disposition)
	}

	rec := postJSON(t, r, "/api/v1/cases/"+res.State.ID+"/turns", `{"utterance":"ora sto meglio"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestGetCase_RoundTrip(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	res := openCase(t, r, "ho la febbre alta da stamattina")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases/"+res.State.ID, http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var state triage.CaseState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ID != res.State.ID {
		t.Errorf("id = %q, want %q", state.ID, res.State.ID)
	}
}

func TestListActive_CountsOpenCases(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	openCase(t, r, "ho mal di schiena")
	openCase(t, r, "mio figlio ha la febbre")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}

func TestAbandonCase(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	res := openCase(t, r, "ho mal di schiena")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cases/"+res.State.ID, http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cases/"+res.State.ID, http.NoBody)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("abandoned case still retrievable: %d", rec.Code)
	}
}

// Fuzz

func FuzzOpenCase(f *testing.F) {
	api := New(nil, newTestService(), time.Hour)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	seeds := []struct {
		body        []byte
		contentType string
	}{
		{nil, ""},
		{[]byte(""), "application/json"},
		{[]byte("{}"), "application/json"},
		{[]byte(`{"utterance":"ho mal di testa"}`), "application/json"},
		{[]byte(`{"utterance":"dolore al petto"}`), "application/json"},
		{[]byte("{invalid json"), "application/json"},
		{[]byte("\x00\x01\x02\xff\xfe"), "application/octet-stream"},
		{[]byte("<xml>not json</xml>"), "text/xml"},
		{[]byte(strings.Repeat("a", 10000)), "text/plain"},
	}
	for _, s := range seeds {
		f.Add(s.body, s.contentType)
	}

	f.Fuzz(func(t *testing.T, body []byte, contentType string) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cases", strings.NewReader(string(body)))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()

		// Must not panic
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated && rec.Code != http.StatusBadRequest && rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("POST /api/v1/cases with body len=%d content-type=%q = %d, want 201, 400 or 422",
				len(body), contentType, rec.Code)
		}
	})
}
