// HTTP handlers for the pipeline service.
//
// All routes expect x-user-id and x-user-role headers forwarded by the
// Gateway after authentication. The handlers are thin: parse, call the
// Engine, map sentinel errors onto status codes.
//
// Routes:
//
//	POST /applications/apply            → candidate applies to a job
//	POST /applications/{id}/stage       → move application to a new stage
//	GET  /applications/{id}             → fetch one application
//	GET  /applications/{id}/history     → fetch its audit trail
//	GET  /applications/my               → candidate's own applications
//	GET  /applications/job/{jobId}      → applications for a job (?stage= filter)

package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
)

// Handler holds shared dependencies.
type Handler struct {
	engine *Engine
}

// NewHandler returns a configured Handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes mounts all pipeline-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/applications/apply", h.handleApply)
	mux.HandleFunc("/applications/my", h.handleMyApplications)
	mux.HandleFunc("/applications/job/", h.handleJobApplications)
	mux.HandleFunc("/applications/", h.handleApplicationByID)
}

// ─── Identity ────────────────────────────────────────────────────────────────

type actor struct {
	id   string
	role Role
}

// actorFromRequest reads the gateway-forwarded identity headers.
func actorFromRequest(r *http.Request) (actor, error) {
	id := r.Header.Get("x-user-id")
	if id == "" {
		return actor{}, errors.New("missing x-user-id header")
	}
	role, err := ParseRole(r.Header.Get("x-user-role"))
	if err != nil {
		return actor{}, fmt.Errorf("invalid x-user-role header: %w", err)
	}
	return actor{id: id, role: role}, nil
}

// ─── Individual handlers ─────────────────────────────────────────────────────

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	caller, err := actorFromRequest(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var body struct {
		JobID string `json:"jobId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.JobID == "" {
		jsonError(w, "body must contain jobId", http.StatusBadRequest)
		return
	}

	app, err := h.engine.Apply(r.Context(), caller.id, body.JobID, caller.role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, app)
}

func (h *Handler) handleMyApplications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	caller, err := actorFromRequest(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	apps, err := h.engine.MyApplications(r.Context(), caller.id, caller.role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, apps)
}

// handleJobApplications handles GET /applications/job/{jobId}?stage=
func (h *Handler) handleJobApplications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	caller, err := actorFromRequest(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/applications/job/")
	if jobID == "" || strings.Contains(jobID, "/") {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}

	apps, err := h.engine.JobApplications(r.Context(), jobID, r.URL.Query().Get("stage"), caller.role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, apps)
}

// handleApplicationByID dispatches:
//
//	GET  /applications/{id}
//	GET  /applications/{id}/history
//	POST /applications/{id}/stage
func (h *Handler) handleApplicationByID(w http.ResponseWriter, r *http.Request) {
	caller, err := actorFromRequest(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		h.getApplication(w, r, parts[1], caller)
	case len(parts) == 3 && parts[2] == "history" && r.Method == http.MethodGet:
		h.getHistory(w, r, parts[1], caller)
	case len(parts) == 3 && parts[2] == "stage" && r.Method == http.MethodPost:
		h.changeStage(w, r, parts[1], caller)
	default:
		jsonError(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request, appID string, caller actor) {
	app, err := h.engine.GetApplicationFor(r.Context(), appID, caller.id, caller.role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, app)
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request, appID string, caller actor) {
	entries, err := h.engine.History(r.Context(), appID, caller.id, caller.role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, entries)
}

func (h *Handler) changeStage(w http.ResponseWriter, r *http.Request, appID string, caller actor) {
	var body struct {
		NewStage string `json:"newStage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewStage == "" {
		jsonError(w, "body must contain newStage", http.StatusBadRequest)
		return
	}

	res, err := h.engine.ChangeStage(r.Context(), appID, body.NewStage, caller.role, caller.id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	jsonOK(w, res)
}

// ─── Response helpers ────────────────────────────────────────────────────────

// writeDomainError maps sentinel errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrConflict):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrForbidden):
		jsonError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrUnknownStage):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("[pipeline] internal error: %v", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
