// Package server exposes job submission, job status and page inspection over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/core"
	"github.com/arnavsurve/pagestep/pkg/jobs"
	"github.com/arnavsurve/pagestep/pkg/log"
	"github.com/arnavsurve/pagestep/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// PDAJobType is the job type of runs started through /pda-init.
const PDAJobType = "init-pda"

// JobService is the part of jobs.Manager the server drives.
type JobService interface {
	Start(ctx context.Context, req jobs.StartRequest) (string, error)
	Status(id string) (types.Job, error)
	All() []types.Job
}

type Handlers struct {
	jobs      JobService
	inspector browser.Inspector
	logger    types.Logger
}

// NewHandlers builds the handlers. inspector may be nil, in which case the
// page endpoints answer 503.
func NewHandlers(svc JobService, inspector browser.Inspector, logger types.Logger) *Handlers {
	if logger == nil {
		logger = log.Nop()
	}
	return &Handlers{jobs: svc, inspector: inspector, logger: logger}
}

// NewRouter returns the routed handler with the standard middleware stack.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	h.RegisterRoutes(r)
	return r
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.HandleHealthCheck)

	r.Post("/execute-job", h.HandleExecuteJob)
	r.Post("/pda-init", h.HandlePDAInit)
	r.Post("/job-status", h.HandleJobStatus)
	r.Get("/job-status/{id}", h.HandleJobStatus)
	r.Post("/jobs", h.HandleListJobs)
	r.Get("/jobs", h.HandleListJobs)

	r.Post("/page-screenshot", h.HandleScreenshot)
	r.Post("/page-code", h.HandlePageCode)
	r.Post("/current-page", h.HandleCurrentPage)
}

func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type executeRequest struct {
	Data  *types.JobDocument `json:"data"`
	PdaID string             `json:"pdaId"`
	// A bare document is accepted too.
	types.JobDocument
}

type startedResponse struct {
	Success   bool   `json:"success"`
	PdaID     string `json:"pdaId"`
	Message   string `json:"message"`
	StatusURL string `json:"statusUrl"`
}

// HandleExecuteJob starts a job from {"data": {...}, "pdaId": "..."} or a bare
// document and answers 202 without waiting for it.
func (h *Handlers) HandleExecuteJob(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	doc := req.Data
	if doc == nil {
		doc = &req.JobDocument
	}
	if doc.Actions == nil {
		h.respondWithError(w, http.StatusBadRequest, `invalid format: send a JSON document with an "actions" array`)
		return
	}
	if err := core.ValidateJobStructure(doc); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.start(w, r, jobs.StartRequest{
		ID:      req.PdaID,
		Type:    jobs.DefaultJobType,
		Name:    doc.Name,
		Actions: doc.Decode(),
	})
}

// HandlePDAInit runs the initPDA procedure as its own job.
func (h *Handlers) HandlePDAInit(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, jobs.StartRequest{
		Type:    PDAJobType,
		Name:    "PDA initialization",
		Actions: []types.Action{types.ProcedureAction{Name: "initPDA"}},
	})
}

func (h *Handlers) start(w http.ResponseWriter, r *http.Request, req jobs.StartRequest) {
	id, err := h.jobs.Start(r.Context(), req)
	if err != nil {
		if errors.Is(err, jobs.ErrJobRunning) {
			h.respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Failed to start job")
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusAccepted, startedResponse{
		Success:   true,
		PdaID:     id,
		Message:   "Job started in background.",
		StatusURL: "/job-status/" + id,
	})
}

type statusRequest struct {
	PdaID string `json:"pdaId"`
	ID    string `json:"id"`
}

// HandleJobStatus answers with the job record for the id in the path or in
// the body as pdaId or id.
func (h *Handlers) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" && r.Method == http.MethodPost {
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		id = req.PdaID
		if id == "" {
			id = req.ID
		}
	}
	if id == "" {
		h.respondWithError(w, http.StatusBadRequest, "job id (pdaId) missing")
		return
	}

	job, err := h.jobs.Status(id)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			h.respondWithError(w, http.StatusNotFound, "job not found")
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.All())
}

func (h *Handlers) HandleScreenshot(w http.ResponseWriter, r *http.Request) {
	if !h.requireInspector(w) {
		return
	}
	img, err := h.inspector.Screenshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Screenshot failed")
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"screenshot": base64.StdEncoding.EncodeToString(img),
	})
}

func (h *Handlers) HandlePageCode(w http.ResponseWriter, r *http.Request) {
	if !h.requireInspector(w) {
		return
	}
	html, err := h.inspector.HTML(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Reading page HTML failed")
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"success": true, "html": html})
}

func (h *Handlers) HandleCurrentPage(w http.ResponseWriter, r *http.Request) {
	if !h.requireInspector(w) {
		return
	}
	state, err := h.inspector.CurrentState(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Reading page state failed")
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"url":     state.URL,
		"title":   state.Title,
	})
}

func (h *Handlers) requireInspector(w http.ResponseWriter) bool {
	if h.inspector == nil {
		h.respondWithError(w, http.StatusServiceUnavailable, "no browser session")
		return false
	}
	return true
}

func (h *Handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, map[string]any{"success": false, "error": message})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
