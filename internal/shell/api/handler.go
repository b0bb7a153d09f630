// Package api provides HTTP handlers for the deployment workflow API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jsodeh/sabi/internal/core/domain"
	"github.com/jsodeh/sabi/internal/core/guidance"
	"github.com/jsodeh/sabi/internal/core/recommend"
	"github.com/jsodeh/sabi/internal/core/validation"
	"github.com/jsodeh/sabi/internal/shell/catalog"
	"github.com/jsodeh/sabi/internal/shell/store"
	"github.com/jsodeh/sabi/internal/shell/workflow"
)

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	engine  *workflow.Engine
	catalog *catalog.Catalog
	history store.Store
	logger  *slog.Logger
}

// NewHandler creates a new API handler. history may be nil when workflow
// archiving is disabled.
func NewHandler(engine *workflow.Engine, cat *catalog.Catalog, history store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:  engine,
		catalog: cat,
		history: history,
		logger:  logger.With("component", "api"),
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/projects/validate", h.handleValidateProject)

		r.Route("/platforms", func(r chi.Router) {
			r.Get("/", h.handleListPlatforms)
			r.Post("/recommend", h.handleRecommend)
			r.Post("/{id}/guidance", h.handleGuidance)
		})

		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", h.handleCreateWorkflow)
			r.Get("/", h.handleListWorkflows)
			r.Get("/{id}", h.handleGetWorkflow)
			r.Post("/{id}/execute", h.handleExecuteWorkflow)
			r.Post("/{id}/cancel", h.handleCancelWorkflow)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", h.handleListHistory)
			r.Get("/{id}", h.handleGetHistory)
		})
	})

	return r
}

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"catalog": "ok",
		"engine":  "ok",
	}
	if h.catalog.Len() == 0 {
		checks["catalog"] = "empty"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not_ready", Checks: checks})
		return
	}
	h.writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready", Checks: checks})
}

// =============================================================================
// Validation Handlers
// =============================================================================

func (h *Handler) handleValidateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	result := validation.ValidateReadiness(req.toDomain())
	h.writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// Platform Handlers
// =============================================================================

func (h *Handler) handleListPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms := h.catalog.Platforms()

	// ?kind= narrows the list to compatible platforms, easiest setup first.
	if kind := r.URL.Query().Get("kind"); kind != "" {
		if !domain.KnownKind(domain.ProjectKind(kind)) {
			h.writeError(w, http.StatusBadRequest, "unknown project kind: "+kind, "validation_error")
			return
		}
		platforms = recommend.ListCompatible(platforms, domain.ProjectConfig{Kind: domain.ProjectKind(kind)})
	}

	h.writeJSON(w, http.StatusOK, PlatformListResponse{Platforms: platforms, Total: len(platforms)})
}

func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	cfg := req.Project.toDomain()
	if !domain.KnownKind(cfg.Kind) {
		h.writeError(w, http.StatusBadRequest, "unknown project kind: "+string(cfg.Kind), "validation_error")
		return
	}

	rec, err := recommend.Recommend(h.catalog.Platforms(), cfg, req.Preferences)
	if err != nil {
		if errors.Is(err, domain.ErrNoCompatiblePlatform) {
			h.writeError(w, http.StatusNotFound, "no platform supports this project kind", "no_compatible_platform")
			return
		}
		h.logger.Error("recommendation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "recommendation failed", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleGuidance(w http.ResponseWriter, r *http.Request) {
	platform, err := h.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "platform not found", "not_found")
		return
	}

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	cfg := req.toDomain()
	if !platform.SupportsKind(cfg.Kind) {
		h.writeError(w, http.StatusUnprocessableEntity,
			"platform does not support this project kind", "no_compatible_platform")
		return
	}

	h.writeJSON(w, http.StatusOK, guidance.Generate(platform, cfg))
}

// =============================================================================
// Workflow Handlers
// =============================================================================

func (h *Handler) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	wf, err := h.engine.Create(r.Context(), req.Project.toDomain(), req.Platform)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrPlatformNotFound):
			h.writeError(w, http.StatusNotFound, "platform not found", "not_found")
		case errors.Is(err, domain.ErrNoCompatiblePlatform):
			h.writeError(w, http.StatusUnprocessableEntity,
				"platform does not support this project kind", "no_compatible_platform")
		case errors.Is(err, domain.ErrInvalidConfig):
			h.writeError(w, http.StatusBadRequest, "invalid project configuration", "validation_error")
		default:
			h.logger.Error("failed to create workflow", "error", err)
			h.writeError(w, http.StatusInternalServerError, "failed to create workflow", "internal_error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, wf)
}

func (h *Handler) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows := h.engine.ListWorkflows()
	h.writeJSON(w, http.StatusOK, WorkflowListResponse{Workflows: workflows, Total: len(workflows)})
}

func (h *Handler) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.engine.GetStatus(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "workflow not found", "not_found")
		return
	}
	h.writeJSON(w, http.StatusOK, wf)
}

func (h *Handler) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// ?wait=true blocks until the workflow reaches a terminal state.
	if r.URL.Query().Get("wait") == "true" {
		final, err := h.engine.Execute(r.Context(), id)
		if err != nil && final == nil {
			h.writeExecuteError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, final)
		return
	}

	// Check the workflow exists and is runnable before detaching.
	wf, err := h.engine.GetStatus(id)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "workflow not found", "not_found")
		return
	}
	if wf.Status != domain.StatusPending {
		h.writeError(w, http.StatusConflict, "workflow is not pending", "invalid_state")
		return
	}

	go func() {
		// Detached from the request context on purpose: the run outlives it.
		if _, err := h.engine.Execute(context.Background(), id); err != nil {
			h.logger.Warn("workflow execution finished with error", "workflow_id", id, "error", err)
		}
	}()

	h.writeJSON(w, http.StatusAccepted, wf)
}

func (h *Handler) writeExecuteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrWorkflowNotFound):
		h.writeError(w, http.StatusNotFound, "workflow not found", "not_found")
	case errors.Is(err, domain.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, "workflow is not pending", "invalid_state")
	default:
		h.logger.Error("failed to execute workflow", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to execute workflow", "internal_error")
	}
}

func (h *Handler) handleCancelWorkflow(w http.ResponseWriter, r *http.Request) {
	err := h.engine.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrWorkflowNotFound):
			h.writeError(w, http.StatusNotFound, "workflow not found", "not_found")
		case errors.Is(err, domain.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, "workflow already finished", "invalid_state")
		default:
			h.logger.Error("failed to cancel workflow", "error", err)
			h.writeError(w, http.StatusInternalServerError, "failed to cancel workflow", "internal_error")
		}
		return
	}

	wf, err := h.engine.GetStatus(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "workflow not found", "not_found")
		return
	}
	h.writeJSON(w, http.StatusOK, wf)
}

// =============================================================================
// History Handlers
// =============================================================================

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, "workflow history is disabled", "not_found")
		return
	}

	opts := store.DefaultListOptions()
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}

	var (
		workflows []domain.DeploymentWorkflow
		err       error
	)
	if projectID := r.URL.Query().Get("project_id"); projectID != "" {
		workflows, err = h.history.ListWorkflowsByProject(r.Context(), projectID, opts)
	} else {
		workflows, err = h.history.ListWorkflows(r.Context(), opts)
	}
	if err != nil {
		h.logger.Error("failed to list workflow history", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list workflow history", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, HistoryListResponse{Workflows: workflows, Total: len(workflows)})
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, "workflow history is disabled", "not_found")
		return
	}

	wf, err := h.history.GetWorkflow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "workflow not found", "not_found")
			return
		}
		h.logger.Error("failed to load workflow history", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load workflow history", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, wf)
}

// =============================================================================
// Response Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
