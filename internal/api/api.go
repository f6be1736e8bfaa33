// Package api serves the outlet directory over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/klgeo/outlets-cli/internal/model"
	"github.com/klgeo/outlets-cli/internal/nlquery"
)

// OutletReader is the read slice of the store the API serves.
type OutletReader interface {
	GetOutlet(ctx context.Context, id int64) (*model.Outlet, error)
	ListOutlets(ctx context.Context) ([]model.Outlet, error)
}

// Asker answers natural-language questions about outlets.
type Asker interface {
	Ask(ctx context.Context, question string) nlquery.Outcome
}

// Handler holds the API's collaborators.
type Handler struct {
	store OutletReader
	asker Asker
}

// NewHandler creates a Handler over the given store and query pipeline.
func NewHandler(store OutletReader, asker Asker) *Handler {
	return &Handler{store: store, asker: asker}
}

// Router builds the chi router. allowedOrigins configures CORS; empty
// means allow all, matching the original front end's needs.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", h.health)
	r.Get("/outlets", h.listOutlets)
	r.Get("/outlets/{id}", h.getOutlet)
	r.Post("/query", h.query)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listOutlets returns every outlet. An empty directory is an empty
// array, not an error.
func (h *Handler) listOutlets(w http.ResponseWriter, r *http.Request) {
	outlets, err := h.store.ListOutlets(r.Context())
	if err != nil {
		zap.L().Error("api: list outlets", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if outlets == nil {
		outlets = []model.Outlet{}
	}
	writeJSON(w, http.StatusOK, outlets)
}

func (h *Handler) getOutlet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid outlet id")
		return
	}

	outlet, err := h.store.GetOutlet(r.Context(), id)
	if err != nil {
		zap.L().Error("api: get outlet", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if outlet == nil {
		writeError(w, http.StatusNotFound, "outlet not found")
		return
	}
	writeJSON(w, http.StatusOK, outlet)
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer  string `json:"answer"`
	Outcome string `json:"outcome"`
}

// query runs a question through the pipeline. Pipeline failures are
// valid results with safe answers, so they come back 200, not 500.
func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	outcome := h.asker.Ask(r.Context(), req.Question)
	writeJSON(w, http.StatusOK, queryResponse{
		Answer:  outcome.Answer,
		Outcome: string(outcome.Kind),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
