package handler

import (
	"net/http"

	"github.com/mcoot/captain-draft/internal/api/response"
	"github.com/mcoot/captain-draft/internal/services/session"
	"github.com/mcoot/captain-draft/internal/storage"
)

// HealthHandler reports liveness and the number of live sessions
type HealthHandler struct {
	registry *session.Registry
	storage  storage.Storage
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(registry *session.Registry, storage storage.Storage) *HealthHandler {
	return &HealthHandler{registry: registry, storage: storage}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		response.JSON(w, http.StatusServiceUnavailable, response.Health{
			Status:   "degraded",
			Sessions: h.registry.Count(),
		})
		return
	}
	response.JSON(w, http.StatusOK, response.Health{
		Status:   "ok",
		Sessions: h.registry.Count(),
	})
}
