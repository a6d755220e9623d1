package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"upixl/internal/infrastructure"
)

// HealthHandler serves liveness information.
type HealthHandler struct {
	startedAt time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now()}
}

// Routes returns the health routes.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.Health)
	return r
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":  "healthy",
		"service": infrastructure.ServiceName,
		"version": infrastructure.ServiceVersion,
		"uptime":  time.Since(h.startedAt).String(),
	})
}
