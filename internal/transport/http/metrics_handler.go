package http

import (
	"net/http"
)

// MetricsHandler exposes the Prometheus scrape endpoint backed by the OTel
// prometheus exporter.
type MetricsHandler struct {
	prometheus http.Handler
}

// NewMetricsHandler creates a metrics handler. prometheus may be nil when
// metrics are disabled; the endpoint then reports 404.
func NewMetricsHandler(prometheus http.Handler) *MetricsHandler {
	return &MetricsHandler{prometheus: prometheus}
}

// ServeHTTP handles GET /metrics.
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		http.NotFound(w, r)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}
