package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"netviz/internal/hub"
	"netviz/internal/service"
)

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Devices  int    `json:"devices"`
}

// HealthHandler reports liveness and a few counters
type HealthHandler struct {
	svc *service.TopologyService
	hub *hub.Hub
	log logrus.FieldLogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(svc *service.TopologyService, h *hub.Hub, log logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{svc: svc, hub: h, log: log}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(h.log, w, "Method not allowed", "", http.StatusMethodNotAllowed)
		return
	}

	devices, err := h.svc.Snapshot()
	if err != nil {
		writeError(h.log, w, "Topology unavailable", err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(h.log, w, HealthResponse{
		Status:   "ok",
		Sessions: h.hub.ClientCount(),
		Devices:  len(devices),
	}, http.StatusOK)
}

// getClientIP extracts the real client IP from the request
// Handles X-Forwarded-For and X-Real-IP headers from reverse proxies
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For first (may contain multiple IPs)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr (may include port)
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Helper methods

func writeJSON(log logrus.FieldLogger, w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Failed to encode JSON")
	}
}

func writeError(log logrus.FieldLogger, w http.ResponseWriter, error, details string, statusCode int) {
	writeJSON(log, w, ErrorResponse{
		Error:   error,
		Details: details,
	}, statusCode)
}
