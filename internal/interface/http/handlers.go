package http

import (
	"net/http"
	"time"

	"github.com/classroll/classroll/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth reports every registered check. 503 when a critical check
// fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.healthStatus(r)
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleReady answers the readiness probe. Optional checks such as Redis do
// not affect it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.healthStatus(r)
	if !status.Ready {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", status.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive answers the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) healthStatus(r *http.Request) handlers.HealthStatus {
	if s.deps.HealthChecker == nil {
		return handlers.HealthStatus{
			Healthy:   true,
			Ready:     true,
			Message:   "no health checker configured",
			Timestamp: time.Now().UTC(),
			Version:   s.config.Version,
		}
	}
	return s.deps.HealthChecker.Check(r.Context())
}

// handleAPIRoot lists the API v1 endpoints.
func (s *Server) handleAPIRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "classroll",
		"version": s.config.Version,
		"endpoints": []string{
			"GET /api/v1/classrooms",
			"POST /api/v1/classrooms",
			"DELETE /api/v1/classrooms/{id}",
			"GET /api/v1/classrooms/{id}/roster",
			"POST /api/v1/classrooms/{id}/students/import",
			"GET /api/v1/students",
			"POST /api/v1/students",
			"GET /api/v1/students/{id}",
			"DELETE /api/v1/students/{id}",
			"GET /api/v1/students/{id}/attendance",
			"POST /api/v1/attendance",
			"GET /api/v1/attendance/records",
		},
	})
}
