package api

import "net/http"

// HealthCheck reports that the process is up.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadinessCheck reports whether the server accepts traffic.
func (s *Server) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// SetReady flips the readiness state.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}
