package api

import (
	"net/http"
	"time"
)

// HealthResponse reports liveness and which service answered.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthHandler responds with a simple status check.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "health"
	const method = "GET"

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.Config.ServiceName,
	})

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
