package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/middleware"
)

// UserHistoryHandler handles GET /api/users/{id}/history.
func (s *Server) UserHistoryHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "user_history"
	const method = "GET"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	userID := mux.Vars(r)["id"]
	if userID == "" {
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusBadRequest))
		http.Error(w, "user id required", http.StatusBadRequest)
		return
	}

	history, err := s.Ledger.UserHistory(r.Context(), userID)
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("user history", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusInternalServerError))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusOK))
	s.writeJSON(w, http.StatusOK, history)
}
