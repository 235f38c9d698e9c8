package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/middleware"
	"github.com/samujjwal/stayhub/internal/models"
	"github.com/samujjwal/stayhub/internal/queue"
)

// ListQueueHandler handles GET /api/queue with optional status, priority and
// entity_type query filters. Moderators see full flag detail here.
func (s *Server) ListQueueHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "queue_list"
	const method = "GET"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	q := r.URL.Query()
	items, err := s.Queue.List(r.Context(), queue.Filter{
		Status:     models.Status(q.Get("status")),
		Priority:   models.Priority(q.Get("priority")),
		EntityType: q.Get("entity_type"),
	})
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("list queue", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusInternalServerError))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.QueueItem{}
	}

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusOK))
	s.writeJSON(w, http.StatusOK, items)
}

// ResolveRequest is the payload for a moderator decision.
type ResolveRequest struct {
	Decision    string  `json:"decision"`
	ModeratorID string  `json:"moderator_id"`
	Notes       *string `json:"notes,omitempty"`
}

// ResolveQueueHandler handles POST /api/queue/{entityType}/{entityId}/resolve.
func (s *Server) ResolveQueueHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "queue_resolve"
	const method = "POST"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	vars := mux.Vars(r)
	entityType := vars["entityType"]
	entityID := vars["entityId"]

	var req ResolveRequest
	if !s.decodeJSON(w, r, &req) {
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusBadRequest))
		return
	}
	if req.Decision == "" || req.ModeratorID == "" {
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusBadRequest))
		http.Error(w, "decision and moderator_id required", http.StatusBadRequest)
		return
	}

	item, err := s.Queue.Resolve(r.Context(), entityType, entityID, models.Status(req.Decision), req.ModeratorID, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrItemNotFound):
			s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusNotFound))
			http.Error(w, "no queue item for entity", http.StatusNotFound)
		case errors.Is(err, queue.ErrInvalidDecision):
			s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusBadRequest))
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			middleware.LoggerFromRequest(r, s.Logger).Error("resolve queue item", zap.Error(err))
			s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusInternalServerError))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusOK))
	s.writeJSON(w, http.StatusOK, item)
}

// QueueStatsHandler handles GET /api/queue/stats.
func (s *Server) QueueStatsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "queue_stats"
	const method = "GET"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	stats, err := s.Queue.Stats(r.Context())
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("queue stats", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusInternalServerError))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusOK))
	s.writeJSON(w, http.StatusOK, stats)
}
