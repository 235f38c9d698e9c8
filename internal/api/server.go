// Package api exposes the moderation engine and moderator tooling over HTTP.
// Authorization is assumed to have been checked upstream; the admin surface
// trusts its caller.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/audit"
	"github.com/samujjwal/stayhub/internal/config"
	"github.com/samujjwal/stayhub/internal/moderation"
	"github.com/samujjwal/stayhub/internal/observability"
	"github.com/samujjwal/stayhub/internal/queue"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger     *zap.Logger
	Engine     *moderation.Engine
	Queue      *queue.ReviewQueue
	Ledger     *audit.Ledger
	Classifier moderation.TextClassifier
	Metrics    observability.MetricsRegistry
	Config     config.Config
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, engine *moderation.Engine, reviewQueue *queue.ReviewQueue,
	ledger *audit.Ledger, classifier moderation.TextClassifier,
	metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:     logger,
		Engine:     engine,
		Queue:      reviewQueue,
		Ledger:     ledger,
		Classifier: classifier,
		Metrics:    metrics,
		Config:     cfg,
	}
}

// RegisterRoutes attaches all handlers to the router.
func (s *Server) RegisterRoutes(r *mux.Router) {
	// Content service surface
	r.HandleFunc("/moderate/listing", s.ModerateListingHandler).Methods("POST")
	r.HandleFunc("/moderate/profile", s.ModerateProfileHandler).Methods("POST")
	r.HandleFunc("/moderate/message", s.ModerateMessageHandler).Methods("POST")
	r.HandleFunc("/moderate/review", s.ModerateReviewHandler).Methods("POST")

	// Moderator tooling
	admin := r.PathPrefix("/api").Subrouter()
	admin.HandleFunc("/queue", s.ListQueueHandler).Methods("GET")
	admin.HandleFunc("/queue/stats", s.QueueStatsHandler).Methods("GET")
	admin.HandleFunc("/queue/{entityType}/{entityId}/resolve", s.ResolveQueueHandler).Methods("POST")
	admin.HandleFunc("/users/{id}/history", s.UserHistoryHandler).Methods("GET")
	admin.HandleFunc("/classify", s.ClassifyTextHandler).Methods("POST")

	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())
}

// writeJSON renders v with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("encode response", zap.Error(err))
	}
}

// decodeJSON parses the request body into v, replying 400 on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}
