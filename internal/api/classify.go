package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/middleware"
	"github.com/samujjwal/stayhub/internal/models"
)

// ClassifyRequest is the payload for the diagnostic classification endpoint.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassifyResponse exposes full classifier detail for rule tuning.
type ClassifyResponse struct {
	Flags      []models.ModerationFlag `json:"flags"`
	Confidence float64                 `json:"confidence"`
	PIIFlags   []models.ModerationFlag `json:"pii_flags"`
	MaskedText string                  `json:"masked_text"`
}

// ClassifyTextHandler handles POST /api/classify. It runs text classification
// and PII detection against an arbitrary string so moderators can tune rules.
func (s *Server) ClassifyTextHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "classify"
	const method = "POST"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	var req ClassifyRequest
	if !s.decodeJSON(w, r, &req) {
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusBadRequest))
		return
	}

	textRes, err := s.Classifier.ClassifyText(r.Context(), req.Text)
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("classify text", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusInternalServerError))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	piiRes, err := s.Classifier.DetectPII(r.Context(), req.Text)
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("detect pii", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusInternalServerError))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := ClassifyResponse{
		Flags:      textRes.Flags,
		Confidence: textRes.Confidence,
		PIIFlags:   piiRes.Flags,
		MaskedText: piiRes.MaskedText,
	}
	if resp.Flags == nil {
		resp.Flags = []models.ModerationFlag{}
	}
	if resp.PIIFlags == nil {
		resp.PIIFlags = []models.ModerationFlag{}
	}

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusOK))
	s.writeJSON(w, http.StatusOK, resp)
}
