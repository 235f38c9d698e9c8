package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/middleware"
	"github.com/samujjwal/stayhub/internal/moderation"
)

// ModerationResponse is what content services see. The internal flag
// taxonomy and confidence scores are deliberately not exposed; producers
// only ever learn the terminal status and blocked reasons.
type ModerationResponse struct {
	Status              string   `json:"status"`
	RequiresHumanReview bool     `json:"requires_human_review"`
	BlockedReasons      []string `json:"blocked_reasons,omitempty"`
	MaskedText          string   `json:"masked_text,omitempty"`
}

// ModerateListingRequest is the payload from the listing service.
type ModerateListingRequest struct {
	ListingID   string   `json:"listing_id"`
	OwnerID     string   `json:"owner_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PhotoURLs   []string `json:"photo_urls"`
}

// ModerateListingHandler handles POST /moderate/listing.
func (s *Server) ModerateListingHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "moderate_listing"
	const method = "POST"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	var req ModerateListingRequest
	if !s.decodeJSON(w, r, &req) {
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusBadRequest))
		return
	}

	result, err := s.Engine.ModerateListing(r.Context(), moderation.ListingContent{
		EntityID:    req.ListingID,
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Description: req.Description,
		PhotoURLs:   req.PhotoURLs,
	})
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("moderate listing", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusInternalServerError))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusOK))
	s.writeJSON(w, http.StatusOK, ModerationResponse{
		Status:              string(result.Status),
		RequiresHumanReview: result.RequiresHumanReview,
		BlockedReasons:      result.BlockedReasons,
	})
}

// ModerateProfileRequest is the payload from the profile service. Bio and
// photo_url are optional; absent fields skip their classifier.
type ModerateProfileRequest struct {
	ProfileID string  `json:"profile_id"`
	OwnerID   string  `json:"owner_id"`
	Bio       *string `json:"bio,omitempty"`
	PhotoURL  *string `json:"photo_url,omitempty"`
}

// ModerateProfileHandler handles POST /moderate/profile.
func (s *Server) ModerateProfileHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "moderate_profile"
	const method = "POST"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	var req ModerateProfileRequest
	if !s.decodeJSON(w, r, &req) {
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusBadRequest))
		return
	}

	result, err := s.Engine.ModerateProfile(r.Context(), moderation.ProfileContent{
		EntityID: req.ProfileID,
		OwnerID:  req.OwnerID,
		Bio:      req.Bio,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("moderate profile", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusInternalServerError))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusOK))
	s.writeJSON(w, http.StatusOK, ModerationResponse{
		Status:              string(result.Status),
		RequiresHumanReview: result.RequiresHumanReview,
		BlockedReasons:      result.BlockedReasons,
	})
}

// ModerateMessageRequest is the payload from the messaging service.
type ModerateMessageRequest struct {
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text"`
}

// ModerateMessageHandler handles POST /moderate/message. The response
// carries the PII-masked copy of the text for the caller to store.
func (s *Server) ModerateMessageHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "moderate_message"
	const method = "POST"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	var req ModerateMessageRequest
	if !s.decodeJSON(w, r, &req) {
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusBadRequest))
		return
	}

	result, masked, err := s.Engine.ModerateMessage(r.Context(), moderation.MessageContent{
		EntityID: req.MessageID,
		SenderID: req.SenderID,
		Text:     req.Text,
	})
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("moderate message", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusInternalServerError))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusOK))
	s.writeJSON(w, http.StatusOK, ModerationResponse{
		Status:              string(result.Status),
		RequiresHumanReview: result.RequiresHumanReview,
		BlockedReasons:      result.BlockedReasons,
		MaskedText:          masked,
	})
}

// ModerateReviewRequest is the payload from the review service.
type ModerateReviewRequest struct {
	ReviewID   string `json:"review_id"`
	ReviewerID string `json:"reviewer_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Rating     int    `json:"rating"`
}

// ModerateReviewHandler handles POST /moderate/review.
func (s *Server) ModerateReviewHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "moderate_review"
	const method = "POST"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	var req ModerateReviewRequest
	if !s.decodeJSON(w, r, &req) {
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusBadRequest))
		return
	}

	result, err := s.Engine.ModerateReview(r.Context(), moderation.ReviewContent{
		EntityID:   req.ReviewID,
		ReviewerID: req.ReviewerID,
		Title:      req.Title,
		Content:    req.Content,
		Rating:     req.Rating,
	})
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("moderate review", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusInternalServerError))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(http.StatusOK))
	s.writeJSON(w, http.StatusOK, ModerationResponse{
		Status:              string(result.Status),
		RequiresHumanReview: result.RequiresHumanReview,
		BlockedReasons:      result.BlockedReasons,
	})
}
