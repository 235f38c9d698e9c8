package moderation

import (
	"context"

	"github.com/samujjwal/stayhub/internal/models"
)

// TextResult is the outcome of one text classification pass.
type TextResult struct {
	Flags      []models.ModerationFlag
	Confidence float64
}

// PIIResult is the outcome of PII extraction. MaskedText is a copy of the
// input with every detected match replaced by a placeholder token.
type PIIResult struct {
	Flags      []models.ModerationFlag
	MaskedText string
}

// ImageResult is the outcome of one image classification pass.
type ImageResult struct {
	Flags      []models.ModerationFlag
	Confidence float64
}

// TextClassifier defines a pluggable interface for text content analysis.
// The rule-based implementation in this package can be swapped for a
// remote-service-backed one without touching the decision engine.
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (*TextResult, error)
	DetectPII(ctx context.Context, text string) (*PIIResult, error)
}

// ImageClassifier defines a pluggable interface for image content analysis.
type ImageClassifier interface {
	ClassifyImage(ctx context.Context, url string) (*ImageResult, error)
}

// ImageBackend performs the actual visual classification of an image.
// The probe classifier delegates to it after the accessibility check.
type ImageBackend interface {
	Classify(ctx context.Context, url string) (*ImageResult, error)
}
