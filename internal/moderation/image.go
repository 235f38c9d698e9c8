package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/models"
)

// Flag type tags produced by the image classifier.
const (
	FlagImageInaccessible = "IMAGE_INACCESSIBLE"
	FlagClassifierError   = "CLASSIFIER_ERROR"
)

// ProbeImageClassifier checks that an image URL is reachable and delegates
// visual classification to an optional backend. With no backend configured it
// reports a degraded confidence of 0.5 and no additional flags; an
// unavailable visual classifier must never block publication on its own.
type ProbeImageClassifier struct {
	httpClient *http.Client
	backend    ImageBackend
	logger     *zap.Logger
}

// NewProbeImageClassifier builds an image classifier. backend may be nil.
func NewProbeImageClassifier(probeTimeout time.Duration, backend ImageBackend, logger *zap.Logger) *ProbeImageClassifier {
	return &ProbeImageClassifier{
		httpClient: &http.Client{Timeout: probeTimeout},
		backend:    backend,
		logger:     logger,
	}
}

// ClassifyImage probes the URL and runs the backend when one is configured.
// Backend errors are caught here and turned into a single classifier-error
// flag with confidence 0; they never propagate to the caller.
func (c *ProbeImageClassifier) ClassifyImage(ctx context.Context, url string) (*ImageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var flags []models.ModerationFlag
	if !c.probe(ctx, url) {
		flags = append(flags, models.ModerationFlag{
			Type:        FlagImageInaccessible,
			Severity:    models.SeverityMedium,
			Confidence:  1,
			Description: "Image URL could not be fetched",
		})
	}

	if c.backend == nil {
		return &ImageResult{Flags: flags, Confidence: 0.5}, nil
	}

	res, err := c.backend.Classify(ctx, url)
	if err != nil {
		c.logger.Warn("image backend failed", zap.String("url", url), zap.Error(err))
		flags = append(flags, models.ModerationFlag{
			Type:        FlagClassifierError,
			Severity:    models.SeverityMedium,
			Confidence:  0,
			Description: "Image classifier error",
		})
		return &ImageResult{Flags: flags, Confidence: 0}, nil
	}

	flags = append(flags, res.Flags...)
	return &ImageResult{Flags: flags, Confidence: res.Confidence}, nil
}

// probe performs a HEAD request against the URL and reports reachability.
func (c *ProbeImageClassifier) probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// RemoteImageBackend calls an external classification service over HTTP.
type RemoteImageBackend struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteImageBackend builds a backend client for the given service URL.
func NewRemoteImageBackend(baseURL string, timeout time.Duration) *RemoteImageBackend {
	return &RemoteImageBackend{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type remoteClassifyRequest struct {
	URL string `json:"url"`
}

type remoteClassifyResponse struct {
	Flags      []models.ModerationFlag `json:"flags"`
	Confidence float64                 `json:"confidence"`
}

// Classify posts the image URL to the backend and decodes its verdict.
func (b *RemoteImageBackend) Classify(ctx context.Context, url string) (*ImageResult, error) {
	body, err := json.Marshal(remoteClassifyRequest{URL: url})
	if err != nil {
		return nil, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call image backend: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image backend returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	var decoded remoteClassifyResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	return &ImageResult{Flags: decoded.Flags, Confidence: decoded.Confidence}, nil
}
