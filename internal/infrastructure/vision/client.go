// Package vision is the HTTP adapter for the image classification backend.
package vision

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/domain/capability"
)

// ErrUnsupportedImage is returned when an inline payload is not an image.
var ErrUnsupportedImage = errors.New("unsupported image payload")

// Client posts images to the classifier backend.
type Client struct {
	httpClient *resty.Client
	cache      *lru.Cache
	log        zerolog.Logger
}

type classifyRequest struct {
	ImageData string `json:"image_data"`
	IsURL     bool   `json:"is_url"`
	MimeType  string `json:"mime_type,omitempty"`
}

type classifyResponse struct {
	Success    bool           `json:"success"`
	Label      string         `json:"label"`
	Title      string         `json:"title"`
	Confidence float64        `json:"confidence"`
	Error      string         `json:"error"`
	Metadata   map[string]any `json:"metadata"`
}

// NewClient creates a classifier client. cacheSize 0 disables caching.
func NewClient(baseURL, apiKey string, cacheSize int, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if apiKey != "" {
		httpClient.SetAuthToken(apiKey)
	}

	c := &Client{
		httpClient: httpClient,
		log:        log.With().Str("component", "vision-client").Logger(),
	}
	if cacheSize > 0 {
		cache, err := lru.New(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create classification cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Classify returns the label for an image. Inline payloads must sniff as image/*.
func (c *Client) Classify(ctx context.Context, in capability.ImageInput) (*capability.Classification, error) {
	req := classifyRequest{ImageData: in.Data, IsURL: in.IsURL}
	if !in.IsURL {
		data, err := decodeImage(in.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		mimeType := mimetype.Detect(data).String()
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedImage, mimeType)
		}
		req.MimeType = mimeType
	}

	key := cacheKey(in)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			result := *cached.(*capability.Classification)
			return &result, nil
		}
	}

	var out classifyResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/classify")
	if err != nil {
		return nil, fmt.Errorf("classify request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("vision api error: %d %s", resp.StatusCode(), resp.String())
	}

	result := &capability.Classification{
		Success:    out.Success,
		Label:      out.Label,
		Title:      out.Title,
		Confidence: out.Confidence,
		Reason:     out.Error,
		Extra:      out.Metadata,
	}
	if result.Success && c.cache != nil {
		stored := *result
		c.cache.Add(key, &stored)
	}

	c.log.Debug().Bool("success", result.Success).Str("label", result.Label).Float64("confidence", result.Confidence).Msg("image classified")
	return result, nil
}

// decodeImage accepts a data URL or bare base64.
func decodeImage(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("image data is required")
	}
	if strings.HasPrefix(value, "data:") {
		parts := strings.SplitN(value, ",", 2)
		if len(parts) != 2 {
			return nil, errors.New("invalid data url")
		}
		if !strings.Contains(parts[0], ";base64") {
			return nil, errors.New("data url must be base64 encoded")
		}
		value = parts[1]
	}
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}

func cacheKey(in capability.ImageInput) string {
	sum := sha256.Sum256([]byte(in.Data))
	prefix := "b64:"
	if in.IsURL {
		prefix = "url:"
	}
	return prefix + hex.EncodeToString(sum[:])
}

var _ capability.ImageClassifier = (*Client)(nil)
