package genai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// maxImageResponseBytes caps how much image data is read from the provider.
const maxImageResponseBytes = 32 << 20 // 32MB

// ImageConfig holds text-to-image client configuration.
type ImageConfig struct {
	// Endpoint of the text-to-image API.
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// ImageClient calls the text-to-image API.
type ImageClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewImageClient creates a text-to-image client.
func NewImageClient(cfg ImageConfig) *ImageClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &ImageClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: newHTTPClient(timeout),
	}
}

// GenerateImage renders an image for the prompt and returns the raw bytes.
// The provider takes the prompt as multipart form data and responds with the
// encoded image directly.
func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError("image generation", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := drainBody(resp.Body, 512)
		return nil, fmt.Errorf("image generation: status %d: %s: %w", resp.StatusCode, detail, ErrUpstream)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read image response: %w", ErrUpstream)
	}
	if len(data) == 0 {
		return nil, ErrEmptyResponse
	}

	return data, nil
}
