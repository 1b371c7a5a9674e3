// Package media integrates with the hosted media-management service, which
// persists binary assets and applies image-editing transforms.
package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for media service operations.
var (
	ErrTimeout  = errors.New("media service timed out")
	ErrUpstream = errors.New("media service request failed")
)

// Transforms used by the product.
const (
	// TransformRemoveBackground strips the image background during upload.
	TransformRemoveBackground = "e_background_removal"
)

// GenerativeRemove returns the edit transform that erases the named object.
func GenerativeRemove(object string) string {
	return "e_gen_remove:prompt_(" + strings.ReplaceAll(object, " ", "%20") + ")"
}

// Config holds media client configuration.
type Config struct {
	// UploadURL is the API base, e.g. https://api.media.example.com.
	UploadURL string
	// DeliveryURL is the CDN base used for edit-transform URLs.
	DeliveryURL string
	CloudName   string
	APIKey      string
	APISecret   string
	Timeout     time.Duration
}

// Client talks to the media-management service.
type Client struct {
	uploadURL   string
	deliveryURL string
	cloudName   string
	apiKey      string
	apiSecret   string
	httpClient  *http.Client
}

// NewClient creates a media client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		uploadURL:   strings.TrimSuffix(cfg.UploadURL, "/"),
		deliveryURL: strings.TrimSuffix(cfg.DeliveryURL, "/"),
		cloudName:   cfg.CloudName,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// UploadResult identifies a stored asset.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

// Upload stores asset bytes under folder and returns the durable reference.
// A non-empty transformation is applied eagerly during the upload, so the
// returned URL already points at the transformed asset.
func (c *Client) Upload(ctx context.Context, data []byte, filename, folder, transformation string) (*UploadResult, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	// Signed parameters, excluding file and api_key.
	params := map[string]string{
		"folder":    folder,
		"timestamp": timestamp,
	}
	if transformation != "" {
		params["transformation"] = transformation
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for key, value := range params {
		if err := form.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("build upload request: %w", err)
		}
	}
	if err := form.WriteField("api_key", c.apiKey); err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	if err := form.WriteField("signature", c.sign(params)); err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.uploadURL, c.cloudName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("asset upload: %w", ErrTimeout)
		}
		return nil, fmt.Errorf("asset upload: %v: %w", err, ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("asset upload: status %d: %s: %w", resp.StatusCode, detail, ErrUpstream)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", ErrUpstream)
	}
	if result.SecureURL == "" {
		return nil, fmt.Errorf("asset upload: response missing secure_url: %w", ErrUpstream)
	}

	return &result, nil
}

// DeliveryURL builds a URL that applies transformation to a stored asset
// without re-uploading bytes. The transform runs on the service's edge.
func (c *Client) DeliveryURL(publicID, transformation string) string {
	if transformation == "" {
		return fmt.Sprintf("%s/%s/image/upload/%s", c.deliveryURL, c.cloudName, publicID)
	}
	return fmt.Sprintf("%s/%s/image/upload/%s/%s", c.deliveryURL, c.cloudName, transformation, publicID)
}

// sign builds the request signature: parameters sorted by name, joined as
// key=value pairs with '&', with the API secret appended, SHA-1 hashed.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+params[key])
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
