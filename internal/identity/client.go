// Package identity integrates with the hosted identity & plan provider.
//
// The provider owns user accounts, subscription plans, and the free-usage
// counter; this package only verifies session tokens, reads that state, and
// advances the counter.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inkwell/inkwell/internal/model"
)

// Sentinel errors for identity provider operations.
var (
	ErrInvalidSession = errors.New("invalid session token")
	ErrUserNotFound   = errors.New("user not found")
	ErrTimeout        = errors.New("identity provider timed out")
	ErrUnavailable    = errors.New("identity provider unavailable")
)

// Config holds identity client configuration.
type Config struct {
	// BaseURL of the provider's management API.
	BaseURL string
	// SecretKey authenticates management API calls.
	SecretKey string
	// SessionJWTSecret verifies session tokens presented by the SPA.
	SessionJWTSecret string
	// Timeout bounds every management API call.
	Timeout time.Duration
}

// Client talks to the identity provider.
type Client struct {
	baseURL    string
	secretKey  string
	sessionKey []byte
	httpClient *http.Client
}

// NewClient creates a Client from config.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		sessionKey: []byte(cfg.SessionJWTSecret),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// VerifySession validates a session JWT and returns the caller's user ID.
func (c *Client) VerifySession(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return c.sessionKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidSession
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidSession
	}

	return sub, nil
}

// userEnvelope mirrors the provider's user resource.
type userEnvelope struct {
	ID              string         `json:"id"`
	PrivateMetadata map[string]any `json:"private_metadata"`
}

// PlanState fetches the user's plan and free-usage counter from the
// provider's private metadata. Users with no plan metadata default to free.
func (c *Client) PlanState(ctx context.Context, userID string) (*model.PlanState, error) {
	endpoint := c.baseURL + "/v1/users/" + url.PathEscape(userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build plan state request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.requestError("fetch plan state", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch plan state: status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var envelope userEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode plan state response: %w", ErrUnavailable)
	}

	state := &model.PlanState{Plan: model.PlanFree}
	if v, ok := envelope.PrivateMetadata["plan"].(string); ok && v != "" {
		state.Plan = model.Plan(v)
	}
	if v, ok := envelope.PrivateMetadata["free_usage"].(float64); ok && v > 0 {
		state.FreeUsage = int(v)
	}

	return state, nil
}

// IncrementFreeUsage advances the user's free-usage counter by one.
//
// The provider's metadata API has no increment primitive, so this is a
// read-then-write: the counter is fetched and written back plus one. Two
// concurrent increments can collapse into one, which under-counts usage.
// Under-counting is the conservative direction for a paywall.
func (c *Client) IncrementFreeUsage(ctx context.Context, userID string) error {
	state, err := c.PlanState(ctx, userID)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"private_metadata": map[string]any{
			"free_usage": state.FreeUsage + 1,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal metadata payload: %w", err)
	}

	endpoint := c.baseURL + "/v1/users/" + url.PathEscape(userID) + "/metadata"

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.requestError("increment free usage", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent:
		return fmt.Errorf("increment free usage: status %d: %w", resp.StatusCode, ErrUnavailable)
	}

	return nil
}

// requestError classifies a transport failure as timeout or unavailability.
func (c *Client) requestError(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return fmt.Errorf("%s: %v: %w", op, err, ErrUnavailable)
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
