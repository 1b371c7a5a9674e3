package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Webhook headers set by the identity provider.
const (
	HeaderWebhookSignature = "X-Identity-Signature"
	HeaderWebhookTimestamp = "X-Identity-Timestamp"
)

// Webhook verification errors.
var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside replay window")
)

// DefaultReplayWindow is the default replay protection window.
const DefaultReplayWindow = 5 * time.Minute

// Event is a provider push notification about a user.
type Event struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// EventUserUpdated signals that a user's plan or metadata changed.
const EventUserUpdated = "user.updated"

// VerifyWebhook checks the HMAC-SHA256 signature over "{timestamp}.{body}"
// and rejects payloads outside the replay window.
func VerifyWebhook(secret, signature string, timestamp int64, body []byte, replayWindow time.Duration) error {
	if replayWindow <= 0 {
		replayWindow = DefaultReplayWindow
	}

	delta := time.Now().Unix() - timestamp
	if delta < 0 {
		delta = -delta
	}
	if delta > int64(replayWindow.Seconds()) {
		return ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}

	return nil
}

// SignWebhook produces the signature the provider would send for a payload.
// Exposed for tests and local tooling.
func SignWebhook(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseEvent decodes a webhook payload.
func ParseEvent(body []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	if evt.Type == "" {
		return nil, errors.New("webhook event missing type")
	}
	return &evt, nil
}
