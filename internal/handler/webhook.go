package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/inkwell/inkwell/internal/identity"
)

// maxWebhookBodyBytes caps how much webhook payload is read.
const maxWebhookBodyBytes = 64 << 10 // 64KB

// PlanEvictor evicts cached plan state when the provider reports a change.
type PlanEvictor interface {
	DeletePlanState(ctx context.Context, userID string) error
}

// WebhookHandler receives identity provider push notifications.
type WebhookHandler struct {
	secret       string
	replayWindow time.Duration
	evictor      PlanEvictor
	logger       *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(secret string, replayWindow time.Duration, evictor PlanEvictor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:       secret,
		replayWindow: replayWindow,
		evictor:      evictor,
		logger:       logger,
	}
}

// HandleIdentityEvent handles POST /webhooks/identity.
//
// Signature failures return 401 so the provider retries with a fresh
// timestamp; unknown event types are acknowledged and dropped.
func (h *WebhookHandler) HandleIdentityEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Could not read request body")
		return
	}

	timestamp, err := strconv.ParseInt(r.Header.Get(identity.HeaderWebhookTimestamp), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, false, "Invalid webhook timestamp")
		return
	}

	signature := r.Header.Get(identity.HeaderWebhookSignature)
	if err := identity.VerifyWebhook(h.secret, signature, timestamp, body, h.replayWindow); err != nil {
		h.logger.Warn("webhook verification failed", slog.String("error", err.Error()))
		writeMessage(w, http.StatusUnauthorized, false, "Invalid webhook signature")
		return
	}

	event, err := identity.ParseEvent(body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid webhook payload")
		return
	}

	if event.Type == identity.EventUserUpdated && event.UserID != "" {
		if err := h.evictor.DeletePlanState(r.Context(), event.UserID); err != nil {
			h.logger.Error("plan cache eviction failed",
				slog.String("user_id", event.UserID),
				slog.String("error", err.Error()),
			)
			writeMessage(w, http.StatusInternalServerError, false, "Failed to process event")
			return
		}
		h.logger.Info("plan cache evicted",
			slog.String("user_id", event.UserID),
			slog.String("event", event.Type),
		)
	}

	w.WriteHeader(http.StatusNoContent)
}
