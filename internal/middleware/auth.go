package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/identity"
	"github.com/inkwell/inkwell/internal/metrics"
	"github.com/inkwell/inkwell/internal/model"
)

// IdentityProvider resolves sessions and plan state for authenticated users.
type IdentityProvider interface {
	VerifySession(token string) (string, error)
	PlanState(ctx context.Context, userID string) (*model.PlanState, error)
}

// PlanStateCache caches per-user plan state between identity lookups.
type PlanStateCache interface {
	GetPlanState(ctx context.Context, userID string) (*model.PlanState, error)
	SetPlanState(ctx context.Context, userID string, state *model.PlanState, ttl time.Duration) error
}

// AuthConfig holds dependencies for the authentication middleware.
type AuthConfig struct {
	Provider IdentityProvider
	Cache    PlanStateCache
	CacheTTL time.Duration
	Metrics  metrics.Recorder
	Logger   *slog.Logger
}

// Auth authenticates requests with a Bearer session token, resolves the
// caller's plan state, and stores both on the request context.
//
// Plan state is served from the cache when present. A cache failure is not
// fatal; the identity provider is consulted directly.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			userID, err := cfg.Provider.VerifySession(token)
			if err != nil {
				if errors.Is(err, identity.ErrInvalidSession) {
					writeAuthError(w, http.StatusUnauthorized, "Invalid or expired session")
					return
				}
				cfg.Logger.Error("session verification failed",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("error", err.Error()),
				)
				writeAuthError(w, http.StatusBadGateway, "Authentication service unavailable")
				return
			}

			state, err := cfg.Cache.GetPlanState(r.Context(), userID)
			if err != nil {
				cfg.Logger.Warn("plan cache read failed",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
			}

			if state != nil {
				cfg.Metrics.IncPlanCacheHit()
			} else {
				cfg.Metrics.IncPlanCacheMiss()

				state, err = cfg.Provider.PlanState(r.Context(), userID)
				if err != nil {
					cfg.Logger.Error("plan state lookup failed",
						slog.String("user_id", userID),
						slog.String("error", err.Error()),
					)
					writeAuthError(w, http.StatusBadGateway, "Authentication service unavailable")
					return
				}

				if cacheErr := cfg.Cache.SetPlanState(r.Context(), userID, state, cfg.CacheTTL); cacheErr != nil {
					cfg.Logger.Warn("plan cache write failed",
						slog.String("user_id", userID),
						slog.String("error", cacheErr.Error()),
					)
				}
			}

			authCtx := &model.AuthContext{
				UserID:    userID,
				Plan:      state.Plan,
				FreeUsage: state.FreeUsage,
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
