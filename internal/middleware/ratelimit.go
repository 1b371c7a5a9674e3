package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/cache"
)

// UserRateLimiter enforces a per-user request budget.
type UserRateLimiter interface {
	CheckUserRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Limiter       UserRateLimiter
	RatePerMinute int
	Burst         int
	Enabled       bool
	Logger        *slog.Logger
}

// RateLimitUser returns a middleware that rate limits requests per
// authenticated user with a token bucket. It must run after Auth.
//
// A limiter failure fails open: availability over strict enforcement.
func RateLimitUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.FromContext(r.Context())
			if authCtx == nil {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Limiter.CheckUserRateLimit(r.Context(), authCtx.UserID, cfg.RatePerMinute, cfg.Burst)
			if err != nil {
				cfg.Logger.Warn("rate limit check failed",
					slog.String("user_id", authCtx.UserID),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RatePerMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int64(result.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				writeAuthError(w, http.StatusTooManyRequests, "Too many requests, slow down")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
