package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/identity"
	"github.com/inkwell/inkwell/internal/metrics"
	"github.com/inkwell/inkwell/internal/model"
)

type fakeProvider struct {
	userID     string
	verifyErr  error
	state      *model.PlanState
	stateErr   error
	stateCalls int
}

func (f *fakeProvider) VerifySession(token string) (string, error) {
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return f.userID, nil
}

func (f *fakeProvider) PlanState(ctx context.Context, userID string) (*model.PlanState, error) {
	f.stateCalls++
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return f.state, nil
}

type fakeStateCache struct {
	state  *model.PlanState
	getErr error
	sets   int
}

func (f *fakeStateCache) GetPlanState(ctx context.Context, userID string) (*model.PlanState, error) {
	return f.state, f.getErr
}

func (f *fakeStateCache) SetPlanState(ctx context.Context, userID string, state *model.PlanState, ttl time.Duration) error {
	f.sets++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureAuth records the auth context the middleware passed downstream.
func captureAuth(got **model.AuthContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_MissingToken(t *testing.T) {
	t.Parallel()

	mw := Auth(AuthConfig{
		Provider: &fakeProvider{},
		Cache:    &fakeStateCache{},
		Metrics:  metrics.NewNoop(),
		Logger:   testLogger(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ai/user/get-user-creations", nil)
	rec := httptest.NewRecorder()

	var got *model.AuthContext
	mw(captureAuth(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if got != nil {
		t.Error("handler should not run without a token")
	}
}

func TestAuth_InvalidSession(t *testing.T) {
	t.Parallel()

	mw := Auth(AuthConfig{
		Provider: &fakeProvider{verifyErr: identity.ErrInvalidSession},
		Cache:    &fakeStateCache{},
		Metrics:  metrics.NewNoop(),
		Logger:   testLogger(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	var got *model.AuthContext
	mw(captureAuth(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_CacheMissFetchesAndCaches(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		userID: "user-1",
		state:  &model.PlanState{Plan: model.PlanFree, FreeUsage: 4},
	}
	cache := &fakeStateCache{}
	recorder := metrics.NewInMemory()

	mw := Auth(AuthConfig{
		Provider: provider,
		Cache:    cache,
		CacheTTL: time.Minute,
		Metrics:  recorder,
		Logger:   testLogger(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	var got *model.AuthContext
	mw(captureAuth(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil {
		t.Fatal("auth context missing")
	}
	if got.UserID != "user-1" {
		t.Errorf("user_id = %s", got.UserID)
	}
	if got.Plan != model.PlanFree || got.FreeUsage != 4 {
		t.Errorf("plan state = %s/%d, want free/4", got.Plan, got.FreeUsage)
	}

	if provider.stateCalls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.stateCalls)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
	if snap := recorder.Snapshot(); snap.PlanCacheMisses != 1 || snap.PlanCacheHits != 0 {
		t.Errorf("cache metrics = %d hits / %d misses", snap.PlanCacheHits, snap.PlanCacheMisses)
	}
}

func TestAuth_CacheHitSkipsProvider(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{userID: "user-1"}
	cache := &fakeStateCache{state: &model.PlanState{Plan: model.PlanPro}}
	recorder := metrics.NewInMemory()

	mw := Auth(AuthConfig{
		Provider: provider,
		Cache:    cache,
		CacheTTL: time.Minute,
		Metrics:  recorder,
		Logger:   testLogger(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	var got *model.AuthContext
	mw(captureAuth(&got)).ServeHTTP(rec, req)

	if got == nil || got.Plan != model.PlanPro {
		t.Fatalf("auth context = %+v, want pro plan", got)
	}
	if provider.stateCalls != 0 {
		t.Errorf("provider calls = %d, want 0 on cache hit", provider.stateCalls)
	}
	if snap := recorder.Snapshot(); snap.PlanCacheHits != 1 {
		t.Errorf("cache hits = %d, want 1", snap.PlanCacheHits)
	}
}

func TestAuth_ProviderFailure(t *testing.T) {
	t.Parallel()

	mw := Auth(AuthConfig{
		Provider: &fakeProvider{userID: "user-1", stateErr: identity.ErrUnavailable},
		Cache:    &fakeStateCache{},
		Metrics:  metrics.NewNoop(),
		Logger:   testLogger(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	var got *model.AuthContext
	mw(captureAuth(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if got != nil {
		t.Error("handler should not run when plan lookup fails")
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{"valid", "Bearer abc123", "abc123", true},
		{"case insensitive scheme", "bearer abc123", "abc123", true},
		{"missing header", "", "", false},
		{"wrong scheme", "Basic abc123", "", false},
		{"empty token", "Bearer ", "", false},
		{"no space", "Bearerabc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			got, ok := bearerToken(req)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuth_CacheReadFailureFallsThrough(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		userID: "user-1",
		state:  &model.PlanState{Plan: model.PlanFree},
	}
	mw := Auth(AuthConfig{
		Provider: provider,
		Cache:    &fakeStateCache{getErr: errors.New("redis down")},
		Metrics:  metrics.NewNoop(),
		Logger:   testLogger(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	var got *model.AuthContext
	mw(captureAuth(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if provider.stateCalls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.stateCalls)
	}
}
