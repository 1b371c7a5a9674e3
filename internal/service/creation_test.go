package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/inkwell/inkwell/internal/genai"
	"github.com/inkwell/inkwell/internal/media"
	"github.com/inkwell/inkwell/internal/metrics"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/quota"
	"github.com/inkwell/inkwell/internal/repository"
)

type fakeRepo struct {
	created     []*model.Creation
	createErr   error
	toggleLiked bool
	toggleErr   error
	listed      []*model.Creation
}

func (f *fakeRepo) CreateCreation(ctx context.Context, c *model.Creation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, c)
	return nil
}

func (f *fakeRepo) ListCreationsByOwner(ctx context.Context, userID string) ([]*model.Creation, error) {
	return f.listed, nil
}

func (f *fakeRepo) ListPublishedCreations(ctx context.Context) ([]*model.Creation, error) {
	return f.listed, nil
}

func (f *fakeRepo) ToggleLike(ctx context.Context, creationID, userID string) (bool, error) {
	if f.toggleErr != nil {
		return false, f.toggleErr
	}
	return f.toggleLiked, nil
}

type fakePlans struct {
	increments   int
	incrementErr error
}

func (f *fakePlans) IncrementFreeUsage(ctx context.Context, userID string) error {
	f.increments++
	return f.incrementErr
}

type fakePlanCache struct {
	evictions int
}

func (f *fakePlanCache) DeletePlanState(ctx context.Context, userID string) error {
	f.evictions++
	return nil
}

type fakeText struct {
	content string
	err     error
	calls   int
}

func (f *fakeText) Complete(ctx context.Context, req genai.CompletionRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

type fakeImages struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type fakeAssets struct {
	result         *media.UploadResult
	err            error
	lastFolder     string
	lastTransform  string
	deliveryCalled string
}

func (f *fakeAssets) Upload(ctx context.Context, data []byte, filename, folder, transformation string) (*media.UploadResult, error) {
	f.lastFolder = folder
	f.lastTransform = transformation
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAssets) DeliveryURL(publicID, transformation string) string {
	f.deliveryCalled = transformation
	return "https://cdn.example.com/" + transformation + "/" + publicID
}

type deps struct {
	repo   *fakeRepo
	plans  *fakePlans
	cache  *fakePlanCache
	text   *fakeText
	images *fakeImages
	assets *fakeAssets
}

func newTestService(t *testing.T, d *deps) *CreationService {
	t.Helper()
	return NewCreationService(CreationServiceConfig{
		Repo:    d.repo,
		Plans:   d.plans,
		Cache:   d.cache,
		Text:    d.text,
		Images:  d.images,
		Assets:  d.assets,
		Gate:    quota.NewGate(10),
		Metrics: metrics.NewInMemory(),
		Logger:  slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)),
	})
}

func defaultDeps() *deps {
	return &deps{
		repo:   &fakeRepo{},
		plans:  &fakePlans{},
		cache:  &fakePlanCache{},
		text:   &fakeText{content: "generated text"},
		images: &fakeImages{data: []byte("png-bytes")},
		assets: &fakeAssets{result: &media.UploadResult{PublicID: "inkwell/abc", SecureURL: "https://cdn.example.com/abc.png"}},
	}
}

func freeUser(usage int) *model.AuthContext {
	return &model.AuthContext{UserID: "user-free", Plan: model.PlanFree, FreeUsage: usage}
}

func proUser() *model.AuthContext {
	return &model.AuthContext{UserID: "user-pro", Plan: model.PlanPro}
}

func TestGenerateArticle_FreeUserRecordsAndIncrements(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	content, err := svc.GenerateArticle(context.Background(), freeUser(3), "Write about Go", 0)
	if err != nil {
		t.Fatalf("GenerateArticle() error = %v", err)
	}
	if content != "generated text" {
		t.Errorf("content = %q, want %q", content, "generated text")
	}

	if len(d.repo.created) != 1 {
		t.Fatalf("created %d rows, want 1", len(d.repo.created))
	}
	row := d.repo.created[0]
	if row.Type != model.CreationArticle {
		t.Errorf("type = %s, want article", row.Type)
	}
	if row.UserID != "user-free" {
		t.Errorf("user_id = %s, want user-free", row.UserID)
	}
	if row.Publish {
		t.Error("articles should not be published")
	}
	if row.ID == "" {
		t.Error("id should be assigned")
	}
	if row.Likes == nil {
		t.Error("likes should be an empty slice, not nil")
	}

	if d.plans.increments != 1 {
		t.Errorf("increments = %d, want 1", d.plans.increments)
	}
	if d.cache.evictions != 1 {
		t.Errorf("evictions = %d, want 1", d.cache.evictions)
	}
}

func TestGenerateArticle_ProUserNeverIncrements(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	if _, err := svc.GenerateArticle(context.Background(), proUser(), "topic", 0); err != nil {
		t.Fatalf("GenerateArticle() error = %v", err)
	}

	if d.plans.increments != 0 {
		t.Errorf("increments = %d, want 0", d.plans.increments)
	}
	if d.cache.evictions != 0 {
		t.Errorf("evictions = %d, want 0", d.cache.evictions)
	}
}

func TestGenerateArticle_QuotaDeniedSkipsProvider(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	_, err := svc.GenerateArticle(context.Background(), freeUser(10), "topic", 0)
	if !errors.Is(err, quota.ErrLimitReached) {
		t.Fatalf("error = %v, want ErrLimitReached", err)
	}

	if d.text.calls != 0 {
		t.Errorf("provider called %d times, want 0", d.text.calls)
	}
	if len(d.repo.created) != 0 {
		t.Error("nothing should be recorded on denial")
	}
}

func TestGenerateArticle_EmptyPrompt(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	if _, err := svc.GenerateArticle(context.Background(), freeUser(0), "   ", 0); !errors.Is(err, ErrPromptRequired) {
		t.Errorf("error = %v, want ErrPromptRequired", err)
	}
}

func TestGenerateArticle_WriteFailureSkipsIncrement(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	d.repo.createErr = errors.New("connection refused")
	svc := newTestService(t, d)

	_, err := svc.GenerateArticle(context.Background(), freeUser(0), "topic", 0)
	if err == nil {
		t.Fatal("expected error from failed write")
	}

	if d.plans.increments != 0 {
		t.Errorf("increments = %d, want 0 on write failure", d.plans.increments)
	}
}

func TestGenerateArticle_IncrementFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	d.plans.incrementErr = errors.New("identity provider down")
	svc := newTestService(t, d)

	if _, err := svc.GenerateArticle(context.Background(), freeUser(0), "topic", 0); err != nil {
		t.Fatalf("GenerateArticle() error = %v, increment failure should not surface", err)
	}
}

func TestGenerateArticle_ProviderErrorPropagates(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	d.text.err = genai.ErrTimeout
	svc := newTestService(t, d)

	_, err := svc.GenerateArticle(context.Background(), proUser(), "topic", 0)
	if !errors.Is(err, genai.ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
	if len(d.repo.created) != 0 {
		t.Error("nothing should be recorded on provider failure")
	}
}

func TestGenerateBlogTitle_FreeTier(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	if _, err := svc.GenerateBlogTitle(context.Background(), freeUser(9), "Go concurrency"); err != nil {
		t.Fatalf("GenerateBlogTitle() error = %v", err)
	}

	if d.repo.created[0].Type != model.CreationBlogTitle {
		t.Errorf("type = %s, want blog-title", d.repo.created[0].Type)
	}
	if d.plans.increments != 1 {
		t.Errorf("increments = %d, want 1", d.plans.increments)
	}
}

func TestGenerateImage_ProOnly(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	_, err := svc.GenerateImage(context.Background(), freeUser(0), "a sunset", false)
	if !errors.Is(err, quota.ErrProRequired) {
		t.Fatalf("error = %v, want ErrProRequired", err)
	}
	if d.images.calls != 0 {
		t.Error("provider should not be called for free plan")
	}
}

func TestGenerateImage_RecordsStoredURL(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	url, err := svc.GenerateImage(context.Background(), proUser(), "a sunset", true)
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if url != "https://cdn.example.com/abc.png" {
		t.Errorf("url = %s, want stored secure url", url)
	}

	if d.assets.lastFolder != "inkwell/generate" {
		t.Errorf("folder = %s, want inkwell/generate", d.assets.lastFolder)
	}

	row := d.repo.created[0]
	if row.Type != model.CreationImage {
		t.Errorf("type = %s, want image", row.Type)
	}
	if !row.Publish {
		t.Error("publish flag should be recorded")
	}
	if row.Content != url {
		t.Errorf("content = %s, want %s", row.Content, url)
	}
}

func TestRemoveBackground_AppliesTransform(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	if _, err := svc.RemoveBackground(context.Background(), proUser(), []byte("img"), "photo.png"); err != nil {
		t.Fatalf("RemoveBackground() error = %v", err)
	}

	if d.assets.lastTransform != media.TransformRemoveBackground {
		t.Errorf("transform = %s, want %s", d.assets.lastTransform, media.TransformRemoveBackground)
	}
	if d.assets.lastFolder != "inkwell/bg-remove" {
		t.Errorf("folder = %s, want inkwell/bg-remove", d.assets.lastFolder)
	}
	if d.repo.created[0].Prompt != "Remove background from the image" {
		t.Errorf("prompt = %q", d.repo.created[0].Prompt)
	}
}

func TestRemoveObject_BuildsEditURL(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	url, err := svc.RemoveObject(context.Background(), proUser(), []byte("img"), "photo.png", "red car")
	if err != nil {
		t.Fatalf("RemoveObject() error = %v", err)
	}

	wantTransform := media.GenerativeRemove("red car")
	if d.assets.deliveryCalled != wantTransform {
		t.Errorf("delivery transform = %s, want %s", d.assets.deliveryCalled, wantTransform)
	}
	if d.repo.created[0].Prompt != "Removed red car from image" {
		t.Errorf("prompt = %q", d.repo.created[0].Prompt)
	}
	if d.repo.created[0].Content != url {
		t.Errorf("content = %s, want %s", d.repo.created[0].Content, url)
	}
}

func TestRemoveObject_MissingObject(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	if _, err := svc.RemoveObject(context.Background(), proUser(), []byte("img"), "p.png", " "); !errors.Is(err, ErrObjectRequired) {
		t.Errorf("error = %v, want ErrObjectRequired", err)
	}
}

func TestReviewResume_TooLarge(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	oversized := make([]byte, MaxResumeBytes+1)
	_, err := svc.ReviewResume(context.Background(), proUser(), oversized)
	if !errors.Is(err, ErrResumeTooLarge) {
		t.Errorf("error = %v, want ErrResumeTooLarge", err)
	}
	if d.text.calls != 0 {
		t.Error("provider should not be called for oversized resume")
	}
}

func TestReviewResume_ProOnly(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	if _, err := svc.ReviewResume(context.Background(), freeUser(0), []byte("pdf")); !errors.Is(err, quota.ErrProRequired) {
		t.Errorf("error = %v, want ErrProRequired", err)
	}
}

func TestReviewResume_UnreadablePDF(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	_, err := svc.ReviewResume(context.Background(), proUser(), []byte("not a pdf"))
	if !errors.Is(err, ErrResumeUnreadable) {
		t.Errorf("error = %v, want ErrResumeUnreadable", err)
	}
}

func TestToggleLike_Messages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		liked bool
		want  string
	}{
		{"liked", true, "Creation liked"},
		{"unliked", false, "Creation Unliked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := defaultDeps()
			d.repo.toggleLiked = tt.liked
			svc := newTestService(t, d)

			result, err := svc.ToggleLike(context.Background(), "user-1", "creation-1")
			if err != nil {
				t.Fatalf("ToggleLike() error = %v", err)
			}
			if result.Message != tt.want {
				t.Errorf("message = %q, want %q", result.Message, tt.want)
			}
			if result.Liked != tt.liked {
				t.Errorf("liked = %v, want %v", result.Liked, tt.liked)
			}
		})
	}
}

func TestToggleLike_NotFound(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	d.repo.toggleErr = repository.ErrCreationNotFound
	svc := newTestService(t, d)

	if _, err := svc.ToggleLike(context.Background(), "user-1", "nope"); !errors.Is(err, ErrCreationNotFound) {
		t.Errorf("error = %v, want ErrCreationNotFound", err)
	}
}

func TestToggleLike_MissingID(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	svc := newTestService(t, d)

	if _, err := svc.ToggleLike(context.Background(), "user-1", ""); !errors.Is(err, ErrIDRequired) {
		t.Errorf("error = %v, want ErrIDRequired", err)
	}
}
