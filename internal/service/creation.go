// Package service implements the application's business logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/oklog/ulid/v2"

	"github.com/inkwell/inkwell/internal/genai"
	"github.com/inkwell/inkwell/internal/media"
	"github.com/inkwell/inkwell/internal/metrics"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/quota"
	"github.com/inkwell/inkwell/internal/repository"
)

// Input validation and processing errors.
var (
	ErrPromptRequired   = errors.New("prompt is required")
	ErrObjectRequired   = errors.New("object description is required")
	ErrImageRequired    = errors.New("image file is required")
	ErrIDRequired       = errors.New("creation id is required")
	ErrCreationNotFound = errors.New("creation not found")
	ErrResumeTooLarge   = errors.New("resume file exceeds size limit")
	ErrResumeUnreadable = errors.New("resume file could not be read")
)

// MaxResumeBytes is the largest accepted resume upload.
const MaxResumeBytes = 5 << 20 // 5MB

// Token budgets per generation kind.
const (
	articleMaxTokens   = 800
	blogTitleMaxTokens = 500
	resumeMaxTokens    = 1000
)

// Upload folders per generation kind.
const (
	folderGenerate   = "inkwell/generate"
	folderBackground = "inkwell/bg-remove"
	folderObject     = "inkwell/obj-remove"
)

// CreationRepository persists and queries the creations ledger.
type CreationRepository interface {
	CreateCreation(ctx context.Context, c *model.Creation) error
	ListCreationsByOwner(ctx context.Context, userID string) ([]*model.Creation, error)
	ListPublishedCreations(ctx context.Context) ([]*model.Creation, error)
	ToggleLike(ctx context.Context, creationID, userID string) (bool, error)
}

// PlanProvider advances the free-usage counter at the identity provider.
type PlanProvider interface {
	IncrementFreeUsage(ctx context.Context, userID string) error
}

// PlanCache evicts cached plan state after the counter moves.
type PlanCache interface {
	DeletePlanState(ctx context.Context, userID string) error
}

// TextGenerator produces text completions.
type TextGenerator interface {
	Complete(ctx context.Context, req genai.CompletionRequest) (string, error)
}

// ImageGenerator renders images from prompts.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// AssetStore persists binary assets and builds transform URLs.
type AssetStore interface {
	Upload(ctx context.Context, data []byte, filename, folder, transformation string) (*media.UploadResult, error)
	DeliveryURL(publicID, transformation string) string
}

// CreationService orchestrates quota checks, generation, and the ledger.
type CreationService struct {
	repo    CreationRepository
	plans   PlanProvider
	cache   PlanCache
	text    TextGenerator
	images  ImageGenerator
	assets  AssetStore
	gate    *quota.Gate
	metrics metrics.Recorder
	logger  *slog.Logger
}

// CreationServiceConfig holds CreationService dependencies.
type CreationServiceConfig struct {
	Repo    CreationRepository
	Plans   PlanProvider
	Cache   PlanCache
	Text    TextGenerator
	Images  ImageGenerator
	Assets  AssetStore
	Gate    *quota.Gate
	Metrics metrics.Recorder
	Logger  *slog.Logger
}

// NewCreationService creates a CreationService.
func NewCreationService(cfg CreationServiceConfig) *CreationService {
	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.NewNoop()
	}
	return &CreationService{
		repo:    cfg.Repo,
		plans:   cfg.Plans,
		cache:   cfg.Cache,
		text:    cfg.Text,
		images:  cfg.Images,
		assets:  cfg.Assets,
		gate:    cfg.Gate,
		metrics: rec,
		logger:  cfg.Logger,
	}
}

// GenerateArticle writes a full article for the prompt and records it.
func (s *CreationService) GenerateArticle(ctx context.Context, authCtx *model.AuthContext, prompt string, maxTokens int) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrPromptRequired
	}
	if err := s.admit(authCtx, quota.FeatureArticle); err != nil {
		return "", err
	}
	if maxTokens <= 0 {
		maxTokens = articleMaxTokens
	}

	start := time.Now()
	content, err := s.text.Complete(ctx, genai.CompletionRequest{
		Messages: []genai.Message{
			{Role: "system", Content: promptArticle},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	s.metrics.ObserveGenerationDuration("article", time.Since(start))
	if err != nil {
		return "", err
	}

	if err := s.record(ctx, authCtx, prompt, content, model.CreationArticle, false); err != nil {
		return "", err
	}

	return content, nil
}

// GenerateBlogTitle suggests blog titles for the topic and records them.
func (s *CreationService) GenerateBlogTitle(ctx context.Context, authCtx *model.AuthContext, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrPromptRequired
	}
	if err := s.admit(authCtx, quota.FeatureBlogTitle); err != nil {
		return "", err
	}

	start := time.Now()
	content, err := s.text.Complete(ctx, genai.CompletionRequest{
		Messages: []genai.Message{
			{Role: "system", Content: promptBlogTitle},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   blogTitleMaxTokens,
	})
	s.metrics.ObserveGenerationDuration("blog-title", time.Since(start))
	if err != nil {
		return "", err
	}

	if err := s.record(ctx, authCtx, prompt, content, model.CreationBlogTitle, false); err != nil {
		return "", err
	}

	return content, nil
}

// GenerateImage renders an image for the prompt, stores it, and records the
// stored URL. Published images appear in the community feed.
func (s *CreationService) GenerateImage(ctx context.Context, authCtx *model.AuthContext, prompt string, publish bool) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrPromptRequired
	}
	if err := s.admit(authCtx, quota.FeatureImage); err != nil {
		return "", err
	}

	start := time.Now()
	imageData, err := s.images.GenerateImage(ctx, prompt)
	s.metrics.ObserveGenerationDuration("image", time.Since(start))
	if err != nil {
		return "", err
	}

	result, err := s.assets.Upload(ctx, imageData, "generated.png", folderGenerate, "")
	if err != nil {
		return "", err
	}

	if err := s.record(ctx, authCtx, prompt, result.SecureURL, model.CreationImage, publish); err != nil {
		return "", err
	}

	return result.SecureURL, nil
}

// RemoveBackground strips the background from an uploaded image and records
// the resulting URL.
func (s *CreationService) RemoveBackground(ctx context.Context, authCtx *model.AuthContext, imageData []byte, filename string) (string, error) {
	if len(imageData) == 0 {
		return "", ErrImageRequired
	}
	if err := s.admit(authCtx, quota.FeatureRemoveBackground); err != nil {
		return "", err
	}

	start := time.Now()
	result, err := s.assets.Upload(ctx, imageData, filename, folderBackground, media.TransformRemoveBackground)
	s.metrics.ObserveGenerationDuration("remove-background", time.Since(start))
	if err != nil {
		return "", err
	}

	if err := s.record(ctx, authCtx, "Remove background from the image", result.SecureURL, model.CreationImage, false); err != nil {
		return "", err
	}

	return result.SecureURL, nil
}

// RemoveObject erases the described object from an uploaded image and records
// the resulting URL. The edit runs on the media service's edge, so the
// returned URL carries the transform rather than re-uploaded bytes.
func (s *CreationService) RemoveObject(ctx context.Context, authCtx *model.AuthContext, imageData []byte, filename, object string) (string, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return "", ErrObjectRequired
	}
	if len(imageData) == 0 {
		return "", ErrImageRequired
	}
	if err := s.admit(authCtx, quota.FeatureRemoveObject); err != nil {
		return "", err
	}

	start := time.Now()
	result, err := s.assets.Upload(ctx, imageData, filename, folderObject, "")
	if err != nil {
		s.metrics.ObserveGenerationDuration("remove-object", time.Since(start))
		return "", err
	}
	imageURL := s.assets.DeliveryURL(result.PublicID, media.GenerativeRemove(object))
	s.metrics.ObserveGenerationDuration("remove-object", time.Since(start))

	prompt := fmt.Sprintf("Removed %s from image", object)
	if err := s.record(ctx, authCtx, prompt, imageURL, model.CreationImage, false); err != nil {
		return "", err
	}

	return imageURL, nil
}

// ReviewResume extracts text from an uploaded PDF resume, asks the model for
// a critique, and records it.
func (s *CreationService) ReviewResume(ctx context.Context, authCtx *model.AuthContext, resumeData []byte) (string, error) {
	if int64(len(resumeData)) > MaxResumeBytes {
		return "", ErrResumeTooLarge
	}
	if err := s.admit(authCtx, quota.FeatureResumeReview); err != nil {
		return "", err
	}

	resumeText, err := extractPDFText(resumeData)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResumeUnreadable, err)
	}

	userPrompt := fmt.Sprintf("Review the following resume and provide constructive feedback on its strengths, weaknesses, and areas for improvement. Resume Content:\n\n%s", resumeText)

	start := time.Now()
	content, err := s.text.Complete(ctx, genai.CompletionRequest{
		Messages: []genai.Message{
			{Role: "system", Content: promptResumeReview},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   resumeMaxTokens,
	})
	s.metrics.ObserveGenerationDuration("resume-review", time.Since(start))
	if err != nil {
		return "", err
	}

	if err := s.record(ctx, authCtx, "Review the uploaded resume", content, model.CreationResumeReview, false); err != nil {
		return "", err
	}

	return content, nil
}

// ToggleLikeResult reports the outcome of a like toggle.
type ToggleLikeResult struct {
	Liked   bool
	Message string
}

// ToggleLike flips the caller's like on a creation.
func (s *CreationService) ToggleLike(ctx context.Context, userID, creationID string) (*ToggleLikeResult, error) {
	creationID = strings.TrimSpace(creationID)
	if creationID == "" {
		return nil, ErrIDRequired
	}

	liked, err := s.repo.ToggleLike(ctx, creationID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCreationNotFound) {
			return nil, ErrCreationNotFound
		}
		return nil, err
	}

	s.metrics.IncLikeToggled(liked)

	message := "Creation Unliked"
	if liked {
		message = "Creation liked"
	}

	return &ToggleLikeResult{Liked: liked, Message: message}, nil
}

// ListUserCreations returns the caller's creations, newest first.
func (s *CreationService) ListUserCreations(ctx context.Context, userID string) ([]*model.Creation, error) {
	return s.repo.ListCreationsByOwner(ctx, userID)
}

// ListPublishedCreations returns all published creations, newest first.
func (s *CreationService) ListPublishedCreations(ctx context.Context) ([]*model.Creation, error) {
	return s.repo.ListPublishedCreations(ctx)
}

// admit runs the quota gate and records denials.
func (s *CreationService) admit(authCtx *model.AuthContext, feature quota.Feature) error {
	err := s.gate.Admit(authCtx.Plan, authCtx.FreeUsage, feature)
	switch {
	case errors.Is(err, quota.ErrLimitReached):
		s.metrics.IncQuotaDenied("limit_reached")
	case errors.Is(err, quota.ErrProRequired):
		s.metrics.IncQuotaDenied("pro_required")
	}
	return err
}

// record appends the generation to the ledger, then advances the free-usage
// counter for free-plan callers.
//
// The ledger write comes first so a crash between the two steps under-counts
// usage rather than charging for content the user never received. A failed
// increment is logged and swallowed for the same reason.
func (s *CreationService) record(ctx context.Context, authCtx *model.AuthContext, prompt, content string, creationType model.CreationType, publish bool) error {
	creation := &model.Creation{
		ID:        ulid.Make().String(),
		UserID:    authCtx.UserID,
		Prompt:    prompt,
		Content:   content,
		Type:      creationType,
		Publish:   publish,
		Likes:     []string{},
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateCreation(ctx, creation); err != nil {
		return fmt.Errorf("record creation: %w", err)
	}

	s.metrics.IncCreationRecorded(string(creationType))

	if !authCtx.Plan.IsPro() {
		if err := s.plans.IncrementFreeUsage(ctx, authCtx.UserID); err != nil {
			s.logger.Error("free usage increment failed",
				slog.String("user_id", authCtx.UserID),
				slog.String("error", err.Error()),
			)
		}
		if err := s.cache.DeletePlanState(ctx, authCtx.UserID); err != nil {
			s.logger.Warn("plan cache eviction failed",
				slog.String("user_id", authCtx.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// extractPDFText pulls the plain text out of a PDF document.
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, textReader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("pdf contains no extractable text")
	}

	return text, nil
}
