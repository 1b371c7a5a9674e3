package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/genai"
	"github.com/inkwell/inkwell/internal/identity"
	"github.com/inkwell/inkwell/internal/media"
	"github.com/inkwell/inkwell/internal/model"
	"github.com/inkwell/inkwell/internal/quota"
	"github.com/inkwell/inkwell/internal/service"
)

// CreationAPI is the service surface the AI handlers depend on.
type CreationAPI interface {
	GenerateArticle(ctx context.Context, authCtx *model.AuthContext, prompt string, maxTokens int) (string, error)
	GenerateBlogTitle(ctx context.Context, authCtx *model.AuthContext, prompt string) (string, error)
	GenerateImage(ctx context.Context, authCtx *model.AuthContext, prompt string, publish bool) (string, error)
	RemoveBackground(ctx context.Context, authCtx *model.AuthContext, imageData []byte, filename string) (string, error)
	RemoveObject(ctx context.Context, authCtx *model.AuthContext, imageData []byte, filename, object string) (string, error)
	ReviewResume(ctx context.Context, authCtx *model.AuthContext, resumeData []byte) (string, error)
	ToggleLike(ctx context.Context, userID, creationID string) (*service.ToggleLikeResult, error)
	ListUserCreations(ctx context.Context, userID string) ([]*model.Creation, error)
	ListPublishedCreations(ctx context.Context) ([]*model.Creation, error)
}

// AIHandler serves the /api/ai endpoints.
type AIHandler struct {
	creations     CreationAPI
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAIHandler creates an AIHandler.
func NewAIHandler(creations CreationAPI, maxUploadSize int64, logger *slog.Logger) *AIHandler {
	return &AIHandler{
		creations:     creations,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

type generateArticleRequest struct {
	Prompt string `json:"prompt"`
	Length int    `json:"length"`
}

// GenerateArticle handles POST /api/ai/generate-article.
func (h *AIHandler) GenerateArticle(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	var req generateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	content, err := h.creations.GenerateArticle(r.Context(), authCtx, req.Prompt, req.Length)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeContent(w, content)
}

type generateBlogTitleRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateBlogTitle handles POST /api/ai/generate-blog-title.
func (h *AIHandler) GenerateBlogTitle(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	var req generateBlogTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	content, err := h.creations.GenerateBlogTitle(r.Context(), authCtx, req.Prompt)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeContent(w, content)
}

type generateImageRequest struct {
	Prompt  string `json:"prompt"`
	Publish bool   `json:"publish"`
}

// GenerateImage handles POST /api/ai/generate-image.
func (h *AIHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	var req generateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	content, err := h.creations.GenerateImage(r.Context(), authCtx, req.Prompt, req.Publish)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeContent(w, content)
}

// RemoveBackground handles POST /api/ai/remove-background.
func (h *AIHandler) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	data, filename, ok := h.readUpload(w, r, "image")
	if !ok {
		return
	}

	content, err := h.creations.RemoveBackground(r.Context(), authCtx, data, filename)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeContent(w, content)
}

// RemoveObject handles POST /api/ai/remove-object.
func (h *AIHandler) RemoveObject(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	data, filename, ok := h.readUpload(w, r, "image")
	if !ok {
		return
	}
	object := r.FormValue("object")

	content, err := h.creations.RemoveObject(r.Context(), authCtx, data, filename, object)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeContent(w, content)
}

// ReviewResume handles POST /api/ai/resume-review.
func (h *AIHandler) ReviewResume(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	data, _, ok := h.readUpload(w, r, "resume")
	if !ok {
		return
	}

	content, err := h.creations.ReviewResume(r.Context(), authCtx, data)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeContent(w, content)
}

// readUpload pulls the named file out of a multipart form. It reads one byte
// past the configured limit so the service can distinguish oversized uploads
// from ones that just fit.
func (h *AIHandler) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, bool) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid multipart form")
		return nil, "", false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Missing "+field+" file")
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Could not read uploaded file")
		return nil, "", false
	}

	return data, header.Filename, true
}

// handleServiceError translates service errors into HTTP responses. The body
// keeps the success/message envelope the SPA expects.
func (h *AIHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrPromptRequired):
		writeMessage(w, http.StatusBadRequest, false, "Prompt is required")
	case errors.Is(err, service.ErrObjectRequired):
		writeMessage(w, http.StatusBadRequest, false, "Object description is required")
	case errors.Is(err, service.ErrImageRequired):
		writeMessage(w, http.StatusBadRequest, false, "Image file is required")
	case errors.Is(err, service.ErrIDRequired):
		writeMessage(w, http.StatusBadRequest, false, "Creation id is required")
	case errors.Is(err, service.ErrResumeTooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, false, "Resume file size exceeds allowed size (5mb).")
	case errors.Is(err, service.ErrResumeUnreadable):
		writeMessage(w, http.StatusBadRequest, false, "Could not read the uploaded resume")
	case errors.Is(err, quota.ErrLimitReached):
		writeMessage(w, http.StatusForbidden, false, "Limit reached. Upgrade to continue...")
	case errors.Is(err, quota.ErrProRequired):
		writeMessage(w, http.StatusForbidden, false, "This feature is only for Pro subscription, please upgrade to continue...")
	case errors.Is(err, service.ErrCreationNotFound):
		writeMessage(w, http.StatusNotFound, false, "Creation not found")
	case errors.Is(err, genai.ErrTimeout), errors.Is(err, media.ErrTimeout), errors.Is(err, identity.ErrTimeout):
		h.logError(r, err)
		writeMessage(w, http.StatusGatewayTimeout, false, "Generation timed out, please try again")
	case errors.Is(err, genai.ErrUpstream), errors.Is(err, genai.ErrEmptyResponse),
		errors.Is(err, media.ErrUpstream), errors.Is(err, identity.ErrUnavailable):
		h.logError(r, err)
		writeMessage(w, http.StatusBadGateway, false, "Generation service unavailable, please try again")
	default:
		h.logError(r, err)
		writeMessage(w, http.StatusInternalServerError, false, "Something went wrong")
	}
}

func (h *AIHandler) logError(r *http.Request, err error) {
	h.logger.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}
