package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/inkdrop/inkdrop/internal/auth"
	"github.com/inkdrop/inkdrop/internal/metrics"
	"github.com/inkdrop/inkdrop/internal/models"
	"github.com/inkdrop/inkdrop/internal/service"
)

const msgInvalidPostID = "Invalid post ID"

// ==========================
// Post Handler
// ==========================
type PostHandler struct {
	Posts *service.PostService
	Log   *slog.Logger
}

type createPostRequest struct {
	Title         string  `json:"title" validate:"required,max=255" msg:"Title must be 1-255 characters"`
	Content       string  `json:"content" validate:"required" msg:"Content is required"`
	Slug          *string `json:"slug" validate:"omitnil,max=255,slug" msg:"Slug must be at most 255 lowercase letters, numbers, and hyphens"`
	Excerpt       *string `json:"excerpt" validate:"omitnil,max=500" msg:"Excerpt must be max 500 characters"`
	CoverImageURL *string `json:"coverImageUrl" validate:"omitnil,url" msg:"Cover image must be a valid URL"`
}

func (req *createPostRequest) trim() {
	trimPtr(&req.Title)
	trimPtr(&req.Content)
	trimPtr(req.Slug)
	trimPtr(req.Excerpt)
}

type updatePostRequest struct {
	Title         *string `json:"title" validate:"omitnil,min=1,max=255" msg:"Title must be 1-255 characters"`
	Content       *string `json:"content" validate:"omitnil,min=1" msg:"Content cannot be empty"`
	Slug          *string `json:"slug" validate:"omitnil,max=255,slug" msg:"Slug must be at most 255 lowercase letters, numbers, and hyphens"`
	Excerpt       *string `json:"excerpt" validate:"omitnil,max=500" msg:"Excerpt must be max 500 characters"`
	CoverImageURL *string `json:"coverImageUrl" validate:"omitnil,url" msg:"Cover image must be a valid URL"`
}

func (req *updatePostRequest) trim() {
	trimPtr(req.Title)
	trimPtr(req.Content)
	trimPtr(req.Slug)
	trimPtr(req.Excerpt)
}

type pageInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// ==========================
// Public feed
// ==========================
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, details := pagination(r)
	if len(details) > 0 {
		JSONValidationError(w, r, details)
		return
	}

	posts, err := h.Posts.ListPublished(r.Context(), limit, offset)
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"posts":      posts,
		"pagination": pageInfo{Limit: limit, Offset: offset, Count: len(posts)},
	})
}

// ==========================
// Get by slug (drafts visible to their author only)
// ==========================
func (h *PostHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	var viewer *auth.Identity
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		viewer = &id
	}

	post, err := h.Posts.GetBySlug(r.Context(), chi.URLParam(r, "slug"), viewer)
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{"post": post})
}

// ==========================
// My drafts
// ==========================
func (h *PostHandler) Drafts(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	drafts, err := h.Posts.Drafts(r.Context(), id)
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{"drafts": drafts})
}

// ==========================
// Create (always a draft)
// ==========================
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req createPostRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.Posts.Create(r.Context(), id, service.CreatePostInput{
		Title:         req.Title,
		Content:       req.Content,
		Slug:          req.Slug,
		Excerpt:       req.Excerpt,
		CoverImageURL: req.CoverImageURL,
	})
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}
	metrics.IncPostEvent("create")

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"message": "Post created successfully",
		"post":    post,
	})
}

// ==========================
// Update (partial)
// ==========================
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	postID, ok := pathUUID(w, r, msgInvalidPostID)
	if !ok {
		return
	}
	var req updatePostRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.Posts.Update(r.Context(), id, postID, models.PostUpdate{
		Title:         req.Title,
		Slug:          req.Slug,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		CoverImageURL: req.CoverImageURL,
	})
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}
	metrics.IncPostEvent("update")

	render.JSON(w, r, map[string]interface{}{
		"message": "Post updated successfully",
		"post":    post,
	})
}

// ==========================
// Publish / Unpublish
// ==========================
func (h *PostHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "publish", h.Posts.Publish, "Post published successfully")
}

func (h *PostHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "unpublish", h.Posts.Unpublish, "Post unpublished successfully")
}

type transitionFunc func(ctx context.Context, id auth.Identity, postID uuid.UUID) (*models.Post, error)

func (h *PostHandler) transition(w http.ResponseWriter, r *http.Request, action string, fn transitionFunc, message string) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	postID, ok := pathUUID(w, r, msgInvalidPostID)
	if !ok {
		return
	}

	post, err := fn(r.Context(), id, postID)
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}
	metrics.IncPostEvent(action)

	render.JSON(w, r, map[string]interface{}{
		"message": message,
		"post":    post,
	})
}

// ==========================
// Delete
// ==========================
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	postID, ok := pathUUID(w, r, msgInvalidPostID)
	if !ok {
		return
	}

	if err := h.Posts.Delete(r.Context(), id, postID); err != nil {
		serviceError(w, r, h.Log, err)
		return
	}
	metrics.IncPostEvent("delete")

	render.JSON(w, r, map[string]string{"message": "Post deleted successfully"})
}
