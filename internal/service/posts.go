package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inkdrop/inkdrop/internal/auth"
	"github.com/inkdrop/inkdrop/internal/models"
	"github.com/inkdrop/inkdrop/internal/repo"
)

type PostStore interface {
	Create(ctx context.Context, p models.NewPost) (*models.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	FindAllPublished(ctx context.Context, limit, offset int) ([]models.Post, error)
	FindDraftsByUser(ctx context.Context, userID uuid.UUID) ([]models.Post, error)
	Update(ctx context.Context, id uuid.UUID, upd models.PostUpdate) (*models.Post, error)
	Publish(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Unpublish(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
}

// CreatePostInput is a new draft as submitted by its author. Slug and Excerpt
// are derived from Title and Content when nil or empty.
type CreatePostInput struct {
	Title         string
	Content       string
	Slug          *string
	Excerpt       *string
	CoverImageURL *string
}

const (
	// MaxSlugLength is the width of posts.slug.
	MaxSlugLength   = 255
	slugSuffixLen   = 6
	fallbackSlug    = "post"
	msgPostNotFound = "Post not found"
	msgSlugTaken    = "Slug already in use"
)

type PostService struct {
	log   *slog.Logger
	posts PostStore
}

func NewPostService(log *slog.Logger, posts PostStore) *PostService {
	return &PostService{log: log, posts: posts}
}

// ListPublished returns one page of the public feed, newest first.
func (s *PostService) ListPublished(ctx context.Context, limit, offset int) ([]models.Post, error) {
	const op = "PostService.ListPublished"
	posts, err := s.posts.FindAllPublished(ctx, limit, offset)
	if err != nil {
		return nil, Internal(op, err)
	}
	return posts, nil
}

// GetBySlug returns a post. Drafts are only visible to their author; everyone
// else gets NotFound so a draft's existence does not leak. viewer may be nil.
func (s *PostService) GetBySlug(ctx context.Context, slug string, viewer *auth.Identity) (*models.Post, error) {
	const op = "PostService.GetBySlug"
	post, err := s.posts.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NotFound(msgPostNotFound)
	}
	if err != nil {
		return nil, Internal(op, err)
	}
	if !post.IsPublished && (viewer == nil || viewer.UserID != post.AuthorID) {
		return nil, NotFound(msgPostNotFound)
	}
	return post, nil
}

func (s *PostService) Drafts(ctx context.Context, id auth.Identity) ([]models.Post, error) {
	const op = "PostService.Drafts"
	drafts, err := s.posts.FindDraftsByUser(ctx, id.UserID)
	if err != nil {
		return nil, Internal(op, err)
	}
	return drafts, nil
}

// Create stores a new draft. A colliding slug gets one random suffix; the
// unique index settles the rare case where the suffixed slug collides too.
func (s *PostService) Create(ctx context.Context, id auth.Identity, in CreatePostInput) (*models.Post, error) {
	const op = "PostService.Create"
	log := s.log.With(slog.String("op", op))

	slug := ""
	if in.Slug != nil {
		slug = *in.Slug
	}
	if slug == "" {
		slug = truncateSlug(GenerateSlug(in.Title), MaxSlugLength)
	}
	if slug == "" {
		slug = fallbackSlug
	}

	taken, err := s.posts.SlugExists(ctx, slug, nil)
	if err != nil {
		return nil, Internal(op, err)
	}
	if taken {
		suffix, err := randomSuffix(slugSuffixLen)
		if err != nil {
			return nil, Internal(op, err)
		}
		slug = truncateSlug(slug, MaxSlugLength-1-slugSuffixLen) + "-" + suffix
	}

	excerpt := in.Excerpt
	if excerpt == nil || *excerpt == "" {
		gen := GenerateExcerpt(in.Content, ExcerptLength)
		excerpt = &gen
	}

	post, err := s.posts.Create(ctx, models.NewPost{
		AuthorID:      id.UserID,
		Title:         in.Title,
		Slug:          slug,
		Content:       in.Content,
		Excerpt:       excerpt,
		CoverImageURL: in.CoverImageURL,
	})
	if err != nil {
		return nil, fromStore(op, err, msgSlugTaken)
	}
	log.Info("post created", slog.String("post_id", post.ID.String()), slog.String("slug", post.Slug))
	return post, nil
}

// Update applies a partial edit. A changed slug must not belong to another post.
func (s *PostService) Update(ctx context.Context, id auth.Identity, postID uuid.UUID, upd models.PostUpdate) (*models.Post, error) {
	const op = "PostService.Update"

	post, err := s.ownedPost(ctx, op, "edit", id, postID)
	if err != nil {
		return nil, err
	}

	if upd.Slug != nil && *upd.Slug != post.Slug {
		taken, err := s.posts.SlugExists(ctx, *upd.Slug, &postID)
		if err != nil {
			return nil, Internal(op, err)
		}
		if taken {
			return nil, Conflict(msgSlugTaken)
		}
	}

	updated, err := s.posts.Update(ctx, postID, upd)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NotFound(msgPostNotFound)
	}
	if err != nil {
		return nil, fromStore(op, err, msgSlugTaken)
	}
	return updated, nil
}

func (s *PostService) Publish(ctx context.Context, id auth.Identity, postID uuid.UUID) (*models.Post, error) {
	const op = "PostService.Publish"

	post, err := s.ownedPost(ctx, op, "publish", id, postID)
	if err != nil {
		return nil, err
	}
	if post.IsPublished {
		return nil, BadRequest("Post is already published")
	}

	published, err := s.posts.Publish(ctx, postID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NotFound(msgPostNotFound)
	}
	if err != nil {
		return nil, Internal(op, err)
	}
	s.log.Info("post published", slog.String("op", op), slog.String("post_id", postID.String()))
	return published, nil
}

func (s *PostService) Unpublish(ctx context.Context, id auth.Identity, postID uuid.UUID) (*models.Post, error) {
	const op = "PostService.Unpublish"

	post, err := s.ownedPost(ctx, op, "unpublish", id, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished {
		return nil, BadRequest("Post is already a draft")
	}

	draft, err := s.posts.Unpublish(ctx, postID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NotFound(msgPostNotFound)
	}
	if err != nil {
		return nil, Internal(op, err)
	}
	return draft, nil
}

func (s *PostService) Delete(ctx context.Context, id auth.Identity, postID uuid.UUID) error {
	const op = "PostService.Delete"

	if _, err := s.ownedPost(ctx, op, "delete", id, postID); err != nil {
		return err
	}
	err := s.posts.Delete(ctx, postID)
	if errors.Is(err, repo.ErrNotFound) {
		return NotFound(msgPostNotFound)
	}
	if err != nil {
		return Internal(op, err)
	}
	s.log.Info("post deleted", slog.String("op", op), slog.String("post_id", postID.String()))
	return nil
}

// ownedPost loads postID and checks that id is its author. action names the
// attempted mutation in the Forbidden message.
func (s *PostService) ownedPost(ctx context.Context, op, action string, id auth.Identity, postID uuid.UUID) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NotFound(msgPostNotFound)
	}
	if err != nil {
		return nil, Internal(op, err)
	}
	if post.AuthorID != id.UserID {
		s.log.Warn("mutation by non-author", slog.String("op", op),
			slog.String("post_id", postID.String()), slog.String("user_id", id.UserID.String()))
		return nil, Forbidden(fmt.Sprintf("You can only %s your own posts", action))
	}
	return post, nil
}
