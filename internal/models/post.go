package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is a blog post. IsPublished is true exactly when PublishedAt is set.
type Post struct {
	ID            uuid.UUID   `json:"id"`
	AuthorID      uuid.UUID   `json:"author_id"`
	Title         string      `json:"title"`
	Slug          string      `json:"slug"`
	Content       string      `json:"content"`
	Excerpt       *string     `json:"excerpt"`
	CoverImageURL *string     `json:"cover_image_url"`
	IsPublished   bool        `json:"is_published"`
	PublishedAt   *time.Time  `json:"published_at"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Author        *UserPublic `json:"author,omitempty"`
}

// NewPost holds the fields supplied when a draft is created.
type NewPost struct {
	AuthorID      uuid.UUID
	Title         string
	Slug          string
	Content       string
	Excerpt       *string
	CoverImageURL *string
}

// PostUpdate carries the optional fields of a post edit. Nil means unchanged.
type PostUpdate struct {
	Title         *string
	Slug          *string
	Content       *string
	Excerpt       *string
	CoverImageURL *string
}
