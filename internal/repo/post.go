package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/inkdrop/inkdrop/internal/models"
)

const postColumns = `id, author_id, title, slug, content, excerpt, cover_image_url,
	is_published, published_at, created_at, updated_at`

// postWithAuthorSelect joins the author's public profile onto each post row.
const postWithAuthorSelect = `
	SELECT p.id, p.author_id, p.title, p.slug, p.content, p.excerpt, p.cover_image_url,
	       p.is_published, p.published_at, p.created_at, p.updated_at,
	       u.id, u.email, u.username, u.bio, u.avatar_url, u.created_at
	FROM posts p
	JOIN users u ON u.id = p.author_id`

// ========================
// REPOSITORY STRUCT
// ========================

type PostRepo struct {
	DB *sql.DB
}

func NewPostRepo(db *sql.DB) *PostRepo {
	return &PostRepo{DB: db}
}

// ========================
// CREATE POST (always a draft)
// ========================

func (r *PostRepo) Create(ctx context.Context, p models.NewPost) (*models.Post, error) {
	query := `
		INSERT INTO posts (author_id, title, slug, content, excerpt, cover_image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + postColumns

	return scanPost(r.DB.QueryRowContext(ctx, query,
		p.AuthorID, p.Title, p.Slug, p.Content, nullString(p.Excerpt), nullString(p.CoverImageURL),
	))
}

// ========================
// FIND BY ID / SLUG (with author)
// ========================

func (r *PostRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return scanPostWithAuthor(r.DB.QueryRowContext(ctx, postWithAuthorSelect+` WHERE p.id = $1`, id))
}

func (r *PostRepo) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return scanPostWithAuthor(r.DB.QueryRowContext(ctx, postWithAuthorSelect+` WHERE p.slug = $1`, slug))
}

// ========================
// LIST PUBLISHED (newest first, paginated)
// ========================

func (r *PostRepo) FindAllPublished(ctx context.Context, limit, offset int) ([]models.Post, error) {
	rows, err := r.DB.QueryContext(ctx,
		postWithAuthorSelect+`
		WHERE p.is_published = true
		ORDER BY p.published_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPostWithAuthor(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// ========================
// LIST BY AUTHOR
// ========================

// FindDraftsByUser returns the user's drafts, most recently edited first.
func (r *PostRepo) FindDraftsByUser(ctx context.Context, userID uuid.UUID) ([]models.Post, error) {
	return r.listByAuthor(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE author_id = $1 AND is_published = false
		ORDER BY updated_at DESC`, userID)
}

// FindPublishedByUser returns the user's published posts, newest first.
func (r *PostRepo) FindPublishedByUser(ctx context.Context, userID uuid.UUID) ([]models.Post, error) {
	return r.listByAuthor(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE author_id = $1 AND is_published = true
		ORDER BY published_at DESC`, userID)
}

func (r *PostRepo) listByAuthor(ctx context.Context, query string, userID uuid.UUID) ([]models.Post, error) {
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// ========================
// UPDATE POST (only supplied fields change)
// ========================

func (r *PostRepo) Update(ctx context.Context, id uuid.UUID, upd models.PostUpdate) (*models.Post, error) {
	var (
		sets []string
		args []interface{}
	)
	set := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	set("title", upd.Title)
	set("slug", upd.Slug)
	set("content", upd.Content)
	set("excerpt", upd.Excerpt)
	set("cover_image_url", upd.CoverImageURL)
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE posts SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), postColumns)

	return scanPost(r.DB.QueryRowContext(ctx, query, args...))
}

// ========================
// PUBLISH / UNPUBLISH
// ========================

func (r *PostRepo) Publish(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	query := `
		UPDATE posts
		SET is_published = true, published_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + postColumns
	return scanPost(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PostRepo) Unpublish(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	query := `
		UPDATE posts
		SET is_published = false, published_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + postColumns
	return scanPost(r.DB.QueryRowContext(ctx, query, id))
}

// ========================
// DELETE POST
// ========================

func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ========================
// SLUG UNIQUENESS
// ========================

// SlugExists reports whether slug is taken, ignoring the post excludeID when it is non-nil.
func (r *PostRepo) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM posts WHERE slug = $1)`
	args := []interface{}{slug}
	if excludeID != nil {
		query = `SELECT EXISTS(SELECT 1 FROM posts WHERE slug = $1 AND id <> $2)`
		args = append(args, *excludeID)
	}

	var ok bool
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func scanPost(row scanner) (*models.Post, error) {
	var (
		p           models.Post
		excerpt     sql.NullString
		coverURL    sql.NullString
		publishedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.AuthorID, &p.Title, &p.Slug, &p.Content, &excerpt, &coverURL,
		&p.IsPublished, &publishedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Excerpt = stringPtr(excerpt)
	p.CoverImageURL = stringPtr(coverURL)
	if publishedAt.Valid {
		t := publishedAt.Time
		p.PublishedAt = &t
	}
	return &p, nil
}

func scanPostWithAuthor(row scanner) (*models.Post, error) {
	var (
		p           models.Post
		a           models.UserPublic
		excerpt     sql.NullString
		coverURL    sql.NullString
		publishedAt sql.NullTime
		bio         sql.NullString
		avatarURL   sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.AuthorID, &p.Title, &p.Slug, &p.Content, &excerpt, &coverURL,
		&p.IsPublished, &publishedAt, &p.CreatedAt, &p.UpdatedAt,
		&a.ID, &a.Email, &a.Username, &bio, &avatarURL, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Excerpt = stringPtr(excerpt)
	p.CoverImageURL = stringPtr(coverURL)
	if publishedAt.Valid {
		t := publishedAt.Time
		p.PublishedAt = &t
	}
	a.Bio = stringPtr(bio)
	a.AvatarURL = stringPtr(avatarURL)
	p.Author = &a
	return &p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
