package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/inkdrop/inkdrop/internal/models"
)

var postCols = []string{"id", "author_id", "title", "slug", "content", "excerpt", "cover_image_url",
	"is_published", "published_at", "created_at", "updated_at"}

var postWithAuthorCols = append(append([]string{}, postCols...),
	"u_id", "email", "username", "bio", "avatar_url", "u_created_at")

func TestPostRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	authorID := uuid.New()
	postID := uuid.New()
	now := time.Now()
	excerpt := "short"
	mock.ExpectQuery(`INSERT INTO posts \(author_id, title, slug, content, excerpt, cover_image_url\)`).
		WithArgs(authorID, "Hello", "hello", "body", "short", nil).
		WillReturnRows(sqlmock.NewRows(postCols).
			AddRow(postID.String(), authorID.String(), "Hello", "hello", "body", "short", nil, false, nil, now, now))

	repo := NewPostRepo(db)
	p, err := repo.Create(context.Background(), models.NewPost{
		AuthorID: authorID, Title: "Hello", Slug: "hello", Content: "body", Excerpt: &excerpt,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID != postID || p.IsPublished || p.PublishedAt != nil || p.CoverImageURL != nil {
		t.Errorf("unexpected post: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_FindBySlug_WithAuthor(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	authorID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`JOIN users u ON u.id = p.author_id\s+WHERE p.slug = \$1`).
		WithArgs("hello").
		WillReturnRows(sqlmock.NewRows(postWithAuthorCols).
			AddRow(uuid.NewString(), authorID.String(), "Hello", "hello", "body", nil, nil, true, now, now, now,
				authorID.String(), "a@x.com", "alice", nil, nil, now))

	repo := NewPostRepo(db)
	p, err := repo.FindBySlug(context.Background(), "hello")
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if p.Author == nil || p.Author.Username != "alice" || p.PublishedAt == nil {
		t.Errorf("unexpected post: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_FindByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`WHERE p.id = \$1`).WithArgs(id).WillReturnRows(sqlmock.NewRows(postWithAuthorCols))

	repo := NewPostRepo(db)
	if _, err := repo.FindByID(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_FindAllPublished_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`WHERE p.is_published = true\s+ORDER BY p.published_at DESC\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 40).
		WillReturnRows(sqlmock.NewRows(postWithAuthorCols))

	repo := NewPostRepo(db)
	posts, err := repo.FindAllPublished(context.Background(), 20, 40)
	if err != nil {
		t.Fatalf("FindAllPublished: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", posts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_FindDraftsByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	authorID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`WHERE author_id = \$1 AND is_published = false\s+ORDER BY updated_at DESC`).
		WithArgs(authorID).
		WillReturnRows(sqlmock.NewRows(postCols).
			AddRow(uuid.NewString(), authorID.String(), "B", "b", "x", nil, nil, false, nil, now, now).
			AddRow(uuid.NewString(), authorID.String(), "A", "a", "x", nil, nil, false, nil, now, now.Add(-time.Hour)))

	repo := NewPostRepo(db)
	drafts, err := repo.FindDraftsByUser(context.Background(), authorID)
	if err != nil {
		t.Fatalf("FindDraftsByUser: %v", err)
	}
	if len(drafts) != 2 || drafts[0].Slug != "b" {
		t.Errorf("unexpected drafts: %+v", drafts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_Update_OnlySuppliedFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	now := time.Now()
	title := "New title"
	mock.ExpectQuery(`UPDATE posts SET title = \$1, updated_at = CURRENT_TIMESTAMP WHERE id = \$2 RETURNING`).
		WithArgs(title, id).
		WillReturnRows(sqlmock.NewRows(postCols).
			AddRow(id.String(), uuid.NewString(), title, "slug", "x", nil, nil, false, nil, now, now))

	repo := NewPostRepo(db)
	p, err := repo.Update(context.Background(), id, models.PostUpdate{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.Title != title {
		t.Errorf("title: got %q", p.Title)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_PublishUnpublish(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	author := uuid.NewString()
	now := time.Now()
	mock.ExpectQuery(`SET is_published = true, published_at = CURRENT_TIMESTAMP`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(postCols).AddRow(id.String(), author, "t", "s", "c", nil, nil, true, now, now, now))
	mock.ExpectQuery(`SET is_published = false, published_at = NULL`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(postCols).AddRow(id.String(), author, "t", "s", "c", nil, nil, false, nil, now, now))

	repo := NewPostRepo(db)
	p, err := repo.Publish(context.Background(), id)
	if err != nil || !p.IsPublished || p.PublishedAt == nil {
		t.Fatalf("Publish: %+v, %v", p, err)
	}
	p, err = repo.Unpublish(context.Background(), id)
	if err != nil || p.IsPublished || p.PublishedAt != nil {
		t.Fatalf("Unpublish: %+v, %v", p, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM posts WHERE id = \$1`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM posts WHERE id = \$1`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostRepo(db)
	if err := repo.Delete(context.Background(), id); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := repo.Delete(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_SlugExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	self := uuid.New()
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM posts WHERE slug = \$1\)`).
		WithArgs("taken").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM posts WHERE slug = \$1 AND id <> \$2\)`).
		WithArgs("taken", self).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	repo := NewPostRepo(db)
	if ok, err := repo.SlugExists(context.Background(), "taken", nil); err != nil || !ok {
		t.Errorf("SlugExists: got %v, %v", ok, err)
	}
	if ok, err := repo.SlugExists(context.Background(), "taken", &self); err != nil || ok {
		t.Errorf("SlugExists excluding self: got %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
