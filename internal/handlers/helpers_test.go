package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/inkdrop/inkdrop/internal/auth"
	"github.com/inkdrop/inkdrop/internal/repo"
	"github.com/inkdrop/inkdrop/internal/service"
)

type testEnv struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	tokens *auth.TokenService
	auth   *AuthHandler
	posts  *PostHandler
	users  *UserHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("access-secret", "refresh-secret", "15m", "7d")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	userRepo := repo.NewUserRepo(db)
	postRepo := repo.NewPostRepo(db)
	authSvc := service.NewAuthService(log, userRepo, repo.NewRefreshTokenRepo(db), postRepo, tokens)
	postSvc := service.NewPostService(log, postRepo)

	return &testEnv{
		db:     db,
		mock:   mock,
		tokens: tokens,
		auth:   &AuthHandler{Auth: authSvc, Log: log},
		posts:  &PostHandler{Posts: postSvc, Log: log},
		users:  &UserHandler{Auth: authSvc, Log: log},
	}
}

func (e *testEnv) verify(t *testing.T) {
	t.Helper()
	if err := e.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID}))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

var (
	userPublicCols = []string{"id", "email", "username", "bio", "avatar_url", "created_at"}
	postCols       = []string{"id", "author_id", "title", "slug", "content", "excerpt", "cover_image_url",
		"is_published", "published_at", "created_at", "updated_at"}
	postWithAuthorCols = append(append([]string{}, postCols...),
		"u_id", "email", "username", "bio", "avatar_url", "u_created_at")
)

// postRow returns a post-only row. publishedAt nil means draft.
func postRow(id, authorID uuid.UUID, slug string, publishedAt *time.Time) []driver.Value {
	now := time.Now()
	var pub driver.Value
	if publishedAt != nil {
		pub = *publishedAt
	}
	return []driver.Value{id.String(), authorID.String(), "Title", slug, "content", nil, nil,
		publishedAt != nil, pub, now, now}
}

func postWithAuthorRow(id, authorID uuid.UUID, slug string, publishedAt *time.Time) []driver.Value {
	return append(postRow(id, authorID, slug, publishedAt),
		authorID.String(), "a@x.com", "alice", nil, nil, time.Now())
}
