package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkdrop/inkdrop/internal/models"
	"github.com/lib/pq"
	"github.com/inkdrop/inkdrop/internal/repo"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ========================
// USERS
// ========================

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*models.User
	createErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*models.User{}}
}

func (f *fakeUsers) Create(_ context.Context, email, username, hash string) (*models.UserPublic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	now := time.Now()
	u := &models.User{ID: uuid.New(), Email: email, Username: username, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	f.byID[u.ID] = u
	return u.Public(), nil
}

func (f *fakeUsers) EmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) UsernameExists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.UserPublic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return u.Public(), nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (*models.UserPublic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			return u.Public(), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.UserPublic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if upd.Bio != nil {
		u.Bio = upd.Bio
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = upd.AvatarURL
	}
	return u.Public(), nil
}

// ========================
// SESSIONS
// ========================

type fakeSessions struct {
	mu      sync.Mutex
	byToken map[string]*models.RefreshToken
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: map[string]*models.RefreshToken{}}
}

func (f *fakeSessions) Create(_ context.Context, userID uuid.UUID, token string, exp time.Time) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt := &models.RefreshToken{ID: uuid.New(), UserID: userID, Token: token, ExpiresAt: exp, CreatedAt: time.Now()}
	f.byToken[token] = rt
	return rt, nil
}

func (f *fakeSessions) FindByToken(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rt, ok := f.byToken[token]; ok {
		cp := *rt
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeSessions) DeleteByToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byToken, token)
	return nil
}

func (f *fakeSessions) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for tok, rt := range f.byToken {
		if rt.UserID == userID {
			delete(f.byToken, tok)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byToken)
}

// ========================
// POSTS
// ========================

type fakePosts struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.Post
	clock time.Time
}

func newFakePosts() *fakePosts {
	return &fakePosts{byID: map[uuid.UUID]*models.Post{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// tick advances the fake clock so ordering by timestamp is deterministic.
func (f *fakePosts) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakePosts) Create(_ context.Context, p models.NewPost) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(p.Slug) > MaxSlugLength {
		// posts.slug is VARCHAR(255)
		return nil, &pq.Error{Code: "22001", Message: "value too long for type character varying(255)"}
	}
	now := f.tick()
	post := &models.Post{
		ID: uuid.New(), AuthorID: p.AuthorID, Title: p.Title, Slug: p.Slug, Content: p.Content,
		Excerpt: p.Excerpt, CoverImageURL: p.CoverImageURL, CreatedAt: now, UpdatedAt: now,
	}
	f.byID[post.ID] = post
	cp := *post
	return &cp, nil
}

func (f *fakePosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakePosts) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakePosts) FindAllPublished(_ context.Context, limit, offset int) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Post{}
	for _, p := range f.byID {
		if p.IsPublished {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(*out[j].PublishedAt) })
	if offset >= len(out) {
		return []models.Post{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePosts) FindDraftsByUser(_ context.Context, userID uuid.UUID) ([]models.Post, error) {
	return f.byAuthor(userID, false), nil
}

func (f *fakePosts) FindPublishedByUser(_ context.Context, userID uuid.UUID) ([]models.Post, error) {
	return f.byAuthor(userID, true), nil
}

func (f *fakePosts) byAuthor(userID uuid.UUID, published bool) []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Post{}
	for _, p := range f.byID {
		if p.AuthorID == userID && p.IsPublished == published {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (f *fakePosts) Update(_ context.Context, id uuid.UUID, upd models.PostUpdate) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Slug != nil {
		p.Slug = *upd.Slug
	}
	if upd.Content != nil {
		p.Content = *upd.Content
	}
	if upd.Excerpt != nil {
		p.Excerpt = upd.Excerpt
	}
	if upd.CoverImageURL != nil {
		p.CoverImageURL = upd.CoverImageURL
	}
	p.UpdatedAt = f.tick()
	cp := *p
	return &cp, nil
}

func (f *fakePosts) Publish(_ context.Context, id uuid.UUID) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	now := f.tick()
	p.IsPublished = true
	p.PublishedAt = &now
	p.UpdatedAt = now
	cp := *p
	return &cp, nil
}

func (f *fakePosts) Unpublish(_ context.Context, id uuid.UUID) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	p.IsPublished = false
	p.PublishedAt = nil
	p.UpdatedAt = f.tick()
	cp := *p
	return &cp, nil
}

func (f *fakePosts) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakePosts) SlugExists(_ context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.Slug == slug && (excludeID == nil || p.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}
