package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/inkdrop/inkdrop/internal/auth"
	"github.com/inkdrop/inkdrop/internal/models"
	"github.com/inkdrop/inkdrop/internal/repo"
)

type UserStore interface {
	Create(ctx context.Context, email, username, passwordHash string) (*models.UserPublic, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.UserPublic, error)
	FindByUsername(ctx context.Context, username string) (*models.UserPublic, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.UserPublic, error)
}

type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*models.RefreshToken, error)
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type TokenIssuer interface {
	IssueAccess(userID uuid.UUID) (string, error)
	IssueRefresh(userID uuid.UUID) (string, error)
	RefreshExpiry() (time.Time, error)
	VerifyRefresh(token string) (uuid.UUID, error)
}

// PublishedLister is the slice of the post store the profile page needs.
type PublishedLister interface {
	FindPublishedByUser(ctx context.Context, userID uuid.UUID) ([]models.Post, error)
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User         *models.UserPublic
	AccessToken  string
	RefreshToken string
}

// Profile is a public user page.
type Profile struct {
	User  *models.UserPublic
	Posts []models.Post
}

const msgInvalidCredentials = "Invalid email or password"

type AuthService struct {
	log      *slog.Logger
	users    UserStore
	sessions SessionStore
	posts    PublishedLister
	tokens   TokenIssuer
	now      func() time.Time
}

func NewAuthService(log *slog.Logger, users UserStore, sessions SessionStore, posts PublishedLister, tokens TokenIssuer) *AuthService {
	return &AuthService{
		log:      log,
		users:    users,
		sessions: sessions,
		posts:    posts,
		tokens:   tokens,
		now:      time.Now,
	}
}

// Register creates an account and opens its first session.
// Email is checked before username, so an email conflict wins when both are taken.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*AuthResult, error) {
	const op = "AuthService.Register"
	log := s.log.With(slog.String("op", op))

	taken, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, Internal(op, err)
	}
	if taken {
		return nil, Conflict("Email already registered")
	}
	taken, err = s.users.UsernameExists(ctx, username)
	if err != nil {
		return nil, Internal(op, err)
	}
	if taken {
		return nil, Conflict("Username already taken")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, Internal(op, err)
	}

	user, err := s.users.Create(ctx, email, username, hash)
	if err != nil {
		log.Warn("create user failed", slog.Any("err", err))
		return nil, fromStore(op, err, "Email or username already taken")
	}

	res, err := s.openSession(ctx, op, user)
	if err != nil {
		return nil, err
	}
	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return res, nil
}

// Login never reveals whether the email or the password was wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "AuthService.Login"
	log := s.log.With(slog.String("op", op))

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		log.Info("login for unknown email")
		return nil, AuthFailed(msgInvalidCredentials)
	}
	if err != nil {
		return nil, Internal(op, err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		log.Info("password mismatch", slog.String("user_id", user.ID.String()))
		return nil, AuthFailed(msgInvalidCredentials)
	}

	res, err := s.openSession(ctx, op, user.Public())
	if err != nil {
		return nil, err
	}
	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	return res, nil
}

func (s *AuthService) openSession(ctx context.Context, op string, user *models.UserPublic) (*AuthResult, error) {
	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, Internal(op, err)
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, Internal(op, err)
	}
	exp, err := s.tokens.RefreshExpiry()
	if err != nil {
		return nil, Internal(op, err)
	}
	if _, err := s.sessions.Create(ctx, user.ID, refresh, exp); err != nil {
		return nil, Internal(op, err)
	}
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh mints a new access token. The refresh token itself is kept as is.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "AuthService.Refresh"
	log := s.log.With(slog.String("op", op))

	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", AuthFailed("Invalid refresh token")
	}

	stored, err := s.sessions.FindByToken(ctx, refreshToken)
	if errors.Is(err, repo.ErrNotFound) {
		log.Info("refresh token not on record", slog.String("user_id", userID.String()))
		return "", AuthFailed("Invalid refresh token")
	}
	if err != nil {
		return "", Internal(op, err)
	}

	if stored.ExpiredAt(s.now()) {
		if err := s.sessions.DeleteByToken(ctx, refreshToken); err != nil {
			return "", Internal(op, err)
		}
		log.Info("expired refresh token removed", slog.String("user_id", stored.UserID.String()))
		return "", AuthFailed("Refresh token expired")
	}

	access, err := s.tokens.IssueAccess(stored.UserID)
	if err != nil {
		return "", Internal(op, err)
	}
	return access, nil
}

// Logout is idempotent: an unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	const op = "AuthService.Logout"
	if err := s.sessions.DeleteByToken(ctx, refreshToken); err != nil {
		return Internal(op, err)
	}
	return nil
}

// LogoutAll revokes every session of the caller and reports how many there were.
func (s *AuthService) LogoutAll(ctx context.Context, id auth.Identity) (int64, error) {
	const op = "AuthService.LogoutAll"
	n, err := s.sessions.DeleteAllForUser(ctx, id.UserID)
	if err != nil {
		return 0, Internal(op, err)
	}
	s.log.Info("all sessions revoked", slog.String("op", op), slog.String("user_id", id.UserID.String()), slog.Int64("count", n))
	return n, nil
}

func (s *AuthService) Me(ctx context.Context, id auth.Identity) (*models.UserPublic, error) {
	const op = "AuthService.Me"
	user, err := s.users.FindByID(ctx, id.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NotFound("User not found")
	}
	if err != nil {
		return nil, Internal(op, err)
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, id auth.Identity, upd models.ProfileUpdate) (*models.UserPublic, error) {
	const op = "AuthService.UpdateProfile"
	user, err := s.users.UpdateProfile(ctx, id.UserID, upd)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NotFound("User not found")
	}
	if err != nil {
		return nil, Internal(op, err)
	}
	return user, nil
}

// Profile returns a user's public page with their published posts, newest first.
func (s *AuthService) Profile(ctx context.Context, username string) (*Profile, error) {
	const op = "AuthService.Profile"
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NotFound("User not found")
	}
	if err != nil {
		return nil, Internal(op, err)
	}
	posts, err := s.posts.FindPublishedByUser(ctx, user.ID)
	if err != nil {
		return nil, Internal(op, err)
	}
	return &Profile{User: user, Posts: posts}, nil
}
