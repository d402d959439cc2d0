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

const userPublicColumns = `id, email, username, bio, avatar_url, created_at`

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *sql.DB
}

// ==========================
// Constructor
// ==========================
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// ==========================
// Create User
// ==========================
func (r *UserRepo) Create(ctx context.Context, email, username, passwordHash string) (*models.UserPublic, error) {
	query := `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userPublicColumns

	return scanUserPublic(r.DB.QueryRowContext(ctx, query, email, username, passwordHash))
}

// ==========================
// Existence checks
// ==========================
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *UserRepo) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var ok bool
	if err := r.DB.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// ==========================
// Find By Email (includes password hash; login only)
// ==========================
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, username, password_hash, bio, avatar_url, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var (
		u         models.User
		bio       sql.NullString
		avatarURL sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &bio, &avatarURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Bio = stringPtr(bio)
	u.AvatarURL = stringPtr(avatarURL)
	return &u, nil
}

// ==========================
// Find By ID
// ==========================
func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.UserPublic, error) {
	query := `SELECT ` + userPublicColumns + ` FROM users WHERE id = $1`
	return scanUserPublic(r.DB.QueryRowContext(ctx, query, id))
}

// ==========================
// Find By Username
// ==========================
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*models.UserPublic, error) {
	query := `SELECT ` + userPublicColumns + ` FROM users WHERE username = $1`
	return scanUserPublic(r.DB.QueryRowContext(ctx, query, username))
}

// ==========================
// Update Profile (only supplied fields change)
// ==========================
func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.UserPublic, error) {
	var (
		sets []string
		args []interface{}
	)
	if upd.Bio != nil {
		args = append(args, *upd.Bio)
		sets = append(sets, fmt.Sprintf("bio = $%d", len(args)))
	}
	if upd.AvatarURL != nil {
		args = append(args, *upd.AvatarURL)
		sets = append(sets, fmt.Sprintf("avatar_url = $%d", len(args)))
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userPublicColumns)

	return scanUserPublic(r.DB.QueryRowContext(ctx, query, args...))
}

func scanUserPublic(row scanner) (*models.UserPublic, error) {
	var (
		u         models.UserPublic
		bio       sql.NullString
		avatarURL sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &bio, &avatarURL, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Bio = stringPtr(bio)
	u.AvatarURL = stringPtr(avatarURL)
	return &u, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
