package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/inkdrop/inkdrop/internal/models"
)

const refreshTokenColumns = `id, user_id, token, expires_at, created_at`

// ========================
// REPOSITORY STRUCT
// ========================

type RefreshTokenRepo struct {
	DB *sql.DB
}

func NewRefreshTokenRepo(db *sql.DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{DB: db}
}

// ========================
// CREATE TOKEN (token column is unique)
// ========================

func (r *RefreshTokenRepo) Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*models.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING ` + refreshTokenColumns

	return scanRefreshToken(r.DB.QueryRowContext(ctx, query, userID, token, expiresAt))
}

// ========================
// FIND BY TOKEN
// ========================

func (r *RefreshTokenRepo) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token = $1`
	return scanRefreshToken(r.DB.QueryRowContext(ctx, query, token))
}

// ========================
// DELETE (single, per user, expired)
// ========================

// DeleteByToken is a no-op for a token that is not stored.
func (r *RefreshTokenRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

func (r *RefreshTokenRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.deleteWhere(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
}

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return r.deleteWhere(ctx, `DELETE FROM refresh_tokens WHERE expires_at < CURRENT_TIMESTAMP`)
}

func (r *RefreshTokenRepo) deleteWhere(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanRefreshToken(row scanner) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
