package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers bad signatures, expired tokens, malformed claims and kind mismatches.
var ErrInvalidToken = errors.New("invalid or expired token")

// Kind distinguishes access tokens from refresh tokens inside the signed claims.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the JWT payload for both token kinds.
type Claims struct {
	UserID string `json:"userId"`
	Type   Kind   `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies access and refresh tokens.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshExpr   string
	now           func() time.Time
}

// NewTokenService validates both lifetime expressions and returns a ready service.
func NewTokenService(accessSecret, refreshSecret, accessExpiry, refreshExpiry string) (*TokenService, error) {
	accessTTL, err := ParseExpiry(accessExpiry)
	if err != nil {
		return nil, fmt.Errorf("access expiry: %w", err)
	}
	if _, err := ParseExpiry(refreshExpiry); err != nil {
		return nil, fmt.Errorf("refresh expiry: %w", err)
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshExpr:   refreshExpiry,
		now:           time.Now,
	}, nil
}

// SetClock replaces the time source. Intended for tests.
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

// IssueAccess signs a short-lived access token for userID.
func (s *TokenService) IssueAccess(userID uuid.UUID) (string, error) {
	return s.issue(userID, KindAccess, s.now().Add(s.accessTTL))
}

// IssueRefresh signs a long-lived refresh token for userID.
func (s *TokenService) IssueRefresh(userID uuid.UUID) (string, error) {
	exp, err := s.RefreshExpiry()
	if err != nil {
		return "", err
	}
	return s.issue(userID, KindRefresh, exp)
}

// RefreshExpiry returns the absolute expiry for a refresh token issued now.
func (s *TokenService) RefreshExpiry() (time.Time, error) {
	return ExpiryFrom(s.now(), s.refreshExpr)
}

// VerifyAccess returns the user id of a valid access token.
func (s *TokenService) VerifyAccess(token string) (uuid.UUID, error) {
	return s.verify(token, KindAccess)
}

// VerifyRefresh returns the user id of a valid refresh token.
func (s *TokenService) VerifyRefresh(token string) (uuid.UUID, error) {
	return s.verify(token, KindRefresh)
}

func (s *TokenService) issue(userID uuid.UUID, kind Kind, exp time.Time) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID.String(),
		Type:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret(kind))
}

func (s *TokenService) verify(tokenStr string, kind Kind) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret(kind), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	if claims.Type != kind {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

func (s *TokenService) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return s.refreshSecret
	}
	return s.accessSecret
}
