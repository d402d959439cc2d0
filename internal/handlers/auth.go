package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/inkdrop/inkdrop/internal/auth"
	"github.com/inkdrop/inkdrop/internal/metrics"
	"github.com/inkdrop/inkdrop/internal/models"
	"github.com/inkdrop/inkdrop/internal/service"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Auth *service.AuthService
	Log  *slog.Logger
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email" msg:"Valid email is required"`
	Username string `json:"username" validate:"required,min=3,max=50,username" msg:"Username must be 3-50 characters and contain only letters, numbers, hyphens, and underscores"`
	Password string `json:"password" validate:"required,min=8" msg:"Password must be at least 8 characters long"`
}

func (req *registerRequest) trim() {
	req.Email = normalizeEmail(req.Email)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email" msg:"Valid email is required"`
	Password string `json:"password" validate:"required" msg:"Password is required"`
}

func (req *loginRequest) trim() {
	req.Email = normalizeEmail(req.Email)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required" msg:"Refresh token is required"`
}

type profileRequest struct {
	Bio       *string `json:"bio" validate:"omitnil,max=2000" msg:"Bio must be max 2000 characters"`
	AvatarURL *string `json:"avatarUrl" validate:"omitnil,url,max=500" msg:"Avatar must be a valid URL"`
}

func (req *profileRequest) trim() {
	trimPtr(req.Bio)
	trimPtr(req.AvatarURL)
}

type authResponse struct {
	Message      string             `json:"message"`
	User         *models.UserPublic `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

// normalizeEmail lowercases and trims so lookups are case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func result(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// ==========================
// Register
// ==========================
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.Auth.Register(r.Context(), req.Email, req.Username, req.Password)
	metrics.IncAuthEvent("register", result(err))
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, authResponse{
		Message:      "User registered successfully",
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

// ==========================
// Login
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	metrics.IncAuthEvent("login", result(err))
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}

	render.JSON(w, r, authResponse{
		Message:      "Login successful",
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

// ==========================
// Refresh (access token only; the refresh token is not rotated)
// ==========================
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	access, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	metrics.IncAuthEvent("refresh", result(err))
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}

	render.JSON(w, r, map[string]string{
		"message":     "Token refreshed successfully",
		"accessToken": access,
	})
}

// ==========================
// Logout (idempotent)
// ==========================
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.Auth.Logout(r.Context(), req.RefreshToken)
	metrics.IncAuthEvent("logout", result(err))
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}

	render.JSON(w, r, map[string]string{"message": "Logout successful"})
}

// ==========================
// Logout everywhere
// ==========================
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	n, err := h.Auth.LogoutAll(r.Context(), id)
	metrics.IncAuthEvent("logout_all", result(err))
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"message": "All sessions revoked",
		"revoked": n,
	})
}

// ==========================
// Current user
// ==========================
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	user, err := h.Auth.Me(r.Context(), id)
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{"user": user})
}

// ==========================
// Update profile (bio, avatarUrl)
// ==========================
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.Auth.UpdateProfile(r.Context(), id, models.ProfileUpdate{Bio: req.Bio, AvatarURL: req.AvatarURL})
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// identity returns the caller set by middleware.Authenticate. Its absence means the
// route was wired without the middleware, which is answered with 401.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		JSONError(w, r, http.StatusUnauthorized, "Authentication required", "No valid authorization header found")
	}
	return id, ok
}
