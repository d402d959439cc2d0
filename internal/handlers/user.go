package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/inkdrop/inkdrop/internal/service"
)

// ==========================
// UserHandler (public profiles)
// ==========================
type UserHandler struct {
	Auth *service.AuthService
	Log  *slog.Logger
}

// ==========================
// Get profile with published posts
// ==========================
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Auth.Profile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		serviceError(w, r, h.Log, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"user":  profile.User,
		"posts": profile.Posts,
	})
}
