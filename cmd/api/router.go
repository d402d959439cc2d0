package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/inkdrop/inkdrop/internal/auth"
	"github.com/inkdrop/inkdrop/internal/config"
	"github.com/inkdrop/inkdrop/internal/handlers"
	"github.com/inkdrop/inkdrop/internal/middleware"
	"github.com/inkdrop/inkdrop/internal/repo"
	"github.com/inkdrop/inkdrop/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter wires stores, services and handlers over db and returns the full HTTP surface.
func newRouter(db *sql.DB, cfg config.Config, log *slog.Logger) (http.Handler, error) {
	tokens, err := auth.NewTokenService(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	userRepo := repo.NewUserRepo(db)
	postRepo := repo.NewPostRepo(db)
	sessionRepo := repo.NewRefreshTokenRepo(db)

	authSvc := service.NewAuthService(log, userRepo, sessionRepo, postRepo, tokens)
	postSvc := service.NewPostService(log, postRepo)

	authH := &handlers.AuthHandler{Auth: authSvc, Log: log}
	postH := &handlers.PostHandler{Posts: postSvc, Log: log}
	userH := &handlers.UserHandler{Auth: authSvc, Log: log}

	requireAuth := middleware.Authenticate(tokens)
	optionalAuth := middleware.OptionalAuthenticate(tokens)
	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	authLimiter := middleware.AuthRateLimiter(trusted)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLog(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.NotFound)

	r.Get("/health", handlers.Health)
	r.Get("/ready", handlers.Ready(db))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authLimiter.Middleware)
				r.Post("/register", authH.Register)
				r.Post("/login", authH.Login)
				r.Post("/refresh", authH.Refresh)
			})
			r.Post("/logout", authH.Logout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout-all", authH.LogoutAll)
				r.Get("/me", authH.Me)
				r.Put("/me", authH.UpdateMe)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postH.List)
			r.With(requireAuth).Get("/my/drafts", postH.Drafts)
			r.With(optionalAuth).Get("/{slug}", postH.GetBySlug)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", postH.Create)
				r.Put("/{id}", postH.Update)
				r.Post("/{id}/publish", postH.Publish)
				r.Post("/{id}/unpublish", postH.Unpublish)
				r.Delete("/{id}", postH.Delete)
			})
		})

		r.Get("/users/{username}", userH.Profile)
	})

	return r, nil
}
