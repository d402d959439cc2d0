package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/inkdrop/inkdrop/internal/config"
	"github.com/inkdrop/inkdrop/internal/db"
	"github.com/inkdrop/inkdrop/internal/repo"
	"github.com/inkdrop/inkdrop/internal/scheduler"
)

func main() {
	rollback := flag.Bool("rollback", false, "revert every migration and exit")
	flag.Parse()

	cfg := config.Load()
	log := setupLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log.Info("starting inkdrop api", "env", cfg.Env, "port", cfg.Port)

	if *rollback {
		if err := db.Rollback(cfg.DSN()); err != nil {
			log.Error("rollback failed", "err", err)
			os.Exit(1)
		}
		log.Info("all migrations reverted")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		version, err := db.Migrate(cfg.DSN())
		if err != nil {
			log.Error("migration failed", "err", err)
			os.Exit(1)
		}
		log.Info("schema up to date", "version", version)
	}

	database, err := db.Connect(ctx, cfg.DSN(), db.PoolOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer database.Close()
	log.Info("connected to database")

	janitor, err := scheduler.NewJanitor(log, repo.NewRefreshTokenRepo(database), cfg.TokenPurgeCron)
	if err != nil {
		log.Error("invalid TOKEN_PURGE_CRON", "err", err)
		os.Exit(1)
	}
	janitor.Start(ctx)
	defer janitor.Stop()

	router, err := newRouter(database, cfg, log)
	if err != nil {
		log.Error("failed to build router", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			log.Info("listening (TLS)", "addr", srv.Addr)
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			log.Info("listening", "addr", srv.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "err", err)
		return
	}
	log.Info("server stopped gracefully")
}

func setupLogger(format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
