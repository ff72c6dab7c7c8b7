// Command docchat runs the document-chat client core behind a local
// companion server: the browser page reads component state and posts actions
// under UI_BASE_PATH and listens for render signals on the event stream.
//
// @title       Document Chat Client API
// @version     1.0
// @description Component state and actions of the document-chat client.
// @BasePath    /ui/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	_ "github.com/tbourn/go-docchat-client/docs"
	"github.com/tbourn/go-docchat-client/internal/api"
	"github.com/tbourn/go-docchat-client/internal/config"
	httpapi "github.com/tbourn/go-docchat-client/internal/http"
	"github.com/tbourn/go-docchat-client/internal/http/events"
	"github.com/tbourn/go-docchat-client/internal/observability"
	"github.com/tbourn/go-docchat-client/internal/repo"
	"github.com/tbourn/go-docchat-client/internal/services"
	"github.com/tbourn/go-docchat-client/internal/sysutil"
	"github.com/tbourn/go-docchat-client/internal/worker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	cfg := config.MustLoad()
	sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	ver := sysutil.FirstNonEmpty(version, os.Getenv("DOCCHAT_VERSION"), "dev")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Setup(ctx, cfg, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup")
	}

	db, err := repo.OpenSQLite(cfg.StorePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StorePath).Msg("open credential store")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate credential store")
	}

	pool, err := worker.New(cfg.WorkerPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("worker pool")
	}

	hub := events.NewHub(cfg.CORS.AllowedOrigins)
	app := services.NewApp(
		api.New(cfg.Backend.URL, cfg.Backend.Timeout),
		repo.NewCredentialStore(db),
		pool,
		hub,
		services.Options{MaxFiles: cfg.Upload.MaxFiles, RefreshDelay: cfg.Upload.RefreshDelay},
	)
	hub.Versions = app.Version

	// A stored credential resumes the session; failures fall back to the
	// sign-in form.
	if id, err := app.Auth.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("session not restored")
	} else if id != nil {
		log.Info().Str("user", id.Username).Bool("admin", id.IsAdmin()).Msg("session restored")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, app, hub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("backend", cfg.Backend.URL).Str("version", ver).Msg("companion server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := pool.Release(5 * time.Second); err != nil {
		log.Warn().Err(err).Msg("worker pool release")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
}
