// Package main is the entry point for the Singboard server.
// Singboard is a demo dashboard web application with user authentication,
// an admin user-management interface, and a JSON user API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/cache/memory"
	"github.com/singboard/singboard/internal/cache/redis"
	"github.com/singboard/singboard/internal/config"
	"github.com/singboard/singboard/internal/handler"
	"github.com/singboard/singboard/internal/metrics"
	"github.com/singboard/singboard/internal/repository"
	"github.com/singboard/singboard/internal/repository/postgres"
	"github.com/singboard/singboard/internal/repository/sqlite"
	"github.com/singboard/singboard/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	// A missing .env file is fine; it only exists in dev checkouts.
	_ = godotenv.Load()

	cfg := config.MustLoad(*configPath)
	logger := newLogger(cfg.Logging)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("driver", cfg.Database.Driver).
		Bool("require_login", cfg.Auth.RequireLogin).
		Msg("starting Singboard server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	cache, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer closeCache()

	userService := service.NewUserService(repos.User, logger)
	sessionService := service.NewSessionService(service.SessionServiceConfig{
		SessionRepo: repos.Session,
		Users:       userService,
		TTL:         cfg.Sessions.TTL,
		RememberTTL: cfg.Sessions.RememberTTL,
		Logger:      logger,
	})

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go func() {
			if err := metrics.Serve(cfg.Metrics, logger); err != nil {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	router, err := handler.NewRouter(handler.RouterConfig{
		Config:   cfg,
		Users:    userService,
		Sessions: sessionService,
		Cache:    cache,
		DB:       db,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	// Expired sessions pile up otherwise; hourly is plenty for a demo app.
	go purgeSessionsLoop(ctx, sessionService, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openDatabase connects to the configured backend, runs migrations and
// returns the repository set plus a handle for health checks and shutdown.
func openDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.Repositories, repository.DatabaseHealth, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return repository.Repositories{}, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return repository.Repositories{}, nil, err
		}
		return repository.Repositories{
			User:    postgres.NewUserRepository(db),
			Session: postgres.NewSessionRepository(db),
		}, db, nil

	case "sqlite":
		sqliteCfg := sqlite.DefaultConfig(cfg.Database.Path)
		if cfg.Database.JournalMode != "" {
			sqliteCfg.JournalMode = cfg.Database.JournalMode
		}
		if cfg.Database.BusyTimeout > 0 {
			sqliteCfg.BusyTimeout = cfg.Database.BusyTimeout
		}
		if cfg.Database.SynchronousMode != "" {
			sqliteCfg.SynchronousMode = cfg.Database.SynchronousMode
		}
		db, err := sqlite.NewDB(ctx, sqliteCfg, logger)
		if err != nil {
			return repository.Repositories{}, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return repository.Repositories{}, nil, err
		}
		return repository.Repositories{
			User:    sqlite.NewUserRepository(db),
			Session: sqlite.NewSessionRepository(db),
		}, db, nil

	default:
		return repository.Repositories{}, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// openCache returns the Redis cache when enabled, otherwise the in-memory one.
func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.Cache, func(), error) {
	if cfg.Redis.Enabled {
		c, err := redis.NewCache(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	}
	c := memory.NewCache()
	return c, func() { c.Stop() }, nil
}

func purgeSessionsLoop(ctx context.Context, sessions *service.SessionService, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sessions.PurgeExpired(ctx); err != nil {
				logger.Warn().Err(err).Msg("session purge failed")
			}
		}
	}
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat
	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
