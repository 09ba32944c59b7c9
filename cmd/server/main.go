// Package main is the classroll web server: HTML pages for recording class
// attendance plus a JSON API over the same operations.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/classroll/classroll/config"
	"github.com/classroll/classroll/internal/application/command"
	"github.com/classroll/classroll/internal/application/query"
	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/infrastructure/messaging"
	"github.com/classroll/classroll/internal/infrastructure/persistence"
	"github.com/classroll/classroll/internal/infrastructure/persistence/redis"
	httpserver "github.com/classroll/classroll/internal/interface/http"
	"github.com/classroll/classroll/internal/interface/http/handlers"
	"github.com/classroll/classroll/pkg/circuitbreaker"
	"github.com/classroll/classroll/pkg/logger"
	"github.com/classroll/classroll/pkg/timeutil"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration and logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting classroll",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Location.String(),
		"driver", cfg.Database.Driver,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Database
	// ─────────────────────────────────────────────────────────────────────────
	db, migrator, err := persistence.Open(ctx, cfg.Database, func(attempt int, err error, delay time.Duration) {
		log.Warn("database not reachable, retrying", "attempt", attempt, "delay", delay.String(), "error", err)
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		_ = db.Close()
	}()
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, migrator, log); err != nil {
			return err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Redis (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache *redis.Cache
		dirCache   school.DirectoryCache
	)
	if cfg.Redis.Enabled {
		redisCache, err = redis.NewCache(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			PoolSize:     cfg.Redis.PoolSize,
			MaxRetries:   3,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			TTL:          cfg.Redis.CacheTTL,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			breaker := circuitbreaker.CacheBreaker(redis.IsMiss, func(name string, from, to circuitbreaker.State) {
				log.Warn("cache circuit changed state", "breaker", name, "from", from.String(), "to", to.String())
			})
			directory := redis.NewDirectoryCache(redisCache, cfg.Redis.CacheTTL).WithBreaker(breaker)
			// drop entries cached by a previous process or schema version
			if err := directory.InvalidateAll(ctx); err != nil {
				log.Warn("failed to clear directory cache", "error", err)
			}
			dirCache = directory
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Event bus
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus")
		_ = eventBus.Close()
	}()

	if err := messaging.RegisterSubscribers(eventBus, dirCache, log); err != nil {
		return fmt.Errorf("failed to register event subscribers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Application layer
	// ─────────────────────────────────────────────────────────────────────────
	clock := timeutil.NewClock(cfg.App.Location)
	cmdDeps := command.Deps{Events: eventBus, Clock: clock}
	queryDeps := query.Deps{Cache: dirCache, Clock: clock, Logger: log}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.NewPingCheck(db))
	if redisCache != nil {
		health.AddOptionalCheck("redis", handlers.NewPingCheck(redisCache))
	}

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimit
	httpConfig.AllowedOrigins = cfg.HTTP.CORSOrigins
	httpConfig.MaxUploadBytes = cfg.HTTP.MaxUploadBytes
	httpConfig.Version = cfg.App.Version

	auth := handlers.NewBasicAuth(cfg.Auth.AdminUser, cfg.Auth.AdminPasswordHash)
	if auth == nil {
		log.Warn("ADMIN_PASSWORD_HASH not set, mutating routes are unauthenticated")
	}

	server, err := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		CreateClassroom:     command.NewCreateClassroomHandler(db, cmdDeps),
		DeleteClassroom:     command.NewDeleteClassroomHandler(db, cmdDeps),
		CreateStudent:       command.NewCreateStudentHandler(db, cmdDeps),
		ImportStudents:      command.NewBulkImportStudentsHandler(db, cmdDeps),
		DeleteStudent:       command.NewDeleteStudentHandler(db, cmdDeps),
		SubmitAttendance:    command.NewSubmitAttendanceHandler(db, cmdDeps),
		ListClassrooms:      query.NewListClassroomsHandler(db, queryDeps),
		ListStudents:        query.NewListStudentsHandler(db, queryDeps),
		GetStudent:          query.NewGetStudentHandler(db),
		QueryRecords:        query.NewQueryRecordsHandler(db),
		StudentHistory:      query.NewStudentHistoryHandler(db),
		RosterForAttendance: query.NewRosterForAttendanceHandler(db, queryDeps),
		Clock:               clock,
		Logger:              newHTTPLogger(cfg),
		HealthChecker:       health,
		Auth:                auth,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Run until signalled
	// ─────────────────────────────────────────────────────────────────────────
	errCh := server.StartAsync()
	log.Info("classroll is running", "address", httpConfig.Address())

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("HTTP server error", "error", err)
			return err
		}
	}

	log.Info("starting graceful shutdown", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// migrate applies pending migrations and logs the resulting schema version.
func migrate(ctx context.Context, m persistence.Migrator, log *slog.Logger) error {
	log.Info("running database migrations")
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := m.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", "error", err)
		return nil
	}
	applied := 0
	for _, s := range status {
		if s.Applied {
			applied++
		}
	}
	log.Info("migrations completed", "applied", applied, "total", len(status))
	return nil
}

// setupLogger configures the process-wide slog logger used by the event bus
// and startup code.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Observability.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Observability.LogFormat, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("app", cfg.App.Name)
	slog.SetDefault(log)
	return log
}

func slogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// newHTTPLogger builds the request logger with the same level and format.
func newHTTPLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = logger.ParseFormat(cfg.Observability.LogFormat)
	return logger.New(opts).With(logger.String("app", cfg.App.Name), logger.Component("http"))
}
