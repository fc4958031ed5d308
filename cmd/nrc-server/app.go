package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/nrc/nrc/internal/config"
	"github.com/nrc/nrc/internal/domain/admission"
	"github.com/nrc/nrc/internal/domain/anganwadi"
	"github.com/nrc/nrc/internal/domain/bed"
	"github.com/nrc/nrc/internal/domain/bedrequest"
	"github.com/nrc/nrc/internal/domain/notification"
	"github.com/nrc/nrc/internal/domain/patient"
	"github.com/nrc/nrc/internal/domain/treatment"
	"github.com/nrc/nrc/internal/platform/auth"
	"github.com/nrc/nrc/internal/platform/db"
	"github.com/nrc/nrc/internal/platform/middleware"
	"github.com/nrc/nrc/internal/platform/resource"
	"github.com/nrc/nrc/internal/platform/retryqueue"
	"github.com/nrc/nrc/internal/platform/store"
	"github.com/nrc/nrc/internal/platform/store/csvstore"
	"github.com/nrc/nrc/internal/platform/store/sqlstore"
	"github.com/nrc/nrc/internal/platform/telemetry"
)

// app holds the stores and services shared by the serve, reconcile and
// audit commands.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	telemetry *telemetry.Provider

	handle     *db.Handle
	relational *sqlstore.Store
	backend    store.Backend
	queue      retryqueue.Queue
	redis      *retryqueue.RedisQueue

	patients      *patient.Service
	beds          *bed.Service
	bedRequests   *bedrequest.Service
	notifications *notification.Service
	admission     *admission.Service
	anganwadis    *anganwadi.Services
	treatments    *resource.Service[treatment.Tracker]
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		logger = logger.Level(level)
	}
	return logger
}

// newApp opens the stores. An unreachable database or redis is logged and
// the server carries on with the CSV store and an in-memory queue.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, telemetry: telemetry.NewProvider()}

	a.relational = sqlstore.New(nil, sqlstore.Postgres)
	if cfg.RelationalConfigured() {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.DBConnectTimeout)
		h, err := db.Open(connectCtx, cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("relational store unavailable, using CSV store only")
		} else {
			a.handle = h
			a.relational = sqlstore.New(h.DB, h.Dialect)
			logger.Info().Str("driver", cfg.DatabaseDriver).Msg("connected to database")
		}
	}

	files, err := csvstore.New(cfg.CSVDataDir)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.backend = store.NewFallback(a.relational, csvstore.NewBackend(files), logger, a.telemetry)

	a.queue = retryqueue.NewMemoryQueue()
	if cfg.RedisURL != "" {
		q, err := retryqueue.Connect(ctx, cfg.RedisURL, cfg.RetryQueueKey)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, compensations are kept in memory")
		} else {
			a.redis = q
			a.queue = q
		}
	}

	patientRepo := patient.NewStoreRepo(a.backend)
	bedRepo := bed.NewStoreRepo(a.backend)
	a.notifications = notification.NewService(notification.NewStoreRepo(a.backend))
	a.patients = patient.NewService(patientRepo)
	a.beds = bed.NewService(bedRepo, logger)
	a.bedRequests = bedrequest.NewService(bedrequest.NewStoreRepo(a.backend), a.notifications, logger)
	a.admission = admission.NewService(patientRepo, bedRepo, a.notifications, a.queue, logger, a.telemetry)
	a.anganwadis = anganwadi.NewServices(a.backend)
	a.treatments = treatment.NewService(a.backend, patientRepo)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.handle.Close()
}

func (a *app) retryConfig() retryqueue.Config {
	rc := retryqueue.DefaultConfig()
	rc.MaxAttempts = a.cfg.RetryMaxAttempts
	return rc
}

// pool is the pgx pool behind the relational store, or nil.
func (a *app) pool() *pgxpool.Pool {
	if a.handle == nil {
		return nil
	}
	return a.handle.Pool
}

// router builds the HTTP server: global middleware, public health and
// metrics endpoints, and the authenticated /api routes.
func (a *app) router() *echo.Echo {
	cfg, logger := a.cfg, a.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(a.telemetry.MetricsMiddleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		SigningKey: []byte(cfg.JWTSecret),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.ResolvedAuthMode() == "development" {
		logger.Warn().Msg("development auth enabled, unauthenticated requests run as admin")
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/stores", db.StoresHandler(a.relational, a.pool(), cfg.CSVDataDir))
	e.GET("/metrics", a.telemetry.PrometheusHandler())

	api := e.Group("/api")
	rl := middleware.RateLimitConfig{RequestsPerSecond: cfg.RateLimitRPS, BurstSize: cfg.RateLimitBurst}
	if rl.RequestsPerSecond <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rl))

	patient.NewHandler(a.patients).RegisterRoutes(api)
	bed.NewHandler(a.beds).RegisterRoutes(api)
	bedrequest.NewHandler(a.bedRequests).RegisterRoutes(api)
	notification.NewHandler(a.notifications).RegisterRoutes(api)
	admission.NewHandler(a.admission, a.retryConfig()).RegisterRoutes(api)
	anganwadi.NewHandler(a.anganwadis).RegisterRoutes(api)
	treatment.NewHandler(a.treatments).RegisterRoutes(api)
	return e
}

// runDrainLoop replays queued compensations every interval until ctx ends.
func (a *app) runDrainLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := a.admission.Replay(ctx, a.retryConfig())
			if err != nil && ctx.Err() == nil {
				a.logger.Error().Err(err).Msg("compensation drain failed")
				continue
			}
			if res.Applied+res.Skipped+res.Retried+len(res.Dropped) > 0 {
				a.logger.Info().Int("applied", res.Applied).Int("skipped", res.Skipped).Int("retried", res.Retried).
					Int("dropped", len(res.Dropped)).Msg("compensation drain finished")
			}
		}
	}
}
