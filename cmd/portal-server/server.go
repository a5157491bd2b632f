package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/pediconsent/portal/internal/backend"
	"github.com/pediconsent/portal/internal/config"
	"github.com/pediconsent/portal/internal/domain/dashboard"
	"github.com/pediconsent/portal/internal/domain/dossier"
	"github.com/pediconsent/portal/internal/domain/journey"
	"github.com/pediconsent/portal/internal/domain/legal"
	"github.com/pediconsent/portal/internal/domain/portal"
	"github.com/pediconsent/portal/internal/domain/signature"
	"github.com/pediconsent/portal/internal/platform/auth"
	"github.com/pediconsent/portal/internal/platform/clock"
	"github.com/pediconsent/portal/internal/platform/db"
	"github.com/pediconsent/portal/internal/platform/health"
	"github.com/pediconsent/portal/internal/platform/jsoncodec"
	"github.com/pediconsent/portal/internal/platform/metrics"
	"github.com/pediconsent/portal/internal/platform/middleware"
)

const purgeInterval = 15 * time.Minute

// serverDeps are the collaborators built outside newServer, so tests can
// run the full route table against an in-memory session store.
type serverDeps struct {
	Sessions  portal.SessionRepository
	Pool      *pgxpool.Pool
	Clock     clock.Clock
	Metrics   *metrics.Metrics
	Transport http.RoundTripper
}

type server struct {
	echo    *echo.Echo
	portal  *portal.Service
	backend *backend.Client
}

func newServer(cfg *config.Config, logger zerolog.Logger, deps serverDeps) (*server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	m := deps.Metrics

	client, err := backend.New(backend.Config{
		BaseURL:         cfg.BackendBaseURL,
		Timeout:         cfg.BackendTimeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
		Metrics:         m,
		Logger:          logger,
		Transport:       deps.Transport,
	})
	if err != nil {
		return nil, err
	}

	verifier := auth.NewVerifier(auth.TokenConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
		SkipVerify: cfg.IsDev() && cfg.AuthSigningKey == "",
	})
	rules := journey.Rules{
		ReflectionDays: cfg.ReflectionDays,
		ActSpacingDays: cfg.ActSpacingDays,
		Enforced:       cfg.ReflectionEnforced,
		Location:       loc,
	}

	portalSvc := portal.NewService(deps.Sessions, verifier, cfg.SessionTTL, deps.Clock, m, logger)
	legalSvc := legal.NewService(client, cfg.GranularSignatures, m, logger)
	dossierSvc := dossier.NewService(client, logger)
	dashboardSvc := dashboard.NewService(client, rules, cfg.GranularSignatures, deps.Clock, logger)
	signatureSvc := signature.NewService(signature.Deps{
		Backend:   client,
		Dashboard: dashboardSvc,
		Legal:     legalSvc,
		Rules:     rules,
		Clock:     deps.Clock,
		Metrics:   m,
		Logger:    logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsoncodec.Serializer{}

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.CORSOrigins))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Content-Type", middleware.RequestIDHeader, auth.SessionHeader},
		AllowCredentials: true,
	}))
	e.Use(m.Middleware())
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	var dbCheck health.Check
	if deps.Pool != nil {
		dbCheck = deps.Pool.Ping
	}
	health.NewHandler(map[string]health.Check{
		"backend":  client.Ping,
		"database": dbCheck,
	}).RegisterRoutes(e)
	e.GET("/metrics", m.Handler())

	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst > 0 {
		rl.RequestsPerSecond, rl.BurstSize = cfg.RateLimitRPS, cfg.RateLimitBurst
	}

	// Unauthenticated routes are limited per client IP, session routes per
	// portal session.
	v1 := e.Group("/api/v1")
	public := v1.Group("", middleware.RateLimit(rl))
	api := v1.Group("", auth.SessionMiddleware(portalSvc), middleware.RateLimit(rl))

	portal.NewHandler(portalSvc, cfg.SessionCookieSecure).RegisterRoutes(api, public)
	legal.NewHandler(legalSvc).RegisterRoutes(api)
	dossier.NewHandler(dossierSvc).RegisterRoutes(api)
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(api)
	signature.NewHandler(signatureSvc, middleware.RateLimit(middleware.OTPRateLimitConfig())).RegisterRoutes(api, public)

	return &server{echo: e, portal: portalSvc, backend: client}, nil
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := serverDeps{}
	if cfg.UsesMemorySessions() {
		logger.Warn().Msg("DATABASE_URL not set, portal sessions are kept in memory")
		deps.Sessions = portal.NewMemoryRepo()
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
		deps.Pool = pool
		deps.Sessions = portal.NewSessionRepoPG(pool)
	}

	srv, err := newServer(cfg, logger, deps)
	if err != nil {
		return err
	}

	go purgeSessions(ctx, srv.portal, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// purgeSessions deletes expired portal sessions until ctx is done.
func purgeSessions(ctx context.Context, svc *portal.Service, logger zerolog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.Purge(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("session purge failed")
				continue
			}
			if n > 0 {
				logger.Info().Int64("deleted", n).Msg("expired sessions purged")
			}
		}
	}
}
