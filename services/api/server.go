// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package api assembles the Snippetia HTTP server: storage, sessions,
// the security scanner, billing, trending, the live feed hub, and the
// route tree, driven by one Config.
package api

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/snippetia/snippetia/pkg/logging"
	"github.com/snippetia/snippetia/services/api/auth"
	"github.com/snippetia/snippetia/services/api/config"
	"github.com/snippetia/snippetia/services/api/handlers"
	"github.com/snippetia/snippetia/services/api/middleware"
	"github.com/snippetia/snippetia/services/api/observability"
	"github.com/snippetia/snippetia/services/api/routes"
	"github.com/snippetia/snippetia/services/api/store"
	"github.com/snippetia/snippetia/services/api/ttl"
	"github.com/snippetia/snippetia/services/backup"
	"github.com/snippetia/snippetia/services/feed"
	"github.com/snippetia/snippetia/services/monetize"
	"github.com/snippetia/snippetia/services/scanner"
	"github.com/snippetia/snippetia/services/trending"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// trendingInterval bounds how stale the cached trending list may get.
const trendingInterval = 5 * time.Minute

// Server is a fully wired Snippetia instance.
type Server struct {
	cfg    config.Config
	logger *logging.Logger

	store    *store.Store
	auth     *auth.Manager
	scanner  *scanner.Scanner
	trending *trending.Service
	monetize *monetize.Service
	hub      *feed.Hub
	backup   *backup.Service
	sweeper  *ttl.Scheduler
	router   *gin.Engine

	tracerShutdown func(context.Context) error

	// cancel stops the background loops: rule watcher, renewals,
	// session sweeps.
	cancel context.CancelFunc
}

// New builds a Server from the configuration. Background loops start
// immediately; Run starts the HTTP listener.
func New(cfg config.Config) (*Server, error) {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		LogDir:  cfg.LogDir,
		Service: "api",
		JSON:    cfg.LogFormat == "json",
	})
	slog.SetDefault(logger.Slog())

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{cfg: cfg, logger: logger, cancel: cancel}

	tracerShutdown, err := observability.InitTracing(ctx, "snippetia-api", Version)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	s.tracerShutdown = tracerShutdown

	if err := s.initStore(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.initAuth(); err != nil {
		s.Close()
		return nil, err
	}
	s.initScanner(ctx)
	s.initTrending(ctx)
	s.initMonetize(ctx)

	s.hub = feed.NewHub(logger.Slog())
	s.hub.OnCountChange(observability.SetFeedConnections)
	s.backup = backup.NewService(s.store, logger.Slog())

	s.sweeper = ttl.NewScheduler(s.store, logger.Slog(), ttl.DefaultSchedulerConfig())
	if err := s.sweeper.Start(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("start session sweeper: %w", err)
	}

	s.initRouter()
	return s, nil
}

func (s *Server) initStore() error {
	var (
		st  *store.Store
		err error
	)
	if s.cfg.DataDir == "" {
		st, err = store.OpenInMemory()
		s.logger.Warn("no data_dir configured, store is in-memory and volatile")
	} else {
		st, err = store.Open(store.Config{Path: s.cfg.DataDir, SyncWrites: true})
	}
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	s.store = st
	return nil
}

func (s *Server) initAuth() error {
	secret := []byte(s.cfg.SessionSecret)
	if len(secret) == 0 {
		// Random per-process secret. Restarts log everyone out.
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		s.logger.Warn("no session_secret configured, sessions will not survive restarts")
	}

	manager, err := auth.NewManager(s.store, secret, s.cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("init session manager: %w", err)
	}
	s.auth = manager
	return nil
}

func (s *Server) initScanner(ctx context.Context) {
	s.scanner = scanner.New()
	if s.cfg.RuleDir == "" {
		return
	}

	if patterns, err := scanner.LoadRules(s.cfg.RuleDir); err != nil {
		s.logger.Warn("loading scanner rules failed, using built-ins only",
			"rule_dir", s.cfg.RuleDir, "error", err)
	} else if len(patterns) > 0 {
		s.scanner.SetPatterns(patterns)
	}

	go func() {
		if err := s.scanner.Watch(ctx, s.cfg.RuleDir, s.logger.Slog()); err != nil &&
			!errors.Is(err, context.Canceled) {
			s.logger.Error("scanner rule watcher stopped", "error", err)
		}
	}()
}

func (s *Server) initTrending(ctx context.Context) {
	var cache trending.Cache
	if s.cfg.RedisAddr != "" {
		rc, err := trending.NewRedisCache(ctx, s.cfg.RedisAddr, "", 0)
		if err != nil {
			s.logger.Warn("redis unreachable, trending falls back to in-process cache",
				"addr", s.cfg.RedisAddr, "error", err)
			cache = trending.NewMemoryCache()
		} else {
			cache = rc
		}
	} else {
		cache = trending.NewMemoryCache()
	}
	s.trending = trending.New(s.store, cache, trendingInterval)
}

func (s *Server) initMonetize(ctx context.Context) {
	var gateway monetize.Gateway
	if s.cfg.PaymentGatewayURL != "" {
		gateway = monetize.NewHTTPGateway(monetize.HTTPGatewayConfig{
			BaseURL: s.cfg.PaymentGatewayURL,
			APIKey:  s.cfg.PaymentGatewayKey,
		})
	} else {
		gateway = monetize.NewFakeGateway()
		s.logger.Warn("no payment gateway configured, charges are simulated")
	}
	s.monetize = monetize.NewService(s.store, gateway, s.logger.Slog())
	go s.monetize.RunRenewals(ctx, time.Hour)
}

func (s *Server) initRouter() {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("snippetia-api"))
	router.Use(observability.MetricsMiddleware())

	routes.SetupRoutes(router, routes.Deps{
		Store:    s.store,
		Auth:     s.auth,
		Scanner:  s.scanner,
		Trending: s.trending,
		Monetize: s.monetize,
		Hub:      s.hub,
		Backup:   s.backup,
		BackupCfg: handlers.BackupConfig{
			Dir:    s.cfg.BackupDir,
			Bucket: s.cfg.BackupBucket,
		},
		Limiter: middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: s.cfg.RateLimit,
			Burst:             s.cfg.RateBurst,
		}),
		Logger: s.logger.Slog(),
	})
	s.router = router
}

// Router exposes the Gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP listener and blocks until SIGINT or SIGTERM,
// then drains in-flight requests before returning.
func (s *Server) Run() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.cfg.Listen, "version", Version)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-stop:
		s.logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases every resource. Safe to call more than once.
func (s *Server) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing store", "error", err)
		}
		s.store = nil
	}
	if s.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.tracerShutdown(ctx); err != nil {
			s.logger.Error("tracer shutdown", "error", err)
		}
		cancel()
		s.tracerShutdown = nil
	}
	_ = s.logger.Close()
}
