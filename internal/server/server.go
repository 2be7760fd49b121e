// Package server wires the application together: router, middleware, routes,
// and lifecycle.
//
// This is the composition root — every dependency (store, provider, services,
// handlers) is constructed here in one place and injected downward. main.go
// stays minimal: load config, create the server, start it.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/arefin/fellowdash/internal/auth"
	"github.com/arefin/fellowdash/internal/config"
	"github.com/arefin/fellowdash/internal/handler"
	"github.com/arefin/fellowdash/internal/metrics"
	"github.com/arefin/fellowdash/internal/middleware"
	mongoRepo "github.com/arefin/fellowdash/internal/repository/mongo"
	"github.com/arefin/fellowdash/internal/service"
)

// Server owns the router, the Mongo connection, and the background metrics
// refresher. The connection is closed during graceful shutdown.
type Server struct {
	router    *chi.Mux
	config    *config.Config
	logger    *slog.Logger
	db        *mongoRepo.DB
	refresher *metrics.Refresher
}

// New assembles the dependency graph:
//
//	config → mongo.DB → repositories
//	       → TwitterProvider / TokenService
//	       → AccountService, Refresher
//	       → handlers → routes
//
// Each layer only receives what it needs: handlers never touch the store
// directly, services never touch HTTP.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := mongoRepo.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	provider := auth.NewTwitterProvider(
		cfg.TwitterClientID,
		cfg.TwitterClientSecret,
		cfg.TwitterCallbackURL,
	)

	tweets := metrics.NewHTTPClient(cfg.TwitterBearerToken)
	refresher := metrics.NewRefresher(tweets, db, db, logger)
	accounts := service.NewAccountService(db, logger)

	pages, err := handler.NewPages(cfg.TemplateDir, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		db:        db,
		refresher: refresher,
	}

	s.setupRoutes(pages, tokens, provider, accounts, refresher)

	return s, nil
}

// setupRoutes configures middleware and the route table.
//
// ROUTE STRUCTURE:
//
//	GET  /                       → landing page
//	GET  /login                  → login page (authed users → /dashboard)
//	GET  /login/twitter          → redirect to Twitter authorization
//	GET  /auth/twitter           → OAuth callback
//	GET  /complete-registration  → registration form (pre-filled)
//	POST /complete-registration  → create account, start session
//	GET  /dashboard              → protected dashboard
//	GET  /logout                 → protected, clears session
//	GET  /api/me                 → protected JSON profile
//	GET  /api/engagements        → protected JSON snapshot
//
// Anonymous requests to protected routes are redirected to /login by the
// RequireAuth middleware — never answered with an error status.
func (s *Server) setupRoutes(
	pages *handler.Pages,
	tokens *auth.TokenService,
	provider auth.Provider,
	accounts *service.AccountService,
	refresher *metrics.Refresher,
) {
	// Middleware runs in order: request ID → real IP → panic recovery → logging.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	authHandler := handler.NewAuthHandler(provider, tokens, accounts, refresher, pages, s.logger)
	dashHandler := handler.NewDashboardHandler(accounts, s.db, pages, s.logger)

	// Public routes
	s.router.Get("/", pages.HandleLanding)
	s.router.Get("/login/twitter", authHandler.HandleTwitterLogin)
	s.router.Get("/auth/twitter", authHandler.HandleTwitterCallback)
	s.router.Get("/complete-registration", authHandler.HandleRegistrationForm)
	s.router.Post("/complete-registration", authHandler.HandleCompleteRegistration)

	// /login attaches the principal when present so authenticated visitors
	// can be bounced straight to the dashboard.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/login", authHandler.HandleLoginPage)
	})

	// Protected routes
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/dashboard", dashHandler.HandleDashboard)
		r.Get("/logout", authHandler.HandleLogout)
		r.Route("/api", func(r chi.Router) {
			r.Get("/me", dashHandler.HandleMe)
			r.Get("/engagements", dashHandler.HandleEngagements)
		})
	})
}

// Start runs the HTTP server and the background refresher, and handles
// graceful shutdown.
//
// SHUTDOWN ORDER:
//  1. Stop accepting new connections, drain in-flight requests (30s budget)
//  2. Cancel the background refresher's context
//  3. Disconnect from Mongo
func (s *Server) Start() error {
	defer s.db.Close()

	// The refresher lives for the whole process; cancelling this context is
	// what stops it during shutdown.
	refreshCtx, stopRefresher := context.WithCancel(context.Background())
	defer stopRefresher()
	go s.refresher.Run(refreshCtx, s.config.MetricsRefreshInterval)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.MongoDB),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		stopRefresher()
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
