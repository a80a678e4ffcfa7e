// Package web provides the JSON HTTP API for the import service.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/crmimport/internal/auth"
	"github.com/JonMunkholm/crmimport/internal/campaign"
	"github.com/JonMunkholm/crmimport/internal/config"
	"github.com/JonMunkholm/crmimport/internal/core"
	"github.com/JonMunkholm/crmimport/internal/importer"
	"github.com/JonMunkholm/crmimport/internal/store"
	"github.com/JonMunkholm/crmimport/internal/web/middleware"
)

// History lists finished import runs.
type History interface {
	ListImports(ctx context.Context, p store.ListImportsParams) ([]store.ImportRun, error)
}

// Campaigns changes campaign state.
type Campaigns interface {
	SetPublished(ctx context.Context, campaignID int64, published bool) (*store.Campaign, error)
	OnEventFailed(ctx context.Context, failed campaign.FailedEvent) (campaign.Outcome, error)
}

// Summary renders the import summary dashboard widget.
type Summary interface {
	Render(ctx context.Context, userID int64, from, to time.Time) (map[string]any, bool, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the handlers call. Imports and Verifier are
// required; a nil optional dependency disables its routes.
type Deps struct {
	Imports   *core.Service
	History   History
	Campaigns Campaigns
	Summary   Summary
	Verifier  *auth.Verifier
	Health    Pinger
}

// Server is the HTTP server for the import API.
type Server struct {
	cfg    *config.Config
	deps   Deps
	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server with its middleware and routes configured.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.With(chimw.Timeout(s.cfg.Server.RequestTimeout)).Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.BearerAuth(s.deps.Verifier, s.cfg.Security.AuthRequired))

		// Progress streams outlive the request timeout.
		r.With(requirePermission(importer.ImportPermission)).
			Get("/import-runs/{importID}/progress", s.handleImportProgress)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

			r.Route("/imports/{kind}", func(r chi.Router) {
				r.Get("/", s.handleInitImport)
				r.Get("/fields", s.handleImportFields)
				r.Post("/validate", s.handleValidateMapping)

				post := r.With()
				if s.cfg.Rate.Enabled && s.cfg.Rate.ImportLimit > 0 {
					post = r.With(newRateLimiter(s.cfg.Rate.ImportLimit, time.Minute).middleware)
				}
				post.Post("/", s.handleStartImport)
			})

			r.Group(func(r chi.Router) {
				r.Use(requirePermission(importer.ImportPermission))

				r.Get("/import-runs/{importID}/result", s.handleImportResult)
				r.Post("/import-runs/{importID}/cancel", s.handleCancelImport)
				r.Get("/import-runs/{importID}/failed-rows", s.handleExportFailedRows)

				if s.deps.History != nil {
					r.Get("/import-history", s.handleImportHistory)
				}
				if s.deps.Summary != nil {
					r.Get("/dashboard/import-summary", s.handleImportSummary)
				}
			})

			if s.deps.Campaigns != nil {
				r.With(requirePermission(campaign.PublishPermission)).
					Put("/campaigns/{campaignID}/published", s.handleSetPublished)
				r.With(requirePermission(campaign.EditPermission)).
					Post("/campaign-events/{eventID}/failures", s.handleEventFailed)
			}
		})
	})
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"imports": s.deps.Imports.LimiterStatus(),
	}
	status := http.StatusOK
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(r.Context()); err != nil {
			body["status"] = "unavailable"
			body["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			body["database"] = "ok"
		}
	}
	writeJSON(w, status, body)
}

func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}
