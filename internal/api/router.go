package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/good-yellow-bee/secdash/internal/api/auth"
	"github.com/good-yellow-bee/secdash/internal/api/dashboard"
	"github.com/good-yellow-bee/secdash/internal/api/imports"
	"github.com/good-yellow-bee/secdash/internal/api/middleware"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	signer := auth.NewSigner(s.config.JWTSecret, s.config.AccessTokenTTL)
	lockout := auth.NewLockout(s.config.LockoutThreshold, s.config.LockoutDuration)

	// Create rate limiters
	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)
	userLimiter := middleware.NewRateLimiter(s.config.RateLimitPerUser)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer)

	importHandler := imports.NewHandler(s.ingest, s.ingest.Registry().Sources(), s.config.MaxUploadBytes)
	dash := dashboard.NewHandler(s.storage, *s.config.Policy)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (mostly public)
		r.Route("/auth", func(r chi.Router) {
			authHandler := auth.NewHandler(
				s.storage,
				signer,
				lockout,
				s.config.RefreshTokenTTL,
			)

			// Public routes with IP rate limiting
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(ipLimiter))
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
			})

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(signer))
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Imports (operator or admin)
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(signer))
			r.Use(middleware.RequireImporter)
			r.Post("/import", importHandler.Import)
			r.Post("/import/{source}", importHandler.ImportSource)
		})

		// Reads (any authenticated user)
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(signer))
			r.Use(middleware.RateLimitByUser(userLimiter))
			r.Use(chimw.Timeout(s.config.QueryTimeout))

			r.Get("/import/rules", importHandler.Rules)
			r.Get("/classify", importHandler.Classify)

			r.Get("/overview", dash.Overview)
			r.Get("/detections", dash.Detections)
			r.Get("/detections/stats", dash.DetectionStats)
			r.Get("/alerts", dash.Alerts)
			r.Get("/alerts/stats", dash.AlertStats)
			r.Get("/vulnerabilities", dash.Vulnerabilities)
			r.Get("/vulnerabilities/stats", dash.VulnerabilityStats)
			r.Get("/cloud-findings", dash.CloudFindings)
			r.Get("/cloud-findings/stats", dash.CloudFindingStats)
			r.Get("/scorecard", dash.Scorecard)
			r.Get("/scorecard/issues", dash.ScorecardIssues)
			r.Get("/phishing", dash.Phishing)
			r.Get("/phishing/stats", dash.PhishingStats)
			r.Get("/advisories", dash.Advisories)
			r.Get("/open-items", dash.OpenItems)
			r.Get("/metrics/{kind}", dash.Metrics)
			r.Get("/ingestions", dash.Ingestions)
			r.Get("/reports", dash.Reports)
			r.Get("/reports/{id}/content", dash.DownloadReport)
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrMethodNotAllowed)
	})

	return r
}
