// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/secdash/internal/aggregate"
	"github.com/good-yellow-bee/secdash/internal/api/health"
	"github.com/good-yellow-bee/secdash/internal/api/imports"
	"github.com/good-yellow-bee/secdash/internal/ingest"
	"github.com/good-yellow-bee/secdash/internal/security"
	"github.com/good-yellow-bee/secdash/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address          string
	JWTSecret        []byte
	HTTPTLSEnabled   bool   // Enable HTTPS for API server
	HTTPTLSCertFile  string // HTTPS certificate file
	HTTPTLSKeyFile   string // HTTPS private key file
	HTTPTLSClientCA  string // Optional CA that client certificates must chain to
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	RateLimitPerIP   int
	RateLimitPerUser int
	LockoutThreshold int
	LockoutDuration  time.Duration
	QueryTimeout     time.Duration // Timeout for dashboard reads
	MaxUploadBytes   int64
	Policy           *aggregate.Policy // nil uses aggregate.DefaultPolicy
	Listener         ingest.Listener   // told about every completed upload
	Verbose          bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = 7 * 24 * time.Hour // 7 days
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 5 // per minute
	}
	if c.RateLimitPerUser == 0 {
		c.RateLimitPerUser = 100 // per minute
	}
	if c.LockoutThreshold == 0 {
		c.LockoutThreshold = 5 // 5 failed attempts
	}
	if c.LockoutDuration == 0 {
		c.LockoutDuration = 30 * time.Minute
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = imports.DefaultMaxUploadBytes
	}
	if c.Policy == nil {
		p := aggregate.DefaultPolicy()
		c.Policy = &p
	}
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	storage       storage.Storage
	ingest        *ingest.Service
	server        *http.Server
	healthHandler *health.Handler
}

// New creates a new API server. The storage ping is registered as the
// readiness check.
func New(cfg *Config, store storage.Storage) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:        cfg,
		storage:       store,
		ingest:        ingest.NewService(store),
		healthHandler: health.NewHandler(),
	}
	s.healthHandler.RegisterChecker(health.NewDatabaseChecker("database", store))
	if cfg.Listener != nil {
		s.ingest.SetListener(cfg.Listener)
	}

	router := s.setupRouter()

	s.server = &http.Server{
		Addr:    cfg.Address,
		Handler: router,
		// Uploads up to MaxUploadBytes must fit in the read window.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.HTTPTLSEnabled {
		tlsCfg, err := (&security.ServerTLSConfig{
			CertFile:     cfg.HTTPTLSCertFile,
			KeyFile:      cfg.HTTPTLSKeyFile,
			ClientCAFile: cfg.HTTPTLSClientCA,
		}).Load()
		if err != nil {
			return nil, fmt.Errorf("https: %w", err)
		}
		s.server.TLSConfig = tlsCfg
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		var err error
		if s.config.HTTPTLSEnabled {
			// Certificates are already loaded into TLSConfig.
			err = s.server.ListenAndServeTLS("", "")
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
