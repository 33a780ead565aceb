package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/secdash/internal/api"
	"github.com/good-yellow-bee/secdash/internal/metrics"
	"github.com/good-yellow-bee/secdash/internal/notifier"
	"github.com/good-yellow-bee/secdash/internal/storage"
	"github.com/good-yellow-bee/secdash/pkg/config"
)

var (
	configFile string
	httpAddr   string
	dbDriver   string
	dbDSN      string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "secdash-server",
	Short: "secdash server - security dashboard API",
	Long: `secdash server accepts security tool exports, normalizes them into
a relational store and serves the dashboard read API.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.Info())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db-dsn", "", "database path or connection URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbDSN != "" {
		cfg.Database.DSN = dbDSN
	}
	cfg.Verbose = verbose
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	// Get JWT secret from environment
	jwtSecret := os.Getenv("SECDASH_JWT_SECRET")
	if len(jwtSecret) < 32 {
		return fmt.Errorf("SECDASH_JWT_SECRET environment variable must be at least 32 bytes")
	}

	// Auto-create data directory
	if cfg.Database.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0750); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	// Initialize storage
	store, err := storage.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// Create default admin user on first run
	if err := store.EnsureAdminUser(); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	log.Printf("database initialized (%s)", store.Dialect().Name())

	policy := cfg.Policy
	apiCfg := &api.Config{
		Address:          cfg.Server.HTTPAddress,
		JWTSecret:        []byte(jwtSecret),
		HTTPTLSEnabled:   cfg.Server.TLS.Enabled,
		HTTPTLSCertFile:  cfg.Server.TLS.CertFile,
		HTTPTLSKeyFile:   cfg.Server.TLS.KeyFile,
		HTTPTLSClientCA:  cfg.Server.TLS.ClientCAFile,
		AccessTokenTTL:   duration(cfg.Auth.AccessTokenTTL),
		RefreshTokenTTL:  duration(cfg.Auth.RefreshTokenTTL),
		RateLimitPerIP:   cfg.API.RateLimitPerIP,
		RateLimitPerUser: cfg.API.RateLimitPerUser,
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  duration(cfg.Auth.LockoutDuration),
		QueryTimeout:     duration(cfg.API.QueryTimeout),
		MaxUploadBytes:   cfg.Import.MaxUploadBytes,
		Policy:           &policy,
		Verbose:          cfg.Verbose,
	}

	dispatcher, err := notifier.New(cfg.Notify)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if dispatcher.Len() > 0 {
		apiCfg.Listener = dispatcher
		defer dispatcher.Close()
		log.Printf("import notifications enabled (%d webhooks)", dispatcher.Len())
	}

	srv, err := api.New(apiCfg, store)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	build := config.Info()
	metrics.SetBuildInfo(build.Version, build.Commit, build.BuildTime)
	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(cfg.Metrics.Address)
		metricsDone := make(chan struct{})
		go func() {
			defer close(metricsDone)
			if err := metricsSrv.Run(ctx); err != nil {
				log.Printf("metrics server error: %v", err)
			}
		}()
		defer func() {
			cancel()
			<-metricsDone
		}()
	}

	log.Printf("starting secdash-server %s", build.Version)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}
