package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reefops/internal/config"
	"reefops/internal/constants"
	"reefops/internal/database"
	"reefops/internal/features"
	"reefops/internal/realtime"
	"reefops/internal/retry"
	"reefops/internal/service"
	"reefops/internal/tracing"
	"reefops/pkg/objstore"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("ReefOps %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	// A missing .env is fine; the environment may come from the deployment.
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting ReefOps")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.WithError(err).Warnf("Invalid log level %q, using info", cfg.LogLevel)
		} else {
			logger.SetLevel(level)
		}
	}

	tracer := tracing.NewManager(cfg.Tracing, logger)
	if err := tracer.Initialize(ctx); err != nil {
		logger.WithError(err).Warn("Tracing initialization failed, continuing without tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Tracing shutdown failed")
		}
	}()

	// A freshly provisioned host may still be mounting its data volume, so
	// the database open is retried with backoff.
	var db *database.Database
	policy := retry.Policy{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  cfg.Retry.MaxAttempts,
		Jitter:       true,
	}
	err = policy.Do(ctx, func() error {
		var openErr error
		db, openErr = database.New(cfg.Database.Path)
		return openErr
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Error("Failed to close database")
		}
	}()

	files, err := objstore.NewFileStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize attachment storage: %w", err)
	}

	flags := features.FromConfig(cfg.Features)

	typing := realtime.NewTypingRegistry()
	hub := realtime.NewHub(logger, typing)
	go hub.Run()
	go typing.Sweep(ctx)

	notifier := service.NewNotifier(logger, db, hub, cfg.Email, flags)
	msgService := service.NewMessageService(logger, db, db, files, notifier, flags)
	schedService := service.NewScheduleService(logger, db, db, notifier)

	srv := NewServer(cfg, logger, msgService, schedService, db, hub, typing)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("ReefOps stopped")
	return nil
}
