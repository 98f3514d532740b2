package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/orrn/rawspool/internal/api"
	"github.com/orrn/rawspool/internal/api/middleware"
	"github.com/orrn/rawspool/internal/archive"
	"github.com/orrn/rawspool/internal/config"
	"github.com/orrn/rawspool/internal/core"
	"github.com/orrn/rawspool/internal/db"
	"github.com/orrn/rawspool/internal/logging"
	"github.com/orrn/rawspool/internal/spooler"
	"github.com/orrn/rawspool/internal/webhook"
)

type server struct {
	cfg      *config.Config
	http     *http.Server
	webhook  *webhook.Sender
	archiver *archive.Archiver
}

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to the YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logging.InitLogger(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	gin.SetMode(gin.ReleaseMode)

	if err := serve(cfg); err != nil {
		logging.Error("server error", "error", err)
		os.Exit(1)
	}
}

// serve owns the database for the lifetime of the server so that it is closed
// on every return path before main exits.
func serve(cfg *config.Config) error {
	if err := db.Init(db.Config{Path: cfg.Database.Path}); err != nil {
		return fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
	}
	defer db.Close()

	srv, err := newServer(context.Background(), cfg, spooler.Native())
	if err != nil {
		return fmt.Errorf("failed to set up server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newServer wires the journal, webhooks and API around sp. The database must
// already be initialised.
func newServer(ctx context.Context, cfg *config.Config, sp spooler.Spooler) (*server, error) {
	submitter := core.NewSubmitter(sp, core.SubmitterConfig{
		DocumentLabel:   cfg.Printing.DocumentLabel,
		MaxPayloadBytes: cfg.Printing.MaxPayloadBytes,
	})
	if !submitter.Supported() {
		logging.Warn("raw printing is not available on this platform, print requests will be rejected")
	}

	sender := webhook.NewSender(webhook.Config{
		URLs:        cfg.Webhooks.URLs,
		Secret:      cfg.Webhooks.Secret,
		RetryCount:  cfg.Webhooks.RetryCount,
		RetryDelay:  cfg.Webhooks.RetryDelay,
		Timeout:     cfg.Webhooks.Timeout,
		WorkerCount: cfg.Webhooks.WorkerCount,
		QueueSize:   cfg.Webhooks.QueueSize,
	})

	var notifier core.Notifier
	if sender.Enabled() {
		notifier = sender
	}
	jobs := core.NewJobManager(submitter, db.Jobs, db.Settings, notifier, core.JobManagerConfig{
		DefaultPrinter: cfg.Printing.DefaultPrinter,
		CodePage:       cfg.Printing.CodePage,
	})

	auth, err := middleware.NewAuthMiddleware(ctx, db.Settings, middleware.AuthConfig{
		Enabled:       cfg.Auth.Enabled,
		TokenDuration: cfg.Auth.TokenDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise auth: %w", err)
	}

	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		archiver, err = archive.NewArchiver(db.GetDB(), archive.Config{
			ArchivePath: cfg.Archive.Path,
			ArchiveDays: cfg.Archive.RetentionDays,
			Interval:    cfg.Archive.Interval,
		})
		if err != nil {
			return nil, err
		}
	}

	router := api.NewRouter(api.Deps{
		Config:   cfg,
		Jobs:     jobs,
		Auth:     auth,
		Archiver: archiver,
		Webhooks: sender,
	})

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &server{
		cfg:      cfg,
		http:     httpServer,
		webhook:  sender,
		archiver: archiver,
	}, nil
}

// run serves until ctx is done, then shuts down within the configured timeout.
func (s *server) run(ctx context.Context) error {
	s.webhook.Start()
	defer s.webhook.Stop()
	if s.archiver != nil {
		s.archiver.Start()
		defer s.archiver.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("server listening", "addr", s.http.Addr, "spooler", spooler.Available)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Warn("shutdown signal received, closing server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logging.Error("server forced to shutdown", "error", err)
		return err
	}
	logging.Info("server stopped cleanly")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
