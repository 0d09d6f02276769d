package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfeidau/casework/internal/bootstrap"
	"github.com/wolfeidau/casework/internal/logger"
	"github.com/wolfeidau/casework/internal/server"
	"github.com/wolfeidau/casework/internal/telemetry"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"CASEWORK_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"CASEWORK_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"CASEWORK_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string      `help:"allowed CORS origins for API requests" default:"https://localhost" env:"CASEWORK_CORS_ORIGINS"`
	DownloadTTL time.Duration `help:"lifetime of archived report download links" default:"15m" env:"CASEWORK_DOWNLOAD_TTL"`

	// Development and operational modes
	Development      bool    `help:"development mode - seed an organization and developer account" default:"false" env:"CASEWORK_DEVELOPMENT"`
	DevOrgID         string  `help:"organization id seeded in development mode" default:"dev" env:"CASEWORK_DEV_ORG_ID"`
	DevEmail         string  `help:"developer email seeded in development mode" default:"dev@localhost.localdomain" env:"CASEWORK_DEV_EMAIL"`
	DevPassword      string  `help:"developer password seeded in development mode" default:"" env:"CASEWORK_DEV_PASSWORD"`
	Tracing          bool    `help:"enable tracing" default:"false" env:"CASEWORK_TRACING"`
	TraceSampleRatio float64 `help:"fraction of traces sampled" default:"1.0" env:"CASEWORK_TRACE_SAMPLE_RATIO"`

	// Revocation sweeper
	SweepInterval time.Duration `help:"interval between revoked token sweeps" default:"5m"`

	Store bootstrap.Flags `embed:""`
}

func (c *ServerCmd) Validate() error {
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS requires both --cert and --key")
	}
	if c.Development && len(c.DevPassword) < 8 {
		return errors.New("development mode requires --dev-password of at least 8 characters")
	}
	return nil
}

func (c *ServerCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: "casework-server",
			Version:     globals.Version,
			SampleRatio: c.TraceSampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	cfg, err := c.Store.Config()
	if err != nil {
		return err
	}

	svc, err := bootstrap.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to bootstrap services: %w", err)
	}
	defer svc.Close()

	if c.Development {
		log.Info().Msg("Development mode enabled - seeding organization and developer account")
		if err := bootstrap.Seed(ctx, svc, bootstrap.SeedConfig{
			OrgID:    c.DevOrgID,
			OrgName:  "Development",
			Email:    c.DevEmail,
			Password: c.DevPassword,
		}); err != nil {
			return err
		}
	}

	svc.Revocations.Start(ctx, c.SweepInterval)
	defer svc.Revocations.Stop()

	handler := server.NewServer(svc, server.Config{
		CORSOrigins: c.CORSOrigins,
		DownloadTTL: c.DownloadTTL,
	}).Handler(log)

	return serve(ctx, log, configureHTTPServer(c.Listen, handler), c.Cert, c.Key)
}
