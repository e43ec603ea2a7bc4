package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/antredesloutres/otternel/internal/config"
	"github.com/antredesloutres/otternel/internal/observability"
	"github.com/antredesloutres/otternel/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// watch flags, override the environment when set
	watchDir     string
	triggersPath string
	logLevel     string
	skipExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the server log folder and dispatch triggers",
	Long: `Watch the server log folder and dispatch triggers.

Configuration comes from the environment (and a .env file when present).
Flags take precedence over the matching variables.

Examples:
  # Use SERVERLOG_FOLDER and TRIGGERS_PATH from the environment
  otternel watch

  # Override the folder and the trigger file
  otternel watch --dir /srv/logs --triggers triggers.yaml`,
	RunE: runWatch,
}

func init() {
	registerWatchFlags(watchCmd)
}

func registerWatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&watchDir, "dir", "d", "",
		"Server log folder (SERVERLOG_FOLDER)")
	cmd.Flags().StringVarP(&triggersPath, "triggers", "t", "",
		"Trigger file, .toml or .yaml (TRIGGERS_PATH)")
	cmd.Flags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (LOG_LEVEL)")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false,
		"Do not replay lines already present at startup (SKIP_EXISTING)")
}

func applyWatchFlags(cmd *cobra.Command, cfg *config.Config) {
	if watchDir != "" {
		cfg.ServerlogFolder = watchDir
	}
	if triggersPath != "" {
		cfg.TriggersPath = triggersPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("skip-existing") {
		cfg.SkipExisting = skipExisting
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyWatchFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCloser := observability.InitLogger(observability.LoggerConfig{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: cfg.LogConsole,
	})
	defer logCloser.Close()

	log.Info().
		Str("version", version).
		Str("folder", cfg.ServerlogFolder).
		Msg("Starting otternel")

	shutdownTracer, err := observability.InitTracer(observability.TracerConfig{
		ServiceName:    "otternel",
		ServiceVersion: version,
		Endpoint:       cfg.OTLPEndpoint,
		Protocol:       cfg.OTLPProtocol,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer shutdownTracer(context.Background())
	}

	svc, err := service.NewWatchService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create watch service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := svc.Start(ctx)
	if runErr != nil {
		log.Error().Err(runErr).Msg("Watch service error")
	} else {
		log.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	if err := svc.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}

	return runErr
}
