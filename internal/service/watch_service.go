// Package service wires the watcher, the dispatcher and the action sinks together.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/antredesloutres/otternel/internal/actions"
	"github.com/antredesloutres/otternel/internal/api"
	"github.com/antredesloutres/otternel/internal/clickhouse"
	"github.com/antredesloutres/otternel/internal/config"
	"github.com/antredesloutres/otternel/internal/discord"
	"github.com/antredesloutres/otternel/internal/dispatch"
	"github.com/antredesloutres/otternel/internal/mapping"
	"github.com/antredesloutres/otternel/internal/metrics"
	"github.com/antredesloutres/otternel/internal/offset"
	"github.com/antredesloutres/otternel/internal/scheduler"
	"github.com/antredesloutres/otternel/internal/serverlog"
	"github.com/antredesloutres/otternel/internal/store"
	"github.com/antredesloutres/otternel/internal/trigger"
	"github.com/antredesloutres/otternel/internal/writer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// WatchService owns every long-lived component of the process
type WatchService struct {
	cfg *config.Config

	offsets  offset.OffsetStore
	registry *trigger.Registry
	handler  *actions.Handler
	watcher  *serverlog.Watcher

	players   *store.DB
	chClient  *clickhouse.Client
	events    *writer.BatchWriter
	scheduler *scheduler.Scheduler
	api       *api.Server

	wg sync.WaitGroup
}

// NewWatchService builds the service from configuration.
// Optional sinks (SQLite, ClickHouse, status API) are only created when configured.
func NewWatchService(cfg *config.Config) (*WatchService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	s := &WatchService{cfg: cfg}
	if err := s.build(); err != nil {
		s.closeSinks()
		return nil, err
	}
	return s, nil
}

func (s *WatchService) build() error {
	cfg := s.cfg

	if cfg.OffsetDBPath != "" {
		bolt, err := offset.NewBoltDBStore(cfg.OffsetDBPath)
		if err != nil {
			return fmt.Errorf("failed to open offset store: %w", err)
		}
		s.offsets = bolt
	} else {
		s.offsets = offset.NewMemoryStore()
	}

	s.registry = trigger.Load(cfg.TriggersPath)
	servers := mapping.LoadServerMapOrEmpty(cfg.ServerMapPath)

	opts := []actions.Option{
		actions.WithNotifier(discord.NewClient(webhooks(cfg), discord.WithRatePerMinute(cfg.WebhookRatePerMinute))),
	}

	if cfg.DatabasePath != "" {
		db, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open player registry: %w", err)
		}
		s.players = db
		opts = append(opts, actions.WithPlayerStore(db))

		s.scheduler = scheduler.New()
		if err := s.scheduler.AddLinkCodePurge(cfg.LinkCodePurgeCron, db); err != nil {
			return err
		}
	}

	if cfg.ClickHouseHost != "" {
		ch, err := clickhouse.NewClient(clickhouse.Options{
			Host:     cfg.ClickHouseHost,
			Port:     cfg.ClickHousePort,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			return err
		}
		s.chClient = ch

		sink := writer.NewClickHouseSink(ch)
		if err := sink.EnsureSchema(context.Background()); err != nil {
			return err
		}
		s.events = writer.NewBatchWriter(sink, writer.BatchConfig{
			MaxSize:       cfg.BatchSize,
			FlushInterval: cfg.BatchFlushInterval,
		})
		opts = append(opts, actions.WithEventWriter(s.events))
	}

	s.handler = actions.NewHandler(actions.Config{
		Timeout:     cfg.ActionTimeout,
		LinkCodeTTL: cfg.LinkCodeTTL,
		SiteBaseURL: cfg.SiteBaseURL,
	}, servers, opts...)

	s.watcher = serverlog.NewWatcher(serverlog.WatcherConfig{
		Dir:          cfg.ServerlogFolder,
		RetryDelay:   cfg.WatchRetryDelay,
		SkipExisting: cfg.SkipExisting,
	}, s.offsets, dispatch.New(s.registry, s.handler))

	if cfg.HTTPAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if err := metrics.Register(reg); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		s.api = api.New(cfg.HTTPAddr, s.registry, reg, s.healthChecks())
	}

	log.Info().
		Str("folder", cfg.ServerlogFolder).
		Int("triggers", s.registry.Len()).
		Int("servers", servers.Len()).
		Bool("player_registry", s.players != nil).
		Bool("analytics", s.events != nil).
		Bool("persistent_offsets", cfg.OffsetDBPath != "").
		Msg("Watch service configured")

	return nil
}

func webhooks(cfg *config.Config) map[string]discord.Webhook {
	out := make(map[string]discord.Webhook, len(cfg.Webhooks))
	for identity, w := range cfg.Webhooks {
		out[identity] = discord.Webhook{URL: w.URL, Activated: w.Activated}
	}
	return out
}

func (s *WatchService) healthChecks() map[string]api.Checker {
	checks := make(map[string]api.Checker)
	if s.players != nil {
		checks["sqlite"] = s.players.Ping
	}
	if s.chClient != nil {
		checks["clickhouse"] = func(ctx context.Context) error {
			return s.chClient.Conn().Ping(ctx)
		}
	}
	return checks
}

// Ready is closed once the log folder is being watched
func (s *WatchService) Ready() <-chan struct{} {
	return s.watcher.Ready()
}

// Start runs the watch loop until ctx is cancelled.
// Setup errors of the watch loop (missing folder) are returned immediately.
func (s *WatchService) Start(ctx context.Context) error {
	log.Info().Msg("Watch service starting...")

	// Background components stop with the watch loop, whatever ends it
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.scheduler != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.scheduler.Start(ctx)
		}()
	}

	if s.api != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.api.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Status API error")
			}
		}()
	}

	err := s.watcher.Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop drains in-flight actions and closes every sink
func (s *WatchService) Stop() error {
	log.Info().Msg("Watch service stopping...")

	if s.handler != nil {
		s.handler.Wait()
	}
	s.wg.Wait()

	err := s.closeSinks()
	log.Info().Msg("Watch service stopped")
	return err
}

func (s *WatchService) closeSinks() error {
	var errs []error

	if s.events != nil {
		errs = append(errs, s.events.Close())
	}
	if s.chClient != nil {
		errs = append(errs, s.chClient.Close())
	}
	if s.players != nil {
		errs = append(errs, s.players.Close())
	}
	if s.offsets != nil {
		errs = append(errs, s.offsets.Close())
	}

	return errors.Join(errs...)
}
