package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/antredesloutres/otternel/internal/discord"
	"github.com/antredesloutres/otternel/internal/domain"
	"github.com/antredesloutres/otternel/internal/mapping"
	"github.com/antredesloutres/otternel/internal/metrics"
	"github.com/antredesloutres/otternel/internal/observability"
	"github.com/antredesloutres/otternel/internal/writer"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultTimeout     = 15 * time.Second
	DefaultLinkCodeTTL = 10 * time.Minute
	DefaultSiteBaseURL = "https://antredesloutres.fr"

	defaultGame = "minecraft"
)

// Notifier posts Discord embeds
type Notifier interface {
	SendEmbed(ctx context.Context, identity, content string, embed discord.Embed) error
}

// PlayerStore is the player registry used by connection actions
type PlayerStore interface {
	EnsurePlayer(ctx context.Context, game, name string, at time.Time) (int64, error)
	IsLinked(ctx context.Context, playerID int64) (bool, error)
	HasActiveLinkCode(ctx context.Context, playerID int64, at time.Time) (bool, error)
	CreateLinkCode(ctx context.Context, playerID int64, code string, createdAt time.Time, ttl time.Duration) error
	InsertConnection(ctx context.Context, c domain.ConnectionLog) error
}

// ServerResolver maps a log source to its server
type ServerResolver interface {
	Lookup(id domain.SourceID) domain.ServerInfo
}

// Config configures action execution
type Config struct {
	Timeout     time.Duration // per action, DefaultTimeout if zero
	LinkCodeTTL time.Duration // DefaultLinkCodeTTL if zero
	SiteBaseURL string        // player profile links, DefaultSiteBaseURL if empty
}

// Option configures optional collaborators of a Handler
type Option func(*Handler)

// WithNotifier enables Discord notifications
func WithNotifier(n Notifier) Option {
	return func(h *Handler) { h.notifier = n }
}

// WithPlayerStore enables player bookkeeping and link codes
func WithPlayerStore(s PlayerStore) Option {
	return func(h *Handler) { h.players = s }
}

// WithEventWriter records every execution for analytics
func WithEventWriter(w writer.EventWriter) Option {
	return func(h *Handler) { h.events = w }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// Handler runs actions by identifier. Each known action runs on its own
// goroutine, so Invoke never blocks the watch loop. There is no limit on the
// number of actions in flight.
type Handler struct {
	cfg      Config
	servers  ServerResolver
	notifier Notifier
	players  PlayerStore
	events   writer.EventWriter
	now      func() time.Time

	wg sync.WaitGroup
}

// NewHandler creates an action handler
func NewHandler(cfg Config, servers ServerResolver, opts ...Option) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.LinkCodeTTL <= 0 {
		cfg.LinkCodeTTL = DefaultLinkCodeTTL
	}
	if cfg.SiteBaseURL == "" {
		cfg.SiteBaseURL = DefaultSiteBaseURL
	}
	cfg.SiteBaseURL = strings.TrimRight(cfg.SiteBaseURL, "/")

	h := &Handler{
		cfg:     cfg,
		servers: servers,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Invoke starts the action named by action. Unknown identifiers are logged and
// counted; they never affect other dispatches.
func (h *Handler) Invoke(ctx context.Context, action, line string, source domain.SourceID) {
	kind, ok := ParseKind(action)
	if !ok {
		metrics.UnknownActions.Inc()
		log.Warn().
			Str("action", action).
			Uint32("source", uint32(source)).
			Msg("Unknown action function")
		return
	}

	h.wg.Add(1)
	go h.run(context.WithoutCancel(ctx), kind, line, source)
}

// Wait blocks until every started action has finished
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) run(parent context.Context, kind Kind, line string, source domain.SourceID) {
	defer h.wg.Done()

	action := kind.String()
	start := time.Now()
	server := h.servers.Lookup(source)

	ctx, cancel := context.WithTimeout(parent, h.cfg.Timeout)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, "action."+action,
		attribute.String("action", action),
		attribute.Int64("source_id", int64(source)),
		attribute.String("server", server.Name),
	)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("action panicked: %v", r)
			}
		}()
		err = h.execute(ctx, kind, line, server)
	}()

	observability.EndSpan(span, err)

	outcome := domain.OutcomeOK
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = domain.OutcomeTimeout
	case err != nil:
		outcome = domain.OutcomeError
	}

	elapsed := time.Since(start)
	metrics.ActionDuration.WithLabelValues(action, outcome).Observe(elapsed.Seconds())

	if err != nil {
		log.Error().
			Err(err).
			Str("action", action).
			Uint32("source", uint32(source)).
			Str("outcome", outcome).
			Msg("Action failed")
	} else {
		log.Debug().
			Str("action", action).
			Uint32("source", uint32(source)).
			Dur("duration", elapsed).
			Msg("Action completed")
	}

	h.record(domain.TriggerEvent{
		Timestamp:  h.now(),
		Source:     source,
		ServerName: server.Name,
		Action:     action,
		Line:       line,
		Outcome:    outcome,
		Error:      errString(err),
		DurationMs: uint64(elapsed.Milliseconds()),
	})
}

func (h *Handler) record(event domain.TriggerEvent) {
	if h.events == nil {
		return
	}
	// The action context may already be expired
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.events.WriteEvent(ctx, event); err != nil {
		log.Warn().Err(err).Str("action", event.Action).Msg("Failed to record trigger event")
	}
}

func (h *Handler) execute(ctx context.Context, kind Kind, line string, server domain.ServerInfo) error {
	switch kind {
	case KindTest:
		log.Info().
			Uint32("source", uint32(server.ID)).
			Str("server", server.Name).
			Msg("on_test triggered")
		return nil
	case KindPlayerJoined:
		return h.connectionUpdate(ctx, line, server, domain.ConnectionJoined)
	case KindPlayerLeft:
		return h.connectionUpdate(ctx, line, server, domain.ConnectionLeft)
	case KindPlayerMessage:
		return h.playerMessage(ctx, line, server)
	case KindAdvancement:
		return h.advancement(ctx, line, server)
	case KindPlayerDeath:
		return h.playerDeath(ctx, line, server)
	default:
		return fmt.Errorf("unhandled action kind %d", kind)
	}
}

func (h *Handler) connectionUpdate(ctx context.Context, line string, server domain.ServerInfo, kind domain.ConnectionKind) error {
	player := ConnectionPlayer(line)

	if h.players != nil {
		if err := h.recordConnection(ctx, player, server, kind); err != nil {
			return err
		}
	}

	verb := "rejoint"
	if kind == domain.ConnectionLeft {
		verb = "quitté"
	}

	return h.notify(ctx, server, discord.Embed{
		Title:       player,
		URL:         h.playerURL(player),
		Description: fmt.Sprintf("%s a %s %s", player, verb, server.Name),
	})
}

func (h *Handler) recordConnection(ctx context.Context, player string, server domain.ServerInfo, kind domain.ConnectionKind) error {
	now := h.now()

	playerID, err := h.players.EnsurePlayer(ctx, gameOf(server), player, now)
	if err != nil {
		return fmt.Errorf("failed to resolve player %s: %w", player, err)
	}

	if kind == domain.ConnectionJoined {
		h.ensureLinkCode(ctx, playerID, player, now)
	}

	if err := h.players.InsertConnection(ctx, domain.ConnectionLog{
		ServerID: server.ID,
		PlayerID: playerID,
		Kind:     kind,
		At:       now,
	}); err != nil {
		log.Warn().
			Err(err).
			Str("player", player).
			Msg("Failed to insert player connection log")
	}
	return nil
}

// ensureLinkCode gives an unlinked player a link code unless one is still active
func (h *Handler) ensureLinkCode(ctx context.Context, playerID int64, player string, now time.Time) {
	linked, err := h.players.IsLinked(ctx, playerID)
	if err != nil {
		log.Error().Err(err).Str("player", player).Msg("Could not check if player is linked")
		return
	}
	if linked {
		return
	}

	active, err := h.players.HasActiveLinkCode(ctx, playerID, now)
	if err != nil {
		log.Error().Err(err).Str("player", player).Msg("Could not check for an active link code")
		return
	}
	if active {
		log.Debug().Str("player", player).Msg("Player already has an active link code")
		return
	}

	code, err := GenerateLinkCode()
	if err != nil {
		log.Error().Err(err).Str("player", player).Msg("Failed to generate link code")
		return
	}

	if err := h.players.CreateLinkCode(ctx, playerID, code, now, h.cfg.LinkCodeTTL); err != nil {
		log.Error().Err(err).Str("player", player).Msg("Failed to save link code")
		return
	}

	log.Info().
		Str("player", player).
		Str("code", code).
		Dur("ttl", h.cfg.LinkCodeTTL).
		Msg("Player is not linked, link code generated")
}

func (h *Handler) playerMessage(ctx context.Context, line string, server domain.ServerInfo) error {
	player, message, ok := ChatMessage(line)
	if !ok {
		log.Debug().Str("line", line).Msg("No chat message match")
		return nil
	}

	return h.notify(ctx, server, discord.Embed{
		Title:        player,
		URL:          h.playerURL(player),
		Description:  message,
		ThumbnailURL: avatarURL(player),
	})
}

func (h *Handler) advancement(ctx context.Context, line string, server domain.ServerInfo) error {
	player, adv, ok := Advancement(line)
	if !ok {
		log.Debug().Str("line", line).Msg("No advancement match")
		return nil
	}

	return h.notify(ctx, server, discord.Embed{
		Title:       player,
		URL:         h.playerURL(player),
		Description: fmt.Sprintf("%s a obtenu l'avancement %s sur %s !", player, adv, server.Name),
	})
}

func (h *Handler) playerDeath(ctx context.Context, line string, server domain.ServerInfo) error {
	player, message := Death(line)

	return h.notify(ctx, server, discord.Embed{
		Title:       fmt.Sprintf("%s est mort sur %s !", player, server.Name),
		URL:         h.playerURL(player),
		Description: fmt.Sprintf("%s %s", player, message),
	})
}

// notify sends an embed as the identity of the server's game
func (h *Handler) notify(ctx context.Context, server domain.ServerInfo, embed discord.Embed) error {
	if h.notifier == nil {
		return nil
	}

	embed.Color = server.EmbedColor
	embed.FooterText = "Message de " + server.Name
	embed.Timestamp = h.now().UTC().Format(time.RFC3339)

	if err := h.notifier.SendEmbed(ctx, mapping.WebhookIdentity(server.Game), "", embed); err != nil {
		return fmt.Errorf("failed to send discord embed: %w", err)
	}
	return nil
}

func (h *Handler) playerURL(player string) string {
	return fmt.Sprintf("%s/joueurs/minecraft/%s", h.cfg.SiteBaseURL, strings.ToLower(player))
}

func avatarURL(player string) string {
	return fmt.Sprintf("https://mc-heads.net/avatar/%s/50", strings.ToLower(player))
}

func gameOf(server domain.ServerInfo) string {
	if server.Game == "" {
		return defaultGame
	}
	return server.Game
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
