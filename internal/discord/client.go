// Package discord posts notifications to Discord webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/antredesloutres/otternel/internal/retry"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultRatePerMinute matches Discord's per-webhook limit
const DefaultRatePerMinute = 30

// Webhook is the configuration of one webhook identity
type Webhook struct {
	URL       string
	Activated bool
}

// Enabled reports whether messages for this identity are actually sent
func (w Webhook) Enabled() bool {
	return w.Activated && strings.TrimSpace(w.URL) != ""
}

// StatusError is returned when Discord answers with a non-2xx status
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook send error: status code %d, body: %s", e.Code, e.Body)
}

// Retryable reports whether the request may succeed later
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client sends messages to a fixed set of webhook identities
type Client struct {
	webhooks   map[string]Webhook
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCfg   retry.Config
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry replaces the default retry configuration
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// WithRatePerMinute sets how many messages per minute the client sends (all identities together)
func WithRatePerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
		}
	}
}

// NewClient creates a client for the given identities (keys are matched case-insensitively)
func NewClient(webhooks map[string]Webhook, opts ...Option) *Client {
	c := &Client{
		webhooks: make(map[string]Webhook, len(webhooks)),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryCfg: retry.DefaultConfig(),
	}
	for identity, w := range webhooks {
		c.webhooks[strings.ToLower(strings.TrimSpace(identity))] = w
	}
	WithRatePerMinute(DefaultRatePerMinute)(c)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SendEmbed posts an embed (and optional content) as the given identity.
// A disabled identity is a silent no-op.
func (c *Client) SendEmbed(ctx context.Context, identity, content string, embed Embed) error {
	return c.send(ctx, identity, messagePayload{
		Content: strings.TrimSpace(content),
		Embeds:  []embedPayload{embed.payload()},
	})
}

// SendContent posts a plain text message as the given identity
func (c *Client) SendContent(ctx context.Context, identity, content string) error {
	return c.send(ctx, identity, messagePayload{Content: content})
}

func (c *Client) send(ctx context.Context, identity string, msg messagePayload) error {
	key := strings.ToLower(strings.TrimSpace(identity))
	w, ok := c.webhooks[key]
	if !ok {
		return fmt.Errorf("unknown webhook identity: %s", identity)
	}
	if !w.Enabled() {
		log.Debug().
			Str("identity", key).
			Msg("Webhook disabled, message dropped")
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	return retry.Do(ctx, c.retryCfg, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		return c.post(ctx, w.URL, body)
	})
}

func (c *Client) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
