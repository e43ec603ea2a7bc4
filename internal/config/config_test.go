package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVERLOG_FOLDER", "/srv/logs")
	t.Setenv("TRIGGERS_PATH", "")
	t.Setenv("ACTION_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerlogFolder != "/srv/logs" {
		t.Errorf("ServerlogFolder = %q", cfg.ServerlogFolder)
	}
	if cfg.TriggersPath != "triggers.toml" {
		t.Errorf("TriggersPath = %q, want triggers.toml", cfg.TriggersPath)
	}
	if cfg.ActionTimeout != 15*time.Second {
		t.Errorf("ActionTimeout = %v, want 15s", cfg.ActionTimeout)
	}
	if len(cfg.Webhooks) != 3 {
		t.Errorf("Webhooks = %d identities, want 3", len(cfg.Webhooks))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVERLOG_FOLDER", "/srv/logs")
	t.Setenv("WATCH_RETRY_DELAY", "250ms")
	t.Setenv("ACTION_TIMEOUT", "30")
	t.Setenv("SKIP_EXISTING", "true")
	t.Setenv("MINEOTTER_BOT_WEBHOOK_URL", "https://discord.example/webhook")
	t.Setenv("MINEOTTER_BOT_WEBHOOK_ACTIVATED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.WatchRetryDelay != 250*time.Millisecond {
		t.Errorf("WatchRetryDelay = %v", cfg.WatchRetryDelay)
	}
	if cfg.ActionTimeout != 30*time.Second {
		t.Errorf("ActionTimeout = %v", cfg.ActionTimeout)
	}
	if !cfg.SkipExisting {
		t.Error("SkipExisting = false")
	}
	w := cfg.Webhooks["mineotter"]
	if !w.Activated || w.URL != "https://discord.example/webhook" {
		t.Errorf("mineotter webhook = %+v", w)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ServerlogFolder:      "/srv/logs",
			TriggersPath:         "triggers.toml",
			WatchRetryDelay:      time.Second,
			ActionTimeout:        time.Second,
			LinkCodeTTL:          time.Minute,
			WebhookRatePerMinute: 30,
			OTLPProtocol:         "grpc",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing folder", mutate: func(c *Config) { c.ServerlogFolder = "" }, wantErr: "SERVERLOG_FOLDER"},
		{name: "zero timeout", mutate: func(c *Config) { c.ActionTimeout = 0 }, wantErr: "ACTION_TIMEOUT"},
		{
			name:    "activated webhook without url",
			mutate:  func(c *Config) { c.Webhooks = map[string]Webhook{"otternel": {Activated: true}} },
			wantErr: "otternel",
		},
		{
			name:    "clickhouse bad port",
			mutate:  func(c *Config) { c.ClickHouseHost = "ch"; c.ClickHouseDB = "db"; c.BatchSize = 1; c.ClickHousePort = 0 },
			wantErr: "CLICKHOUSE_PORT",
		},
		{
			name:    "bad otlp protocol",
			mutate:  func(c *Config) { c.TracingEnabled = true; c.OTLPProtocol = "udp" },
			wantErr: "OTLP_PROTOCOL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
