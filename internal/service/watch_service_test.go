package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/antredesloutres/otternel/internal/config"
)

const testTriggers = `
[[trigger]]
name = "left"
pattern = "left the game"
function = "on_player_left"
serverlog_ids = [5]

[[trigger]]
name = "broken"
pattern = "([unclosed"
action = "on_test"
`

const testServers = `
servers:
  5:
    name: "Survie"
    game: "survival-game"
`

type webhookRecorder struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (rec *webhookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(data, &body)

	rec.mu.Lock()
	rec.bodies = append(rec.bodies, body)
	rec.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (rec *webhookRecorder) count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.bodies)
}

func testConfig(t *testing.T, webhookURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	logs := filepath.Join(dir, "logs")
	if err := os.Mkdir(logs, 0o755); err != nil {
		t.Fatal(err)
	}
	triggers := filepath.Join(dir, "triggers.toml")
	if err := os.WriteFile(triggers, []byte(testTriggers), 0o644); err != nil {
		t.Fatal(err)
	}
	servers := filepath.Join(dir, "servers.yaml")
	if err := os.WriteFile(servers, []byte(testServers), 0o644); err != nil {
		t.Fatal(err)
	}

	return &config.Config{
		ServerlogFolder:      logs,
		TriggersPath:         triggers,
		ServerMapPath:        servers,
		OffsetDBPath:         filepath.Join(dir, "offsets.db"),
		WatchRetryDelay:      100 * time.Millisecond,
		ActionTimeout:        5 * time.Second,
		DatabasePath:         filepath.Join(dir, "otternel.db"),
		LinkCodeTTL:          10 * time.Minute,
		LinkCodePurgeCron:    "@every 1m",
		WebhookRatePerMinute: 60,
		Webhooks: map[string]config.Webhook{
			"otternel": {URL: webhookURL, Activated: true},
		},
	}
}

func TestWatchServiceEndToEnd(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	svc, err := NewWatchService(cfg)
	if err != nil {
		t.Fatalf("NewWatchService() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	select {
	case <-svc.Ready():
	case err := <-done:
		t.Fatalf("Start() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("service not ready")
	}

	logFile := filepath.Join(cfg.ServerlogFolder, "5.log")
	if err := os.WriteFile(logFile, []byte("[12:00:00] [Server thread/INFO]: Steve left the game\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Out of scope: same line on another server
	if err := os.WriteFile(filepath.Join(cfg.ServerlogFolder, "6.log"), []byte("Alex left the game\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for rec.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Start() error = %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("webhook calls = %d, want 1", rec.count())
	}
	embeds := rec.bodies[0]["embeds"].([]any)
	embed := embeds[0].(map[string]any)
	if embed["description"] != "Steve a quitté Survie" {
		t.Errorf("description = %v", embed["description"])
	}
}

func TestWatchServiceMissingFolder(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Webhooks = nil
	cfg.ServerlogFolder = filepath.Join(t.TempDir(), "missing")

	svc, err := NewWatchService(cfg)
	if err != nil {
		t.Fatalf("NewWatchService() error = %v", err)
	}
	defer svc.Stop()

	if err := svc.Start(context.Background()); err == nil {
		t.Error("Start() should fail for a missing folder")
	}
}

func TestNewWatchServiceInvalidCron(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.LinkCodePurgeCron = "not a schedule"

	if _, err := NewWatchService(cfg); err == nil {
		t.Error("NewWatchService() should reject an invalid cron expression")
	}
}
