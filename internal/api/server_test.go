package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/antredesloutres/otternel/internal/trigger"
	"github.com/prometheus/client_golang/prometheus"
)

func testRegistry(t *testing.T) *trigger.Registry {
	t.Helper()
	scope := []uint32{5, 2}
	empty := []uint32{}
	reg, errs := trigger.Compile([]trigger.Definition{
		{Name: "left", Pattern: "left the game", Action: "on_player_left"},
		{Name: "joined", Pattern: "joined the game", Action: "on_player_joined", Scope: &scope},
		{Name: "never", Pattern: ".*", Action: "on_test", Scope: &empty},
	})
	if len(errs) > 0 {
		t.Fatalf("Compile() errors = %v", errs)
	}
	return reg
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Checker
		wantCode   int
		wantStatus string
	}{
		{name: "no checks", checks: nil, wantCode: http.StatusOK, wantStatus: "ok"},
		{
			name:       "passing check",
			checks:     map[string]Checker{"sqlite": func(context.Context) error { return nil }},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "failing check",
			checks: map[string]Checker{
				"sqlite":     func(context.Context) error { return nil },
				"clickhouse": func(context.Context) error { return errors.New("down") },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(":0", testRegistry(t), prometheus.NewRegistry(), tt.checks)

			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp healthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
		})
	}
}

func TestTriggers(t *testing.T) {
	s := New(":0", testRegistry(t), prometheus.NewRegistry(), nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/triggers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	var got []triggerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d triggers, want 3", len(got))
	}
	if got[0].Scope != nil {
		t.Errorf("unscoped trigger scope = %v, want null", got[0].Scope)
	}
	if len(got[1].Scope) != 2 || got[1].Scope[0] != 2 || got[1].Scope[1] != 5 {
		t.Errorf("scope = %v, want [2 5]", got[1].Scope)
	}
	if got[2].Scope == nil || len(got[2].Scope) != 0 {
		t.Errorf("empty scope = %v, want []", got[2].Scope)
	}
	if got[1].Action != "on_player_joined" || got[1].Pattern != "joined the game" {
		t.Errorf("trigger = %+v", got[1])
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "otternel_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	s := New(":0", testRegistry(t), reg, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "otternel_test_total 1") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}

func TestStartStop(t *testing.T) {
	s := New("127.0.0.1:0", testRegistry(t), prometheus.NewRegistry(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Start() error = %v", err)
	}
}
