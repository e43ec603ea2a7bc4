package dispatch

import (
	"context"
	"testing"

	"github.com/antredesloutres/otternel/internal/domain"
	"github.com/antredesloutres/otternel/internal/trigger"
)

type call struct {
	action string
	line   string
	source domain.SourceID
}

type fakeInvoker struct {
	calls []call
}

func (f *fakeInvoker) Invoke(_ context.Context, action, line string, source domain.SourceID) {
	f.calls = append(f.calls, call{action: action, line: line, source: source})
}

func ids(v ...uint32) *[]uint32 {
	return &v
}

func mustRegistry(t *testing.T, defs []trigger.Definition) *trigger.Registry {
	t.Helper()
	reg, errs := trigger.Compile(defs)
	if len(errs) > 0 {
		t.Fatalf("Compile() errors = %v", errs)
	}
	return reg
}

func TestHandleLine(t *testing.T) {
	defs := []trigger.Definition{
		{Name: "left", Pattern: "left the game", Action: "on_player_left"},
		{Name: "joined", Pattern: "joined the game", Action: "on_player_joined", Scope: ids(1, 2)},
		{Name: "anything", Pattern: ".*", Action: "on_test", Scope: ids(5)},
		{Name: "chat", Pattern: `<[^>]+>`, Action: "on_player_message"},
	}

	tests := []struct {
		name        string
		line        domain.ExtractedLine
		wantActions []string
	}{
		{
			name:        "unscoped trigger on scoped source",
			line:        domain.ExtractedLine{Text: "Steve left the game", Source: 3, HasSource: true},
			wantActions: []string{"on_player_left"},
		},
		{
			name:        "all matching triggers fire in order",
			line:        domain.ExtractedLine{Text: "Steve left the game", Source: 5, HasSource: true},
			wantActions: []string{"on_player_left", "on_test"},
		},
		{
			name:        "scoped trigger out of scope",
			line:        domain.ExtractedLine{Text: "Alex joined the game", Source: 3, HasSource: true},
			wantActions: nil,
		},
		{
			name:        "scoped trigger in scope",
			line:        domain.ExtractedLine{Text: "Alex joined the game", Source: 2, HasSource: true},
			wantActions: []string{"on_player_joined"},
		},
		{
			name:        "no source id only reaches unscoped triggers",
			line:        domain.ExtractedLine{Text: "<Alex> hi, left the game", HasSource: false},
			wantActions: []string{"on_player_left", "on_player_message"},
		},
		{
			name:        "no match",
			line:        domain.ExtractedLine{Text: "Server started", Source: 1, HasSource: true},
			wantActions: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &fakeInvoker{}
			d := New(mustRegistry(t, defs), inv)

			n := d.HandleLine(context.Background(), tt.line)
			if n != len(tt.wantActions) {
				t.Errorf("HandleLine() = %d, want %d", n, len(tt.wantActions))
			}
			if len(inv.calls) != len(tt.wantActions) {
				t.Fatalf("invoked %d actions, want %d: %+v", len(inv.calls), len(tt.wantActions), inv.calls)
			}
			for i, want := range tt.wantActions {
				got := inv.calls[i]
				if got.action != want {
					t.Errorf("call %d action = %q, want %q", i, got.action, want)
				}
				if got.line != tt.line.Text {
					t.Errorf("call %d line = %q, want %q", i, got.line, tt.line.Text)
				}
				if got.source != tt.line.Source {
					t.Errorf("call %d source = %d, want %d", i, got.source, tt.line.Source)
				}
			}
		})
	}
}

func TestHandleLineSameActionTwice(t *testing.T) {
	defs := []trigger.Definition{
		{Name: "a", Pattern: "left", Action: "on_player_left"},
		{Name: "b", Pattern: "game", Action: "on_player_left"},
	}

	inv := &fakeInvoker{}
	d := New(mustRegistry(t, defs), inv)

	if n := d.HandleLine(context.Background(), domain.ExtractedLine{Text: "Steve left the game", Source: 5, HasSource: true}); n != 2 {
		t.Errorf("HandleLine() = %d, want 2", n)
	}
}

func TestHandleLineEmptyRegistry(t *testing.T) {
	inv := &fakeInvoker{}
	d := New(mustRegistry(t, nil), inv)

	if n := d.HandleLine(context.Background(), domain.ExtractedLine{Text: "anything", Source: 1, HasSource: true}); n != 0 {
		t.Errorf("HandleLine() = %d, want 0", n)
	}
	if len(inv.calls) != 0 {
		t.Errorf("invoked %d actions, want 0", len(inv.calls))
	}
}
