package actions

import (
	"regexp"
	"testing"
)

func TestConnectionPlayer(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"[12:00:00] [Server thread/INFO]: Steve joined the game", "Steve"},
		{"[12:00:00] [Server thread/INFO]: Alex_42 left the game", "Alex_42"},
		{"Steve left the game", "Steve"},
		{"[12:00:00] [Server thread/INFO]:  left the game", DefaultPlayerName},
		{"[12:00:00] [Server thread/INFO]: Server started", DefaultPlayerName},
		{"", DefaultPlayerName},
	}

	for _, tt := range tests {
		if got := ConnectionPlayer(tt.line); got != tt.want {
			t.Errorf("ConnectionPlayer(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestChatMessage(t *testing.T) {
	tests := []struct {
		line       string
		wantPlayer string
		wantMsg    string
		ok         bool
	}{
		{"[12:00:00] [Server thread/INFO]: <Steve> hello there", "Steve", "hello there", true},
		{"<Alex> gg", "Alex", "gg", true},
		{"[12:00:00] [Server thread/INFO]: Steve joined the game", "", "", false},
	}

	for _, tt := range tests {
		player, msg, ok := ChatMessage(tt.line)
		if ok != tt.ok || player != tt.wantPlayer || msg != tt.wantMsg {
			t.Errorf("ChatMessage(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.line, player, msg, ok, tt.wantPlayer, tt.wantMsg, tt.ok)
		}
	}
}

func TestAdvancement(t *testing.T) {
	tests := []struct {
		line       string
		wantPlayer string
		wantAdv    string
		ok         bool
	}{
		{"[17:58:38] [Server thread/INFO]: Steve has made the advancement [Diamonds!]", "Steve", "Diamonds!", true},
		{"[17:58:38] [Server thread/INFO]: Alex completed the challenge [Monster Hunter]", "Alex", "Monster Hunter", true},
		{"[17:58:38] [Server thread/INFO]: Alex reached the goal [Sky's the Limit]", "Alex", "Sky's the Limit", true},
		{"[17:58:38] [Server thread/INFO]: Steve joined the game", "", "", false},
	}

	for _, tt := range tests {
		player, adv, ok := Advancement(tt.line)
		if ok != tt.ok || player != tt.wantPlayer || adv != tt.wantAdv {
			t.Errorf("Advancement(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.line, player, adv, ok, tt.wantPlayer, tt.wantAdv, tt.ok)
		}
	}
}

func TestDeath(t *testing.T) {
	tests := []struct {
		line       string
		wantPlayer string
		wantMsg    string
	}{
		{"[17:58:38] [Server thread/INFO]: TheAzertor fell from a high place", "TheAzertor", "fell from a high place"},
		{"no colon here", DefaultPlayerName, "est mort."},
	}

	for _, tt := range tests {
		player, msg := Death(tt.line)
		if player != tt.wantPlayer || msg != tt.wantMsg {
			t.Errorf("Death(%q) = (%q, %q), want (%q, %q)", tt.line, player, msg, tt.wantPlayer, tt.wantMsg)
		}
	}
}

func TestGenerateLinkCode(t *testing.T) {
	format := regexp.MustCompile(`^[A-HJ-NP-Z2-9]{3}-[A-HJ-NP-Z2-9]{3}-[A-HJ-NP-Z2-9]{3}$`)
	seen := make(map[string]struct{})

	for i := 0; i < 50; i++ {
		code, err := GenerateLinkCode()
		if err != nil {
			t.Fatalf("GenerateLinkCode() error = %v", err)
		}
		if !format.MatchString(code) {
			t.Fatalf("GenerateLinkCode() = %q, bad format", code)
		}
		seen[code] = struct{}{}
	}

	if len(seen) < 45 {
		t.Errorf("only %d distinct codes out of 50", len(seen))
	}
}

func TestParseKind(t *testing.T) {
	for _, id := range Known() {
		k, ok := ParseKind(id)
		if !ok {
			t.Errorf("ParseKind(%q) not ok", id)
			continue
		}
		if k.String() != id {
			t.Errorf("Kind(%q).String() = %q", id, k.String())
		}
	}

	if _, ok := ParseKind("on_nothing"); ok {
		t.Error("ParseKind(on_nothing) should fail")
	}
	if len(Known()) != 6 {
		t.Errorf("Known() has %d ids, want 6", len(Known()))
	}
}
