package actions

import (
	"regexp"
	"strings"
)

// DefaultPlayerName is used when a line does not carry a usable player name
const DefaultPlayerName = "Joueur"

const defaultDeathMessage = "est mort."

var (
	chatRe        = regexp.MustCompile(`<([^>]+)>\s(.+)`)
	advancementRe = regexp.MustCompile(`^(?:\[[^\]]+\]\s*:?\s*)*([^ ]+)\s+(?:has made the advancement|completed the challenge|reached the goal)\s+\[?(.+?)\]$`)
	deathRe       = regexp.MustCompile(`: ([^ ]+) (.+)$`)
)

// ConnectionPlayer extracts the player from a line like
// "[12:00:00] [Server thread/INFO]: Steve joined the game".
// Lines without the "]: " prefix are taken as a whole.
func ConnectionPlayer(line string) string {
	msg := line
	if _, after, ok := strings.Cut(line, "]: "); ok {
		msg = after
	}
	msg = strings.TrimSpace(msg)

	for _, suffix := range []string{" left the game", " joined the game"} {
		if name, ok := strings.CutSuffix(msg, suffix); ok {
			if name = strings.TrimSpace(name); name != "" {
				return name
			}
			return DefaultPlayerName
		}
	}
	return DefaultPlayerName
}

// ChatMessage extracts player and message from "<player> message"
func ChatMessage(line string) (player, message string, ok bool) {
	m := chatRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Advancement extracts player and advancement from an advancement, challenge or goal line
func Advancement(line string) (player, advancement string, ok bool) {
	m := advancementRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Death extracts player and death message from ": <player> <message>".
// Lines that do not match fall back to a generic death.
func Death(line string) (player, message string) {
	m := deathRe.FindStringSubmatch(line)
	if m == nil {
		return DefaultPlayerName, defaultDeathMessage
	}
	return m[1], m[2]
}
