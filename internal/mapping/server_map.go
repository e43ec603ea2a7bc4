// Package mapping resolves numeric log source ids to the game servers they belong to.
package mapping

import (
	"fmt"
	"os"
	"strings"

	"github.com/antredesloutres/otternel/internal/domain"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Webhook identities used to post notifications for a game
const (
	IdentityOtternel    = "otternel"
	IdentityMineotter   = "mineotter"
	IdentityMultiloutre = "multiloutre"
)

// ServerEntry is one server as written in servers.yaml
type ServerEntry struct {
	Name       string `yaml:"name"`
	Game       string `yaml:"game"`
	EmbedColor string `yaml:"embed_color"`
}

// ServerMap maps source ids to server metadata
type ServerMap struct {
	Servers map[uint32]ServerEntry `yaml:"servers"`
}

// LoadServerMap loads servers.yaml
func LoadServerMap(path string) (*ServerMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read server map: %w", err)
	}

	var sm ServerMap
	if err := yaml.Unmarshal(data, &sm); err != nil {
		return nil, fmt.Errorf("failed to parse server map: %w", err)
	}

	if sm.Servers == nil {
		sm.Servers = make(map[uint32]ServerEntry)
	}

	return &sm, nil
}

// LoadServerMapOrEmpty loads servers.yaml and falls back to an empty map when
// the file is missing or invalid
func LoadServerMapOrEmpty(path string) *ServerMap {
	sm, err := LoadServerMap(path)
	if err != nil {
		log.Warn().
			Err(err).
			Str("path", path).
			Msg("Server map not loaded, servers will be named by id")
		return &ServerMap{Servers: make(map[uint32]ServerEntry)}
	}

	log.Info().
		Str("path", path).
		Int("servers", len(sm.Servers)).
		Msg("Server map loaded")
	return sm
}

// Lookup returns the server for a source id.
// Unknown ids get a placeholder named after the id.
func (sm *ServerMap) Lookup(id domain.SourceID) domain.ServerInfo {
	if entry, ok := sm.Servers[uint32(id)]; ok {
		name := entry.Name
		if name == "" {
			name = fallbackName(id)
		}
		return domain.ServerInfo{
			ID:         id,
			Name:       name,
			Game:       strings.ToLower(entry.Game),
			EmbedColor: entry.EmbedColor,
		}
	}
	return domain.ServerInfo{ID: id, Name: fallbackName(id)}
}

// Len returns the number of known servers
func (sm *ServerMap) Len() int {
	return len(sm.Servers)
}

func fallbackName(id domain.SourceID) string {
	return fmt.Sprintf("Serveur %d", id)
}

// WebhookIdentity returns the webhook identity posting for a game
func WebhookIdentity(game string) string {
	switch strings.ToLower(game) {
	case "minecraft":
		return IdentityMineotter
	case "palworld":
		return IdentityMultiloutre
	default:
		return IdentityOtternel
	}
}
