// Package actions executes the side effects bound to triggers: Discord
// notifications, player bookkeeping and link codes.
package actions

import "sort"

// Kind is one of the closed set of actions a trigger can name
type Kind int

const (
	KindTest Kind = iota + 1
	KindPlayerMessage
	KindPlayerJoined
	KindPlayerLeft
	KindAdvancement
	KindPlayerDeath
)

var kindIDs = map[string]Kind{
	"on_test":                         KindTest,
	"on_player_message":               KindPlayerMessage,
	"on_player_joined":                KindPlayerJoined,
	"on_player_left":                  KindPlayerLeft,
	"on_minecraft_player_advancement": KindAdvancement,
	"on_player_death":                 KindPlayerDeath,
}

// ParseKind resolves an action identifier
func ParseKind(id string) (Kind, bool) {
	k, ok := kindIDs[id]
	return k, ok
}

func (k Kind) String() string {
	for id, kind := range kindIDs {
		if kind == k {
			return id
		}
	}
	return "unknown"
}

// Known returns every accepted action identifier, sorted
func Known() []string {
	ids := make([]string, 0, len(kindIDs))
	for id := range kindIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
