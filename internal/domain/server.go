package domain

import "time"

// ServerInfo describes the game server behind a log source
type ServerInfo struct {
	ID         SourceID
	Name       string
	Game       string // minecraft, palworld, ...
	EmbedColor string // #RRGGBB, 0xRRGGBB, RRGGBB or decimal
}

// ConnectionKind tells whether a player joined or left a server
type ConnectionKind string

const (
	ConnectionJoined ConnectionKind = "joined"
	ConnectionLeft   ConnectionKind = "left"
)

// ConnectionLog is a player connection record
type ConnectionLog struct {
	ServerID SourceID
	PlayerID int64
	Kind     ConnectionKind
	At       time.Time
}
