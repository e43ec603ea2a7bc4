package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action outcomes recorded for every dispatched trigger
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// TriggerEvent represents one action execution caused by a matched log line
type TriggerEvent struct {
	EventID    uuid.UUID
	Timestamp  time.Time
	Source     SourceID
	ServerName string
	Action     string
	Line       string
	Outcome    string // ok, error, timeout
	Error      string
	DurationMs uint64
}
