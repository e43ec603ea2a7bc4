package writer

import (
	"context"
	"time"

	"github.com/antredesloutres/otternel/internal/domain"
)

// EventWriter records trigger events for analytics
type EventWriter interface {
	// WriteEvent adds an event to the pending batch. Safe for concurrent use.
	WriteEvent(ctx context.Context, event domain.TriggerEvent) error

	// Flush forces writing all pending events
	Flush(ctx context.Context) error

	// Close flushes pending events and stops the background flusher
	Close() error
}

// Sink stores a batch of events
type Sink interface {
	Send(ctx context.Context, events []domain.TriggerEvent) error
}

// BatchConfig configures batch behavior
type BatchConfig struct {
	MaxSize       int           // Maximum events per batch
	FlushInterval time.Duration // Maximum time an event waits before being flushed
}

// DefaultBatchConfig returns the default batch configuration
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxSize:       500,
		FlushInterval: 5 * time.Second,
	}
}
