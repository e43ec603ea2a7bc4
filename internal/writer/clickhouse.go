package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/antredesloutres/otternel/internal/domain"
	"github.com/rs/zerolog/log"
)

// ClickHouse DateTime64 valid range: 1925-01-01 to 2283-11-11
var (
	minClickHouseDateTime = time.Date(1925, 1, 1, 0, 0, 0, 0, time.UTC)
	maxClickHouseDateTime = time.Date(2283, 11, 11, 23, 59, 59, 999999999, time.UTC)
)

// ensureValidDateTime clamps zero or out of range times to minClickHouseDateTime
func ensureValidDateTime(t time.Time) time.Time {
	if t.IsZero() || t.Before(minClickHouseDateTime) || t.After(maxClickHouseDateTime) {
		return minClickHouseDateTime
	}
	return t
}

// TriggerEventsTable is the analytics table name
const TriggerEventsTable = "trigger_events"

// Conn is the part of the ClickHouse client the sink needs
type Conn interface {
	PrepareBatch(ctx context.Context, query string) (driver.Batch, error)
	Exec(ctx context.Context, query string, args ...any) error
	Database() string
}

// ClickHouseSink writes trigger events to ClickHouse
type ClickHouseSink struct {
	conn Conn
}

// NewClickHouseSink creates a sink on conn
func NewClickHouseSink(conn Conn) *ClickHouseSink {
	return &ClickHouseSink{conn: conn}
}

func (s *ClickHouseSink) table() string {
	if db := s.conn.Database(); db != "" {
		return db + "." + TriggerEventsTable
	}
	return TriggerEventsTable
}

// EnsureSchema creates the trigger_events table when missing
func (s *ClickHouseSink) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		event_id    UUID,
		timestamp   DateTime64(3),
		source_id   UInt32,
		server_name String,
		action      LowCardinality(String),
		line        String,
		outcome     LowCardinality(String),
		error       String,
		duration_ms UInt64
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (action, timestamp)`, s.table())

	if err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.table(), err)
	}
	return nil
}

// Send writes a batch of events
func (s *ClickHouseSink) Send(ctx context.Context, events []domain.TriggerEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table())
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, e := range events {
		if err := batch.Append(
			e.EventID,
			ensureValidDateTime(e.Timestamp),
			uint32(e.Source),
			e.ServerName,
			e.Action,
			e.Line,
			e.Outcome,
			e.Error,
			e.DurationMs,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Debug().
		Int("records", len(events)).
		Str("table", s.table()).
		Msg("Trigger events batch sent to ClickHouse")

	return nil
}
