package writer

import (
	"context"
	"sync"
	"time"

	"github.com/antredesloutres/otternel/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// BatchWriter buffers events and hands them to a Sink by size or by age.
// Actions run on their own goroutines, so every method takes the lock.
type BatchWriter struct {
	sink Sink
	cfg  BatchConfig

	mu      sync.Mutex
	pending []domain.TriggerEvent

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewBatchWriter creates a writer and starts its background flusher
func NewBatchWriter(sink Sink, cfg BatchConfig) *BatchWriter {
	def := DefaultBatchConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}

	w := &BatchWriter{
		sink:    sink,
		cfg:     cfg,
		pending: make([]domain.TriggerEvent, 0, cfg.MaxSize),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go w.loop()
	return w
}

// WriteEvent adds an event to the batch, assigning an id and timestamp if missing
func (w *BatchWriter) WriteEvent(ctx context.Context, event domain.TriggerEvent) error {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	w.mu.Lock()
	w.pending = append(w.pending, event)
	var snapshot []domain.TriggerEvent
	if len(w.pending) >= w.cfg.MaxSize {
		snapshot = w.takeLocked()
	}
	w.mu.Unlock()

	if snapshot == nil {
		return nil
	}
	return w.send(ctx, snapshot)
}

// Flush forces writing all pending events
func (w *BatchWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	snapshot := w.takeLocked()
	w.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}
	return w.send(ctx, snapshot)
}

// Pending returns the number of buffered events
func (w *BatchWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Close stops the background flusher and flushes what is left
func (w *BatchWriter) Close() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return w.Flush(ctx)
}

// takeLocked detaches the pending slice. Caller holds mu.
func (w *BatchWriter) takeLocked() []domain.TriggerEvent {
	if len(w.pending) == 0 {
		return nil
	}
	snapshot := w.pending
	w.pending = make([]domain.TriggerEvent, 0, w.cfg.MaxSize)
	return snapshot
}

func (w *BatchWriter) send(ctx context.Context, events []domain.TriggerEvent) error {
	start := time.Now()
	if err := w.sink.Send(ctx, events); err != nil {
		log.Error().
			Err(err).
			Int("batch_size", len(events)).
			Msg("Failed to write trigger events")
		return err
	}

	log.Debug().
		Int("batch_size", len(events)).
		Dur("duration", time.Since(start)).
		Msg("Trigger events written")
	return nil
}

func (w *BatchWriter) loop() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.cfg.FlushInterval)
			_ = w.Flush(ctx)
			cancel()
		}
	}
}
