// Package serverlog tails a directory of game server logs and hands the newest
// complete line of every changed file to a LineHandler.
package serverlog

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/antredesloutres/otternel/internal/decode"
	"github.com/antredesloutres/otternel/internal/domain"
	"github.com/antredesloutres/otternel/internal/metrics"
	"github.com/antredesloutres/otternel/internal/offset"
	"github.com/rs/zerolog/log"
)

// LineHandler consumes the line extracted from a read cycle.
// It is called synchronously from the watch loop and must not block on I/O.
type LineHandler interface {
	HandleLine(ctx context.Context, line domain.ExtractedLine) int
}

// Tailer reads the bytes appended to a file since the previous read cycle
type Tailer struct {
	offsets offset.OffsetStore
	handler LineHandler
}

// NewTailer creates a tailer that records progress in offsets and forwards lines to handler
func NewTailer(offsets offset.OffsetStore, handler LineHandler) *Tailer {
	return &Tailer{
		offsets: offsets,
		handler: handler,
	}
}

// ReadNew consumes everything appended to path since the stored offset.
//
// A file shorter than its stored offset was truncated or rotated; reading then
// restarts at 0. At most one line is forwarded per call (see LastCompleteLine).
// I/O errors are returned to the caller and are never fatal.
func (t *Tailer) ReadNew(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	size := uint64(stat.Size())

	last, err := t.offsets.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to get offset: %w", err)
	}

	if size < last {
		log.Warn().
			Str("file", path).
			Uint64("offset", last).
			Uint64("size", size).
			Msg("File was truncated or rotated, reading from start")
		metrics.Rotations.Inc()

		last = 0
		if err := t.offsets.Set(ctx, path, 0); err != nil {
			return fmt.Errorf("failed to reset offset: %w", err)
		}
	}

	if _, err := f.Seek(int64(last), io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to offset %d: %w", last, err)
	}

	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if text := decode.Decode(raw); text != "" {
		t.forward(ctx, path, text)
	}

	// Position after the read; a concurrent writer may have moved it past last+len(raw)
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to get current file position: %w", err)
	}

	if err := t.offsets.Set(ctx, path, uint64(pos)); err != nil {
		return fmt.Errorf("failed to save offset: %w", err)
	}

	return nil
}

// forward applies the last-line policy to a decoded chunk and passes the result on
func (t *Tailer) forward(ctx context.Context, path, text string) {
	line, ok := LastCompleteLine(text)
	if !ok {
		log.Debug().
			Str("file", path).
			Int("chunk_len", len(text)).
			Msg("No complete line in chunk")
		return
	}

	source, hasSource := ParseSourceID(path)
	if !hasSource {
		log.Debug().
			Str("file", path).
			Msg("File name has no numeric source id, only unscoped triggers apply")
	}

	log.Debug().
		Str("file", path).
		Uint32("source", uint32(source)).
		Str("line", line).
		Msg("Extracted last line")
	metrics.LinesExtracted.Inc()

	t.handler.HandleLine(ctx, domain.ExtractedLine{
		Path:      path,
		Source:    source,
		HasSource: hasSource,
		Text:      line,
	})
}
