package offset

import (
	"context"
)

// OffsetStore maps a watched file path to the number of bytes already consumed.
// Implementations: MemoryStore (default), BoltDB (persists across restarts)
//
// The store is owned by the watch loop; implementations are not required to be
// safe for concurrent use.
type OffsetStore interface {
	// Get retrieves the offset for a given file
	// Returns 0 if no offset is stored
	Get(ctx context.Context, filePath string) (uint64, error)

	// Set stores the offset for a given file
	Set(ctx context.Context, filePath string, offset uint64) error

	// Delete removes the offset for a given file
	Delete(ctx context.Context, filePath string) error

	// List returns all stored offsets
	List(ctx context.Context) (map[string]uint64, error)

	// Close closes the offset store
	Close() error
}
