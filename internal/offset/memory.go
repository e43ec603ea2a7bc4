package offset

import (
	"context"
)

// MemoryStore keeps offsets in a plain map. Offsets are lost on restart.
type MemoryStore struct {
	offsets map[string]uint64
}

// NewMemoryStore creates an empty in-memory offset store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{offsets: make(map[string]uint64)}
}

// Get retrieves the offset for a given file
func (s *MemoryStore) Get(_ context.Context, filePath string) (uint64, error) {
	return s.offsets[filePath], nil
}

// Set stores the offset for a given file
func (s *MemoryStore) Set(_ context.Context, filePath string, offset uint64) error {
	s.offsets[filePath] = offset
	return nil
}

// Delete removes the offset for a given file
func (s *MemoryStore) Delete(_ context.Context, filePath string) error {
	delete(s.offsets, filePath)
	return nil
}

// List returns a copy of all stored offsets
func (s *MemoryStore) List(_ context.Context) (map[string]uint64, error) {
	result := make(map[string]uint64, len(s.offsets))
	for k, v := range s.offsets {
		result[k] = v
	}
	return result, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
