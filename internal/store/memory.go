// File: internal/store/memory.go
package store

import (
	"context"
	"sync"

	"github.com/voxforge9/clickpilot/api/schemas"
)

// MemoryStore keeps the encoded snapshot in process memory. Used for tests
// and for running without durable storage; the encode/decode round trip
// keeps its behavior identical to the durable backends.
type MemoryStore struct {
	mu      sync.Mutex
	payload []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*schemas.EngineSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payload == nil {
		return nil, schemas.ErrSnapshotNotFound
	}
	return decode(s.payload)
}

func (s *MemoryStore) Save(_ context.Context, snap *schemas.EngineSnapshot) error {
	payload, err := encode(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = payload
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = nil
	return nil
}

func (s *MemoryStore) Close() error { return nil }
