package persistence

import (
	"context"
	"sync"
)

// SlotStore is a key-value slot holding opaque snapshot payloads.
// Get reports found=false when the slot has never been written.
type SlotStore interface {
	Get(ctx context.Context, key string) (payload []byte, found bool, err error)
	Put(ctx context.Context, key string, payload []byte) error
}

// MemorySlotStore keeps slots in process memory.
// Contents are lost on restart.
type MemorySlotStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemorySlotStore creates an empty in-memory store
func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{slots: make(map[string][]byte)}
}

// Get returns a copy of the payload stored under key
func (s *MemorySlotStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.slots[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, true, nil
}

// Put stores a copy of payload under key
func (s *MemorySlotStore) Put(_ context.Context, key string, payload []byte) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)

	s.mu.Lock()
	s.slots[key] = stored
	s.mu.Unlock()
	return nil
}

var _ SlotStore = (*MemorySlotStore)(nil)
