package cache

import (
	"encoding/hex"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// MemStore keeps artifacts in memory. Used by tests and by builds that want
// cache semantics without disk persistence; the contract matches DiskStore,
// including first-writer-wins idempotence.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string][]byte)}
}

func memKey(stage string, key Key) string {
	return stage + "/" + hex.EncodeToString(key[:])
}

func (s *MemStore) Get(stage string, key Key, out any) bool {
	s.mu.RLock()
	data, ok := s.entries[memKey(stage, key)]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return msgpack.Unmarshal(data, out) == nil
}

func (s *MemStore) Put(stage string, key Key, artifact any) error {
	data, err := msgpack.Marshal(artifact)
	if err != nil {
		return err
	}
	k := memKey(stage, key)
	s.mu.Lock()
	if _, exists := s.entries[k]; !exists {
		s.entries[k] = data
	}
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Invalidate() error {
	s.mu.Lock()
	s.entries = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored entries.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
