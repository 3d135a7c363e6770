package credstore

import (
	"context"
	"sync"

	"github.com/mizphses/kips/internal/common"
)

// MemoryStore is an in-memory implementation of Store, used in tests and for
// local development.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[Mapping]map[string]string
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mappings: make(map[Mapping]map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, m Mapping, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.mappings[m][key]
	if !ok {
		return "", common.ErrorNotFound
	}
	return value, nil
}

func (s *MemoryStore) Put(ctx context.Context, m Mapping, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(m, key, value)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, m Mapping, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.mappings[m], key)
	return nil
}

// Apply executes all ops under a single lock acquisition, so concurrent
// readers never observe a half-applied forward/reverse update.
func (s *MemoryStore) Apply(ctx context.Context, ops ...Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		if op.Remove {
			delete(s.mappings[op.Mapping], op.Key)
			continue
		}
		s.put(op.Mapping, op.Key, op.Value)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// put assumes s.mu is held for writing.
func (s *MemoryStore) put(m Mapping, key, value string) {
	if s.mappings[m] == nil {
		s.mappings[m] = make(map[string]string)
	}
	s.mappings[m][key] = value
}

// Len reports the number of keys in a mapping. Test helper.
func (s *MemoryStore) Len(m Mapping) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mappings[m])
}
