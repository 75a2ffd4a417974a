package localstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Store is a small string key-value store used for session and draft state
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// SetMany writes several keys in one go
	SetMany(values map[string]string) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// Backend kinds accepted by Open
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open returns a store for the configured backend
func Open(kind, path string) (Store, error) {
	switch strings.ToLower(kind) {
	case KindMemory:
		return NewMemoryStore(), nil
	case "", KindFile:
		if path == "" {
			path = ".crm-store.json"
		}
		return NewFileStore(path), nil
	case KindSQLite:
		if path == "" {
			path = ".crm-store.db"
		}
		return NewSQLStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", kind)
	}
}

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) SetMany(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.data[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return matchKeys(s.data, prefix), nil
}

func matchKeys(data map[string]string, prefix string) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
