package transport

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MapScope is an in-memory GlobalScope for single-process hosts and tests.
type MapScope struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewMapScope() *MapScope {
	return &MapScope{values: make(map[string]any)}
}

// Expose installs an API object under a key. Keys are write-once; exposing
// an already-exposed key is an error.
func (s *MapScope) Expose(key string, api any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("scope key is required")
	}
	if api == nil {
		return errors.New("api object is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.values[key]; exists {
		return fmt.Errorf("scope key %q already exposed", key)
	}
	s.values[key] = api

	return nil
}

func (s *MapScope) Lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	return value, ok
}
