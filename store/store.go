// Package store is the in-memory keyed data store behind the server. It is
// safe for concurrent use and can dump itself to, and restore itself from, a
// compressed snapshot file.
package store

import (
	"sort"
	"sync"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

func New() *Store {
	return &Store{data: map[string]string{}}
}

func (s *Store) Set(key, value string) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	return v, ok
}

// Del removes keys and returns how many existed.
func (s *Store) Del(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, k := range keys {
		if _, ok := s.data[k]; ok {
			delete(s.data, k)
			n++
		}
	}
	return n
}

// Exists counts how many of keys are present; repeated keys count each time.
func (s *Store) Exists(keys ...string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, k := range keys {
		if _, ok := s.data[k]; ok {
			n++
		}
	}
	return n
}

// Keys returns the sorted keys accepted by match.
func (s *Store) Keys(match func(key string) bool) []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if match(k) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *Store) Flush() {
	s.mu.Lock()
	s.data = map[string]string{}
	s.mu.Unlock()
}

// Update replaces the value of key with the result of fn while holding the
// write lock. The key is left untouched when fn fails.
func (s *Store) Update(key string, fn func(old string, ok bool) (string, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.data[key]
	v, err := fn(old, ok)
	if err != nil {
		return "", err
	}
	s.data[key] = v
	return v, nil
}
