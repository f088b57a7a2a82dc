// Package memkv is an in-memory core.KVStore, used by tests and ephemeral runs.
package memkv

import (
	"context"
	"sync"

	"github.com/trezcool/practicum/core"
)

type Store struct {
	sync.RWMutex
	table map[string]string
}

var _ core.KVStore = (*Store)(nil) // interface compliance check

func Open() *Store {
	return &Store{table: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.RLock()
	defer s.RUnlock()
	if val, ok := s.table[key]; ok {
		return val, nil
	}
	return "", core.ErrKeyNotFound
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.Lock()
	defer s.Unlock()
	s.table[key] = value
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.Lock()
	defer s.Unlock()
	delete(s.table, key)
	return nil
}

// Keys returns the number of stored keys.
func (s *Store) Keys() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.table)
}

func (s *Store) Close() error { return nil }
