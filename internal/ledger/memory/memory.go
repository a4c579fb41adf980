// Package memory keeps the ledger in process memory.
package memory

import (
	"context"
	"sync"

	"syntego/internal/core"
	"syntego/internal/ledger"
)

type Store struct {
	mu    sync.Mutex
	items core.Ledger
	saves int
}

var _ ledger.Store = (*Store)(nil)

// New returns a store seeded with a copy of seed.
func New(seed core.Ledger) *Store {
	return &Store{items: seed.Clone()}
}

func (s *Store) Load(_ context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		return core.Ledger{}, nil
	}
	return s.items.Clone(), nil
}

func (s *Store) Save(_ context.Context, l core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = l.Clone()
	s.saves++
	return nil
}

// Saves reports how many times Save was called.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
