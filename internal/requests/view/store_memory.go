// Package view holds the merged request snapshot. Both backends replace the
// snapshot whole so readers never observe a half-applied update.
package view

import (
	"context"
	"sync"

	"civicledger/internal/requests/models"
)

// UpdateFunc derives the next snapshot from the current one. It may run more
// than once when a backend detects a concurrent writer, so it must not have
// side effects.
type UpdateFunc func(current models.View) (models.View, error)

// InMemoryStore keeps the snapshot behind a mutex. Load returns a deep copy.
type InMemoryStore struct {
	mu   sync.RWMutex
	view models.View
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Load(_ context.Context) (models.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.Clone(), nil
}

// Update runs fn under the write lock and installs its result. A failing fn
// leaves the snapshot untouched.
func (s *InMemoryStore) Update(_ context.Context, fn UpdateFunc) (models.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.view.Clone())
	if err != nil {
		return models.View{}, err
	}
	s.view = next.Clone()
	return next, nil
}
