// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/navigator/internal/triage"
)

// Store holds case states in memory. Suitable for dev/testing and for
// single-instance deployments with no durability requirement.
type Store struct {
	mu    sync.RWMutex
	cases map[string]*triage.CaseState // case ID -> state
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{cases: make(map[string]*triage.CaseState)}
}

// Load retrieves a case state by ID. Returns a deep copy.
func (s *Store) Load(_ context.Context, id string) (*triage.CaseState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, false, nil
	}
	return c.Clone(), true, nil
}

// Save stores a deep copy of the case state.
func (s *Store) Save(_ context.Context, c *triage.CaseState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.ID] = c.Clone()
	return nil
}

// Delete removes a case. Deleting an absent ID is not an error.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cases, id)
	return nil
}

// ListActive returns copies of all unresolved cases.
func (s *Store) ListActive(_ context.Context) ([]*triage.CaseState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*triage.CaseState
	for _, c := range s.cases {
		if !c.Resolved() {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// DeleteOlderThan removes cases last updated before cutoff and reports how
// many were removed.
func (s *Store) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, c := range s.cases {
		if c.UpdatedAt.Before(cutoff) {
			delete(s.cases, id)
			n++
		}
	}
	return n, nil
}
