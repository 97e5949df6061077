package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
)

// Store is an in-memory implementation of store.Ledger
type Store struct {
	mu      sync.RWMutex
	entries map[string][]store.Entry  // runID -> entries in record order
	byKey   map[string]map[string]int // runID -> key -> index into entries
}

// New creates a new in-memory ledger
func New() *Store {
	return &Store{
		entries: make(map[string][]store.Entry),
		byKey:   make(map[string]map[string]int),
	}
}

// Close implements store.Ledger.
func (s *Store) Close() error { return nil }

// Record stores an entry. The first entry for a (run, key) pair wins.
func (s *Store) Record(ctx context.Context, e store.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.byKey[e.RunID]
	if keys == nil {
		keys = make(map[string]int)
		s.byKey[e.RunID] = keys
	}
	if _, exists := keys[e.Key]; exists {
		return nil
	}
	keys[e.Key] = len(s.entries[e.RunID])
	s.entries[e.RunID] = append(s.entries[e.RunID], e)
	return nil
}

// Lookup returns the entry recorded for key in a run.
func (s *Store) Lookup(ctx context.Context, runID, key string) (store.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byKey[runID][key]
	if !ok {
		return store.Entry{}, false, nil
	}
	return s.entries[runID][idx], true, nil
}

// Entries returns the entries of a run ordered by ID.
func (s *Store) Entries(ctx context.Context, runID string) ([]store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]store.Entry(nil), s.entries[runID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
