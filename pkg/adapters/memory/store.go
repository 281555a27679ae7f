package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/robotpit/pinsmith/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Snapshot),
	}
}

// Save persists a deep copy of the snapshot in memory.
func (s *Store) Save(ctx context.Context, projectID string, snap *domain.Snapshot) error {
	copied := snap.Clone().Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[projectID] = copied
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, projectID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}

	// Copy on read so callers can't mutate store state through the pointer
	return snap.Clone(), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, projectID)
	return nil
}

// List returns stored project IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]string, 0, len(s.data))
	for id := range s.data {
		projects = append(projects, id)
	}
	sort.Strings(projects)
	return projects, nil
}
