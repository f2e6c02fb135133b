package memsnap

import (
	"context"
	"slices"
	"sync"

	"github.com/alekseev-bro/warcore/pkg/aggregate"
)

type snapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

func NewSnapshotStore() *snapshotStore {
	return &snapshotStore{
		snapshots: make(map[string][]byte),
	}
}

func (s *snapshotStore) Save(ctx context.Context, key []byte, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[string(key)] = slices.Clone(value)
	return nil
}

func (s *snapshotStore) Load(ctx context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if snap, ok := s.snapshots[string(key)]; ok {
		return slices.Clone(snap), nil
	}
	return nil, aggregate.ErrNoSnapshot
}
