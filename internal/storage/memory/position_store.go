package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/storage"
)

var _ storage.PositionStore = (*PositionStore)(nil)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu     sync.RWMutex
	data   map[int64]domain.Position
	nextID int64
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data:   make(map[int64]domain.Position),
		nextID: 1,
	}
}

func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	p.Version = 1
	s.nextID++

	// Store a copy to prevent external mutation
	s.data[p.ID] = storage.ClonePosition(*p)
	return nil
}

func (s *PositionStore) Get(_ context.Context, id int64) (domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[id]
	if !ok {
		return domain.Position{}, storage.ErrNotFound
	}
	return storage.ClonePosition(p), nil
}

func (s *PositionStore) List(_ context.Context, filter storage.PositionFilter) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Position, 0, len(s.data))
	for _, p := range s.data {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Symbol != "" && p.AssetSymbol != filter.Symbol {
			continue
		}
		result = append(result, storage.ClonePosition(p))
	}

	sort.Slice(result, func(i, j int) bool {
		return storage.LessRecent(result[i], result[j])
	})
	return result, nil
}

func (s *PositionStore) Update(_ context.Context, p *domain.Position) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[p.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if current.Version != p.Version {
		return storage.ErrConflict
	}

	p.Version++
	s.data[p.ID] = storage.ClonePosition(*p)
	return nil
}

func (s *PositionStore) Delete(_ context.Context, id int64, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	if current.Version != version {
		return storage.ErrConflict
	}
	delete(s.data, id)
	return nil
}
