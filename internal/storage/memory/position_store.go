package memory

import (
	"context"
	"sort"
	"sync"

	"tradeloop/internal/domain"
	"tradeloop/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by position_id
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" || p.Ticker == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	positionCopy := *p
	s.data[p.PositionID] = &positionCopy
	return nil
}

// Update replaces a position's mutable fields. Returns ErrNotFound if not exists.
func (s *PositionStore) Update(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; !exists {
		return storage.ErrNotFound
	}

	positionCopy := *p
	s.data[p.PositionID] = &positionCopy
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(_ context.Context, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[positionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	positionCopy := *p
	return &positionCopy, nil
}

// FirstByStatus returns the oldest position in the given status.
func (s *PositionStore) FirstByStatus(ctx context.Context, status domain.Status) (*domain.Position, error) {
	all, err := s.GetByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, storage.ErrNotFound
	}
	return all[0], nil
}

// GetByStatus retrieves all positions in the given status, ordered by
// created_at ASC.
func (s *PositionStore) GetByStatus(_ context.Context, status domain.Status) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Status == status {
			positionCopy := *p
			result = append(result, &positionCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].PositionID < result[j].PositionID
	})

	return result, nil
}

// GetActiveByTicker retrieves positions for a ticker in any active status.
func (s *PositionStore) GetActiveByTicker(_ context.Context, ticker string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Ticker == ticker && p.Status.Active() {
			positionCopy := *p
			result = append(result, &positionCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt < result[j].CreatedAt
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PositionStore = (*PositionStore)(nil)
