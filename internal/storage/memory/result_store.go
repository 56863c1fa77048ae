package memory

import (
	"context"
	"sync"

	"tradeloop/internal/domain"
	"tradeloop/internal/storage"
)

// ResultStore is an in-memory implementation of storage.ResultStore.
type ResultStore struct {
	mu   sync.RWMutex
	data map[resultKey]*domain.OptimizationResult
}

type resultKey struct {
	ticker   string
	strategy string
}

// NewResultStore creates a new in-memory optimization-result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		data: make(map[resultKey]*domain.OptimizationResult),
	}
}

// Upsert inserts or replaces the result keyed by (ticker, strategy).
func (s *ResultStore) Upsert(_ context.Context, r *domain.OptimizationResult) error {
	if r == nil || r.Ticker == "" || r.Strategy == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resultCopy := *r
	s.data[resultKey{r.Ticker, r.Strategy}] = &resultCopy
	return nil
}

// GetByKey retrieves the result for one (ticker, strategy) pair.
func (s *ResultStore) GetByKey(_ context.Context, ticker, strategy string) (*domain.OptimizationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[resultKey{ticker, strategy}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	resultCopy := *r
	return &resultCopy, nil
}

// GetByTicker retrieves all results for a ticker ordered best-first.
func (s *ResultStore) GetByTicker(_ context.Context, ticker string) ([]*domain.OptimizationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OptimizationResult
	for k, r := range s.data {
		if k.ticker == ticker {
			resultCopy := *r
			result = append(result, &resultCopy)
		}
	}

	domain.RankResults(result)
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ResultStore = (*ResultStore)(nil)
