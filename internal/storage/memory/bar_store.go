package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tradeloop/internal/domain"
	"tradeloop/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]map[time.Time]domain.Bar // ticker → date → bar
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]map[time.Time]domain.Bar),
	}
}

// InsertBulk adds bars for a ticker. Fails the whole batch with
// ErrDuplicateKey when any (ticker, date) already exists.
func (s *BarStore) InsertBulk(_ context.Context, ticker string, bars []domain.Bar) error {
	if ticker == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byDate, exists := s.data[ticker]
	if !exists {
		byDate = make(map[time.Time]domain.Bar)
		s.data[ticker] = byDate
	}

	seen := make(map[time.Time]struct{}, len(bars))
	for _, b := range bars {
		d := dateKey(b.Date)
		if _, dup := seen[d]; dup {
			return storage.ErrDuplicateKey
		}
		if _, dup := byDate[d]; dup {
			return storage.ErrDuplicateKey
		}
		seen[d] = struct{}{}
	}

	for _, b := range bars {
		byDate[dateKey(b.Date)] = b
	}
	return nil
}

// GetRange retrieves bars within [start, end] inclusive, ordered by date ASC.
func (s *BarStore) GetRange(_ context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Bar
	for d, b := range s.data[ticker] {
		if !d.Before(dateKey(start)) && !d.After(dateKey(end)) {
			result = append(result, b)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// LatestDate returns the most recent stored bar date for a ticker.
func (s *BarStore) LatestDate(_ context.Context, ticker string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDate, exists := s.data[ticker]
	if !exists || len(byDate) == 0 {
		return time.Time{}, storage.ErrNotFound
	}

	var latest time.Time
	for d := range byDate {
		if d.After(latest) {
			latest = d
		}
	}
	return latest, nil
}

func dateKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Verify interface compliance at compile time.
var _ storage.BarStore = (*BarStore)(nil)
