package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tradeloop/internal/domain"
	"tradeloop/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds bars for a ticker. Fails the whole batch with
// ErrDuplicateKey when any (ticker, date) already exists.
func (s *BarStore) InsertBulk(ctx context.Context, ticker string, bars []domain.Bar) error {
	if ticker == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[time.Time]struct{}, len(bars))
	for _, b := range bars {
		d := dateOnly(b.Date)
		if _, exists := seen[d]; exists {
			return storage.ErrDuplicateKey
		}
		seen[d] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, b := range bars {
		exists, err := s.exists(ctx, ticker, b.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_bars (
			ticker, date, open, high, low, close, adj_close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			ticker, dateOnly(b.Date),
			b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetRange retrieves bars for a ticker within [start, end] inclusive,
// ordered by date ASC.
func (s *BarStore) GetRange(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	query := `
		SELECT date, open, high, low, close, adj_close, volume
		FROM daily_bars
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker, dateOnly(start), dateOnly(end))
	if err != nil {
		return nil, fmt.Errorf("query bars by range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// LatestDate returns the most recent stored bar date for a ticker.
func (s *BarStore) LatestDate(ctx context.Context, ticker string) (time.Time, error) {
	query := `SELECT max(date), count(*) FROM daily_bars WHERE ticker = ?`

	var latest time.Time
	var count uint64
	if err := s.conn.QueryRow(ctx, query, ticker).Scan(&latest, &count); err != nil {
		return time.Time{}, fmt.Errorf("query latest bar date: %w", err)
	}
	if count == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}

// exists checks if a bar with the given key exists.
func (s *BarStore) exists(ctx context.Context, ticker string, date time.Time) (bool, error) {
	query := `SELECT count(*) FROM daily_bars WHERE ticker = ? AND date = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, ticker, dateOnly(date)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanBars scans rows into a slice of Bar.
func scanBars(rows driver.Rows) ([]domain.Bar, error) {
	var bars []domain.Bar

	for rows.Next() {
		var b domain.Bar
		err := rows.Scan(
			&b.Date,
			&b.Open,
			&b.High,
			&b.Low,
			&b.Close,
			&b.AdjClose,
			&b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
