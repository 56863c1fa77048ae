package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tradeloop/internal/domain"
	"tradeloop/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	position_id, ticker, status, strategy, direction,
	stop_loss, take_profit, target_entry, created_at, updated_at
`

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	query := `
		INSERT INTO positions (
			position_id, ticker, status, strategy, direction,
			stop_loss, take_profit, target_entry, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PositionID,
		p.Ticker,
		string(p.Status),
		p.Strategy,
		string(p.Direction),
		p.StopLoss,
		p.TakeProfit,
		p.TargetEntry,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// Update replaces a position's mutable fields. Returns ErrNotFound if not exists.
func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	query := `
		UPDATE positions
		SET status = $2, strategy = $3, direction = $4,
		    stop_loss = $5, take_profit = $6, target_entry = $7, updated_at = $8
		WHERE position_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		p.PositionID,
		string(p.Status),
		p.Strategy,
		string(p.Direction),
		p.StopLoss,
		p.TakeProfit,
		p.TargetEntry,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, positionID string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE position_id = $1`

	row := s.pool.QueryRow(ctx, query, positionID)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// FirstByStatus returns the oldest position in the given status.
func (s *PositionStore) FirstByStatus(ctx context.Context, status domain.Status) (*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = $1
		ORDER BY created_at ASC, position_id ASC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, string(status))
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("first position by status: %w", err)
	}
	return p, nil
}

// GetByStatus retrieves all positions in the given status, ordered by
// created_at ASC.
func (s *PositionStore) GetByStatus(ctx context.Context, status domain.Status) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = $1
		ORDER BY created_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("get positions by status: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetActiveByTicker retrieves positions for a ticker in any active status.
func (s *PositionStore) GetActiveByTicker(ctx context.Context, ticker string) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE ticker = $1 AND status = ANY($2)
		ORDER BY created_at ASC, position_id ASC
	`

	active := make([]string, len(domain.ActiveStatuses))
	for i, st := range domain.ActiveStatuses {
		active[i] = string(st)
	}

	rows, err := s.pool.Query(ctx, query, ticker, active)
	if err != nil {
		return nil, fmt.Errorf("get active positions by ticker: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// scanPosition scans a single row into a Position.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var statusStr, directionStr string

	err := row.Scan(
		&p.PositionID,
		&p.Ticker,
		&statusStr,
		&p.Strategy,
		&directionStr,
		&p.StopLoss,
		&p.TakeProfit,
		&p.TargetEntry,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.Status(statusStr)
	p.Direction = domain.Direction(directionStr)
	return &p, nil
}

// scanPositions scans multiple rows into a slice of Position.
func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position

	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}

	return positions, nil
}
