// Package guard enforces position-lifecycle invariants at stage
// boundaries. Every violation is a distinct sentinel error that aborts
// the current control-loop iteration; none of them is ever swallowed.
//
// Checks run under a check-then-act discipline with no transactional
// isolation between the read and the subsequent write. A single
// orchestrator instance (single writer) is a hard precondition.
package guard

import (
	"context"
	"errors"
	"fmt"

	"tradeloop/internal/domain"
	"tradeloop/internal/storage"
)

// Invariant violations. These indicate process-ordering defects, not data
// problems; the operator must resolve them manually.
var (
	ErrScreenedPositionExists   = errors.New("screened position already exists")
	ErrOptimizedPositionExists  = errors.New("optimized position already exists")
	ErrDispatchedPositionExists = errors.New("dispatched position already exists")
	ErrOpenPositionExists       = errors.New("open position already exists")
	ErrNoActionablePosition     = errors.New("no open or optimized position to act on")
	ErrActivePositionExists     = errors.New("active position already exists for ticker")
)

// violationFor maps a status to its exists-violation sentinel.
func violationFor(status domain.Status) error {
	switch status {
	case domain.StatusScreened:
		return ErrScreenedPositionExists
	case domain.StatusOptimized:
		return ErrOptimizedPositionExists
	case domain.StatusDispatched:
		return ErrDispatchedPositionExists
	case domain.StatusOpen:
		return ErrOpenPositionExists
	default:
		return fmt.Errorf("no invariant for status %s", status)
	}
}

// EnsureAbsent verifies that no position holds the given status.
func EnsureAbsent(ctx context.Context, store storage.PositionStore, status domain.Status) error {
	p, err := store.FirstByStatus(ctx, status)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check %s absent: %w", status, err)
	}
	return fmt.Errorf("position %s (%s): %w", p.PositionID, p.Ticker, violationFor(status))
}

// EnsureActionable verifies that at least one OPEN or OPTIMIZED position
// exists for the signal generator to act on.
func EnsureActionable(ctx context.Context, store storage.PositionStore) error {
	for _, status := range []domain.Status{domain.StatusOpen, domain.StatusOptimized} {
		_, err := store.FirstByStatus(ctx, status)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("check actionable: %w", err)
		}
	}
	return ErrNoActionablePosition
}

// EnsureNoActiveForTicker verifies that the ticker has no position in any
// active status, so creating a new one keeps the at-most-one-active-per-
// ticker invariant.
func EnsureNoActiveForTicker(ctx context.Context, store storage.PositionStore, ticker string) error {
	active, err := store.GetActiveByTicker(ctx, ticker)
	if err != nil {
		return fmt.Errorf("check active for %s: %w", ticker, err)
	}
	if len(active) > 0 {
		return fmt.Errorf("ticker %s has position %s in %s: %w",
			ticker, active[0].PositionID, active[0].Status, ErrActivePositionExists)
	}
	return nil
}

// IsViolation reports whether err is any invariant violation sentinel.
func IsViolation(err error) bool {
	for _, sentinel := range []error{
		ErrScreenedPositionExists,
		ErrOptimizedPositionExists,
		ErrDispatchedPositionExists,
		ErrOpenPositionExists,
		ErrNoActionablePosition,
		ErrActivePositionExists,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
