package execution

import "context"

// Event is the fire-and-forget handoff message to the execution
// boundary. One event covers a whole generation pass; the flags say
// which outcomes it carries.
type Event struct {
	OpenPositionUpdated       bool   `json:"open_position_updated"`
	DispatchedPositionCreated bool   `json:"dispatched_position_created"`
	Ticker                    string `json:"ticker,omitempty"`
	PositionID                string `json:"position_id,omitempty"`
	EmittedAt                 int64  `json:"emitted_at"` // unix ms
}

// Notifier delivers events to the execution boundary. Delivery is
// best-effort; the control loop never blocks on order placement.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// NoopNotifier drops every event. Used when no execution boundary is
// wired, e.g. in single-cycle runs.
type NoopNotifier struct{}

// Notify implements Notifier.
func (NoopNotifier) Notify(context.Context, Event) error { return nil }

// Compile-time interface check.
var _ Notifier = NoopNotifier{}
