package domain

// Signal is the ephemeral outcome of one signal-generation pass. It is
// never persisted on its own; its fields are folded into the Position
// record on dispatch or refresh.
type Signal struct {
	Strategy    string
	Direction   Direction
	StopLoss    float64
	TakeProfit  float64
	TargetEntry float64
}

// Actionable reports whether the signal carries a tradable direction.
func (s Signal) Actionable() bool {
	return s.Direction != DirectionNone
}
