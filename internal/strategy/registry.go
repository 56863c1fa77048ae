package strategy

import (
	"fmt"
	"sort"

	"tradeloop/internal/domain"
)

// Factory builds a strategy from a typed parameter record.
type Factory func(p domain.StrategyParams) (Strategy, error)

// Registry maps strategy names to factories. It replaces dynamic lookup
// by string: every name in the configured catalogue is validated at
// startup so unknown strategies fail fast, not mid-optimization.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry with the built-in strategy catalogue.
func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{
			domain.StrategySMACross: func(p domain.StrategyParams) (Strategy, error) {
				return fromSMACrossParams(p)
			},
			domain.StrategyRSIReversal: func(p domain.StrategyParams) (Strategy, error) {
				return fromRSIReversalParams(p)
			},
			domain.StrategyChannelBreakout: func(p domain.StrategyParams) (Strategy, error) {
				return fromChannelBreakoutParams(p)
			},
		},
	}
}

// Build instantiates the named strategy with the given parameters.
func (r *Registry) Build(p domain.StrategyParams) (Strategy, error) {
	factory, ok := r.factories[p.Strategy]
	if !ok {
		return nil, fmt.Errorf("strategy %q: %w", p.Strategy, ErrUnknownStrategy)
	}
	return factory(p)
}

// Names returns all registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateCatalogue checks that every catalogue entry names a registered
// strategy.
func (r *Registry) ValidateCatalogue(catalogue []domain.ParameterSet) error {
	for _, ps := range catalogue {
		if _, ok := r.factories[ps.Strategy]; !ok {
			return fmt.Errorf("catalogue entry %q: %w", ps.Strategy, ErrUnknownStrategy)
		}
	}
	return nil
}
