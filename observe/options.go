package observe

import (
	"fmt"
	"strings"

	"github.com/dshills/statewatch/config"
)

// Strategy selects how the dispatcher traverses a subtree when diffing:
// iterate the data entries, iterate the listener children, or pick
// whichever is smaller at each step. The choice never changes which
// listeners fire, only the traversal cost.
type Strategy int

const (
	// StrategyAuto picks per node based on relative size. The default.
	StrategyAuto Strategy = iota

	// StrategyData always iterates the data entries.
	StrategyData

	// StrategyListeners always iterates the listener children.
	StrategyListeners
)

// String returns the strategy name as used in configuration files.
func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyData:
		return "data"
	case StrategyListeners:
		return "listeners"
	default:
		return "unknown"
	}
}

// ParseStrategy resolves a strategy name, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return StrategyAuto, nil
	case "data":
		return StrategyData, nil
	case "listeners":
		return StrategyListeners, nil
	default:
		return 0, fmt.Errorf("invalid traversal strategy %q", name)
	}
}

// Option configures a Structure.
type Option func(*Structure)

// WithPropagate controls whether changes fan out to ancestor and descendant
// listeners (the default) or stay confined to the exact mutated keypath.
func WithPropagate(propagate bool) Option {
	return func(s *Structure) {
		s.propagate = propagate
	}
}

// WithStrategy pins the diff traversal strategy.
func WithStrategy(strategy Strategy) Option {
	return func(s *Structure) {
		s.strategy = strategy
	}
}

// WithStats enables or disables dispatch statistics collection.
func WithStats(enabled bool) Option {
	return func(s *Structure) {
		s.statsEnabled = enabled
	}
}

// WithSettings applies loaded configuration. Settings should have been
// validated; an unrecognized strategy falls back to auto.
func WithSettings(settings config.Settings) Option {
	return func(s *Structure) {
		s.propagate = settings.Propagate
		s.statsEnabled = settings.Stats
		if strategy, err := ParseStrategy(settings.Strategy); err == nil {
			s.strategy = strategy
		}
	}
}

// ApplySettings reconfigures a live Structure, typically from a config file
// reload. In-flight dispatches keep the options they started with.
func (s *Structure) ApplySettings(settings config.Settings) {
	strategy, err := ParseStrategy(settings.Strategy)
	if err != nil {
		strategy = StrategyAuto
	}

	s.mu.Lock()
	s.propagate = settings.Propagate
	s.statsEnabled = settings.Stats
	s.strategy = strategy
	s.mu.Unlock()
}
