package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidStrategy is returned when the strategy setting is not one of
// auto, data or listeners.
var ErrInvalidStrategy = errors.New("invalid traversal strategy")

// Settings holds the tunable dispatch parameters.
type Settings struct {
	// Propagate controls ancestor/descendant fan-out. Default true.
	Propagate bool `toml:"propagate"`

	// Strategy selects the diff traversal: auto, data or listeners.
	Strategy string `toml:"strategy"`

	// Stats enables dispatch statistics collection.
	Stats bool `toml:"stats"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Propagate: true,
		Strategy:  "auto",
		Stats:     true,
	}
}

// Validate checks the settings for consistency.
func (s Settings) Validate() error {
	switch s.Strategy {
	case "", "auto", "data", "listeners":
		return nil
	default:
		return fmt.Errorf("%w %q", ErrInvalidStrategy, s.Strategy)
	}
}

// Load reads settings from a TOML file. A missing file is not an error and
// yields the defaults; unknown keys are ignored, malformed TOML is an error.
func Load(path string) (Settings, error) {
	settings := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return Default(), fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return Default(), fmt.Errorf("config file %s: %w", path, err)
	}
	return settings, nil
}
