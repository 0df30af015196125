package locomotion

import (
	"fmt"

	"github.com/teslashibe/go-locomotion/pkg/series"
)

// Config holds the tunable blend parameters of a generation run.
// Every weight is in [0,1].
type Config struct {
	// Control path stiffness, remapped onto [1/MaxTau, MaxTau].
	// Low values pull the predicted window onto the path early.
	TauTranslation float64 `yaml:"tau_translation" json:"tau_translation"`
	TauRotation    float64 `yaml:"tau_rotation" json:"tau_rotation"`

	// Blend between the network's root step (0) and the control-blended
	// next sample (1).
	RootTranslationWeight float64 `yaml:"root_translation_weight" json:"root_translation_weight"`
	RootRotationWeight    float64 `yaml:"root_rotation_weight" json:"root_rotation_weight"`

	// NetworkPhaseBias blends the advanced phase (0) with the predicted
	// phase (1).
	NetworkPhaseBias float64 `yaml:"network_phase_bias" json:"network_phase_bias"`

	// NetworkControlBias blends the window's future keys (0) with the
	// network's predicted trajectory (1).
	NetworkControlBias float64 `yaml:"network_control_bias" json:"network_control_bias"`

	// FrameRate of the control path and the generated clip.
	FrameRate float64 `yaml:"frame_rate" json:"frame_rate"`

	// PositionScale converts control path units (metres) to model units
	// (centimetres).
	PositionScale float64 `yaml:"position_scale" json:"position_scale"`

	// MaxTau bounds the stiffness remap.
	MaxTau float64 `yaml:"max_tau" json:"max_tau"`
}

// DefaultConfig returns balanced blending between control path and network.
func DefaultConfig() Config {
	return Config{
		TauTranslation:        0.5, // remaps to tau 1, linear blend
		TauRotation:           0.5,
		RootTranslationWeight: 0.5,
		RootRotationWeight:    0.5,
		NetworkPhaseBias:      0.5,
		NetworkControlBias:    0.5,
		FrameRate:             60,
		PositionScale:         100,
		MaxTau:                series.DefaultMaxTau,
	}
}

// ResponsiveConfig returns a configuration that follows the control path
// tightly.
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.TauTranslation = 0.2
	cfg.TauRotation = 0.2
	cfg.RootTranslationWeight = 0.8
	cfg.RootRotationWeight = 0.8
	cfg.NetworkControlBias = 0.3
	return cfg
}

// NaturalConfig returns a configuration that trusts the network's own
// motion over the control path.
func NaturalConfig() Config {
	cfg := DefaultConfig()
	cfg.TauTranslation = 0.8
	cfg.TauRotation = 0.8
	cfg.RootTranslationWeight = 0.2
	cfg.RootRotationWeight = 0.2
	cfg.NetworkPhaseBias = 0.8
	cfg.NetworkControlBias = 0.8
	return cfg
}

// Preset returns base with the six blend knobs of the named preset
// ("default", "responsive" or "natural"). FrameRate, PositionScale and
// MaxTau keep base's values.
func Preset(name string, base Config) (Config, error) {
	var p Config
	switch name {
	case "default":
		p = DefaultConfig()
	case "responsive":
		p = ResponsiveConfig()
	case "natural":
		p = NaturalConfig()
	default:
		return base, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
	}

	base.TauTranslation = p.TauTranslation
	base.TauRotation = p.TauRotation
	base.RootTranslationWeight = p.RootTranslationWeight
	base.RootRotationWeight = p.RootRotationWeight
	base.NetworkPhaseBias = p.NetworkPhaseBias
	base.NetworkControlBias = p.NetworkControlBias
	return base, nil
}

// Validate checks that every weight is in [0,1] and the scales are positive.
func (c *Config) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{
		{"tau_translation", c.TauTranslation},
		{"tau_rotation", c.TauRotation},
		{"root_translation_weight", c.RootTranslationWeight},
		{"root_rotation_weight", c.RootRotationWeight},
		{"network_phase_bias", c.NetworkPhaseBias},
		{"network_control_bias", c.NetworkControlBias},
	}
	for _, w := range weights {
		if w.value < 0 || w.value > 1 {
			return fmt.Errorf("%w: %s must be in [0,1], got %g", ErrInvalidConfig, w.name, w.value)
		}
	}

	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: frame_rate must be positive, got %g", ErrInvalidConfig, c.FrameRate)
	}
	if c.PositionScale <= 0 {
		return fmt.Errorf("%w: position_scale must be positive, got %g", ErrInvalidConfig, c.PositionScale)
	}
	if c.MaxTau <= 1 {
		return fmt.Errorf("%w: max_tau must exceed 1, got %g", ErrInvalidConfig, c.MaxTau)
	}
	return nil
}
