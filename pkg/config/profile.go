// pkg/config/profile.go
package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownPreset is returned when a named aircraft preset does not exist.
var ErrUnknownPreset = errors.New("unknown aircraft preset")

// ErrInvalidProfile is returned when profile values break their invariants.
var ErrInvalidProfile = errors.New("invalid aerodynamic profile")

// AerodynamicProfile is the immutable per-aircraft tuning data.
// Angles are in degrees and rates in degrees per second.
type AerodynamicProfile struct {
	// Engine
	EnginePower         float64 `json:"engine_power" yaml:"engine_power" mapstructure:"engine_power"`
	MaxAltitude         float64 `json:"max_altitude" yaml:"max_altitude" mapstructure:"max_altitude"`
	AltitudeEffectStart float64 `json:"altitude_effect_start" yaml:"altitude_effect_start" mapstructure:"altitude_effect_start"`

	// Drag
	ForwardDragCoeff float64 `json:"forward_drag_coeff" yaml:"forward_drag_coeff" mapstructure:"forward_drag_coeff"`
	LateralDragCoeff float64 `json:"lateral_drag_coeff" yaml:"lateral_drag_coeff" mapstructure:"lateral_drag_coeff"`
	InducedDragCoeff float64 `json:"induced_drag_coeff" yaml:"induced_drag_coeff" mapstructure:"induced_drag_coeff"`

	// Lift
	LiftCoeff    float64 `json:"lift_coeff" yaml:"lift_coeff" mapstructure:"lift_coeff"`
	MinLiftSpeed float64 `json:"min_lift_speed" yaml:"min_lift_speed" mapstructure:"min_lift_speed"`
	StallSpeed   float64 `json:"stall_speed" yaml:"stall_speed" mapstructure:"stall_speed"`

	// Control rates
	PitchRate         float64 `json:"pitch_rate" yaml:"pitch_rate" mapstructure:"pitch_rate"`
	YawRate           float64 `json:"yaw_rate" yaml:"yaw_rate" mapstructure:"yaw_rate"`
	RollRate          float64 `json:"roll_rate" yaml:"roll_rate" mapstructure:"roll_rate"`
	AoARateMultiplier float64 `json:"aoa_rate_multiplier" yaml:"aoa_rate_multiplier" mapstructure:"aoa_rate_multiplier"`

	// AoA limiter
	MaxAoAWithLimiter    float64 `json:"max_aoa_with_limiter" yaml:"max_aoa_with_limiter" mapstructure:"max_aoa_with_limiter"`
	MaxAoAWithoutLimiter float64 `json:"max_aoa_without_limiter" yaml:"max_aoa_without_limiter" mapstructure:"max_aoa_without_limiter"`
	LimiterStrength      float64 `json:"limiter_strength" yaml:"limiter_strength" mapstructure:"limiter_strength"`
	CooldownSeconds      float64 `json:"cooldown_seconds" yaml:"cooldown_seconds" mapstructure:"cooldown_seconds"`

	// Stability
	RotationGainP   float64 `json:"rotation_gain_p" yaml:"rotation_gain_p" mapstructure:"rotation_gain_p"`
	RotationGainD   float64 `json:"rotation_gain_d" yaml:"rotation_gain_d" mapstructure:"rotation_gain_d"`
	WorldLevelBlend float64 `json:"world_level_blend" yaml:"world_level_blend" mapstructure:"world_level_blend"`
}

// Validate checks the profile invariants. It is meant for load time; the
// simulation itself never rejects a profile mid-flight.
func (p AerodynamicProfile) Validate() error {
	fields := map[string]float64{
		"engine_power":            p.EnginePower,
		"max_altitude":            p.MaxAltitude,
		"altitude_effect_start":   p.AltitudeEffectStart,
		"forward_drag_coeff":      p.ForwardDragCoeff,
		"lateral_drag_coeff":      p.LateralDragCoeff,
		"induced_drag_coeff":      p.InducedDragCoeff,
		"lift_coeff":              p.LiftCoeff,
		"min_lift_speed":          p.MinLiftSpeed,
		"stall_speed":             p.StallSpeed,
		"pitch_rate":              p.PitchRate,
		"yaw_rate":                p.YawRate,
		"roll_rate":               p.RollRate,
		"aoa_rate_multiplier":     p.AoARateMultiplier,
		"max_aoa_with_limiter":    p.MaxAoAWithLimiter,
		"max_aoa_without_limiter": p.MaxAoAWithoutLimiter,
		"limiter_strength":        p.LimiterStrength,
		"cooldown_seconds":        p.CooldownSeconds,
		"rotation_gain_p":         p.RotationGainP,
		"rotation_gain_d":         p.RotationGainD,
		"world_level_blend":       p.WorldLevelBlend,
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := fields[name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidProfile, name, v)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %g", ErrInvalidProfile, name, v)
		}
	}

	if p.StallSpeed < p.MinLiftSpeed {
		return fmt.Errorf("%w: stall_speed %g is below min_lift_speed %g",
			ErrInvalidProfile, p.StallSpeed, p.MinLiftSpeed)
	}
	if p.AltitudeEffectStart >= p.MaxAltitude {
		return fmt.Errorf("%w: altitude_effect_start %g must be below max_altitude %g",
			ErrInvalidProfile, p.AltitudeEffectStart, p.MaxAltitude)
	}
	if p.WorldLevelBlend > 1 {
		return fmt.Errorf("%w: world_level_blend %g exceeds 1", ErrInvalidProfile, p.WorldLevelBlend)
	}
	return nil
}

// PresetInfo describes a built-in aircraft preset.
type PresetInfo struct {
	Name        string
	Description string
	Profile     AerodynamicProfile
}

var presets = map[string]PresetInfo{
	"fighter": {
		Name:        "Fighter",
		Description: "Fast, agile jet with a strong AoA limiter",
		Profile:     DefaultProfile(),
	},
	"trainer": {
		Name:        "Trainer",
		Description: "Slow, forgiving propeller trainer",
		Profile: AerodynamicProfile{
			EnginePower:          18,
			MaxAltitude:          6000,
			AltitudeEffectStart:  3000,
			ForwardDragCoeff:     0.003,
			LateralDragCoeff:     0.03,
			InducedDragCoeff:     0.0008,
			LiftCoeff:            0.006,
			MinLiftSpeed:         15,
			StallSpeed:           35,
			PitchRate:            60,
			YawRate:              30,
			RollRate:             90,
			AoARateMultiplier:    1.2,
			MaxAoAWithLimiter:    14,
			MaxAoAWithoutLimiter: 25,
			LimiterStrength:      0.08,
			CooldownSeconds:      2,
			RotationGainP:        3,
			RotationGainD:        1,
			WorldLevelBlend:      0.6,
		},
	},
	"glider": {
		Name:        "Glider",
		Description: "Unpowered sailplane with high lift and low drag",
		Profile: AerodynamicProfile{
			EnginePower:          0,
			MaxAltitude:          9000,
			AltitudeEffectStart:  5000,
			ForwardDragCoeff:     0.0008,
			LateralDragCoeff:     0.02,
			InducedDragCoeff:     0.0003,
			LiftCoeff:            0.009,
			MinLiftSpeed:         10,
			StallSpeed:           25,
			PitchRate:            40,
			YawRate:              20,
			RollRate:             60,
			AoARateMultiplier:    1.1,
			MaxAoAWithLimiter:    12,
			MaxAoAWithoutLimiter: 20,
			LimiterStrength:      0.1,
			CooldownSeconds:      4,
			RotationGainP:        2,
			RotationGainD:        1.2,
			WorldLevelBlend:      0.8,
		},
	},
}

// DefaultProfile returns the built-in fighter profile.
func DefaultProfile() AerodynamicProfile {
	return AerodynamicProfile{
		EnginePower:          30,
		MaxAltitude:          12000,
		AltitudeEffectStart:  8000,
		ForwardDragCoeff:     0.002,
		LateralDragCoeff:     0.02,
		InducedDragCoeff:     0.0005,
		LiftCoeff:            0.004,
		MinLiftSpeed:         20,
		StallSpeed:           50,
		PitchRate:            90,
		YawRate:              45,
		RollRate:             180,
		AoARateMultiplier:    1.5,
		MaxAoAWithLimiter:    15,
		MaxAoAWithoutLimiter: 35,
		LimiterStrength:      0.05,
		CooldownSeconds:      3,
		RotationGainP:        4,
		RotationGainD:        0.8,
		WorldLevelBlend:      0.3,
	}
}

// GetPreset returns the named preset profile.
func GetPreset(name string) (AerodynamicProfile, error) {
	preset, ok := presets[name]
	if !ok {
		return AerodynamicProfile{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return preset.Profile, nil
}

// ListPresets returns all built-in presets keyed by name.
func ListPresets() map[string]PresetInfo {
	out := make(map[string]PresetInfo, len(presets))
	for k, v := range presets {
		out[k] = v
	}
	return out
}

// PresetNames returns the sorted preset names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
