// pkg/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// FLIGHT_TICK_RATE or FLIGHT_TELEMETRY_ADDR.
const EnvPrefix = "FLIGHT"

// Control modes for the attitude controller.
const (
	ControlModeKinematic = "kinematic"
	ControlModePD        = "pd"
)

// SimConfig contains configuration for a flight session
type SimConfig struct {
	TickRate    int                 `json:"tick_rate" yaml:"tick_rate" mapstructure:"tick_rate"`
	RenderRate  int                 `json:"render_rate" yaml:"render_rate" mapstructure:"render_rate"`
	Preset      string              `json:"preset" yaml:"preset" mapstructure:"preset"`
	Profile     *AerodynamicProfile `json:"profile,omitempty" yaml:"profile,omitempty" mapstructure:"profile"`
	ControlMode string              `json:"control_mode" yaml:"control_mode" mapstructure:"control_mode"`
	LogLevel    string              `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	Spawn       SpawnConfig         `json:"spawn" yaml:"spawn" mapstructure:"spawn"`
	Physics     PhysicsConfig       `json:"physics" yaml:"physics" mapstructure:"physics"`
	Cursor      CursorConfig        `json:"cursor" yaml:"cursor" mapstructure:"cursor"`
	Look        LookConfig          `json:"look" yaml:"look" mapstructure:"look"`
	Telemetry   TelemetryConfig     `json:"telemetry" yaml:"telemetry" mapstructure:"telemetry"`
}

// SpawnConfig describes the body's initial state.
type SpawnConfig struct {
	Altitude float64 `json:"altitude" yaml:"altitude" mapstructure:"altitude"`
	Speed    float64 `json:"speed" yaml:"speed" mapstructure:"speed"`
	Heading  float64 `json:"heading" yaml:"heading" mapstructure:"heading"` // degrees about world up
	Throttle float64 `json:"throttle" yaml:"throttle" mapstructure:"throttle"`
}

// PhysicsConfig contains integrator configuration
type PhysicsConfig struct {
	Mass           float64 `json:"mass" yaml:"mass" mapstructure:"mass"`
	Gravity        float64 `json:"gravity" yaml:"gravity" mapstructure:"gravity"`
	GroundLevel    float64 `json:"ground_level" yaml:"ground_level" mapstructure:"ground_level"`
	AngularDamping float64 `json:"angular_damping" yaml:"angular_damping" mapstructure:"angular_damping"`
	Inertia        float64 `json:"inertia" yaml:"inertia" mapstructure:"inertia"`
}

// CursorConfig tunes the pointer-to-stick mapping.
type CursorConfig struct {
	Sensitivity       float64 `json:"sensitivity" yaml:"sensitivity" mapstructure:"sensitivity"`
	CenterReturnTime  float64 `json:"center_return_time" yaml:"center_return_time" mapstructure:"center_return_time"` // seconds
	MaxRadius         float64 `json:"max_radius" yaml:"max_radius" mapstructure:"max_radius"`                         // 0 = half the shorter screen side
	InputThreshold    float64 `json:"input_threshold" yaml:"input_threshold" mapstructure:"input_threshold"`
	DeadZone          float64 `json:"dead_zone" yaml:"dead_zone" mapstructure:"dead_zone"`
	ConfinementMargin float64 `json:"confinement_margin" yaml:"confinement_margin" mapstructure:"confinement_margin"`
	WarmupTicks       int     `json:"warmup_ticks" yaml:"warmup_ticks" mapstructure:"warmup_ticks"`
	InvertPitch       bool    `json:"invert_pitch" yaml:"invert_pitch" mapstructure:"invert_pitch"`
}

// LookConfig tunes the look rig that turns stick deflection into a target direction.
type LookConfig struct {
	PitchRate float64 `json:"pitch_rate" yaml:"pitch_rate" mapstructure:"pitch_rate"` // degrees per second at full deflection
	RollRate  float64 `json:"roll_rate" yaml:"roll_rate" mapstructure:"roll_rate"`
	LeadAngle float64 `json:"lead_angle" yaml:"lead_angle" mapstructure:"lead_angle"` // max degrees the look direction may lead the nose
}

// TelemetryConfig controls the metrics and state HTTP surface.
type TelemetryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// envKeys lists the keys that can be overridden from the environment.
var envKeys = []string{
	"tick_rate",
	"render_rate",
	"preset",
	"control_mode",
	"log_level",
	"spawn.altitude",
	"spawn.speed",
	"spawn.throttle",
	"physics.gravity",
	"cursor.sensitivity",
	"cursor.center_return_time",
	"cursor.invert_pitch",
	"telemetry.enabled",
	"telemetry.addr",
}

// DefaultConfig returns a default session configuration
func DefaultConfig() *SimConfig {
	return &SimConfig{
		TickRate:    60,
		RenderRate:  120,
		Preset:      "fighter",
		ControlMode: ControlModeKinematic,
		LogLevel:    "info",
		Spawn: SpawnConfig{
			Altitude: 1500,
			Speed:    80,
			Heading:  0,
			Throttle: 0.8,
		},
		Physics: PhysicsConfig{
			Mass:           1,
			Gravity:        9.81,
			GroundLevel:    0,
			AngularDamping: 2,
			Inertia:        1,
		},
		Cursor: CursorConfig{
			Sensitivity:       1.0,
			CenterReturnTime:  1.5,
			MaxRadius:         0,
			InputThreshold:    0.01,
			DeadZone:          0.03,
			ConfinementMargin: 10,
			WarmupTicks:       3,
			InvertPitch:       false,
		},
		Look: LookConfig{
			PitchRate: 120,
			RollRate:  200,
			LeadAngle: 60,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// LoadConfig loads a configuration from a file, layered over DefaultConfig
// and then FLIGHT_* environment variables. An empty path skips the file.
// The format follows the file extension (json, yaml, toml).
func LoadConfig(path string) (*SimConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves a configuration to a file. Files ending in .yaml or .yml
// are written as YAML, everything else as JSON.
func SaveConfig(config *SimConfig, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ResolveProfile returns the inline profile when present, otherwise the named preset.
func (c *SimConfig) ResolveProfile() (AerodynamicProfile, error) {
	if c.Profile != nil {
		return *c.Profile, nil
	}
	return GetPreset(c.Preset)
}

// TimeStep returns the fixed simulation step in seconds.
func (c *SimConfig) TimeStep() float64 {
	if c.TickRate <= 0 {
		return 1.0 / 60.0
	}
	return 1.0 / float64(c.TickRate)
}

// Validate checks the session configuration, including the resolved profile.
func (c *SimConfig) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %d", c.TickRate)
	}
	if c.RenderRate <= 0 {
		return fmt.Errorf("render_rate must be positive, got %d", c.RenderRate)
	}
	switch c.ControlMode {
	case ControlModeKinematic, ControlModePD:
	default:
		return fmt.Errorf("unknown control_mode %q", c.ControlMode)
	}
	if c.Physics.Mass <= 0 {
		return fmt.Errorf("physics.mass must be positive, got %g", c.Physics.Mass)
	}
	if c.Cursor.CenterReturnTime <= 0 || math.IsNaN(c.Cursor.CenterReturnTime) {
		return fmt.Errorf("cursor.center_return_time must be positive, got %g", c.Cursor.CenterReturnTime)
	}
	if c.Spawn.Throttle < 0 || c.Spawn.Throttle > 1 {
		return fmt.Errorf("spawn.throttle must be within [0,1], got %g", c.Spawn.Throttle)
	}

	profile, err := c.ResolveProfile()
	if err != nil {
		return err
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("preset %q: %w", c.Preset, err)
	}
	return nil
}
