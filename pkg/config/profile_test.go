package config

import (
	"errors"
	"math"
	"testing"
)

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			profile, err := GetPreset(name)
			if err != nil {
				t.Fatalf("GetPreset(%q) failed: %v", name, err)
			}
			if err := profile.Validate(); err != nil {
				t.Errorf("preset %q invalid: %v", name, err)
			}
		})
	}
}

func TestGetPreset_Unknown(t *testing.T) {
	_, err := GetPreset("blimp")
	if !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestListPresets_ReturnsCopy(t *testing.T) {
	list := ListPresets()
	delete(list, "fighter")
	if _, err := GetPreset("fighter"); err != nil {
		t.Errorf("mutating ListPresets result changed the registry: %v", err)
	}
	expected := []string{"fighter", "glider", "trainer"}
	names := PresetNames()
	if len(names) != len(expected) {
		t.Fatalf("expected %d presets, got %d", len(expected), len(names))
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("PresetNames()[%d] = %q, expected %q", i, names[i], expected[i])
		}
	}
}

func TestAerodynamicProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *AerodynamicProfile)
		wantErr bool
	}{
		{name: "default", mutate: func(p *AerodynamicProfile) {}, wantErr: false},
		{name: "negative_rate", mutate: func(p *AerodynamicProfile) { p.PitchRate = -1 }, wantErr: true},
		{name: "stall_below_min_lift", mutate: func(p *AerodynamicProfile) { p.StallSpeed = p.MinLiftSpeed - 1 }, wantErr: true},
		{name: "stall_equals_min_lift", mutate: func(p *AerodynamicProfile) { p.StallSpeed = p.MinLiftSpeed }, wantErr: false},
		{name: "altitude_window_inverted", mutate: func(p *AerodynamicProfile) { p.AltitudeEffectStart = p.MaxAltitude }, wantErr: true},
		{name: "blend_above_one", mutate: func(p *AerodynamicProfile) { p.WorldLevelBlend = 1.5 }, wantErr: true},
		{name: "nan_coefficient", mutate: func(p *AerodynamicProfile) { p.LiftCoeff = math.NaN() }, wantErr: true},
		{name: "nan_blend", mutate: func(p *AerodynamicProfile) { p.WorldLevelBlend = math.NaN() }, wantErr: true},
		{name: "infinite_power", mutate: func(p *AerodynamicProfile) { p.EnginePower = math.Inf(1) }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProfile()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("expected ErrInvalidProfile, got %v", err)
			}
		})
	}
}
