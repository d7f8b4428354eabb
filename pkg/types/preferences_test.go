package types

import "testing"

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()

	if p.DisplayName != "User" {
		t.Errorf("DisplayName: got %q, want %q", p.DisplayName, "User")
	}
	if p.AvatarIndex != 0 {
		t.Errorf("AvatarIndex: got %d, want 0", p.AvatarIndex)
	}
	if p.ThemeMode != ThemeAuto {
		t.Errorf("ThemeMode: got %q, want %q", p.ThemeMode, ThemeAuto)
	}
	if p.LocationEnabled {
		t.Error("LocationEnabled: got true, want false")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestPreferencesValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Preferences)
		valid  bool
	}{
		{"defaults", func(p *Preferences) {}, true},
		{"dark theme", func(p *Preferences) { p.ThemeMode = ThemeDark }, true},
		{"last avatar preset", func(p *Preferences) { p.AvatarIndex = AvatarPresetCount - 1 }, true},
		{"empty display name", func(p *Preferences) { p.DisplayName = "" }, false},
		{"avatar index past presets", func(p *Preferences) { p.AvatarIndex = AvatarPresetCount }, false},
		{"negative avatar index", func(p *Preferences) { p.AvatarIndex = -1 }, false},
		{"bogus theme", func(p *Preferences) { p.ThemeMode = "sepia" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPreferences()
			tt.mutate(&p)
			err := p.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
