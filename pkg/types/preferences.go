package types

import "fmt"

// ThemeMode selects how the UI shell resolves its color scheme.
type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
	ThemeAuto  ThemeMode = "auto"
)

// AvatarPresetCount is the size of the fixed avatar preset list the UI ships.
const AvatarPresetCount = 3

// Preferences is the singleton per-installation settings record.
// Exactly one exists; reading it creates the defaults when absent.
type Preferences struct {
	DisplayName     string    `json:"display_name"`
	AvatarIndex     int       `json:"avatar_index"`
	ThemeMode       ThemeMode `json:"theme_mode"`
	LocationEnabled bool      `json:"location_enabled"`
}

// DefaultPreferences returns the out-of-the-box preferences record.
func DefaultPreferences() Preferences {
	return Preferences{
		DisplayName:     "User",
		AvatarIndex:     0,
		ThemeMode:       ThemeAuto,
		LocationEnabled: false,
	}
}

// IsValidThemeMode reports whether m is a recognized theme mode.
func IsValidThemeMode(m ThemeMode) bool {
	switch m {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	}
	return false
}

// Validate checks preference bounds.
func (p *Preferences) Validate() error {
	if p.DisplayName == "" {
		return fmt.Errorf("display name is required")
	}
	if p.AvatarIndex < 0 || p.AvatarIndex >= AvatarPresetCount {
		return fmt.Errorf("avatar index out of range: %d", p.AvatarIndex)
	}
	if !IsValidThemeMode(p.ThemeMode) {
		return fmt.Errorf("invalid theme mode: %q", p.ThemeMode)
	}
	return nil
}
