package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/keepsake-app/keepsake/internal/storage"
	"github.com/keepsake-app/keepsake/pkg/types"
)

// GetPreferences returns the singleton preferences record, inserting the
// defaults when no row exists yet.
func (s *Store) GetPreferences(ctx context.Context) (*types.Preferences, error) {
	prefs, err := s.readPreferences(ctx)
	if err == nil {
		return prefs, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("%w: sqlite: get preferences: %v", storage.ErrStorage, err)
	}

	defaults := types.DefaultPreferences()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (id, display_name, avatar_index, theme_mode, location_enabled)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, defaults.DisplayName, defaults.AvatarIndex, defaults.ThemeMode, defaults.LocationEnabled)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: create default preferences: %v", storage.ErrStorage, err)
	}

	// Re-read in case another writer got there first.
	prefs, err = s.readPreferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: get preferences: %v", storage.ErrStorage, err)
	}
	return prefs, nil
}

// UpdatePreferences merges a partial patch into the singleton.
func (s *Store) UpdatePreferences(ctx context.Context, patch storage.PreferencesUpdate) (*types.Preferences, error) {
	prefs, err := s.GetPreferences(ctx)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return prefs, nil
	}

	if err := patch.Apply(prefs); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE user_preferences
		SET display_name = ?, avatar_index = ?, theme_mode = ?, location_enabled = ?
		WHERE id = 1
	`, prefs.DisplayName, prefs.AvatarIndex, prefs.ThemeMode, prefs.LocationEnabled)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: update preferences: %v", storage.ErrStorage, err)
	}
	return prefs, nil
}

func (s *Store) readPreferences(ctx context.Context) (*types.Preferences, error) {
	var p types.Preferences
	err := s.db.QueryRowContext(ctx, `
		SELECT display_name, avatar_index, theme_mode, location_enabled
		FROM user_preferences WHERE id = 1
	`).Scan(&p.DisplayName, &p.AvatarIndex, &p.ThemeMode, &p.LocationEnabled)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
