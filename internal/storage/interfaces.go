// Package storage provides composable storage interfaces for the Keepsake system.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. Two backends exist:
// an on-device SQLite database (internal/storage/sqlite) and a single-file
// JSON document (internal/storage/jsonfile). Both satisfy Store.
package storage

import (
	"context"
	"time"

	"github.com/keepsake-app/keepsake/pkg/types"
)

// MemoryStore provides CRUD and aggregate queries for memory records.
type MemoryStore interface {
	// Add persists a new memory. When the ID is empty one is assigned.
	// ViewCount starts at zero and CreatedAt defaults to now when unset.
	// Returns the stored ID, or ErrValidation when the record fails
	// Memory.Validate.
	Add(ctx context.Context, memory *types.Memory) (string, error)

	// Get retrieves a memory by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*types.Memory, error)

	// List retrieves memories ordered by created_at descending.
	// An empty result is a nil or empty slice, never an error.
	List(ctx context.Context, opts ListOptions) ([]types.Memory, error)

	// Update applies a partial patch to an existing memory.
	// An empty patch is a no-op. Returns ErrNotFound if the ID is absent.
	Update(ctx context.Context, id string, patch MemoryUpdate) error

	// Delete removes a memory by ID. Idempotent: deleting an absent ID
	// is not an error.
	Delete(ctx context.Context, id string) error

	// IncrementViewCount atomically increments view_count and sets
	// last_viewed_at to now. Returns ErrNotFound if the ID is absent.
	IncrementViewCount(ctx context.Context, id string) error

	// Count returns the total number of memories.
	Count(ctx context.Context) (int, error)

	// CountOnDate returns the number of memories whose created_at falls on
	// the calendar date of day, in day's location.
	CountOnDate(ctx context.Context, day time.Time) (int, error)

	// ListOnDate returns up to limit memories captured on the calendar date
	// of day, newest first.
	ListOnDate(ctx context.Context, day time.Time, limit int) ([]types.Memory, error)

	// ListMostViewed returns up to limit memories with view_count > 0,
	// ordered by view count descending.
	ListMostViewed(ctx context.Context, limit int) ([]types.Memory, error)

	// ListRecent returns up to limit memories, newest first.
	ListRecent(ctx context.Context, limit int) ([]types.Memory, error)
}

// GoalStore manages focus goals and the single-active-goal invariant.
type GoalStore interface {
	// ListGoals returns all goals ordered by created_at descending.
	ListGoals(ctx context.Context) ([]types.FocusGoal, error)

	// AddGoal creates a new inactive goal with the given name.
	// Returns ErrValidation when the name is blank.
	AddGoal(ctx context.Context, name string) (*types.FocusGoal, error)

	// SetActiveGoal activates the goal with the given ID and deactivates
	// every other goal in the same logical transaction: a concurrent reader
	// never observes two active goals. An empty ID clears the active goal.
	// Returns ErrNotFound when the ID is absent; the previously active
	// goal, if any, keeps its active state in that case.
	SetActiveGoal(ctx context.Context, id string) error

	// ActiveGoal returns the currently active goal, or nil when none is.
	ActiveGoal(ctx context.Context) (*types.FocusGoal, error)

	// DeleteGoal removes a goal by ID. Idempotent.
	DeleteGoal(ctx context.Context, id string) error
}

// PreferenceStore manages the singleton preferences record.
type PreferenceStore interface {
	// GetPreferences returns the singleton, creating the defaults when the
	// record does not exist yet.
	GetPreferences(ctx context.Context) (*types.Preferences, error)

	// UpdatePreferences merges a partial patch into the singleton.
	// An empty patch is a no-op. Returns ErrValidation when the merged
	// record fails Preferences.Validate.
	UpdatePreferences(ctx context.Context, patch PreferencesUpdate) (*types.Preferences, error)
}

// Store is the full record store: everything the capture service and the
// HTTP surface need from persistence.
type Store interface {
	MemoryStore
	GoalStore
	PreferenceStore

	// Close releases any resources held by the store.
	Close() error
}
