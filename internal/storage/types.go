package storage

import (
	"errors"
	"time"

	"github.com/keepsake-app/keepsake/pkg/types"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrValidation indicates that the input failed domain validation
	// (empty required content, unknown content type, mismatched field group).
	ErrValidation = errors.New("invalid input")

	// ErrPermissionDenied indicates an external collaborator (location,
	// media) refused access. Callers degrade gracefully: the capture
	// proceeds without the optional data.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStorage indicates a fatal I/O or database failure. There is no
	// retry policy: the store is local and failures are not expected to be
	// transient in a recoverable way.
	ErrStorage = errors.New("storage failure")
)

// ListOptions provides filtering and limiting for memory list operations.
// Ordering is always created_at descending, the timeline ordering every
// derived view builds on.
type ListOptions struct {
	// ContentType filters by capture type. Empty means no filter.
	ContentType types.ContentType

	// CreatedAfter filters to memories created at or after this time.
	// Zero value means no lower bound.
	CreatedAfter time.Time

	// CreatedBefore filters to memories created strictly before this time.
	// Zero value means no upper bound.
	CreatedBefore time.Time

	// Limit is the maximum number of records to return. Zero or negative
	// means no limit.
	Limit int
}

// Normalize applies defaults and clamps the ListOptions.
// An unknown ContentType is kept as-is: it simply matches nothing.
func (o *ListOptions) Normalize() {
	if o.Limit < 0 {
		o.Limit = 0
	}
}

// MemoryUpdate is a partial-field patch for an existing memory.
// Nil fields are left untouched. CreatedAt, ContentType, and the view
// counters are immutable through this path.
type MemoryUpdate struct {
	Content      *string
	FocusTags    *string
	LocationName *string
	LinkTitle    *string
	LinkPreview  *string
}

// IsEmpty reports whether the patch changes nothing. Updating with an empty
// patch is a no-op by contract.
func (u MemoryUpdate) IsEmpty() bool {
	return u.Content == nil &&
		u.FocusTags == nil &&
		u.LocationName == nil &&
		u.LinkTitle == nil &&
		u.LinkPreview == nil
}

// PreferencesUpdate is a partial-field patch merged into the singleton
// preferences record. Nil fields are left untouched.
type PreferencesUpdate struct {
	DisplayName     *string
	AvatarIndex     *int
	ThemeMode       *types.ThemeMode
	LocationEnabled *bool
}

// IsEmpty reports whether the patch changes nothing.
func (u PreferencesUpdate) IsEmpty() bool {
	return u.DisplayName == nil &&
		u.AvatarIndex == nil &&
		u.ThemeMode == nil &&
		u.LocationEnabled == nil
}

// Apply merges the patch into p and validates the result.
func (u PreferencesUpdate) Apply(p *types.Preferences) error {
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.AvatarIndex != nil {
		p.AvatarIndex = *u.AvatarIndex
	}
	if u.ThemeMode != nil {
		p.ThemeMode = *u.ThemeMode
	}
	if u.LocationEnabled != nil {
		p.LocationEnabled = *u.LocationEnabled
	}
	return p.Validate()
}
