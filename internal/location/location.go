// Package location abstracts where-am-I lookups for memory capture. The real
// position source is platform specific and lives outside this module; here we
// define the contract, the permission sentinel, and the preference gate the
// capture flow relies on.
package location

import (
	"context"
	"errors"

	"github.com/keepsake-app/keepsake/pkg/types"
)

// ErrPermissionDenied is returned when the position source exists but the
// user has not granted access to it. Callers degrade to capturing without
// coordinates.
var ErrPermissionDenied = errors.New("location permission denied")

// ErrUnavailable is returned when no position source is configured.
var ErrUnavailable = errors.New("location unavailable")

// Position is a resolved capture location.
type Position struct {
	Latitude  float64
	Longitude float64
	Name      string
}

// Provider supplies the current position.
type Provider interface {
	Current(ctx context.Context) (*Position, error)
}

// Resolve returns the current position only when the user preference allows
// location capture. A nil provider, a disabled preference, or a permission
// denial all yield (nil, nil): absence of location is never a capture error.
func Resolve(ctx context.Context, provider Provider, prefs *types.Preferences) (*Position, error) {
	if provider == nil {
		return nil, nil
	}
	if prefs == nil || !prefs.LocationEnabled {
		return nil, nil
	}

	pos, err := provider.Current(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrUnavailable) {
			return nil, nil
		}
		return nil, err
	}
	return pos, nil
}

// StaticProvider always reports the same position. Used for tests and for
// CLI capture where the machine's location is configured once.
type StaticProvider struct {
	Position Position
}

// Current implements Provider.
func (p *StaticProvider) Current(ctx context.Context) (*Position, error) {
	pos := p.Position
	return &pos, nil
}

// DeniedProvider always reports a permission denial. Used in tests to cover
// the degradation path.
type DeniedProvider struct{}

// Current implements Provider.
func (DeniedProvider) Current(ctx context.Context) (*Position, error) {
	return nil, ErrPermissionDenied
}
