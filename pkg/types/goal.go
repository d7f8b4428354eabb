package types

import (
	"fmt"
	"strings"
	"time"
)

// FocusGoal is a user-defined label used to filter memories by keyword match.
// At most one goal may be active at a time; activating one deactivates the rest.
type FocusGoal struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks that the goal carries a usable name.
func (g *FocusGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("goal name is required")
	}
	return nil
}

// Keywords splits the goal name into lowercase whitespace-delimited keywords
// for focus filtering.
func (g *FocusGoal) Keywords() []string {
	return strings.Fields(strings.ToLower(g.Name))
}
