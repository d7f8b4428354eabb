package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keepsake-app/keepsake/internal/storage"
	"github.com/keepsake-app/keepsake/pkg/types"
)

// ListGoals returns all focus goals, newest first.
func (s *Store) ListGoals(ctx context.Context) ([]types.FocusGoal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, is_active, created_at FROM focus_goals ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: list goals: %v", storage.ErrStorage, err)
	}
	defer rows.Close()

	var goals []types.FocusGoal
	for rows.Next() {
		var g types.FocusGoal
		if err := rows.Scan(&g.ID, &g.Name, &g.IsActive, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: sqlite: scan goal: %v", storage.ErrStorage, err)
		}
		g.CreatedAt = g.CreatedAt.UTC()
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sqlite: iterate goals: %v", storage.ErrStorage, err)
	}
	return goals, nil
}

// AddGoal creates a new inactive goal.
func (s *Store) AddGoal(ctx context.Context, name string) (*types.FocusGoal, error) {
	goal := &types.FocusGoal{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		IsActive:  false,
		CreatedAt: time.Now().UTC(),
	}
	if err := goal.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO focus_goals (id, name, is_active, created_at) VALUES (?, ?, 0, ?)",
		goal.ID, goal.Name, goal.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: add goal: %v", storage.ErrStorage, err)
	}
	return goal, nil
}

// SetActiveGoal activates id and deactivates every other goal inside a single
// transaction, so a reader never observes two active goals. An empty id
// clears the active goal. If id is absent the transaction rolls back the
// activation but commits nothing, so the previous state stands.
func (s *Store) SetActiveGoal(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: sqlite: begin goal switch: %v", storage.ErrStorage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE focus_goals SET is_active = 0 WHERE is_active = 1"); err != nil {
		return fmt.Errorf("%w: sqlite: deactivate goals: %v", storage.ErrStorage, err)
	}

	if id != "" {
		result, err := tx.ExecContext(ctx, "UPDATE focus_goals SET is_active = 1 WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("%w: sqlite: activate goal: %v", storage.ErrStorage, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: sqlite: rows affected: %v", storage.ErrStorage, err)
		}
		if n == 0 {
			return storage.ErrNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: sqlite: commit goal switch: %v", storage.ErrStorage, err)
	}
	return nil
}

// ActiveGoal returns the currently active goal, or nil when none is active.
func (s *Store) ActiveGoal(ctx context.Context) (*types.FocusGoal, error) {
	var g types.FocusGoal
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, is_active, created_at FROM focus_goals WHERE is_active = 1 LIMIT 1").
		Scan(&g.ID, &g.Name, &g.IsActive, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: active goal: %v", storage.ErrStorage, err)
	}
	g.CreatedAt = g.CreatedAt.UTC()
	return &g, nil
}

// DeleteGoal removes a goal. Deleting an absent ID is not an error.
func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: goal ID is required", storage.ErrValidation)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM focus_goals WHERE id = ?", id); err != nil {
		return fmt.Errorf("%w: sqlite: delete goal: %v", storage.ErrStorage, err)
	}
	return nil
}
