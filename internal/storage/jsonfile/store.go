// Package jsonfile implements the Keepsake record store as a single JSON
// document on disk. It is the lightweight alternate backend for deployments
// that want no database dependency: the whole state tree is loaded at open
// and rewritten atomically (temp file + rename) on every mutation.
//
// Access is serialised behind one mutex; the caller model is a single
// UI-driven consumer, so contention is not a concern.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keepsake-app/keepsake/internal/storage"
	"github.com/keepsake-app/keepsake/pkg/types"
)

// Ensure *Store satisfies the full store contract at compile time.
var _ storage.Store = (*Store)(nil)

// document is the on-disk layout of the whole store.
type document struct {
	Memories    []types.Memory     `json:"memories"`
	Goals       []types.FocusGoal  `json:"goals"`
	Preferences *types.Preferences `json:"preferences,omitempty"`
}

// Store implements storage.Store on a single JSON file.
type Store struct {
	path string

	mu  sync.Mutex
	doc document
}

// Open loads (creating if needed) the JSON document at path.
// A missing file yields an empty store; the file is created on first write.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: jsonfile: read %s: %v", storage.ErrStorage, path, err)
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("%w: jsonfile: parse %s: %v", storage.ErrStorage, path, err)
	}
	return s, nil
}

// Close is a no-op: every mutation is already durable on return.
func (s *Store) Close() error {
	return nil
}

// persist writes the document atomically: marshal, write to a temp file in
// the same directory, fsync, rename over the target.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: jsonfile: marshal document: %v", storage.ErrStorage, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: jsonfile: mkdir %s: %v", storage.ErrStorage, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".keepsake-*.json")
	if err != nil {
		return fmt.Errorf("%w: jsonfile: create temp file: %v", storage.ErrStorage, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: jsonfile: write temp file: %v", storage.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: jsonfile: sync temp file: %v", storage.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: jsonfile: close temp file: %v", storage.ErrStorage, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: jsonfile: rename into place: %v", storage.ErrStorage, err)
	}
	return nil
}

// Add persists a new memory, assigning an ID when none is set.
func (s *Store) Add(ctx context.Context, memory *types.Memory) (string, error) {
	if memory == nil {
		return "", fmt.Errorf("%w: memory is required", storage.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := *memory
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.CreatedAt = m.CreatedAt.UTC()
	m.ViewCount = 0
	m.LastViewedAt = nil

	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	s.doc.Memories = append(s.doc.Memories, m)
	if err := s.persist(); err != nil {
		s.doc.Memories = s.doc.Memories[:len(s.doc.Memories)-1]
		return "", err
	}

	memory.ID = m.ID
	memory.CreatedAt = m.CreatedAt
	memory.ViewCount = 0
	memory.LastViewedAt = nil
	return m.ID, nil
}

// Get retrieves a memory by ID.
func (s *Store) Get(ctx context.Context, id string) (*types.Memory, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.doc.Memories {
		if s.doc.Memories[i].ID == id {
			m := s.doc.Memories[i]
			return &m, nil
		}
	}
	return nil, storage.ErrNotFound
}

// List retrieves memories ordered by created_at descending.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]types.Memory, error) {
	opts.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Memory
	for _, m := range s.doc.Memories {
		if opts.ContentType != "" && m.ContentType != opts.ContentType {
			continue
		}
		if !opts.CreatedAfter.IsZero() && m.CreatedAt.Before(opts.CreatedAfter) {
			continue
		}
		if !opts.CreatedBefore.IsZero() && !m.CreatedAt.Before(opts.CreatedBefore) {
			continue
		}
		out = append(out, m)
	}

	sortNewestFirst(out)

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Update applies a partial patch to an existing memory.
func (s *Store) Update(ctx context.Context, id string, patch storage.MemoryUpdate) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrValidation)
	}
	if patch.IsEmpty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return storage.ErrNotFound
	}

	prev := s.doc.Memories[idx]
	m := &s.doc.Memories[idx]
	if patch.Content != nil {
		m.Content = *patch.Content
	}
	if patch.FocusTags != nil {
		m.FocusTags = *patch.FocusTags
	}
	if patch.LocationName != nil {
		m.LocationName = *patch.LocationName
	}
	if patch.LinkTitle != nil {
		m.LinkTitle = *patch.LinkTitle
	}
	if patch.LinkPreview != nil {
		m.LinkPreview = *patch.LinkPreview
	}

	if err := s.persist(); err != nil {
		s.doc.Memories[idx] = prev
		return err
	}
	return nil
}

// Delete removes a memory by ID. Deleting an absent ID is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}

	prev := s.doc.Memories
	s.doc.Memories = append(append([]types.Memory{}, prev[:idx]...), prev[idx+1:]...)
	if err := s.persist(); err != nil {
		s.doc.Memories = prev
		return err
	}
	return nil
}

// IncrementViewCount increments view_count and sets last_viewed_at to now.
func (s *Store) IncrementViewCount(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return storage.ErrNotFound
	}

	prev := s.doc.Memories[idx]
	now := time.Now().UTC()
	s.doc.Memories[idx].ViewCount++
	s.doc.Memories[idx].LastViewedAt = &now

	if err := s.persist(); err != nil {
		s.doc.Memories[idx] = prev
		return err
	}
	return nil
}

// Count returns the total number of memories.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.Memories), nil
}

// CountOnDate counts memories captured on the calendar date of day.
func (s *Store) CountOnDate(ctx context.Context, day time.Time) (int, error) {
	start, end := dayBounds(day)

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, m := range s.doc.Memories {
		if !m.CreatedAt.Before(start) && m.CreatedAt.Before(end) {
			count++
		}
	}
	return count, nil
}

// ListOnDate returns up to limit memories captured on the calendar date of day.
func (s *Store) ListOnDate(ctx context.Context, day time.Time, limit int) ([]types.Memory, error) {
	start, end := dayBounds(day)
	return s.List(ctx, storage.ListOptions{
		CreatedAfter:  start,
		CreatedBefore: end,
		Limit:         limit,
	})
}

// ListMostViewed returns up to limit memories with view_count > 0,
// ordered by view count descending.
func (s *Store) ListMostViewed(ctx context.Context, limit int) ([]types.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Memory
	for _, m := range s.doc.Memories {
		if m.ViewCount > 0 {
			out = append(out, m)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ViewCount != out[j].ViewCount {
			return out[i].ViewCount > out[j].ViewCount
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListRecent returns up to limit memories, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]types.Memory, error) {
	return s.List(ctx, storage.ListOptions{Limit: limit})
}

// ListGoals returns all focus goals, newest first.
func (s *Store) ListGoals(ctx context.Context) ([]types.FocusGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]types.FocusGoal{}, s.doc.Goals...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AddGoal creates a new inactive goal.
func (s *Store) AddGoal(ctx context.Context, name string) (*types.FocusGoal, error) {
	goal := types.FocusGoal{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		IsActive:  false,
		CreatedAt: time.Now().UTC(),
	}
	if err := goal.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Goals = append(s.doc.Goals, goal)
	if err := s.persist(); err != nil {
		s.doc.Goals = s.doc.Goals[:len(s.doc.Goals)-1]
		return nil, err
	}
	return &goal, nil
}

// SetActiveGoal activates id and deactivates every other goal. The change is
// applied to the in-memory tree first and persisted as one write, so a
// reader never observes two active goals; on a missing id nothing changes.
func (s *Store) SetActiveGoal(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		found := false
		for i := range s.doc.Goals {
			if s.doc.Goals[i].ID == id {
				found = true
				break
			}
		}
		if !found {
			return storage.ErrNotFound
		}
	}

	prev := append([]types.FocusGoal{}, s.doc.Goals...)
	for i := range s.doc.Goals {
		s.doc.Goals[i].IsActive = s.doc.Goals[i].ID == id && id != ""
	}

	if err := s.persist(); err != nil {
		s.doc.Goals = prev
		return err
	}
	return nil
}

// ActiveGoal returns the currently active goal, or nil when none is active.
func (s *Store) ActiveGoal(ctx context.Context) (*types.FocusGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.doc.Goals {
		if s.doc.Goals[i].IsActive {
			g := s.doc.Goals[i]
			return &g, nil
		}
	}
	return nil, nil
}

// DeleteGoal removes a goal. Deleting an absent ID is not an error.
func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: goal ID is required", storage.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.doc.Goals {
		if s.doc.Goals[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	prev := s.doc.Goals
	s.doc.Goals = append(append([]types.FocusGoal{}, prev[:idx]...), prev[idx+1:]...)
	if err := s.persist(); err != nil {
		s.doc.Goals = prev
		return err
	}
	return nil
}

// GetPreferences returns the singleton, creating the defaults when absent.
func (s *Store) GetPreferences(ctx context.Context) (*types.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.Preferences == nil {
		defaults := types.DefaultPreferences()
		s.doc.Preferences = &defaults
		if err := s.persist(); err != nil {
			s.doc.Preferences = nil
			return nil, err
		}
	}

	p := *s.doc.Preferences
	return &p, nil
}

// UpdatePreferences merges a partial patch into the singleton.
func (s *Store) UpdatePreferences(ctx context.Context, patch storage.PreferencesUpdate) (*types.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.Preferences == nil {
		defaults := types.DefaultPreferences()
		s.doc.Preferences = &defaults
	}

	merged := *s.doc.Preferences
	if patch.IsEmpty() {
		return &merged, nil
	}

	if err := patch.Apply(&merged); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	prev := s.doc.Preferences
	s.doc.Preferences = &merged
	if err := s.persist(); err != nil {
		s.doc.Preferences = prev
		return nil, err
	}

	out := merged
	return &out, nil
}

// indexOf finds a memory by id. Caller holds s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.doc.Memories {
		if s.doc.Memories[i].ID == id {
			return i
		}
	}
	return -1
}

// sortNewestFirst orders memories by created_at descending, stable so that
// equal timestamps keep their insertion order.
func sortNewestFirst(memories []types.Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].CreatedAt.After(memories[j].CreatedAt)
	})
}

// dayBounds returns the [start, end) UTC instants covering the calendar date
// of day in day's own location.
func dayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
