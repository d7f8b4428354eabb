// Package services composes the record store with the external collaborators
// (link preview, location, cross-process notify) and the derived view engine.
// Handlers and CLIs talk to CaptureService, never to the store directly.
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/keepsake-app/keepsake/internal/location"
	"github.com/keepsake-app/keepsake/internal/notify"
	"github.com/keepsake-app/keepsake/internal/preview"
	"github.com/keepsake-app/keepsake/internal/storage"
	"github.com/keepsake-app/keepsake/internal/views"
	"github.com/keepsake-app/keepsake/pkg/types"
)

// timelineWindow caps how many records the derived views read from the
// store in one call.
const timelineWindow = 500

// MetadataFetcher retrieves link metadata. Satisfied by *preview.Fetcher.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) (*preview.Metadata, error)
}

// Notifier emits cross-process change events. Satisfied by
// *notify.EventWriter.
type Notifier interface {
	Notify(eventType, memoryID string) error
}

// CaptureService is the application core: every capture, view, and settings
// operation flows through it.
type CaptureService struct {
	store    storage.Store
	fetcher  MetadataFetcher
	provider location.Provider
	notifier Notifier
}

// NewCaptureService wires the service. fetcher, provider, and notifier may
// each be nil; the corresponding enrichment is skipped.
func NewCaptureService(store storage.Store, fetcher MetadataFetcher, provider location.Provider, notifier Notifier) *CaptureService {
	return &CaptureService{
		store:    store,
		fetcher:  fetcher,
		provider: provider,
		notifier: notifier,
	}
}

// AddMemory enriches and persists a new memory. Link memories get best-effort
// title and description metadata; coordinates are attached only when the
// location preference allows and the provider grants access. Neither
// enrichment failing ever fails the capture.
func (s *CaptureService) AddMemory(ctx context.Context, memory *types.Memory) (*types.Memory, error) {
	if memory == nil {
		return nil, fmt.Errorf("%w: memory is required", storage.ErrValidation)
	}

	if memory.ContentType == types.ContentLink && s.fetcher != nil && memory.LinkURL != "" {
		if meta, err := s.fetcher.Fetch(ctx, memory.LinkURL); err != nil {
			log.Printf("capture: link preview for %s: %v", memory.LinkURL, err)
		} else {
			if memory.LinkTitle == "" {
				memory.LinkTitle = meta.Title
			}
			if memory.LinkPreview == "" {
				memory.LinkPreview = meta.Description
			}
		}
	}

	if memory.Latitude == nil && memory.Longitude == nil {
		prefs, err := s.store.GetPreferences(ctx)
		if err != nil {
			return nil, err
		}
		pos, err := location.Resolve(ctx, s.provider, prefs)
		if err != nil {
			log.Printf("capture: location resolve: %v", err)
		} else if pos != nil {
			memory.Latitude = &pos.Latitude
			memory.Longitude = &pos.Longitude
			if memory.LocationName == "" {
				memory.LocationName = pos.Name
			}
		}
	}

	id, err := s.store.Add(ctx, memory)
	if err != nil {
		return nil, err
	}

	s.emit(notify.EventMemoryCreated, id)
	return memory, nil
}

// GetMemory retrieves a single memory.
func (s *CaptureService) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	return s.store.Get(ctx, id)
}

// ListMemories lists memories, newest first.
func (s *CaptureService) ListMemories(ctx context.Context, opts storage.ListOptions) ([]types.Memory, error) {
	return s.store.List(ctx, opts)
}

// UpdateMemory applies a partial patch.
func (s *CaptureService) UpdateMemory(ctx context.Context, id string, patch storage.MemoryUpdate) error {
	if err := s.store.Update(ctx, id, patch); err != nil {
		return err
	}
	s.emit(notify.EventMemoryUpdated, id)
	return nil
}

// DeleteMemory removes a memory.
func (s *CaptureService) DeleteMemory(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(notify.EventMemoryDeleted, id)
	return nil
}

// RecordView marks a memory as revisited, feeding the evening suggestions.
func (s *CaptureService) RecordView(ctx context.Context, id string) error {
	return s.store.IncrementViewCount(ctx, id)
}

// Timeline returns recent memories grouped by the calendar day they were
// captured on, in now's location.
func (s *CaptureService) Timeline(ctx context.Context, now time.Time) ([]views.DayGroup, error) {
	memories, err := s.store.ListRecent(ctx, timelineWindow)
	if err != nil {
		return nil, err
	}
	return views.GroupByDay(memories, now), nil
}

// Suggestions returns the time-of-day pick of memories to resurface.
func (s *CaptureService) Suggestions(ctx context.Context, now time.Time) (views.Suggestions, error) {
	memories, err := s.store.ListRecent(ctx, timelineWindow)
	if err != nil {
		return views.Suggestions{}, err
	}

	// Evening favorites rank by all-time view counts, which the recent
	// window may not cover.
	if now.Hour() >= 17 {
		favorites, err := s.store.ListMostViewed(ctx, timelineWindow)
		if err != nil {
			return views.Suggestions{}, err
		}
		if len(favorites) > 0 {
			memories = favorites
		}
	}

	return views.Suggest(memories, now), nil
}

// FocusTimeline returns the day-grouped timeline filtered to the active
// focus goal. With no active goal the unfiltered timeline comes back and
// the returned goal is nil.
func (s *CaptureService) FocusTimeline(ctx context.Context, now time.Time) ([]views.DayGroup, *types.FocusGoal, error) {
	goal, err := s.store.ActiveGoal(ctx)
	if err != nil {
		return nil, nil, err
	}

	memories, err := s.store.ListRecent(ctx, timelineWindow)
	if err != nil {
		return nil, nil, err
	}

	if goal != nil {
		memories = views.FilterByGoal(memories, goal.Name)
	}
	return views.GroupByDay(memories, now), goal, nil
}

// Stats reports the total number of memories and how many were captured on
// now's calendar day.
func (s *CaptureService) Stats(ctx context.Context, now time.Time) (total, today int, err error) {
	total, err = s.store.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	today, err = s.store.CountOnDate(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	return total, today, nil
}

// ListGoals lists all focus goals.
func (s *CaptureService) ListGoals(ctx context.Context) ([]types.FocusGoal, error) {
	return s.store.ListGoals(ctx)
}

// AddGoal creates a new focus goal.
func (s *CaptureService) AddGoal(ctx context.Context, name string) (*types.FocusGoal, error) {
	goal, err := s.store.AddGoal(ctx, name)
	if err != nil {
		return nil, err
	}
	s.emit(notify.EventGoalChanged, "")
	return goal, nil
}

// SetActiveGoal activates a goal, or clears the selection when id is empty.
func (s *CaptureService) SetActiveGoal(ctx context.Context, id string) error {
	if err := s.store.SetActiveGoal(ctx, id); err != nil {
		return err
	}
	s.emit(notify.EventGoalChanged, "")
	return nil
}

// ActiveGoal returns the active goal, nil when none.
func (s *CaptureService) ActiveGoal(ctx context.Context) (*types.FocusGoal, error) {
	return s.store.ActiveGoal(ctx)
}

// DeleteGoal removes a goal.
func (s *CaptureService) DeleteGoal(ctx context.Context, id string) error {
	if err := s.store.DeleteGoal(ctx, id); err != nil {
		return err
	}
	s.emit(notify.EventGoalChanged, "")
	return nil
}

// GetPreferences returns the user preferences, creating defaults if needed.
func (s *CaptureService) GetPreferences(ctx context.Context) (*types.Preferences, error) {
	return s.store.GetPreferences(ctx)
}

// UpdatePreferences merges a partial patch into the preferences.
func (s *CaptureService) UpdatePreferences(ctx context.Context, patch storage.PreferencesUpdate) (*types.Preferences, error) {
	prefs, err := s.store.UpdatePreferences(ctx, patch)
	if err != nil {
		return nil, err
	}
	s.emit(notify.EventPreferencesUpdated, "")
	return prefs, nil
}

// emit writes a notify event, logging rather than failing on error.
func (s *CaptureService) emit(eventType, memoryID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(eventType, memoryID); err != nil {
		log.Printf("capture: notify %s: %v", eventType, err)
	}
}
