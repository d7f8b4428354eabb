package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepsake-app/keepsake/internal/location"
	"github.com/keepsake-app/keepsake/internal/notify"
	"github.com/keepsake-app/keepsake/internal/preview"
	"github.com/keepsake-app/keepsake/internal/storage"
	"github.com/keepsake-app/keepsake/internal/storage/sqlite"
	"github.com/keepsake-app/keepsake/pkg/types"
)

type fakeFetcher struct {
	meta *preview.Metadata
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*preview.Metadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.meta, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(eventType, memoryID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
	return nil
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.events...)
}

func newTestService(t *testing.T, fetcher MetadataFetcher, provider location.Provider) (*CaptureService, *recordingNotifier) {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	notifier := &recordingNotifier{}
	return NewCaptureService(store, fetcher, provider, notifier), notifier
}

func TestAddMemoryText(t *testing.T) {
	svc, notifier := newTestService(t, nil, nil)

	m, err := svc.AddMemory(context.Background(), &types.Memory{
		Content:     "walked along the canal",
		ContentType: types.ContentText,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, []string{notify.EventMemoryCreated}, notifier.all())
}

func TestAddMemoryFillsLinkMetadata(t *testing.T) {
	fetcher := &fakeFetcher{meta: &preview.Metadata{
		Title:       "Slow mornings",
		Description: "An essay on unhurried starts",
	}}
	svc, _ := newTestService(t, fetcher, nil)

	m, err := svc.AddMemory(context.Background(), &types.Memory{
		ContentType: types.ContentLink,
		LinkURL:     "https://example.com/slow-mornings",
	})
	require.NoError(t, err)
	assert.Equal(t, "Slow mornings", m.LinkTitle)
	assert.Equal(t, "An essay on unhurried starts", m.LinkPreview)
}

func TestAddMemoryDegradesWhenPreviewFails(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream down")}
	svc, _ := newTestService(t, fetcher, nil)

	m, err := svc.AddMemory(context.Background(), &types.Memory{
		ContentType: types.ContentLink,
		LinkURL:     "https://example.com/essay",
	})
	require.NoError(t, err)
	assert.Empty(t, m.LinkTitle)
	assert.Empty(t, m.LinkPreview)

	got, err := svc.GetMemory(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/essay", got.LinkURL)
}

func TestAddMemoryKeepsCallerLinkTitle(t *testing.T) {
	fetcher := &fakeFetcher{meta: &preview.Metadata{Title: "Fetched title"}}
	svc, _ := newTestService(t, fetcher, nil)

	m, err := svc.AddMemory(context.Background(), &types.Memory{
		ContentType: types.ContentLink,
		LinkURL:     "https://example.com/essay",
		LinkTitle:   "My own title",
	})
	require.NoError(t, err)
	assert.Equal(t, "My own title", m.LinkTitle)
}

func TestAddMemoryAttachesLocationWhenEnabled(t *testing.T) {
	provider := &location.StaticProvider{Position: location.Position{
		Latitude:  52.52,
		Longitude: 13.405,
		Name:      "Berlin",
	}}
	svc, _ := newTestService(t, nil, provider)
	ctx := context.Background()

	// Location capture is off by default.
	m, err := svc.AddMemory(ctx, &types.Memory{Content: "no location", ContentType: types.ContentText})
	require.NoError(t, err)
	assert.Nil(t, m.Latitude)

	enabled := true
	_, err = svc.UpdatePreferences(ctx, storage.PreferencesUpdate{LocationEnabled: &enabled})
	require.NoError(t, err)

	m, err = svc.AddMemory(ctx, &types.Memory{Content: "with location", ContentType: types.ContentText})
	require.NoError(t, err)
	require.NotNil(t, m.Latitude)
	assert.Equal(t, 52.52, *m.Latitude)
	assert.Equal(t, "Berlin", m.LocationName)
}

func TestAddMemoryDegradesOnLocationDenial(t *testing.T) {
	svc, _ := newTestService(t, nil, location.DeniedProvider{})
	ctx := context.Background()

	enabled := true
	_, err := svc.UpdatePreferences(ctx, storage.PreferencesUpdate{LocationEnabled: &enabled})
	require.NoError(t, err)

	m, err := svc.AddMemory(ctx, &types.Memory{Content: "still saved", ContentType: types.ContentText})
	require.NoError(t, err)
	assert.Nil(t, m.Latitude)
	assert.Nil(t, m.Longitude)
}

func TestRecordViewFeedsEveningSuggestions(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	a, err := svc.AddMemory(ctx, &types.Memory{Content: "often revisited", ContentType: types.ContentText})
	require.NoError(t, err)
	_, err = svc.AddMemory(ctx, &types.Memory{Content: "seen once", ContentType: types.ContentText})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RecordView(ctx, a.ID))
	}

	evening := time.Date(2024, 6, 12, 20, 0, 0, 0, time.UTC)
	got, err := svc.Suggestions(ctx, evening)
	require.NoError(t, err)
	assert.Equal(t, "evening-favorites", got.Reason)
	require.NotEmpty(t, got.Memories)
	assert.Equal(t, a.ID, got.Memories[0].ID)
}

func TestTimelineGroupsByDay(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.AddMemory(ctx, &types.Memory{Content: "today", ContentType: types.ContentText})
	require.NoError(t, err)
	_, err = svc.AddMemory(ctx, &types.Memory{
		Content:     "yesterday",
		ContentType: types.ContentText,
		CreatedAt:   now.AddDate(0, 0, -1),
	})
	require.NoError(t, err)

	groups, err := svc.Timeline(ctx, now)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Today", groups[0].Label)
	assert.Equal(t, "Yesterday", groups[1].Label)
}

func TestFocusTimelineFiltersByActiveGoal(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.AddMemory(ctx, &types.Memory{Content: "standup notes for work", ContentType: types.ContentText})
	require.NoError(t, err)
	_, err = svc.AddMemory(ctx, &types.Memory{Content: "grocery list", ContentType: types.ContentText})
	require.NoError(t, err)

	goal, err := svc.AddGoal(ctx, "Work Travel")
	require.NoError(t, err)
	require.NoError(t, svc.SetActiveGoal(ctx, goal.ID))

	groups, active, err := svc.FocusTimeline(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, goal.ID, active.ID)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Memories, 1)
	assert.Equal(t, "standup notes for work", groups[0].Memories[0].Content)

	// Clearing the goal restores the full timeline.
	require.NoError(t, svc.SetActiveGoal(ctx, ""))
	groups, active, err = svc.FocusTimeline(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, active)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Memories, 2)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.AddMemory(ctx, &types.Memory{Content: "today", ContentType: types.ContentText})
	require.NoError(t, err)
	_, err = svc.AddMemory(ctx, &types.Memory{
		Content:     "last month",
		ContentType: types.ContentText,
		CreatedAt:   now.AddDate(0, -1, 0),
	})
	require.NoError(t, err)

	total, today, err := svc.Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, today)
}

func TestNotifierEventsAcrossOperations(t *testing.T) {
	svc, notifier := newTestService(t, nil, nil)
	ctx := context.Background()

	m, err := svc.AddMemory(ctx, &types.Memory{Content: "note", ContentType: types.ContentText})
	require.NoError(t, err)

	content := "edited note"
	require.NoError(t, svc.UpdateMemory(ctx, m.ID, storage.MemoryUpdate{Content: &content}))
	require.NoError(t, svc.DeleteMemory(ctx, m.ID))

	assert.Equal(t, []string{
		notify.EventMemoryCreated,
		notify.EventMemoryUpdated,
		notify.EventMemoryDeleted,
	}, notifier.all())
}
