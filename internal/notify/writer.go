// Package notify carries change signals between Keepsake processes through
// filesystem events. The importer and CLI write small JSON event files into
// a shared directory; the web process watches it and re-broadcasts over the
// websocket feed so an open timeline refreshes without polling.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Event types emitted by the capture flow.
const (
	EventMemoryCreated      = "memory_created"
	EventMemoryUpdated      = "memory_updated"
	EventMemoryDeleted      = "memory_deleted"
	EventGoalChanged        = "goal_changed"
	EventPreferencesUpdated = "preferences_updated"
)

// Event is the payload written to an event file.
type Event struct {
	Type     string `json:"type"`
	MemoryID string `json:"memory_id,omitempty"`
	Time     int64  `json:"time"`
}

// EventWriter writes notification event files to a shared directory.
type EventWriter struct {
	dir string
}

// NewEventWriter creates a writer that emits events to {dataPath}/events/.
func NewEventWriter(dataPath string) *EventWriter {
	return &EventWriter{dir: filepath.Join(dataPath, "events")}
}

// Notify writes an event file. The memory ID may be empty for events that
// concern goals or preferences. Safe to call concurrently; failures are
// returned for logging but capture never depends on them.
func (w *EventWriter) Notify(eventType, memoryID string) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("notify: mkdir %s: %w", w.dir, err)
	}
	evt := Event{
		Type:     eventType,
		MemoryID: memoryID,
		Time:     time.Now().UnixNano(),
	}
	data, _ := json.Marshal(evt)
	filename := fmt.Sprintf("%d-%s.event", evt.Time, sanitize(eventType+"-"+memoryID))
	return os.WriteFile(filepath.Join(w.dir, filename), data, 0o600)
}

// sanitize replaces characters unsafe for filenames.
func sanitize(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '/', ':', '\\', ' ':
			out[i] = '_'
		default:
			out[i] = s[i]
		}
	}
	return string(out)
}
