package types

import "time"

// EventKind is the closed set of autosave trigger events.
type EventKind string

const (
	EventFocusGained     EventKind = "focus_gained"
	EventFocusLost       EventKind = "focus_lost"
	EventMovementStopped EventKind = "movement_stopped"
	EventContentChanged  EventKind = "content_changed"
	EventWindowClosed    EventKind = "window_closed"
	EventManualSave      EventKind = "manual_save"
	EventIntervalSave    EventKind = "interval_save"
)

// Event is one autosave trigger. WindowID is zero for the save kinds that
// carry no window affinity (manual-save, interval-save).
type Event struct {
	Kind     EventKind `json:"kind"`
	WindowID int       `json:"window_id,omitempty"`
	Position *Position `json:"position,omitempty"` // movement-stopped only
	Content  string    `json:"content,omitempty"`  // content-changed only
	Time     time.Time `json:"time"`
}

// SaveResult is the per-destination outcome of one processed event. The
// pipeline retains a bounded history of these for observability; failures
// are never retried and never surface as exceptions to the caller.
// WindowID and Position echo the triggering event so the history shows
// what provoked each save.
type SaveResult struct {
	ID          string    `json:"id"`
	Destination string    `json:"destination"`
	Event       EventKind `json:"event"`
	WindowID    int       `json:"window_id,omitempty"`
	Position    *Position `json:"position,omitempty"`
	Success     bool      `json:"success"`
	Location    string    `json:"location,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PipelineStats summarizes the autosave pipeline.
type PipelineStats struct {
	Queued       int        `json:"queued"`
	Processed    int64      `json:"processed"`
	Dropped      int64      `json:"dropped"` // filtered by policy
	LastSave     *time.Time `json:"last_save,omitempty"`
	Destinations []string   `json:"destinations"`
}
