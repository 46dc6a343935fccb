package domain

import (
	"context"
	"time"
)

// EventType is the category of an analytics event.
type EventType string

const (
	EventStart  EventType = "start"
	EventChoice EventType = "choice"
	EventEnding EventType = "ending"
)

// AnalyticsEvent is a best-effort lifecycle record sent to an analytics collector.
type AnalyticsEvent struct {
	StoryID   string         `json:"story_id"`
	SessionID string         `json:"session_id,omitempty"`
	Type      EventType      `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// SessionEvent describes a start, restart or ending of a session.
type SessionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	StoryID   string    `json:"story_id"`
	NodeID    string    `json:"node_id"`
	Winning   bool      `json:"winning,omitempty"`
}

// ChoiceEvent describes a single applied choice.
type ChoiceEvent struct {
	Timestamp time.Time    `json:"timestamp"`
	SessionID string       `json:"session_id"`
	StoryID   string       `json:"story_id"`
	Record    ChoiceRecord `json:"record"`
}

// PersistenceEvent describes the outcome of a save or load round trip.
type PersistenceEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
	StoryID    string    `json:"story_id"`
	SaveID     string    `json:"save_id,omitempty"`
	AutoSave   bool      `json:"auto_save,omitempty"`
	Generation uint64    `json:"generation"`
	Stale      bool      `json:"stale,omitempty"`   // Response dropped
	Skipped    bool      `json:"skipped,omitempty"` // Tick skipped, no request issued
	Err        error     `json:"-"`
}

// LifecycleHooks defines callbacks for session observability.
// Hooks run synchronously after the session lock is released.
type LifecycleHooks struct {
	OnStart  func(context.Context, *SessionEvent)
	OnChoice func(context.Context, *ChoiceEvent)
	OnEnding func(context.Context, *SessionEvent)
	OnSave   func(context.Context, *PersistenceEvent)
	OnLoad   func(context.Context, *PersistenceEvent)
}
