package domain

import (
	"time"
)

// Status is the position of a session in its lifecycle.
type Status string

const (
	StatusUninitialized Status = "uninitialized" // Before start or load
	StatusPlaying       Status = "playing"       // Choices accepted
	StatusEnding        Status = "ending"        // Terminal node reached
)

// ChoiceRecord is one entry of the append-only choice history.
type ChoiceRecord struct {
	FromNodeID string    `json:"node_id"`
	Text       string    `json:"option_text"`
	ToNodeID   string    `json:"next_node_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// State is the mutable core of a play session.
//
// Invariants once started:
//   - CurrentNodeID is a key of the active graph.
//   - VisitedNodeIDs[0] is the graph root.
//   - len(ChoiceHistory) == len(VisitedNodeIDs)-1.
type State struct {
	StoryID          string         `json:"story_id"`
	CurrentNodeID    string         `json:"current_node_id"`
	VisitedNodeIDs   []string       `json:"nodes_visited"`
	ChoiceHistory    []ChoiceRecord `json:"choices_made"`
	SessionStartedAt time.Time      `json:"session_started_at"`
	AutoSaveEnabled  bool           `json:"auto_save_enabled"`
	Status           Status         `json:"status"`
}

// NewState returns an uninitialized state.
func NewState(storyID string) *State {
	return &State{
		StoryID:        storyID,
		Status:         StatusUninitialized,
		VisitedNodeIDs: []string{},
		ChoiceHistory:  []ChoiceRecord{},
	}
}

// Started reports whether the session has a current node.
func (s *State) Started() bool {
	return s != nil && s.Status != StatusUninitialized && s.CurrentNodeID != ""
}

// Ended reports whether the session sits on a terminal node.
func (s *State) Ended() bool {
	return s != nil && s.Status == StatusEnding
}

// ElapsedMinutes is the floor of the minutes elapsed since SessionStartedAt.
func (s *State) ElapsedMinutes(now time.Time) int {
	if s == nil || s.SessionStartedAt.IsZero() {
		return 0
	}
	d := now.Sub(s.SessionStartedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// Clone returns a deep copy, so callers can never alias the engine's state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.VisitedNodeIDs = append([]string(nil), s.VisitedNodeIDs...)
	next.ChoiceHistory = append([]ChoiceRecord(nil), s.ChoiceHistory...)
	if next.VisitedNodeIDs == nil {
		next.VisitedNodeIDs = []string{}
	}
	if next.ChoiceHistory == nil {
		next.ChoiceHistory = []ChoiceRecord{}
	}
	return &next
}

// Snapshot captures the state for a save store.
func (s *State) Snapshot(saveName string, isAutoSave bool, now time.Time) Snapshot {
	c := s.Clone()
	return Snapshot{
		StoryID:         c.StoryID,
		CurrentNodeID:   c.CurrentNodeID,
		SaveName:        saveName,
		ChoicesMade:     c.ChoiceHistory,
		NodesVisited:    c.VisitedNodeIDs,
		PlayTimeMinutes: s.ElapsedMinutes(now),
		IsAutoSave:      isAutoSave,
	}
}
