package domain

// SessionView is the externally visible projection of a session.
// Transports render it and stream diffs between successive views.
type SessionView struct {
	SessionID       string         `json:"session_id"`
	StoryID         string         `json:"story_id"`
	Status          Status         `json:"status"`
	CurrentNodeID   string         `json:"current_node_id,omitempty"`
	Node            *StoryNode     `json:"node,omitempty"`
	VisitedNodeIDs  []string       `json:"nodes_visited"`
	ChoiceHistory   []ChoiceRecord `json:"choices_made"`
	PlayTimeMinutes int            `json:"play_time_minutes"`
	AutoSaveEnabled bool           `json:"auto_save_enabled"`
	Busy            bool           `json:"busy"`
	LastSaveID      string         `json:"last_save_id,omitempty"`
}

// ViewDiff represents the changes between two session views.
// It is designed to be serialized to JSON for partial updates on the client.
type ViewDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentNodeID   *string `json:"current_node_id,omitempty"`
	Status          *Status `json:"status,omitempty"`
	AutoSaveEnabled *bool   `json:"auto_save_enabled,omitempty"`
	Busy            *bool   `json:"busy,omitempty"`
	LastSaveID      *string `json:"last_save_id,omitempty"`

	// History carries appended entries, or the full lists when the history
	// was replaced (restart or load).
	History *HistoryDelta `json:"history,omitempty"`
}

// HistoryDelta represents changes to the visited and choice histories.
type HistoryDelta struct {
	Reset   bool           `json:"reset,omitempty"`
	Visited []string       `json:"visited"`
	Choices []ChoiceRecord `json:"choices"`
}

// Diff calculates the difference between oldView and newView.
// If oldView is nil, it returns a diff representing the entire newView.
// It returns nil when nothing changed.
func Diff(oldView, newView *SessionView) *ViewDiff {
	if newView == nil {
		return nil
	}

	diff := &ViewDiff{SessionID: newView.SessionID}

	if oldView == nil || oldView.CurrentNodeID != newView.CurrentNodeID {
		diff.CurrentNodeID = &newView.CurrentNodeID
	}
	if oldView == nil || oldView.Status != newView.Status {
		diff.Status = &newView.Status
	}
	if oldView == nil || oldView.AutoSaveEnabled != newView.AutoSaveEnabled {
		diff.AutoSaveEnabled = &newView.AutoSaveEnabled
	}
	if oldView == nil || oldView.Busy != newView.Busy {
		diff.Busy = &newView.Busy
	}
	if oldView == nil || oldView.LastSaveID != newView.LastSaveID {
		if oldView != nil || newView.LastSaveID != "" {
			diff.LastSaveID = &newView.LastSaveID
		}
	}

	diff.History = diffHistory(oldView, newView)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// diffHistory sends only appended entries while the old history is a prefix
// of the new one, and the full lists otherwise.
func diffHistory(old, new *SessionView) *HistoryDelta {
	if old == nil {
		if len(new.VisitedNodeIDs) == 0 {
			return nil
		}
		return &HistoryDelta{Reset: true, Visited: new.VisitedNodeIDs, Choices: new.ChoiceHistory}
	}

	if isPrefix(old.VisitedNodeIDs, new.VisitedNodeIDs) && len(old.ChoiceHistory) <= len(new.ChoiceHistory) {
		if len(new.VisitedNodeIDs) == len(old.VisitedNodeIDs) {
			return nil
		}
		return &HistoryDelta{
			Visited: new.VisitedNodeIDs[len(old.VisitedNodeIDs):],
			Choices: new.ChoiceHistory[len(old.ChoiceHistory):],
		}
	}

	return &HistoryDelta{Reset: true, Visited: new.VisitedNodeIDs, Choices: new.ChoiceHistory}
}

func isPrefix(prefix, full []string) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i := range prefix {
		if prefix[i] != full[i] {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ViewDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Status == nil &&
		d.AutoSaveEnabled == nil &&
		d.Busy == nil &&
		d.LastSaveID == nil &&
		d.History == nil
}
