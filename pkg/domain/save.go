package domain

import "time"

// AutoSaveName is the save name used by the auto-save task.
const AutoSaveName = "Auto Save"

// Snapshot is the point-in-time view of a session sent to a save store.
type Snapshot struct {
	StoryID         string         `json:"story_id"`
	CurrentNodeID   string         `json:"current_node_id"`
	SaveName        string         `json:"save_name"`
	ChoicesMade     []ChoiceRecord `json:"choices_made"`
	NodesVisited    []string       `json:"nodes_visited"`
	PlayTimeMinutes int            `json:"play_time_minutes"`
	IsAutoSave      bool           `json:"is_auto_save"`
}

// SavedGame is a Snapshot as persisted by a save store.
type SavedGame struct {
	ID              string         `json:"id"`
	StoryID         string         `json:"story_id"`
	SaveName        string         `json:"save_name"`
	CurrentNodeID   string         `json:"current_node_id"`
	ChoicesMade     []ChoiceRecord `json:"choices_made"`
	NodesVisited    []string       `json:"nodes_visited"`
	PlayTimeMinutes int            `json:"play_time_minutes"`
	IsAutoSave      bool           `json:"is_auto_save"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewSavedGame stamps a snapshot with an id and creation time.
func NewSavedGame(id string, snap Snapshot, now time.Time) *SavedGame {
	return &SavedGame{
		ID:              id,
		StoryID:         snap.StoryID,
		SaveName:        snap.SaveName,
		CurrentNodeID:   snap.CurrentNodeID,
		ChoicesMade:     append([]ChoiceRecord{}, snap.ChoicesMade...),
		NodesVisited:    append([]string{}, snap.NodesVisited...),
		PlayTimeMinutes: snap.PlayTimeMinutes,
		IsAutoSave:      snap.IsAutoSave,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Snapshot returns the restorable part of the save.
func (g *SavedGame) Snapshot() Snapshot {
	return Snapshot{
		StoryID:         g.StoryID,
		CurrentNodeID:   g.CurrentNodeID,
		SaveName:        g.SaveName,
		ChoicesMade:     append([]ChoiceRecord{}, g.ChoicesMade...),
		NodesVisited:    append([]string{}, g.NodesVisited...),
		PlayTimeMinutes: g.PlayTimeMinutes,
		IsAutoSave:      g.IsAutoSave,
	}
}
