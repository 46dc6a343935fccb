package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
)

var _ ports.SaveStore = (*SaveStore)(nil)

// SaveStore implements ports.SaveStore against /saves.
// Auto-save replacement is done by the backend.
type SaveStore struct {
	client *Client
}

// NewSaveStore creates a save store over client.
func NewSaveStore(client *Client) *SaveStore {
	return &SaveStore{client: client}
}

type wireChoice struct {
	NodeID     wireID    `json:"node_id"`
	OptionText string    `json:"option_text"`
	NextNodeID wireID    `json:"next_node_id"`
	Timestamp  time.Time `json:"timestamp"`
}

type wireSave struct {
	ID              wireID       `json:"id,omitempty"`
	StoryID         wireID       `json:"story_id"`
	SaveName        string       `json:"save_name"`
	CurrentNodeID   wireID       `json:"current_node_id"`
	ChoicesMade     []wireChoice `json:"choices_made"`
	NodesVisited    []wireID     `json:"nodes_visited"`
	PlayTimeMinutes int          `json:"play_time_minutes"`
	IsAutoSave      bool         `json:"is_auto_save"`
	CreatedAt       *time.Time   `json:"created_at,omitempty"`
	UpdatedAt       *time.Time   `json:"updated_at,omitempty"`
}

func toWire(snap domain.Snapshot) wireSave {
	choices := make([]wireChoice, len(snap.ChoicesMade))
	for i, c := range snap.ChoicesMade {
		choices[i] = wireChoice{
			NodeID:     wireID(c.FromNodeID),
			OptionText: c.Text,
			NextNodeID: wireID(c.ToNodeID),
			Timestamp:  c.Timestamp,
		}
	}
	return wireSave{
		StoryID:         wireID(snap.StoryID),
		SaveName:        snap.SaveName,
		CurrentNodeID:   wireID(snap.CurrentNodeID),
		ChoicesMade:     choices,
		NodesVisited:    wireIDs(snap.NodesVisited),
		PlayTimeMinutes: snap.PlayTimeMinutes,
		IsAutoSave:      snap.IsAutoSave,
	}
}

func (w wireSave) domain() domain.SavedGame {
	choices := make([]domain.ChoiceRecord, len(w.ChoicesMade))
	for i, c := range w.ChoicesMade {
		choices[i] = domain.ChoiceRecord{
			FromNodeID: string(c.NodeID),
			Text:       c.OptionText,
			ToNodeID:   string(c.NextNodeID),
			Timestamp:  c.Timestamp,
		}
	}
	g := domain.SavedGame{
		ID:              string(w.ID),
		StoryID:         string(w.StoryID),
		SaveName:        w.SaveName,
		CurrentNodeID:   string(w.CurrentNodeID),
		ChoicesMade:     choices,
		NodesVisited:    plainIDs(w.NodesVisited),
		PlayTimeMinutes: w.PlayTimeMinutes,
		IsAutoSave:      w.IsAutoSave,
	}
	if w.CreatedAt != nil {
		g.CreatedAt = *w.CreatedAt
	}
	// updated_at is optional on the wire; it falls back to created_at.
	g.UpdatedAt = g.CreatedAt
	if w.UpdatedAt != nil {
		g.UpdatedAt = *w.UpdatedAt
	}
	return g
}

// Create posts a new save.
func (s *SaveStore) Create(ctx context.Context, snap domain.Snapshot) (*domain.SavedGame, error) {
	var out wireSave
	if err := s.client.do(ctx, http.MethodPost, "/saves/", toWire(snap), &out, nil); err != nil {
		return nil, err
	}
	g := out.domain()
	return &g, nil
}

// List fetches saves, optionally filtered by story. The backend orders them.
func (s *SaveStore) List(ctx context.Context, storyID string) ([]domain.SavedGame, error) {
	path := "/saves/"
	if storyID != "" {
		path += "?" + url.Values{"story_id": {storyID}}.Encode()
	}

	var out []wireSave
	if err := s.client.do(ctx, http.MethodGet, path, nil, &out, nil); err != nil {
		return nil, err
	}
	saves := make([]domain.SavedGame, len(out))
	for i, w := range out {
		saves[i] = w.domain()
	}
	return saves, nil
}

type continueResponse struct {
	SaveGame wireSave `json:"save_game"`
}

// Load fetches the save through the continue endpoint.
func (s *SaveStore) Load(ctx context.Context, saveID string) (*domain.SavedGame, error) {
	var out continueResponse
	notFound := fmt.Errorf("%w: %s", domain.ErrSaveNotFound, saveID)
	if err := s.client.do(ctx, http.MethodPost, "/saves/"+url.PathEscape(saveID)+"/load", nil, &out, notFound); err != nil {
		return nil, err
	}
	g := out.SaveGame.domain()
	return &g, nil
}

// Delete removes a save.
func (s *SaveStore) Delete(ctx context.Context, saveID string) error {
	notFound := fmt.Errorf("%w: %s", domain.ErrSaveNotFound, saveID)
	return s.client.do(ctx, http.MethodDelete, "/saves/"+url.PathEscape(saveID), nil, nil, notFound)
}
