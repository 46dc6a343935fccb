package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/google/uuid"
)

// Store implements ports.SaveStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.SavedGame
	mu   sync.RWMutex
	now  func() time.Time
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.SavedGame),
		now:  time.Now,
	}
}

// Create persists the snapshot in memory.
// An auto-save replaces the previous auto-save of the same story.
func (s *Store) Create(_ context.Context, snap domain.Snapshot) (*domain.SavedGame, error) {
	saved := domain.NewSavedGame(uuid.NewString(), snap, s.now().UTC())

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.IsAutoSave {
		for id, existing := range s.data {
			if existing.IsAutoSave && existing.StoryID == snap.StoryID {
				delete(s.data, id)
			}
		}
	}
	s.data[saved.ID] = saved
	return clone(saved), nil
}

// List returns saves newest first.
func (s *Store) List(_ context.Context, storyID string) ([]domain.SavedGame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SavedGame, 0, len(s.data))
	for _, saved := range s.data {
		if storyID != "" && saved.StoryID != storyID {
			continue
		}
		out = append(out, *clone(saved))
	}
	SortNewestFirst(out)
	return out, nil
}

// Load retrieves a save from memory.
func (s *Store) Load(_ context.Context, saveID string) (*domain.SavedGame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	saved, ok := s.data[saveID]
	if !ok {
		return nil, domain.ErrSaveNotFound
	}

	// Create a copy on read so caller can't mutate store state directly by pointer
	return clone(saved), nil
}

// Delete removes a save.
func (s *Store) Delete(_ context.Context, saveID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[saveID]; !ok {
		return domain.ErrSaveNotFound
	}
	delete(s.data, saveID)
	return nil
}

// SortNewestFirst orders saves by UpdatedAt descending, then by ID.
func SortNewestFirst(saves []domain.SavedGame) {
	sort.SliceStable(saves, func(i, j int) bool {
		if !saves[i].UpdatedAt.Equal(saves[j].UpdatedAt) {
			return saves[i].UpdatedAt.After(saves[j].UpdatedAt)
		}
		return saves[i].ID < saves[j].ID
	})
}

func clone(g *domain.SavedGame) *domain.SavedGame {
	c := *g
	c.ChoicesMade = append([]domain.ChoiceRecord{}, g.ChoicesMade...)
	c.NodesVisited = append([]string{}, g.NodesVisited...)
	return &c
}
