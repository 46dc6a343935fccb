package ports

import (
	"context"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
)

// SaveStore defines the external save/load facility.
// The store is the source of truth for auto-save uniqueness: creating an
// auto-save replaces the previous auto-save of the same story.
type SaveStore interface {
	// Create persists a snapshot and returns the stored record.
	Create(ctx context.Context, snap domain.Snapshot) (*domain.SavedGame, error)

	// List returns the saves of a story, or all saves when storyID is empty,
	// most recently updated first.
	List(ctx context.Context, storyID string) ([]domain.SavedGame, error)

	// Load retrieves a save by ID.
	// Returns domain.ErrSaveNotFound if the save does not exist.
	Load(ctx context.Context, saveID string) (*domain.SavedGame, error)

	// Delete removes a save.
	// Returns domain.ErrSaveNotFound if the save does not exist.
	Delete(ctx context.Context, saveID string) error
}
