package ports

import (
	"context"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
)

// GraphProvider defines how the engine retrieves story graphs.
// This allows the content source (Loam, FS, Memory, REST) to be decoupled.
type GraphProvider interface {
	// Graph returns the full graph of a story.
	// Returns domain.ErrStoryNotFound if the story does not exist.
	// The returned graph must not be mutated by callers.
	Graph(ctx context.Context, storyID string) (*domain.StoryGraph, error)

	// Stories returns the identifiers of all available stories, sorted.
	Stories(ctx context.Context) ([]string, error)
}
