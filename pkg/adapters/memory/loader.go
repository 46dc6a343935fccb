package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
)

// GraphProvider implements ports.GraphProvider using an in-memory map.
type GraphProvider struct {
	mu     sync.RWMutex
	graphs map[string]*domain.StoryGraph
}

// NewGraphProvider creates a provider serving the given graphs.
// Graphs are normalized once and must not be mutated afterwards.
func NewGraphProvider(graphs ...*domain.StoryGraph) *GraphProvider {
	p := &GraphProvider{graphs: make(map[string]*domain.StoryGraph, len(graphs))}
	for _, g := range graphs {
		p.Add(g)
	}
	return p
}

// Add registers (or replaces) a graph.
func (p *GraphProvider) Add(g *domain.StoryGraph) {
	if g == nil {
		return
	}
	g.Normalize()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.graphs[g.StoryID] = g
}

// Graph returns the graph of a story.
func (p *GraphProvider) Graph(_ context.Context, storyID string) (*domain.StoryGraph, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.graphs[storyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoryNotFound, storyID)
	}
	return g, nil
}

// Stories returns all story IDs.
func (p *GraphProvider) Stories(_ context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.graphs))
	for k := range p.graphs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
