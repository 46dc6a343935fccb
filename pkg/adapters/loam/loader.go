// Package loam serves story graphs from Loam document repositories.
//
// Each story is a directory. Each Markdown (or JSON/YAML) document in it is a
// node: the frontmatter carries the options and ending flags, the body is the
// narrative content.
package loam

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"
)

// GraphProvider adapts Loam repositories to ports.GraphProvider.
// Graphs are built once per story and cached.
type GraphProvider struct {
	BasePath string

	opts   []loam.Option
	mu     sync.Mutex
	graphs map[string]*domain.StoryGraph
}

// Option configures the GraphProvider.
type Option func(*GraphProvider)

// WithLoamOptions replaces the options passed to loam.Init.
func WithLoamOptions(opts ...loam.Option) Option {
	return func(p *GraphProvider) {
		p.opts = opts
	}
}

// New creates a provider over a directory of story directories.
func New(basePath string, opts ...Option) *GraphProvider {
	p := &GraphProvider{
		BasePath: basePath,
		// Strict mode keeps numeric frontmatter consistent across serializers.
		// The provider never writes, so the repository is opened read-only.
		opts:   []loam.Option{loam.WithStrict(true), loam.WithReadOnly(true)},
		graphs: make(map[string]*domain.StoryGraph),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Graph loads every document of the story directory into a graph.
func (p *GraphProvider) Graph(ctx context.Context, storyID string) (*domain.StoryGraph, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.graphs[storyID]; ok {
		return g, nil
	}

	dir, err := p.storyDir(storyID)
	if err != nil {
		return nil, err
	}

	repo, err := loam.Init(dir, p.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam for %s: %w", storyID, err)
	}
	typedRepo := loam.NewTypedRepository[NodeMetadata](repo)

	docs, err := typedRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed for %s: %w", storyID, err)
	}

	g := &domain.StoryGraph{StoryID: storyID, Nodes: make(map[string]*domain.StoryNode, len(docs))}
	seen := make(map[string]string)
	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		// Collision Detection
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
		}
		seen[id] = doc.ID

		options, err := decodeOptions(doc.Data.Options)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}

		g.Nodes[id] = &domain.StoryNode{
			ID:              id,
			Content:         strings.TrimSpace(doc.Content),
			Options:         options,
			IsEnding:        doc.Data.Ending || len(options) == 0,
			IsWinningEnding: doc.Data.Winning,
		}
		if doc.Data.Root {
			if g.RootNodeID != "" {
				return nil, fmt.Errorf("story %s declares two roots: %s and %s", storyID, g.RootNodeID, id)
			}
			g.RootNodeID = id
			g.Title = doc.Data.Title
		}
	}

	if g.RootNodeID == "" {
		for _, fallback := range []string{"root", "start"} {
			if _, ok := g.Nodes[fallback]; ok {
				g.RootNodeID = fallback
				break
			}
		}
	}
	if g.RootNodeID == "" {
		return nil, fmt.Errorf("story %s has no root node", storyID)
	}

	g.Normalize()
	p.graphs[storyID] = g
	return g, nil
}

// decodeOptions uses mapstructure to accept both maps and bare target IDs.
func decodeOptions(raw []any) ([]domain.Choice, error) {
	choices := make([]domain.Choice, 0, len(raw))
	for i, entry := range raw {
		if target, ok := entry.(string); ok {
			choices = append(choices, domain.Choice{TargetNodeID: target, Text: target})
			continue
		}

		var opt LoaderOption
		if err := mapstructure.Decode(entry, &opt); err != nil {
			return nil, fmt.Errorf("option %d: %w", i, err)
		}
		if opt.Target() == "" {
			return nil, fmt.Errorf("option %d has no target", i)
		}
		if opt.Text == "" {
			opt.Text = opt.Target()
		}
		choices = append(choices, domain.Choice{TargetNodeID: opt.Target(), Text: opt.Text})
	}
	return choices, nil
}

// Stories lists the story directories.
func (p *GraphProvider) Stories(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (p *GraphProvider) storyDir(storyID string) (string, error) {
	if storyID == "" || filepath.Base(storyID) != storyID || strings.HasPrefix(storyID, ".") {
		return "", fmt.Errorf("%w: %q", domain.ErrStoryNotFound, storyID)
	}
	dir, err := filepath.Abs(filepath.Join(p.BasePath, storyID))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", domain.ErrStoryNotFound, storyID)
	}
	return dir, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
