package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"gopkg.in/yaml.v3"
)

var graphExtensions = []string{".yaml", ".yml", ".json"}

// GraphProvider implements ports.GraphProvider over a directory holding one
// <story-id>.yaml, .yml or .json document per story.
type GraphProvider struct {
	BasePath string
}

// NewGraphProvider creates a provider reading from dir.
func NewGraphProvider(dir string) *GraphProvider {
	return &GraphProvider{BasePath: dir}
}

// graphDocument is the on-disk shape. Nodes may be written as a map keyed
// by ID or as a list carrying their own IDs.
type graphDocument struct {
	ID    string                       `json:"id" yaml:"id"`
	Title string                       `json:"title" yaml:"title"`
	Root  string                       `json:"root" yaml:"root"`
	Nodes map[string]*domain.StoryNode `json:"nodes" yaml:"nodes"`
	List  []domain.StoryNode           `json:"node_list" yaml:"node_list"`
}

// Graph parses and normalizes the story file.
func (p *GraphProvider) Graph(_ context.Context, storyID string) (*domain.StoryGraph, error) {
	if storyID == "" || filepath.Base(storyID) != storyID {
		return nil, fmt.Errorf("%w: %q", domain.ErrStoryNotFound, storyID)
	}

	for _, ext := range graphExtensions {
		path := filepath.Join(p.BasePath, storyID+ext)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read story file: %w", err)
		}
		return Parse(storyID, ext, data)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrStoryNotFound, storyID)
}

// Parse decodes a story document. ext selects the codec (".json" or YAML).
func Parse(storyID, ext string, data []byte) (*domain.StoryGraph, error) {
	var doc graphDocument
	var err error
	if ext == ".json" {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse story %s: %w", storyID, err)
	}

	g := &domain.StoryGraph{
		StoryID:    doc.ID,
		Title:      doc.Title,
		RootNodeID: doc.Root,
		Nodes:      doc.Nodes,
	}
	if g.StoryID == "" {
		g.StoryID = storyID
	}
	if g.Nodes == nil {
		g.Nodes = make(map[string]*domain.StoryNode, len(doc.List))
	}
	for i := range doc.List {
		n := doc.List[i]
		if n.ID == "" {
			return nil, fmt.Errorf("failed to parse story %s: node %d has no id", storyID, i)
		}
		g.Nodes[n.ID] = &n
	}
	g.Normalize()
	return g, nil
}

// Stories lists the story files in the directory.
func (p *GraphProvider) Stories(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		for _, known := range graphExtensions {
			if ext == known {
				id := strings.TrimSuffix(name, ext)
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}
