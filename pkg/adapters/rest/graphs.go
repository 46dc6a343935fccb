package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
)

var _ ports.GraphProvider = (*GraphProvider)(nil)

// GraphProvider implements ports.GraphProvider against /stories.
type GraphProvider struct {
	client *Client
}

// NewGraphProvider creates a graph provider over client.
func NewGraphProvider(client *Client) *GraphProvider {
	return &GraphProvider{client: client}
}

type wireOption struct {
	Text   string `json:"text"`
	NodeID wireID `json:"node_id"`
}

type wireNode struct {
	ID              wireID       `json:"id"`
	Content         string       `json:"content"`
	IsRoot          bool         `json:"is_root"`
	IsEnding        bool         `json:"is_ending"`
	IsWinningEnding bool         `json:"is_winning_ending"`
	Options         []wireOption `json:"options"`
}

type wireStory struct {
	ID       wireID              `json:"id"`
	Title    string              `json:"title"`
	RootNode *wireNode           `json:"root_node"`
	AllNodes map[string]wireNode `json:"all_nodes"`
}

// Graph fetches the complete story and builds its graph.
func (p *GraphProvider) Graph(ctx context.Context, storyID string) (*domain.StoryGraph, error) {
	var out wireStory
	notFound := fmt.Errorf("%w: %s", domain.ErrStoryNotFound, storyID)
	if err := p.client.do(ctx, http.MethodGet, "/stories/"+url.PathEscape(storyID)+"/complete", nil, &out, notFound); err != nil {
		return nil, err
	}

	g := &domain.StoryGraph{
		StoryID: storyID,
		Title:   out.Title,
		Nodes:   make(map[string]*domain.StoryNode, len(out.AllNodes)),
	}
	if out.RootNode != nil {
		g.RootNodeID = string(out.RootNode.ID)
	}

	for key, n := range out.AllNodes {
		id := string(n.ID)
		if id == "" {
			id = key
		}
		options := make([]domain.Choice, len(n.Options))
		for i, opt := range n.Options {
			options[i] = domain.Choice{TargetNodeID: string(opt.NodeID), Text: opt.Text}
		}
		g.Nodes[id] = &domain.StoryNode{
			ID:              id,
			Content:         n.Content,
			Options:         options,
			IsEnding:        n.IsEnding,
			IsWinningEnding: n.IsWinningEnding,
		}
		if n.IsRoot && g.RootNodeID == "" {
			g.RootNodeID = id
		}
	}
	if g.RootNodeID == "" {
		return nil, fmt.Errorf("story %s: response has no root node", storyID)
	}

	g.Normalize()
	return g, nil
}

type wireStorySummary struct {
	ID wireID `json:"id"`
}

// Stories lists the story IDs the backend knows.
func (p *GraphProvider) Stories(ctx context.Context) ([]string, error) {
	var out []wireStorySummary
	if err := p.client.do(ctx, http.MethodGet, "/stories/", nil, &out, nil); err != nil {
		return nil, err
	}
	ids := make([]string, len(out))
	for i, s := range out {
		ids[i] = string(s.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
