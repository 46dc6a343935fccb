package domain

import "sort"

// Choice is an outgoing edge of a StoryNode.
type Choice struct {
	TargetNodeID string `json:"node_id" yaml:"node_id" mapstructure:"node_id"`
	Text         string `json:"text" yaml:"text" mapstructure:"text"`
}

// StoryNode is a single narrative step of a story.
type StoryNode struct {
	ID      string   `json:"id" yaml:"id"`
	Content string   `json:"content" yaml:"content"`
	Options []Choice `json:"options" yaml:"options"`

	// IsEnding is true iff Options is empty.
	IsEnding bool `json:"is_ending" yaml:"is_ending"`
	// IsWinningEnding is only meaningful when IsEnding is set.
	IsWinningEnding bool `json:"is_winning_ending" yaml:"is_winning_ending"`
}

// Terminal reports whether no further choice can originate from the node.
// A node without options is treated as terminal even if IsEnding was not set.
func (n *StoryNode) Terminal() bool {
	return n.IsEnding || len(n.Options) == 0
}

// HasOption reports whether one of the node's options targets nodeID.
func (n *StoryNode) HasOption(nodeID string) bool {
	for _, opt := range n.Options {
		if opt.TargetNodeID == nodeID {
			return true
		}
	}
	return false
}

// StoryGraph is the immutable content graph of a story.
// It must not be mutated once a session has been started on it.
type StoryGraph struct {
	StoryID    string                `json:"story_id" yaml:"id"`
	Title      string                `json:"title" yaml:"title"`
	RootNodeID string                `json:"root_node_id" yaml:"root"`
	Nodes      map[string]*StoryNode `json:"nodes" yaml:"nodes"`
}

// NewStoryGraph builds a graph from a list of nodes.
// Node IDs must be set; later duplicates replace earlier ones.
func NewStoryGraph(storyID, rootNodeID string, nodes ...StoryNode) *StoryGraph {
	g := &StoryGraph{
		StoryID:    storyID,
		RootNodeID: rootNodeID,
		Nodes:      make(map[string]*StoryNode, len(nodes)),
	}
	for i := range nodes {
		n := nodes[i]
		g.Nodes[n.ID] = &n
	}
	return g
}

// Normalize fills node IDs from their map keys and derives IsEnding for
// nodes without options. Loaders call it once before handing the graph out.
func (g *StoryGraph) Normalize() {
	if g.Nodes == nil {
		g.Nodes = make(map[string]*StoryNode)
	}
	for id, n := range g.Nodes {
		if n == nil {
			delete(g.Nodes, id)
			continue
		}
		if n.ID == "" {
			n.ID = id
		}
		if len(n.Options) == 0 {
			n.IsEnding = true
		}
	}
}

// NodeIDs returns the node identifiers in sorted order.
func (g *StoryGraph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
