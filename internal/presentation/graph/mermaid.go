package graph

import (
	"fmt"
	"strings"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
)

// GraphOverlay contains session state to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromSave builds an overlay from a stored save.
func OverlayFromSave(s *domain.SavedGame) *GraphOverlay {
	if s == nil {
		return nil
	}
	return &GraphOverlay{VisitedNodes: s.NodesVisited, CurrentNode: s.CurrentNodeID}
}

// GenerateMermaid produces a Mermaid flowchart of a story graph.
// It applies semantic styling:
// - Root: ((Circle))
// - Winning ending: ([Stadium])
// - Losing ending: [/Trapezoid\]
// - Default: [Rectangle]
// Option texts label the edges. Nodes are emitted in ID order so the output is stable.
func GenerateMermaid(g *domain.StoryGraph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		safeID := sanitizeMermaidID(id)

		opener, closer := "[", "]"
		switch {
		case id == g.RootNodeID:
			opener, closer = "((", "))"
		case node.Terminal() && node.IsWinningEnding:
			opener, closer = "([", "])"
		case node.Terminal():
			opener, closer = "[/", "\\]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, id, closer)

		for _, opt := range node.Options {
			label := strings.ReplaceAll(opt.Text, "\"", "'")
			if label == "" {
				fmt.Fprintf(&sb, "    %s --> %s\n", safeID, sanitizeMermaidID(opt.TargetNodeID))
				continue
			}
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, label, sanitizeMermaidID(opt.TargetNodeID))
		}
	}

	sb.WriteString("\n    classDef winning fill:#dcfce7,stroke:#15803d,color:#000;\n")
	sb.WriteString("    classDef losing fill:#fee2e2,stroke:#b91c1c,color:#000;\n")
	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		if !node.Terminal() || id == g.RootNodeID {
			continue
		}
		class := "losing"
		if node.IsWinningEnding {
			class = "winning"
		}
		fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(id), class)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			if _, ok := g.Nodes[id]; !ok || seen[id] || id == overlay.CurrentNode {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", sanitizeMermaidID(id))
		}

		if _, ok := g.Nodes[overlay.CurrentNode]; ok {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

var mermaidReplacer = strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")

func sanitizeMermaidID(id string) string {
	return mermaidReplacer.Replace(id)
}
