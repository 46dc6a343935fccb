package navigator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
)

// ErrInvalidGraph is wrapped by the error returned from Validate.
var ErrInvalidGraph = errors.New("invalid story graph")

// Report summarizes a graph validation.
type Report struct {
	Reachable   []string // Node IDs reachable from the root, sorted
	Unreachable []string // Node IDs never reached, sorted (warnings)
	Problems    []string // Integrity errors
}

// Err returns nil when the report has no problems.
func (r *Report) Err() error {
	if len(r.Problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: found %d errors:\n- %s", ErrInvalidGraph, len(r.Problems), strings.Join(r.Problems, "\n- "))
}

// Validate checks for broken links, ending flags and unreachable nodes
// starting from the graph root.
func Validate(g *domain.StoryGraph) *Report {
	report := &Report{}
	if g == nil {
		report.Problems = append(report.Problems, "graph is nil")
		return report
	}

	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		if node == nil {
			report.Problems = append(report.Problems, fmt.Sprintf("Node '%s' is empty", id))
			continue
		}
		if node.ID != "" && node.ID != id {
			report.Problems = append(report.Problems, fmt.Sprintf("Node '%s' declares id '%s'", id, node.ID))
		}
		if node.IsEnding != (len(node.Options) == 0) {
			report.Problems = append(report.Problems, fmt.Sprintf("Node '%s' has is_ending=%t with %d options", id, node.IsEnding, len(node.Options)))
		}
		if node.IsWinningEnding && !node.IsEnding {
			report.Problems = append(report.Problems, fmt.Sprintf("Node '%s' is a winning ending but not an ending", id))
		}
		for _, opt := range node.Options {
			if _, err := Resolve(g, opt.TargetNodeID); err != nil {
				report.Problems = append(report.Problems, fmt.Sprintf("Dangling choice '%s' -> '%s'", id, opt.TargetNodeID))
			}
		}
	}

	if _, err := Root(g); err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("Root node '%s' not found", g.RootNodeID))
		report.Unreachable = g.NodeIDs()
		return report
	}

	// Crawler
	visited := make(map[string]bool)
	queue := []string{g.RootNodeID}
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		node, err := Resolve(g, currentID)
		if err != nil {
			continue // Reported above as dangling
		}
		visited[currentID] = true

		for _, opt := range node.Options {
			if !visited[opt.TargetNodeID] {
				queue = append(queue, opt.TargetNodeID)
			}
		}
	}

	for _, id := range g.NodeIDs() {
		if visited[id] {
			report.Reachable = append(report.Reachable, id)
		} else {
			report.Unreachable = append(report.Unreachable, id)
		}
	}
	sort.Strings(report.Reachable)
	return report
}
