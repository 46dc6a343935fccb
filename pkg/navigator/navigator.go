// Package navigator resolves positions in a story graph.
//
// Every function is a pure function of (graph, id): no internal state and no
// side effects. Lookup failures are reported as domain.ErrNodeNotFound so the
// caller can recover instead of terminating the session.
package navigator

import (
	"fmt"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
)

// Resolve returns the node with the given identifier.
func Resolve(g *domain.StoryGraph, nodeID string) (*domain.StoryNode, error) {
	if g == nil || g.Nodes == nil {
		return nil, fmt.Errorf("%w: %q (empty graph)", domain.ErrNodeNotFound, nodeID)
	}
	node, ok := g.Nodes[nodeID]
	if !ok || node == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrNodeNotFound, nodeID)
	}
	return node, nil
}

// Root resolves the entry node of the graph.
func Root(g *domain.StoryGraph) (*domain.StoryNode, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: no graph", domain.ErrNodeNotFound)
	}
	node, err := Resolve(g, g.RootNodeID)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	return node, nil
}

// Options returns the choices available from a node.
// Terminal nodes yield an empty list.
func Options(g *domain.StoryGraph, nodeID string) ([]domain.Choice, error) {
	node, err := Resolve(g, nodeID)
	if err != nil {
		return nil, err
	}
	if node.Terminal() {
		return []domain.Choice{}, nil
	}
	return append([]domain.Choice(nil), node.Options...), nil
}

// Step resolves the target of a choice from the given node.
// It reports domain.ErrInvalidChoice when targetID is not offered by the node,
// and domain.ErrNodeNotFound when the target is missing from the graph.
func Step(g *domain.StoryGraph, fromID, targetID string) (*domain.StoryNode, error) {
	from, err := Resolve(g, fromID)
	if err != nil {
		return nil, err
	}
	target, err := Resolve(g, targetID)
	if err != nil {
		return nil, err
	}
	if !from.HasOption(targetID) {
		return nil, fmt.Errorf("%w: %q -> %q", domain.ErrInvalidChoice, fromID, targetID)
	}
	return target, nil
}
