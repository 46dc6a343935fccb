package navigator_test

import (
	"testing"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/navigator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioGraph() *domain.StoryGraph {
	return domain.NewStoryGraph("s1", "root",
		domain.StoryNode{ID: "root", Content: "A", Options: []domain.Choice{{TargetNodeID: "b", Text: "go"}}},
		domain.StoryNode{ID: "b", Content: "B", IsEnding: true, IsWinningEnding: true},
	)
}

func TestResolve(t *testing.T) {
	g := scenarioGraph()

	node, err := navigator.Resolve(g, "b")
	require.NoError(t, err)
	assert.Equal(t, "B", node.Content)

	_, err = navigator.Resolve(g, "missing")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	_, err = navigator.Resolve(nil, "root")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestRoot(t *testing.T) {
	node, err := navigator.Root(scenarioGraph())
	require.NoError(t, err)
	assert.Equal(t, "root", node.ID)

	g := scenarioGraph()
	g.RootNodeID = "nowhere"
	_, err = navigator.Root(g)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestOptions(t *testing.T) {
	g := scenarioGraph()

	opts, err := navigator.Options(g, "root")
	require.NoError(t, err)
	assert.Equal(t, []domain.Choice{{TargetNodeID: "b", Text: "go"}}, opts)

	opts[0].Text = "mutated"
	assert.Equal(t, "go", g.Nodes["root"].Options[0].Text, "options must not alias the graph")

	opts, err = navigator.Options(g, "b")
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestStep(t *testing.T) {
	g := scenarioGraph()
	g.Nodes["c"] = &domain.StoryNode{ID: "c", IsEnding: true}
	g.Nodes["root"].Options = append(g.Nodes["root"].Options, domain.Choice{TargetNodeID: "ghost", Text: "vanish"})

	node, err := navigator.Step(g, "root", "b")
	require.NoError(t, err)
	assert.Equal(t, "b", node.ID)

	_, err = navigator.Step(g, "root", "ghost")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	_, err = navigator.Step(g, "root", "c")
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)
}

func TestValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		report := navigator.Validate(scenarioGraph())
		require.NoError(t, report.Err())
		assert.Equal(t, []string{"b", "root"}, report.Reachable)
		assert.Empty(t, report.Unreachable)
	})

	t.Run("Dangling and Unreachable", func(t *testing.T) {
		g := scenarioGraph()
		g.Nodes["root"].Options = append(g.Nodes["root"].Options, domain.Choice{TargetNodeID: "ghost", Text: "vanish"})
		g.Nodes["island"] = &domain.StoryNode{ID: "island", IsEnding: true}

		report := navigator.Validate(g)
		err := report.Err()
		require.Error(t, err)
		assert.ErrorIs(t, err, navigator.ErrInvalidGraph)
		assert.Contains(t, err.Error(), "Dangling choice 'root' -> 'ghost'")
		assert.Equal(t, []string{"island"}, report.Unreachable)
	})

	t.Run("Ending Flag Mismatch", func(t *testing.T) {
		g := scenarioGraph()
		g.Nodes["b"].IsEnding = false

		report := navigator.Validate(g)
		require.Error(t, report.Err())
		assert.Contains(t, report.Err().Error(), "is_ending=false with 0 options")
	})

	t.Run("Missing Root", func(t *testing.T) {
		g := scenarioGraph()
		g.RootNodeID = "nowhere"

		report := navigator.Validate(g)
		require.Error(t, report.Err())
		assert.Len(t, report.Unreachable, 2)
	})
}
