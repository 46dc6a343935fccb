package loam_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/PixelPioneer1807/adventure/pkg/adapters/loam"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
	backend "github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStory(t *testing.T, base, storyID string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(base, storyID)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

var caveFiles = map[string]string{
	"entrance.md": `---
id: entrance
root: true
title: The Cave
options:
  - to: treasure
    text: go
---
A`,
	"treasure.md": `---
ending: true
winning: true
---
B`,
}

func TestGraphProvider_Contract(t *testing.T) {
	base := t.TempDir()
	seedStory(t, base, "cave", caveFiles)

	provider := loam.New(base, loam.WithLoamOptions(backend.WithVersioning(false)))

	want := domain.NewStoryGraph("cave", "entrance",
		domain.StoryNode{ID: "entrance", Content: "A", Options: []domain.Choice{{TargetNodeID: "treasure", Text: "go"}}},
		domain.StoryNode{ID: "treasure", Content: "B", Options: []domain.Choice{}, IsEnding: true, IsWinningEnding: true},
	)
	ports.RunGraphProviderContract(t, provider, want)

	g, err := provider.Graph(context.Background(), "cave")
	require.NoError(t, err)
	assert.Equal(t, "The Cave", g.Title)
}

func TestGraphProvider_FallbackRootAndBareOptions(t *testing.T) {
	base := t.TempDir()
	seedStory(t, base, "hall", map[string]string{
		"start.md": `---
options:
  - exit
---
Hall`,
		"exit.md": `---
---
Out`,
	})

	provider := loam.New(base, loam.WithLoamOptions(backend.WithVersioning(false)))
	g, err := provider.Graph(context.Background(), "hall")
	require.NoError(t, err)

	assert.Equal(t, "start", g.RootNodeID)
	assert.Equal(t, []domain.Choice{{TargetNodeID: "exit", Text: "exit"}}, g.Nodes["start"].Options)
	assert.True(t, g.Nodes["exit"].IsEnding)
}

func TestGraphProvider_NoRoot(t *testing.T) {
	base := t.TempDir()
	seedStory(t, base, "lost", map[string]string{"a.md": "---\nending: true\n---\nA"})

	provider := loam.New(base, loam.WithLoamOptions(backend.WithVersioning(false)))
	_, err := provider.Graph(context.Background(), "lost")
	assert.Error(t, err)
}
