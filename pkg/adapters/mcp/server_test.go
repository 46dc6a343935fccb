package mcp

import (
	"context"
	"testing"

	"github.com/PixelPioneer1807/adventure/pkg/adapters/memory"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
	"github.com/PixelPioneer1807/adventure/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, store ports.SaveStore) *Server {
	t.Helper()
	g := domain.NewStoryGraph("cave", "hall",
		domain.StoryNode{ID: "hall", Content: "A hall", Options: []domain.Choice{
			{TargetNodeID: "exit", Text: "leave"},
			{TargetNodeID: "pit", Text: "jump"},
		}},
		domain.StoryNode{ID: "exit", Content: "Daylight", IsEnding: true, IsWinningEnding: true},
		domain.StoryNode{ID: "pit", Content: "Darkness", IsEnding: true},
	)
	manager := session.NewManager(memory.NewGraphProvider(g), store)
	t.Cleanup(manager.CloseAll)
	return NewServer(manager, "test")
}

func TestServer_Tools(t *testing.T) {
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	s := newTestServer(t, memory.NewStore())

	off := false
	view, err := s.handleStart(ctx, req, startArgs{StoryID: "cave", AutoSave: &off})
	require.NoError(t, err)
	assert.Equal(t, "hall", view.CurrentNodeID)
	assert.False(t, view.AutoSaveEnabled)
	id := view.SessionID

	saved, err := s.handleSave(ctx, req, saveArgs{SessionID: id, Name: " start "})
	require.NoError(t, err)
	assert.Equal(t, "start", saved.SaveName)

	view, err = s.handleChoose(ctx, req, chooseArgs{SessionID: id, NodeID: "pit"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnding, view.Status)

	_, err = s.handleChoose(ctx, req, chooseArgs{SessionID: id, NodeID: "hall"})
	assert.ErrorIs(t, err, domain.ErrTerminal)

	saves, err := s.handleListSaves(ctx, req, listSavesArgs{StoryID: "cave"})
	require.NoError(t, err)
	require.Len(t, saves.Saves, 1)

	view, err = s.handleLoad(ctx, req, loadArgs{SessionID: id, SaveID: saved.ID})
	require.NoError(t, err)
	assert.Equal(t, "hall", view.CurrentNodeID)

	view, err = s.handleSetAutoSave(ctx, req, autoSaveArgs{SessionID: id, Enabled: true})
	require.NoError(t, err)
	assert.True(t, view.AutoSaveEnabled)

	view, err = s.handleRestart(ctx, req, sessionArgs{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, []string{"hall"}, view.VisitedNodeIDs)

	view, err = s.handleGet(ctx, req, sessionArgs{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, id, view.SessionID)
}

func TestServer_Errors(t *testing.T) {
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	s := newTestServer(t, nil)

	_, err := s.handleStart(ctx, req, startArgs{})
	assert.Error(t, err)

	_, err = s.handleStart(ctx, req, startArgs{StoryID: "nope"})
	assert.ErrorIs(t, err, domain.ErrStoryNotFound)

	_, err = s.handleGet(ctx, req, sessionArgs{SessionID: "nope"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = s.handleListSaves(ctx, req, listSavesArgs{})
	assert.ErrorIs(t, err, session.ErrNoSaveStore)

	view, err := s.handleStart(ctx, req, startArgs{StoryID: "cave"})
	require.NoError(t, err)
	_, err = s.handleSave(ctx, req, saveArgs{SessionID: view.SessionID})
	assert.ErrorIs(t, err, session.ErrNoSaveStore)
}
