package ports

import (
	"context"
	"testing"
	"time"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSaveStoreContract runs a suite of tests to verify that a SaveStore implementation
// adheres to the defined interface contract.
func RunSaveStoreContract(t *testing.T, store SaveStore) {
	t.Helper()
	ctx := context.Background()
	storyID := "contract-story-" + time.Now().Format("20060102150405.000000000")

	snapshot := func(name string, auto bool) domain.Snapshot {
		return domain.Snapshot{
			StoryID:       storyID,
			CurrentNodeID: "b",
			SaveName:      name,
			NodesVisited:  []string{"root", "b"},
			ChoicesMade: []domain.ChoiceRecord{
				{FromNodeID: "root", Text: "go", ToNodeID: "b", Timestamp: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
			},
			PlayTimeMinutes: 3,
			IsAutoSave:      auto,
		}
	}

	t.Run("Create and Load", func(t *testing.T) {
		created, err := store.Create(ctx, snapshot("My Save", false))
		require.NoError(t, err, "Create should not return error")
		require.NotEmpty(t, created.ID, "Create must assign an ID")
		assert.False(t, created.CreatedAt.IsZero())
		assert.False(t, created.UpdatedAt.IsZero())

		loaded, err := store.Load(ctx, created.ID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, created.ID, loaded.ID)
		assert.Equal(t, storyID, loaded.StoryID)
		assert.Equal(t, "My Save", loaded.SaveName)
		assert.Equal(t, "b", loaded.CurrentNodeID)
		assert.Equal(t, []string{"root", "b"}, loaded.NodesVisited)
		require.Len(t, loaded.ChoicesMade, 1)
		assert.Equal(t, "root", loaded.ChoicesMade[0].FromNodeID)
		assert.Equal(t, "go", loaded.ChoicesMade[0].Text)
		assert.Equal(t, "b", loaded.ChoicesMade[0].ToNodeID)
		assert.True(t, loaded.ChoicesMade[0].Timestamp.Equal(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)))
		assert.Equal(t, 3, loaded.PlayTimeMinutes)
		assert.False(t, loaded.IsAutoSave)

		_ = store.Delete(ctx, created.ID)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+storyID)
		assert.ErrorIs(t, err, domain.ErrSaveNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		created, err := store.Create(ctx, snapshot("To Delete", false))
		require.NoError(t, err)

		err = store.Delete(ctx, created.ID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, created.ID)
		assert.ErrorIs(t, err, domain.ErrSaveNotFound, "Load after Delete should return ErrSaveNotFound")

		err = store.Delete(ctx, created.ID)
		assert.ErrorIs(t, err, domain.ErrSaveNotFound, "Delete of a missing save should return ErrSaveNotFound")
	})

	t.Run("List Newest First", func(t *testing.T) {
		first, err := store.Create(ctx, snapshot("first", false))
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
		second, err := store.Create(ctx, snapshot("second", false))
		require.NoError(t, err)

		other := snapshot("other story", false)
		other.StoryID = storyID + "-other"
		third, err := store.Create(ctx, other)
		require.NoError(t, err)

		defer func() {
			_ = store.Delete(ctx, first.ID)
			_ = store.Delete(ctx, second.ID)
			_ = store.Delete(ctx, third.ID)
		}()

		saves, err := store.List(ctx, storyID)
		require.NoError(t, err)
		require.Len(t, saves, 2)
		assert.Equal(t, second.ID, saves[0].ID)
		assert.Equal(t, first.ID, saves[1].ID)

		all, err := store.List(ctx, "")
		require.NoError(t, err)
		ids := make([]string, 0, len(all))
		for _, s := range all {
			ids = append(ids, s.ID)
		}
		assert.Contains(t, ids, first.ID)
		assert.Contains(t, ids, second.ID)
		assert.Contains(t, ids, third.ID)
	})

	t.Run("Auto Save Replaces Previous", func(t *testing.T) {
		manual, err := store.Create(ctx, snapshot("manual", false))
		require.NoError(t, err)
		old, err := store.Create(ctx, snapshot(domain.AutoSaveName, true))
		require.NoError(t, err)

		next := snapshot(domain.AutoSaveName, true)
		next.PlayTimeMinutes = 9
		latest, err := store.Create(ctx, next)
		require.NoError(t, err)

		defer func() {
			_ = store.Delete(ctx, manual.ID)
			_ = store.Delete(ctx, latest.ID)
		}()

		saves, err := store.List(ctx, storyID)
		require.NoError(t, err)

		var autos []domain.SavedGame
		for _, s := range saves {
			if s.IsAutoSave {
				autos = append(autos, s)
			}
		}
		require.Len(t, autos, 1, "only one auto-save per story")
		assert.Equal(t, 9, autos[0].PlayTimeMinutes)
		assert.Len(t, saves, 2, "manual saves are untouched")

		if old.ID != latest.ID {
			_, err = store.Load(ctx, old.ID)
			assert.ErrorIs(t, err, domain.ErrSaveNotFound)
		}
	})
}

// RunGraphProviderContract verifies that a GraphProvider serves want, a story
// it was seeded with.
func RunGraphProviderContract(t *testing.T, provider GraphProvider, want *domain.StoryGraph) {
	t.Helper()
	ctx := context.Background()

	t.Run("Graph_Success", func(t *testing.T) {
		got, err := provider.Graph(ctx, want.StoryID)
		require.NoError(t, err)
		assert.Equal(t, want.StoryID, got.StoryID)
		assert.Equal(t, want.RootNodeID, got.RootNodeID)
		require.Len(t, got.Nodes, len(want.Nodes))

		for id, expected := range want.Nodes {
			node, ok := got.Nodes[id]
			require.True(t, ok, "node %s missing", id)
			assert.Equal(t, id, node.ID)
			assert.Equal(t, expected.Content, node.Content, "content mismatch for %s", id)
			assert.Equal(t, expected.IsEnding, node.IsEnding, "is_ending mismatch for %s", id)
			assert.Equal(t, expected.IsWinningEnding, node.IsWinningEnding, "is_winning_ending mismatch for %s", id)
			assert.Equal(t, expected.Options, node.Options, "options mismatch for %s", id)
		}
	})

	t.Run("Graph_NotFound", func(t *testing.T) {
		_, err := provider.Graph(ctx, "non-existent-story")
		assert.ErrorIs(t, err, domain.ErrStoryNotFound)
	})

	t.Run("Stories", func(t *testing.T) {
		ids, err := provider.Stories(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, want.StoryID)
		assert.IsNonDecreasing(t, ids)
	})
}
