package rest_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PixelPioneer1807/adventure/pkg/adapters/memory"
	"github.com/PixelPioneer1807/adventure/pkg/adapters/rest"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend is a stand-in for the story API, backed by the memory store.
type backend struct {
	store *memory.Store

	mu     sync.Mutex
	events []map[string]any
	auth   []string
}

func (b *backend) handler() http.Handler {
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	fail := func(w http.ResponseWriter, err error) {
		if errors.Is(err, domain.ErrSaveNotFound) {
			http.Error(w, `{"detail":"Save game not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/saves/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		b.mu.Unlock()

		var snap domain.Snapshot
		if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		saved, err := b.store.Create(r.Context(), snap)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, saved)
	})
	mux.HandleFunc("GET /api/saves/", func(w http.ResponseWriter, r *http.Request) {
		saves, err := b.store.List(r.Context(), r.URL.Query().Get("story_id"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, saves)
	})
	mux.HandleFunc("POST /api/saves/{id}/load", func(w http.ResponseWriter, r *http.Request) {
		saved, err := b.store.Load(r.Context(), r.PathValue("id"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, map[string]any{"save_game": saved, "story": map[string]any{}, "current_node": map[string]any{}})
	})
	mux.HandleFunc("DELETE /api/saves/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := b.store.Delete(r.Context(), r.PathValue("id")); err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, map[string]string{"message": "Save game deleted successfully"})
	})
	mux.HandleFunc("POST /api/analytics/event", func(w http.ResponseWriter, r *http.Request) {
		var ev map[string]any
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.events = append(b.events, ev)
		b.mu.Unlock()
		writeJSON(w, map[string]string{"message": "Event logged"})
	})
	mux.HandleFunc("GET /api/stories/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"id": 7, "title": "Cave"}, {"id": 3, "title": "Sea"}})
	})
	mux.HandleFunc("GET /api/stories/{id}/complete", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			http.Error(w, `{"detail":"Story not found"}`, http.StatusNotFound)
			return
		}
		// Integer IDs, as the original backend serves them.
		_, _ = w.Write([]byte(`{
			"id": 7, "title": "Cave",
			"root_node": {"id": 1, "content": "A", "is_ending": false, "options": [{"text": "go", "node_id": 2}]},
			"all_nodes": {
				"1": {"id": 1, "content": "A", "is_ending": false, "is_winning_ending": false, "options": [{"text": "go", "node_id": 2}]},
				"2": {"id": 2, "content": "B", "is_ending": true, "is_winning_ending": true, "options": []}
			}
		}`))
	})
	return mux
}

func newBackend(t *testing.T) (*backend, *rest.Client) {
	t.Helper()
	b := &backend{store: memory.NewStore()}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	return b, rest.NewClient(srv.URL+"/api/", rest.WithToken("secret"))
}

func TestSaveStore_Contract(t *testing.T) {
	_, client := newBackend(t)
	ports.RunSaveStoreContract(t, rest.NewSaveStore(client))
}

func TestSaveStore_SendsBearerToken(t *testing.T) {
	b, client := newBackend(t)
	_, err := rest.NewSaveStore(client).Create(t.Context(), domain.Snapshot{StoryID: "cave", CurrentNodeID: "a", NodesVisited: []string{"a"}})
	require.NoError(t, err)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []string{"Bearer secret"}, b.auth)
}

func TestSaveStore_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := rest.NewSaveStore(rest.NewClient(srv.URL)).List(t.Context(), "")
	require.ErrorIs(t, err, rest.ErrUnexpectedStatus)
	assert.True(t, strings.Contains(err.Error(), "boom"))
}

func TestGraphProvider_Contract(t *testing.T) {
	_, client := newBackend(t)

	want := domain.NewStoryGraph("7", "1",
		domain.StoryNode{ID: "1", Content: "A", Options: []domain.Choice{{TargetNodeID: "2", Text: "go"}}},
		domain.StoryNode{ID: "2", Content: "B", Options: []domain.Choice{}, IsEnding: true, IsWinningEnding: true},
	)
	provider := rest.NewGraphProvider(client)
	ports.RunGraphProviderContract(t, provider, want)

	g, err := provider.Graph(t.Context(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Cave", g.Title)
}

func TestAnalyticsCollector_Record(t *testing.T) {
	b, client := newBackend(t)
	collector := rest.NewAnalyticsCollector(client)

	err := collector.Record(t.Context(), domain.AnalyticsEvent{
		StoryID: "7",
		Type:    domain.EventEnding,
		Payload: map[string]any{"is_winning_ending": true},
	})
	require.NoError(t, err)

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.events, 1)
	assert.Equal(t, float64(7), b.events[0]["story_id"])
	assert.Equal(t, "ending", b.events[0]["event_type"])
	assert.Equal(t, map[string]any{"is_winning_ending": true}, b.events[0]["payload"])
}
