package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PixelPioneer1807/adventure/pkg/adapters/memory"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGraph() *domain.StoryGraph {
	return domain.NewStoryGraph("cave", "hall",
		domain.StoryNode{ID: "hall", Content: "A hall", Options: []domain.Choice{
			{TargetNodeID: "exit", Text: "leave"},
			{TargetNodeID: "pit", Text: "jump"},
		}},
		domain.StoryNode{ID: "exit", Content: "Daylight", IsEnding: true, IsWinningEnding: true},
		domain.StoryNode{ID: "pit", Content: "Darkness", IsEnding: true},
	)
}

type fixture struct {
	handler http.Handler
	manager *session.Manager
	store   *memory.Store
	streams *StreamManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	streams := NewStreamManager(nil)
	manager := session.NewManager(memory.NewGraphProvider(testGraph()), store,
		session.WithSessionOptions(
			session.WithViewListener(streams.Publish),
			session.WithAutoSave(false),
		),
	)
	t.Cleanup(manager.CloseAll)

	reg := prometheus.NewRegistry()
	handler := NewHandler(manager,
		WithStreams(streams),
		WithVersion("1.2.3\n"),
		WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	return &fixture{handler: handler, manager: manager, store: store, streams: streams}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) domain.SessionView {
	t.Helper()
	var view domain.SessionView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	return view
}

func (f *fixture) open(t *testing.T) domain.SessionView {
	t.Helper()
	w := f.do(t, http.MethodPost, "/sessions", map[string]any{"story_id": "cave"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeView(t, w)
}

func TestServer_PlayThrough(t *testing.T) {
	f := newFixture(t)
	view := f.open(t)

	assert.Equal(t, "cave", view.StoryID)
	assert.Equal(t, "hall", view.CurrentNodeID)
	assert.Equal(t, domain.StatusPlaying, view.Status)
	assert.False(t, view.AutoSaveEnabled)

	w := f.do(t, http.MethodPost, "/sessions/"+view.SessionID+"/choices", map[string]string{"node_id": "exit"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	after := decodeView(t, w)
	assert.Equal(t, domain.StatusEnding, after.Status)
	assert.Equal(t, []string{"hall", "exit"}, after.VisitedNodeIDs)
	require.Len(t, after.ChoiceHistory, 1)
	assert.Equal(t, "leave", after.ChoiceHistory[0].Text)

	w = f.do(t, http.MethodPost, "/sessions/"+view.SessionID+"/choices", map[string]string{"node_id": "hall"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/sessions/"+view.SessionID+"/restart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"hall"}, decodeView(t, w).VisitedNodeIDs)

	w = f.do(t, http.MethodGet, "/sessions", nil)
	assert.JSONEq(t, fmt.Sprintf(`{"sessions":[%q]}`, view.SessionID), w.Body.String())

	w = f.do(t, http.MethodDelete, "/sessions/"+view.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodGet, "/sessions/"+view.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ChoiceErrors(t *testing.T) {
	f := newFixture(t)
	view := f.open(t)
	base := "/sessions/" + view.SessionID + "/choices"

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, base, map[string]string{"node_id": "ghost"}).Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, base, map[string]string{"node_id": "hall"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, base, map[string]string{}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/sessions/nope/choices", map[string]string{"node_id": "exit"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/sessions", map[string]string{}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/sessions", map[string]string{"story_id": "nope"}).Code)
}

func TestServer_SaveListLoadDelete(t *testing.T) {
	f := newFixture(t)
	view := f.open(t)

	w := f.do(t, http.MethodPost, "/sessions/"+view.SessionID+"/saves", map[string]string{"name": "before pit"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var saved domain.SavedGame
	require.NoError(t, json.NewDecoder(w.Body).Decode(&saved))
	assert.Equal(t, "before pit", saved.SaveName)

	w = f.do(t, http.MethodPost, "/sessions/"+view.SessionID+"/choices", map[string]string{"node_id": "pit"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/sessions/"+view.SessionID+"/load", map[string]string{"save_id": saved.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	loaded := decodeView(t, w)
	assert.Equal(t, "hall", loaded.CurrentNodeID)
	assert.Equal(t, domain.StatusPlaying, loaded.Status)

	w = f.do(t, http.MethodGet, "/saves?story_id=cave", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var saves []domain.SavedGame
	require.NoError(t, json.NewDecoder(w.Body).Decode(&saves))
	require.Len(t, saves, 1)
	assert.Equal(t, saved.ID, saves[0].ID)

	w = f.do(t, http.MethodGet, "/saves?story_id=other", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/saves/"+saved.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/saves/"+saved.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/sessions/"+view.SessionID+"/load", map[string]string{"save_id": saved.ID}).Code)
}

func TestServer_ResumeAndInvalidSnapshot(t *testing.T) {
	f := newFixture(t)

	good, err := f.store.Create(context.Background(), domain.Snapshot{
		StoryID:       "cave",
		CurrentNodeID: "exit",
		NodesVisited:  []string{"hall", "exit"},
		ChoicesMade:   []domain.ChoiceRecord{{FromNodeID: "hall", Text: "leave", ToNodeID: "exit"}},
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/sessions", map[string]string{"save_id": good.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, domain.StatusEnding, decodeView(t, w).Status)

	bad, err := f.store.Create(context.Background(), domain.Snapshot{
		StoryID:       "cave",
		CurrentNodeID: "exit",
		NodesVisited:  []string{"exit"},
	})
	require.NoError(t, err)

	view := f.open(t)
	w = f.do(t, http.MethodPost, "/sessions/"+view.SessionID+"/load", map[string]string{"save_id": bad.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestServer_SetAutoSave(t *testing.T) {
	f := newFixture(t)
	view := f.open(t)

	w := f.do(t, http.MethodPut, "/sessions/"+view.SessionID+"/autosave", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeView(t, w).AutoSaveEnabled)

	sess, err := f.manager.Get(view.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.AutoSaveArmed())

	w = f.do(t, http.MethodPut, "/sessions/"+view.SessionID+"/autosave", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Stories(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/stories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"stories":["cave"]}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/stories/cave", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var g domain.StoryGraph
	require.NoError(t, json.NewDecoder(w.Body).Decode(&g))
	assert.Equal(t, "hall", g.RootNodeID)
	assert.Len(t, g.Nodes, 3)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/stories/nope", nil).Code)
}

func TestServer_InfoAndOpenAPI(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"app":"adventure-http","version":"1.2.3","api_version":"1.0.0"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Adventure Session API")

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/metrics", nil).Code)

	swagger, err := GetSwagger()
	require.NoError(t, err)
	assert.NotNil(t, swagger.Paths.Find("/sessions/{sessionId}/choices"))
}

func TestServer_NoStore(t *testing.T) {
	manager := session.NewManager(memory.NewGraphProvider(testGraph()), nil)
	t.Cleanup(manager.CloseAll)
	handler := NewHandler(manager)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/saves", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestSubscribeEvents_StreamsDiffs(t *testing.T) {
	f := newFixture(t)
	view := f.open(t)

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/"+view.SessionID+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
				lines <- data
			}
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l, ok := <-lines:
			require.True(t, ok, "stream closed")
			return l
		case <-ctx.Done():
			t.Fatal("timed out waiting for SSE data")
			return ""
		}
	}

	assert.Equal(t, "connected", next())
	var initial domain.ViewDiff
	require.NoError(t, json.Unmarshal([]byte(next()), &initial))
	require.NotNil(t, initial.CurrentNodeID)
	assert.Equal(t, "hall", *initial.CurrentNodeID)

	w := f.do(t, http.MethodPost, "/sessions/"+view.SessionID+"/choices", map[string]string{"node_id": "pit"})
	require.Equal(t, http.StatusOK, w.Code)

	var diff domain.ViewDiff
	require.NoError(t, json.Unmarshal([]byte(next()), &diff))
	assert.Equal(t, view.SessionID, diff.SessionID)
	require.NotNil(t, diff.CurrentNodeID)
	assert.Equal(t, "pit", *diff.CurrentNodeID)
	require.NotNil(t, diff.History)
	assert.Equal(t, []string{"pit"}, diff.History.Visited)
}

func TestStreamManager_PublishSkipsEmptyDiff(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe("s1")
	defer cancel()

	view := domain.SessionView{SessionID: "s1", CurrentNodeID: "a", Status: domain.StatusPlaying}
	sm.Publish(view)
	sm.Publish(view)

	require.Len(t, ch, 1)
	cancel()
	cancel()
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrSessionNotFound), http.StatusNotFound},
		{domain.ErrBusy, http.StatusConflict},
		{domain.ErrTerminal, http.StatusConflict},
		{domain.ErrInvalidChoice, http.StatusConflict},
		{domain.ErrInvalidSnapshot, http.StatusUnprocessableEntity},
		{&domain.PersistenceError{Op: "save", Err: errors.New("down")}, http.StatusBadGateway},
		{&domain.PersistenceError{Op: "load", Err: domain.ErrSaveNotFound}, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
