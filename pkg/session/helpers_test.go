package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/PixelPioneer1807/adventure/pkg/adapters/memory"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/session"
	"github.com/stretchr/testify/require"
)

// scenarioGraph is the two-node graph used throughout the tests.
func scenarioGraph() *domain.StoryGraph {
	return domain.NewStoryGraph("cave", "root",
		domain.StoryNode{ID: "root", Content: "A", Options: []domain.Choice{{TargetNodeID: "b", Text: "go"}}},
		domain.StoryNode{ID: "b", Content: "B", IsEnding: true, IsWinningEnding: true},
	)
}

// loopGraph has a cycle (hall <-> room) and two endings.
func loopGraph() *domain.StoryGraph {
	return domain.NewStoryGraph("loop", "hall",
		domain.StoryNode{ID: "hall", Content: "Hall", Options: []domain.Choice{
			{TargetNodeID: "room", Text: "enter"},
			{TargetNodeID: "exit", Text: "leave"},
		}},
		domain.StoryNode{ID: "room", Content: "Room", Options: []domain.Choice{
			{TargetNodeID: "hall", Text: "back"},
			{TargetNodeID: "pit", Text: "jump"},
		}},
		domain.StoryNode{ID: "exit", Content: "Free", IsEnding: true, IsWinningEnding: true},
		domain.StoryNode{ID: "pit", Content: "Dark", IsEnding: true},
	)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// manualTicker only fires when the test says so.
type manualTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *manualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type tickers struct {
	mu  sync.Mutex
	all []*manualTicker
}

func (ts *tickers) factory(time.Duration) session.Ticker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &manualTicker{c: make(chan time.Time)}
	ts.all = append(ts.all, t)
	return t
}

func (ts *tickers) active() []*manualTicker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	var out []*manualTicker
	for _, t := range ts.all {
		if !t.isStopped() {
			out = append(out, t)
		}
	}
	return out
}

func (ts *tickers) created() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.all)
}

// fire delivers one tick to the armed ticker. It fails the test when no
// ticker is armed.
func (ts *tickers) fire(t *testing.T) {
	t.Helper()
	active := ts.active()
	require.Len(t, active, 1, "exactly one auto-save timer must be armed")
	select {
	case active[0].c <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("auto-save task did not receive the tick")
	}
}

// gatedStore wraps memory.Store so tests can hold requests in flight.
type gatedStore struct {
	*memory.Store

	mu            sync.Mutex
	createGate    chan struct{}
	createEntered chan struct{}
	createErr     error
	loadGate      chan struct{}
	loadEntered   chan struct{}
	creates       int
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Store:         memory.NewStore(),
		createEntered: make(chan struct{}, 16),
		loadEntered:   make(chan struct{}, 16),
	}
}

// holdCreates makes Create block until the returned function is called.
func (g *gatedStore) holdCreates() (release func()) {
	gate := make(chan struct{})
	g.mu.Lock()
	g.createGate = gate
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.createGate = nil
		g.mu.Unlock()
		close(gate)
	}
}

// holdLoads makes Load block until the returned function is called.
func (g *gatedStore) holdLoads() (release func()) {
	gate := make(chan struct{})
	g.mu.Lock()
	g.loadGate = gate
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.loadGate = nil
		g.mu.Unlock()
		close(gate)
	}
}

func (g *gatedStore) failNextCreate(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createErr = err
}

func (g *gatedStore) createCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creates
}

func (g *gatedStore) Create(ctx context.Context, snap domain.Snapshot) (*domain.SavedGame, error) {
	g.mu.Lock()
	gate, err := g.createGate, g.createErr
	g.createErr = nil
	g.creates++
	g.mu.Unlock()

	select {
	case g.createEntered <- struct{}{}:
	default:
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return g.Store.Create(ctx, snap)
}

func (g *gatedStore) Load(ctx context.Context, saveID string) (*domain.SavedGame, error) {
	g.mu.Lock()
	gate := g.loadGate
	g.mu.Unlock()

	select {
	case g.loadEntered <- struct{}{}:
	default:
	}
	if gate != nil {
		<-gate
	}
	return g.Store.Load(ctx, saveID)
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// eventLog is a synchronous analytics emitter.
type eventLog struct {
	mu     sync.Mutex
	events []domain.AnalyticsEvent
}

func (l *eventLog) Emit(e domain.AnalyticsEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(t domain.EventType) []domain.AnalyticsEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.AnalyticsEvent
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	session *session.Session
	store   *gatedStore
	tickers *tickers
	clock   *fakeClock
	events  *eventLog
	saves   chan *domain.PersistenceEvent
}

func newHarness(t *testing.T, g *domain.StoryGraph, opts ...session.Option) *harness {
	t.Helper()
	h := &harness{
		store:   newGatedStore(),
		tickers: &tickers{},
		clock:   newClock(),
		events:  &eventLog{},
		saves:   make(chan *domain.PersistenceEvent, 16),
	}
	all := []session.Option{
		session.WithStore(h.store),
		session.WithTicker(h.tickers.factory),
		session.WithClock(h.clock.Now),
		session.WithEmitter(h.events),
		session.WithHooks(domain.LifecycleHooks{
			OnSave: func(_ context.Context, e *domain.PersistenceEvent) {
			select {
			case h.saves <- e:
			default:
			}
		},
		}),
	}
	s, err := session.New(g, append(all, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	h.session = s
	return h
}

func (h *harness) nextSaveEvent(t *testing.T) *domain.PersistenceEvent {
	t.Helper()
	select {
	case e := <-h.saves:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a save event")
		return nil
	}
}
