package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/navigator"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
	"github.com/google/uuid"
)

// ErrNoSaveStore is returned by save and load operations on a session built without a store.
var ErrNoSaveStore = errors.New("no save store configured")

// Session owns the single SessionState of one play session and coordinates
// it with the save store and the auto-save timer.
//
// All mutations happen under mu. Round trips to the store run unlocked and
// are tagged with the generation at issue time; a response whose generation
// no longer matches is discarded.
type Session struct {
	id          string
	graph       *domain.StoryGraph
	store       ports.SaveStore
	emitter     Emitter
	hooks       domain.LifecycleHooks
	listener    ViewListener
	logger      *slog.Logger
	now         func() time.Time
	newTicker   TickerFactory
	interval    time.Duration
	saveTimeout time.Duration

	// ctx is cancelled on Close so background requests do not outlive the session.
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         *domain.State
	autoSave      bool
	gen           uint64
	savesInFlight int
	loading       bool
	closed        bool
	task          *autoSaveTask
	lastSave      *domain.SavedGame
}

// New creates an uninitialized session on g. Call Start, LoadFrom or LoadSave to begin.
func New(g *domain.StoryGraph, opts ...Option) (*Session, error) {
	if g == nil {
		return nil, fmt.Errorf("new session: %w", domain.ErrStoryNotFound)
	}

	s := &Session{
		id:          uuid.NewString(),
		graph:       g,
		logger:      logging.NewNop(),
		now:         time.Now,
		newTicker:   NewTimeTicker,
		interval:    DefaultAutoSaveInterval,
		saveTimeout: DefaultSaveTimeout,
		autoSave:    true,
		state:       domain.NewState(g.StoryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.AutoSaveEnabled = s.autoSave
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// StoryID returns the identifier of the story being played.
func (s *Session) StoryID() string { return s.graph.StoryID }

// Graph returns the immutable story graph.
func (s *Session) Graph() *domain.StoryGraph { return s.graph }

// Start positions the session on the root node, discarding any history.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkIdle(); err != nil {
		s.mu.Unlock()
		return err
	}

	next, err := ApplyStart(s.graph, s.now(), s.autoSave)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.replace(next)
	event, view := s.sessionEvent(), s.viewLocked()
	s.mu.Unlock()

	s.logger.Info("Session started", "session_id", s.id, "story_id", s.graph.StoryID, "node_id", event.NodeID)
	s.afterStart(ctx, event, view)
	return nil
}

// Restart reinitializes the session exactly as Start ("play again").
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkIdle(); err != nil {
		s.mu.Unlock()
		return err
	}

	next, err := ApplyRestart(s.state, s.graph, s.now())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.replace(next)
	event, view := s.sessionEvent(), s.viewLocked()
	s.mu.Unlock()

	s.logger.Info("Session restarted", "session_id", s.id, "story_id", s.graph.StoryID)
	s.afterStart(ctx, event, view)
	return nil
}

// Choose moves the session along the option of the current node that targets
// targetNodeID. On error the state is left unchanged.
// Choices are accepted while a background save is in flight.
func (s *Session) Choose(ctx context.Context, targetNodeID, text string) (domain.ChoiceRecord, error) {
	s.mu.Lock()
	if err := s.checkIdle(); err != nil {
		s.mu.Unlock()
		return domain.ChoiceRecord{}, err
	}

	next, record, err := ApplyChoice(s.state, s.graph, targetNodeID, text, s.now())
	if err != nil {
		current := s.state.CurrentNodeID
		s.mu.Unlock()
		s.logger.Warn("Choice rejected",
			"session_id", s.id,
			"node_id", current,
			"target", targetNodeID,
			"err", err,
		)
		return domain.ChoiceRecord{}, err
	}

	s.state = next
	s.rearm(false) // Terminal status may have changed
	ended := next.Ended()
	minutes := next.ElapsedMinutes(s.now())
	view := s.viewLocked()
	var ending *domain.SessionEvent
	if ended {
		ending = s.sessionEvent()
	}
	s.mu.Unlock()

	choiceEvent := &domain.ChoiceEvent{
		Timestamp: record.Timestamp,
		SessionID: s.id,
		StoryID:   s.graph.StoryID,
		Record:    record,
	}
	s.emit(domain.EventChoice, map[string]any{
		"node_id":      record.FromNodeID,
		"next_node_id": record.ToNodeID,
		"option_text":  record.Text,
	})
	if s.hooks.OnChoice != nil {
		s.hooks.OnChoice(ctx, choiceEvent)
	}

	if ending != nil {
		s.logger.Info("Session reached an ending",
			"session_id", s.id,
			"node_id", ending.NodeID,
			"winning", ending.Winning,
		)
		s.emit(domain.EventEnding, map[string]any{
			"node_id":           ending.NodeID,
			"is_winning_ending": ending.Winning,
			"play_time_minutes": minutes,
		})
		if s.hooks.OnEnding != nil {
			s.hooks.OnEnding(ctx, ending)
		}
	}

	s.notify(view)
	return record, nil
}

// ElapsedMinutes is the floor of the minutes since the session started.
func (s *Session) ElapsedMinutes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ElapsedMinutes(s.now())
}

// SaveNow sends a snapshot of the current state to the save store.
// A failed save leaves the state unchanged and returns a *domain.PersistenceError.
// A response superseded by a load, restart or teardown is discarded and
// reported as domain.ErrStaleResponse.
func (s *Session) SaveNow(ctx context.Context, name string, isAutoSave bool) (*domain.SavedGame, error) {
	s.mu.Lock()
	if err := s.checkIdle(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !s.state.Started() {
		s.mu.Unlock()
		return nil, domain.ErrNotStarted
	}
	if s.store == nil {
		s.mu.Unlock()
		return nil, &domain.PersistenceError{Op: "save", Err: ErrNoSaveStore}
	}
	snap, gen := s.issueSave(name, isAutoSave)
	s.mu.Unlock()

	saved, err := s.store.Create(ctx, snap)
	return s.completeSave(ctx, saved, err, gen, isAutoSave)
}

// issueSave snapshots the state and marks a save in flight. Must hold mu.
func (s *Session) issueSave(name string, isAutoSave bool) (domain.Snapshot, uint64) {
	if name == "" {
		name = "Manual Save"
		if isAutoSave {
			name = domain.AutoSaveName
		}
	}
	s.savesInFlight++
	return s.state.Snapshot(name, isAutoSave, s.now()), s.gen
}

func (s *Session) completeSave(ctx context.Context, saved *domain.SavedGame, err error, gen uint64, isAutoSave bool) (*domain.SavedGame, error) {
	s.mu.Lock()
	s.savesInFlight--
	stale := s.closed || s.gen != gen
	event := &domain.PersistenceEvent{
		Timestamp:  s.now(),
		SessionID:  s.id,
		StoryID:    s.graph.StoryID,
		AutoSave:   isAutoSave,
		Generation: gen,
		Stale:      stale && err == nil,
		Err:        err,
	}
	var view *domain.SessionView
	if err == nil {
		event.SaveID = saved.ID
		if !stale {
			copied := *saved
			s.lastSave = &copied
			v := s.viewLocked()
			view = &v
		}
	}
	s.mu.Unlock()

	if s.hooks.OnSave != nil {
		s.hooks.OnSave(ctx, event)
	}

	switch {
	case err != nil:
		s.logger.Error("Save failed", "session_id", s.id, "generation", gen, "auto_save", isAutoSave, "err", err)
		return nil, &domain.PersistenceError{Op: "save", Err: err}
	case stale:
		s.logger.Debug("Stale save response discarded", "session_id", s.id, "save_id", saved.ID, "generation", gen)
		return nil, fmt.Errorf("save %s: %w", saved.ID, domain.ErrStaleResponse)
	}

	s.logger.Info("Game saved", "session_id", s.id, "save_id", saved.ID, "auto_save", isAutoSave)
	s.notify(*view)
	return saved, nil
}

// LoadFrom atomically replaces the whole state with snap.
// An invalid snapshot leaves the state unchanged.
func (s *Session) LoadFrom(ctx context.Context, snap domain.Snapshot) error {
	return s.apply(ctx, snap, nil)
}

// ApplySaved applies a save already fetched from the store, without another
// round trip, and records it as the last save.
// An invalid save leaves the state unchanged.
func (s *Session) ApplySaved(ctx context.Context, saved *domain.SavedGame) error {
	if saved == nil {
		return fmt.Errorf("%w: no save", domain.ErrInvalidSnapshot)
	}
	return s.apply(ctx, saved.Snapshot(), saved)
}

func (s *Session) apply(ctx context.Context, snap domain.Snapshot, saved *domain.SavedGame) error {
	s.mu.Lock()
	if err := s.checkIdle(); err != nil {
		s.mu.Unlock()
		return err
	}
	next, err := ApplyLoad(s.graph, snap, s.autoSave, s.now())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.replace(next)
	saveID := ""
	if saved != nil {
		copied := *saved
		s.lastSave = &copied
		saveID = saved.ID
	}
	event := s.loadEvent(saveID, nil)
	view := s.viewLocked()
	s.mu.Unlock()

	s.logger.Info("Snapshot loaded", "session_id", s.id, "save_id", saveID, "node_id", next.CurrentNodeID)
	if s.hooks.OnLoad != nil {
		s.hooks.OnLoad(ctx, event)
	}
	s.notify(view)
	return nil
}

// LoadSave fetches a save from the store and applies it.
//
// While the request is in flight the session is busy: the auto-save task is
// disarmed and play operations return domain.ErrBusy. A later LoadSave
// supersedes this one, whose response is then discarded as stale.
// On failure the session keeps its pre-load state.
func (s *Session) LoadSave(ctx context.Context, saveID string) (*domain.SavedGame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.ErrSessionClosed
	}
	if s.store == nil {
		s.mu.Unlock()
		return nil, &domain.PersistenceError{Op: "load", SaveID: saveID, Err: ErrNoSaveStore}
	}
	s.loading = true
	s.gen++
	gen := s.gen
	s.rearm(true)
	busyView := s.viewLocked()
	s.mu.Unlock()
	s.notify(busyView)

	saved, err := s.store.Load(ctx, saveID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("Load response after teardown discarded", "session_id", s.id, "save_id", saveID)
		return nil, domain.ErrSessionClosed
	}
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("Stale load response discarded", "session_id", s.id, "save_id", saveID, "generation", gen)
		stale := &domain.PersistenceEvent{Timestamp: s.now(), SessionID: s.id, StoryID: s.graph.StoryID, SaveID: saveID, Generation: gen, Stale: true}
		if s.hooks.OnLoad != nil {
			s.hooks.OnLoad(ctx, stale)
		}
		return nil, fmt.Errorf("load %s: %w", saveID, domain.ErrStaleResponse)
	}

	s.loading = false
	if err == nil {
		var next *domain.State
		next, err = ApplyLoad(s.graph, saved.Snapshot(), s.autoSave, s.now())
		if err == nil {
			s.state = next
			copied := *saved
			s.lastSave = &copied
		}
	}
	s.rearm(true)
	event := s.loadEvent(saveID, err)
	view := s.viewLocked()
	s.mu.Unlock()

	if s.hooks.OnLoad != nil {
		s.hooks.OnLoad(ctx, event)
	}
	s.notify(view)

	if err != nil {
		s.logger.Error("Load failed", "session_id", s.id, "save_id", saveID, "err", err)
		if errors.Is(err, domain.ErrInvalidSnapshot) || errors.Is(err, domain.ErrNodeNotFound) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "load", SaveID: saveID, Err: err}
	}
	s.logger.Info("Save loaded", "session_id", s.id, "save_id", saveID, "node_id", saved.CurrentNodeID)
	return saved, nil
}

// SetAutoSaveEnabled toggles the auto-save preference.
// Disabling takes effect immediately: no tick fires after this returns.
func (s *Session) SetAutoSaveEnabled(enabled bool) {
	s.mu.Lock()
	if s.closed || s.autoSave == enabled {
		s.mu.Unlock()
		return
	}
	s.autoSave = enabled
	next := s.state.Clone()
	next.AutoSaveEnabled = enabled
	s.state = next
	s.rearm(false)
	view := s.viewLocked()
	s.mu.Unlock()

	s.logger.Debug("Auto-save toggled", "session_id", s.id, "enabled", enabled)
	s.notify(view)
}

// Close tears the session down. In-flight responses arriving afterwards are discarded.
// Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	s.rearm(true)
	s.mu.Unlock()

	s.cancel()
	s.logger.Debug("Session closed", "session_id", s.id)
}

// State returns a copy of the current state.
func (s *Session) State() *domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// View returns the externally visible projection of the session.
func (s *Session) View() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// LastSave returns the most recent successful, non-stale save, or nil.
func (s *Session) LastSave() *domain.SavedGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSave == nil {
		return nil
	}
	copied := *s.lastSave
	return &copied
}

// Generation returns the current session generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Busy reports whether a load is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Closed reports whether the session was torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// AutoSaveArmed reports whether the auto-save timer is currently armed.
func (s *Session) AutoSaveArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task != nil
}

// checkIdle must hold mu.
func (s *Session) checkIdle() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.loading {
		return domain.ErrBusy
	}
	return nil
}

// replace installs a wholesale new state, bumps the generation and restarts
// the auto-save timer. Must hold mu.
func (s *Session) replace(next *domain.State) {
	s.state = next
	s.gen++
	s.rearm(true)
}

// rearm is the single place the auto-save task is armed or disarmed.
// fresh discards an armed task so the period restarts. Must hold mu.
func (s *Session) rearm(fresh bool) {
	wanted := !s.closed &&
		!s.loading &&
		s.store != nil &&
		s.autoSave &&
		s.state.Started() &&
		!s.state.Ended()

	if s.task != nil && (fresh || !wanted) {
		s.task.cancel()
		s.task = nil
	}
	if wanted && s.task == nil {
		s.task = &autoSaveTask{ticker: s.newTicker(s.interval), stop: make(chan struct{})}
		go s.runTask(s.task)
	}
}

func (s *Session) runTask(t *autoSaveTask) {
	for {
		select {
		case <-t.stop:
			return
		case <-t.ticker.C():
			s.autoSaveTick(t)
		}
	}
}

// autoSaveTick is a no-op unless t is still the armed task.
func (s *Session) autoSaveTick(t *autoSaveTask) {
	s.mu.Lock()
	if s.task != t {
		s.mu.Unlock()
		return
	}
	if s.savesInFlight > 0 {
		event := &domain.PersistenceEvent{
			Timestamp:  s.now(),
			SessionID:  s.id,
			StoryID:    s.graph.StoryID,
			AutoSave:   true,
			Generation: s.gen,
			Skipped:    true,
		}
		s.mu.Unlock()
		s.logger.Debug("Auto-save tick skipped, save in flight", "session_id", s.id)
		if s.hooks.OnSave != nil {
			s.hooks.OnSave(s.ctx, event)
		}
		return
	}
	snap, gen := s.issueSave(domain.AutoSaveName, true)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.saveTimeout)
	defer cancel()
	saved, err := s.store.Create(ctx, snap)
	_, _ = s.completeSave(ctx, saved, err, gen, true)
}

// Must hold mu.
func (s *Session) viewLocked() domain.SessionView {
	st := s.state.Clone()
	view := domain.SessionView{
		SessionID:       s.id,
		StoryID:         s.graph.StoryID,
		Status:          st.Status,
		CurrentNodeID:   st.CurrentNodeID,
		VisitedNodeIDs:  st.VisitedNodeIDs,
		ChoiceHistory:   st.ChoiceHistory,
		PlayTimeMinutes: st.ElapsedMinutes(s.now()),
		AutoSaveEnabled: s.autoSave,
		Busy:            s.loading,
	}
	if node, err := navigator.Resolve(s.graph, st.CurrentNodeID); err == nil {
		view.Node = node
	}
	if s.lastSave != nil {
		view.LastSaveID = s.lastSave.ID
	}
	return view
}

// Must hold mu.
func (s *Session) sessionEvent() *domain.SessionEvent {
	event := &domain.SessionEvent{
		Timestamp: s.now(),
		SessionID: s.id,
		StoryID:   s.graph.StoryID,
		NodeID:    s.state.CurrentNodeID,
	}
	if node, err := navigator.Resolve(s.graph, s.state.CurrentNodeID); err == nil {
		event.Winning = node.IsEnding && node.IsWinningEnding
	}
	return event
}

// Must hold mu.
func (s *Session) loadEvent(saveID string, err error) *domain.PersistenceEvent {
	return &domain.PersistenceEvent{
		Timestamp:  s.now(),
		SessionID:  s.id,
		StoryID:    s.graph.StoryID,
		SaveID:     saveID,
		Generation: s.gen,
		Err:        err,
	}
}

func (s *Session) afterStart(ctx context.Context, event *domain.SessionEvent, view domain.SessionView) {
	s.emit(domain.EventStart, map[string]any{"node_id": event.NodeID})
	if s.hooks.OnStart != nil {
		s.hooks.OnStart(ctx, event)
	}
	s.notify(view)
}

func (s *Session) emit(t domain.EventType, payload map[string]any) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(domain.AnalyticsEvent{
		StoryID:   s.graph.StoryID,
		SessionID: s.id,
		Type:      t,
		Payload:   payload,
		Timestamp: s.now(),
	})
}

func (s *Session) notify(view domain.SessionView) {
	if s.listener != nil {
		s.listener(view)
	}
}
