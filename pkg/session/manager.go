package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
)

// Manager owns the live sessions of a host process, keyed by session ID.
// Every session it creates shares the manager's graph provider, save store
// and base options.
type Manager struct {
	graphs ports.GraphProvider
	store  ports.SaveStore
	base   []Option
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithSessionOptions appends options applied to every new session.
func WithSessionOptions(opts ...Option) ManagerOption {
	return func(m *Manager) {
		m.base = append(m.base, opts...)
	}
}

// WithManagerLogger configures a logger for the Manager and its sessions.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Session Manager on the given graph source and save store.
// store may be nil, in which case sessions cannot save or load.
func NewManager(graphs ports.GraphProvider, store ports.SaveStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		graphs:   graphs,
		store:    store,
		logger:   logging.NewNop(), // Default to no-op
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a new session on a story.
func (m *Manager) Open(ctx context.Context, storyID string, opts ...Option) (*Session, error) {
	s, err := m.create(ctx, storyID, opts)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		m.discard(s)
		return nil, fmt.Errorf("start session: %w", err)
	}
	return s, nil
}

// Resume creates a session positioned on a stored save. The save is fetched
// once and applied directly.
func (m *Manager) Resume(ctx context.Context, saveID string, opts ...Option) (*Session, error) {
	if m.store == nil {
		return nil, &domain.PersistenceError{Op: "load", SaveID: saveID, Err: ErrNoSaveStore}
	}
	saved, err := m.store.Load(ctx, saveID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", SaveID: saveID, Err: err}
	}

	s, err := m.create(ctx, saved.StoryID, opts)
	if err != nil {
		return nil, err
	}
	if err := s.ApplySaved(ctx, saved); err != nil {
		m.discard(s)
		return nil, err
	}
	return s, nil
}

func (m *Manager) create(ctx context.Context, storyID string, opts []Option) (*Session, error) {
	g, err := m.graphs.Graph(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("load story %q: %w", storyID, err)
	}

	all := make([]Option, 0, len(m.base)+len(opts)+2)
	all = append(all, WithLogger(m.logger), WithStore(m.store))
	all = append(all, m.base...)
	all = append(all, opts...)

	s, err := New(g, all...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID()]; exists {
		s.Close()
		return nil, fmt.Errorf("session %q already exists", s.ID())
	}
	m.sessions[s.ID()] = s
	m.logger.Debug("Session registered", "session_id", s.ID(), "story_id", storyID)
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// Close tears a session down and forgets it.
func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	s.Close()
	return nil
}

// CloseAll tears every session down.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// List returns the live session IDs, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Graphs returns the underlying graph provider.
func (m *Manager) Graphs() ports.GraphProvider {
	return m.graphs
}

// Store returns the underlying save store.
func (m *Manager) Store() ports.SaveStore {
	return m.store
}

func (m *Manager) discard(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID())
	m.mu.Unlock()
	s.Close()
}
