package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
)

// StreamManager handles active SSE connections and turns successive session
// views into diffs. Publish is meant to be installed as a session.ViewListener.
type StreamManager struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // SessionID -> Set of Channels
	last        map[string]domain.SessionView
}

// NewStreamManager creates an empty stream manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[string]map[chan string]struct{}),
		last:        make(map[string]domain.SessionView),
	}
}

// Subscribe registers a channel for a session. The returned func unsubscribes.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				if _, ok := subs[ch]; ok {
					delete(subs, ch)
					close(ch)
				}
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Publish diffs view against the previous view of the same session and
// broadcasts the diff when something changed.
func (sm *StreamManager) Publish(view domain.SessionView) {
	sm.mu.Lock()
	prev, seen := sm.last[view.SessionID]
	sm.last[view.SessionID] = view
	sm.mu.Unlock()

	var diff *domain.ViewDiff
	if seen {
		diff = domain.Diff(&prev, &view)
	} else {
		diff = domain.Diff(nil, &view)
	}
	if diff == nil {
		sm.logger.Debug("StreamManager: No diff calculated", "session_id", view.SessionID)
		return
	}

	bytes, err := json.Marshal(diff)
	if err != nil {
		sm.logger.Error("StreamManager: diff encode failed", "session_id", view.SessionID, "err", err)
		return
	}
	sm.Broadcast(view.SessionID, string(bytes))
}

// Broadcast sends msg to every subscriber of the session.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sm.logger.Debug("StreamManager: Broadcasting", "session_id", sessionID, "payload_size", len(msg))

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Forget drops the session's subscribers and remembered view.
func (sm *StreamManager) Forget(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for ch := range sm.subscribers[sessionID] {
		close(ch)
	}
	delete(sm.subscribers, sessionID)
	delete(sm.last, sessionID)
}
