package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
)

// LogCollector writes events to a logger.
// It is the default sink when no remote collector is configured.
type LogCollector struct {
	logger *slog.Logger
}

// NewLogCollector returns a collector logging at Info level.
func NewLogCollector(logger *slog.Logger) *LogCollector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogCollector{logger: logger}
}

func (c *LogCollector) Record(ctx context.Context, event domain.AnalyticsEvent) error {
	c.logger.InfoContext(ctx, "Analytics event",
		"story_id", event.StoryID,
		"session_id", event.SessionID,
		"event_type", event.Type,
		"payload", event.Payload,
	)
	return nil
}

// Recorder keeps events in memory. Useful for tests and the MCP host.
type Recorder struct {
	mu     sync.Mutex
	events []domain.AnalyticsEvent
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(_ context.Context, event domain.AnalyticsEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []domain.AnalyticsEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AnalyticsEvent(nil), r.events...)
}

// OfType returns the recorded events of the given type.
func (r *Recorder) OfType(t domain.EventType) []domain.AnalyticsEvent {
	var out []domain.AnalyticsEvent
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
