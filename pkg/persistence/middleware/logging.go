package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.SaveStore
	logger *slog.Logger
}

// NewLoggingMiddleware logs every store round trip at Debug level, and
// failures at Warn.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.SaveStore) ports.SaveStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) log(ctx context.Context, op string, start time.Time, err error, attrs ...any) {
	attrs = append(attrs, "op", op, "duration", time.Since(start))
	if err != nil {
		m.logger.WarnContext(ctx, "Save store call failed", append(attrs, "err", err)...)
		return
	}
	m.logger.DebugContext(ctx, "Save store call", attrs...)
}

func (m *loggingMiddleware) Create(ctx context.Context, snap domain.Snapshot) (*domain.SavedGame, error) {
	start := time.Now()
	saved, err := m.next.Create(ctx, snap)
	attrs := []any{"story_id", snap.StoryID, "auto", snap.IsAutoSave}
	if saved != nil {
		attrs = append(attrs, "save_id", saved.ID)
	}
	m.log(ctx, "create", start, err, attrs...)
	return saved, err
}

func (m *loggingMiddleware) List(ctx context.Context, storyID string) ([]domain.SavedGame, error) {
	start := time.Now()
	saves, err := m.next.List(ctx, storyID)
	m.log(ctx, "list", start, err, "story_id", storyID, "count", len(saves))
	return saves, err
}

func (m *loggingMiddleware) Load(ctx context.Context, saveID string) (*domain.SavedGame, error) {
	start := time.Now()
	saved, err := m.next.Load(ctx, saveID)
	m.log(ctx, "load", start, err, "save_id", saveID)
	return saved, err
}

func (m *loggingMiddleware) Delete(ctx context.Context, saveID string) error {
	start := time.Now()
	err := m.next.Delete(ctx, saveID)
	m.log(ctx, "delete", start, err, "save_id", saveID)
	return err
}
