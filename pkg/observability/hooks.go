package observability

import (
	"context"
	"log/slog"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
)

// LogHooks returns lifecycle hooks that log every event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStart: func(_ context.Context, e *domain.SessionEvent) {
			logger.Info("session_start", "session_id", e.SessionID, "story_id", e.StoryID, "node_id", e.NodeID)
		},
		OnChoice: func(_ context.Context, e *domain.ChoiceEvent) {
			logger.Info("choice",
				"session_id", e.SessionID,
				"node_id", e.Record.FromNodeID,
				"next_node_id", e.Record.ToNodeID,
			)
		},
		OnEnding: func(_ context.Context, e *domain.SessionEvent) {
			logger.Info("ending", "session_id", e.SessionID, "node_id", e.NodeID, "winning", e.Winning)
		},
		OnSave: func(_ context.Context, e *domain.PersistenceEvent) {
			logPersistence(logger, "save", e)
		},
		OnLoad: func(_ context.Context, e *domain.PersistenceEvent) {
			logPersistence(logger, "load", e)
		},
	}
}

func logPersistence(logger *slog.Logger, op string, e *domain.PersistenceEvent) {
	attrs := []any{
		"session_id", e.SessionID,
		"save_id", e.SaveID,
		"auto_save", e.AutoSave,
		"generation", e.Generation,
	}
	switch {
	case e.Err != nil:
		logger.Warn(op+"_failed", append(attrs, "err", e.Err)...)
	case e.Skipped:
		logger.Debug(op+"_skipped", attrs...)
	case e.Stale:
		logger.Debug(op+"_stale", attrs...)
	default:
		logger.Info(op, attrs...)
	}
}

// Chain merges several hook sets. Each callback runs in argument order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnStart = chain(out.OnStart, h.OnStart)
		out.OnChoice = chain(out.OnChoice, h.OnChoice)
		out.OnEnding = chain(out.OnEnding, h.OnEnding)
		out.OnSave = chain(out.OnSave, h.OnSave)
		out.OnLoad = chain(out.OnLoad, h.OnLoad)
	}
	return out
}

func chain[E any](first, next func(context.Context, E)) func(context.Context, E) {
	switch {
	case next == nil:
		return first
	case first == nil:
		return next
	}
	return func(ctx context.Context, e E) {
		first(ctx, e)
		next(ctx, e)
	}
}
