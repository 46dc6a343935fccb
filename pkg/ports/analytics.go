package ports

import (
	"context"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
)

// AnalyticsCollector records lifecycle events.
// Delivery is best-effort; the engine logs and ignores returned errors.
type AnalyticsCollector interface {
	Record(ctx context.Context, event domain.AnalyticsEvent) error
}

// AnalyticsCollectorFunc adapts a function to AnalyticsCollector.
type AnalyticsCollectorFunc func(ctx context.Context, event domain.AnalyticsEvent) error

func (f AnalyticsCollectorFunc) Record(ctx context.Context, event domain.AnalyticsEvent) error {
	return f(ctx, event)
}
