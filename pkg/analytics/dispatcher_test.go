package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PixelPioneer1807/adventure/pkg/analytics"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rec := analytics.NewRecorder()
	d := analytics.NewDispatcher(rec)

	d.Emit(domain.AnalyticsEvent{StoryID: "s", Type: domain.EventStart})
	d.Emit(domain.AnalyticsEvent{StoryID: "s", Type: domain.EventChoice})
	d.Emit(domain.AnalyticsEvent{StoryID: "s", Type: domain.EventEnding})

	require.NoError(t, d.Close(context.Background()))

	events := rec.Events()
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventStart, events[0].Type)
	assert.Equal(t, domain.EventChoice, events[1].Type)
	assert.Equal(t, domain.EventEnding, events[2].Type)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp is stamped on emit")
}

func TestDispatcher_SwallowsCollectorErrors(t *testing.T) {
	calls := 0
	failing := ports.AnalyticsCollectorFunc(func(ctx context.Context, e domain.AnalyticsEvent) error {
		calls++
		return errors.New("collector down")
	})
	d := analytics.NewDispatcher(failing)

	d.Emit(domain.AnalyticsEvent{StoryID: "s", Type: domain.EventStart})
	d.Emit(domain.AnalyticsEvent{StoryID: "s", Type: domain.EventStart})

	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestDispatcher_EmitNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	blocking := ports.AnalyticsCollectorFunc(func(ctx context.Context, e domain.AnalyticsEvent) error {
		<-release
		return nil
	})
	d := analytics.NewDispatcher(blocking, analytics.WithBufferSize(1))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Emit(domain.AnalyticsEvent{StoryID: "s", Type: domain.EventChoice})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a slow collector")
	}

	close(release)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_EmitAfterClose(t *testing.T) {
	rec := analytics.NewRecorder()
	d := analytics.NewDispatcher(rec)
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()), "Close is idempotent")

	assert.NotPanics(t, func() {
		d.Emit(domain.AnalyticsEvent{StoryID: "s", Type: domain.EventStart})
	})
	assert.Empty(t, rec.Events())
}
