package rest

import (
	"context"
	"net/http"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
)

var _ ports.AnalyticsCollector = (*AnalyticsCollector)(nil)

// AnalyticsCollector posts events to /analytics/event.
type AnalyticsCollector struct {
	client *Client
}

// NewAnalyticsCollector creates a collector over client.
func NewAnalyticsCollector(client *Client) *AnalyticsCollector {
	return &AnalyticsCollector{client: client}
}

type wireEvent struct {
	StoryID   wireID           `json:"story_id"`
	EventType domain.EventType `json:"event_type"`
	Payload   map[string]any   `json:"payload"`
}

// Record sends one event.
func (c *AnalyticsCollector) Record(ctx context.Context, event domain.AnalyticsEvent) error {
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	body := wireEvent{StoryID: wireID(event.StoryID), EventType: event.Type, Payload: payload}
	return c.client.do(ctx, http.MethodPost, "/analytics/event", body, nil, nil)
}
