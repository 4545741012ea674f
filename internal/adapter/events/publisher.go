// Package events provides the outbound observability adapter: campaign
// lifecycle events rendered as structured log lines for external
// dashboards to scrape, plus an in-process fan-out for additional
// subscribers.
package events

import (
	"log/slog"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// SlogPublisher emits lifecycle events as structured log records.
type SlogPublisher struct {
	logger *slog.Logger
}

func NewSlogPublisher(logger *slog.Logger) *SlogPublisher {
	return &SlogPublisher{logger: logger}
}

func (p *SlogPublisher) Publish(event domain.Event) {
	attrs := []any{
		slog.String("event", string(event.Kind)),
		slog.String("campaign_id", event.CampaignID),
		slog.Time("occurred_at", event.OccurredAt),
	}
	for k, v := range event.Detail {
		attrs = append(attrs, slog.Any(k, v))
	}
	p.logger.Info("campaign event", attrs...)
}

// Fanout forwards each event to every subscriber in order. Subscribers
// must not block; the engine publishes from its hot paths.
type Fanout struct {
	subscribers []port.EventPublisher
}

func NewFanout(subscribers ...port.EventPublisher) *Fanout {
	return &Fanout{subscribers: subscribers}
}

func (f *Fanout) Publish(event domain.Event) {
	for _, s := range f.subscribers {
		s.Publish(event)
	}
}

var (
	_ port.EventPublisher = (*SlogPublisher)(nil)
	_ port.EventPublisher = (*Fanout)(nil)
)
