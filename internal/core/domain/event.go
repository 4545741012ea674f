package domain

import "time"

// EventKind names a campaign lifecycle event emitted for external
// monitoring.
type EventKind string

const (
	EventPlanned    EventKind = "campaign.planned"
	EventDispatched EventKind = "campaign.dispatched"
	EventCheckedIn  EventKind = "campaign.checked_in"
	EventEscalated  EventKind = "campaign.escalated"
	EventCompleted  EventKind = "campaign.completed"
	EventAbandoned  EventKind = "campaign.abandoned"
)

// Event is a campaign lifecycle notification. Detail carries
// kind-specific fields (counts, check-in fraction, action taken).
type Event struct {
	Kind       EventKind
	CampaignID string
	OccurredAt time.Time
	Detail     map[string]any
}
