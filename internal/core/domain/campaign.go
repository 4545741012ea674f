package domain

import "time"

// Urgency classifies how quickly a project needs bids. It drives the
// campaign time budget and how aggressively the initial outreach wave is
// sized.
type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyWeek      Urgency = "week"
	UrgencyMonth     Urgency = "month"
	UrgencyFlexible  Urgency = "flexible"
)

// CampaignStatus is the lifecycle state of a campaign. Transitions are
// monotonic except the active -> check_in_pending -> escalated -> active
// cycle a check-in drives while it evaluates progress and applies a
// corrective action.
type CampaignStatus string

const (
	StatusPlanning       CampaignStatus = "planning"
	StatusActive         CampaignStatus = "active"
	StatusCheckInPending CampaignStatus = "check_in_pending"
	StatusEscalated      CampaignStatus = "escalated"
	StatusComplete       CampaignStatus = "complete"
	StatusAbandoned      CampaignStatus = "abandoned"
)

// Campaign represents one outreach effort for one project. TargetBids is
// fixed at creation. Version supports compare-and-swap updates so that
// concurrent check-ins and response ingestion never clobber each other.
type Campaign struct {
	ID              string
	ProjectID       string
	Urgency         Urgency
	TargetBids      int
	TimeBudget      time.Duration
	Status          CampaignStatus
	PlannedExpected float64 // expected responses of the current allocation
	Tier3Degraded   bool    // external discovery failed; refresh at next check-in
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Deadline is the hard end of the campaign's time budget.
func (c *Campaign) Deadline() time.Time {
	return c.CreatedAt.Add(c.TimeBudget)
}

// ElapsedFraction reports how far into the time budget the campaign is
// at now, clamped to [0,1].
func (c *Campaign) ElapsedFraction(now time.Time) float64 {
	if c.TimeBudget <= 0 {
		return 1
	}
	f := float64(now.Sub(c.CreatedAt)) / float64(c.TimeBudget)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Terminal reports whether the campaign has reached a final state.
func (c *Campaign) Terminal() bool {
	return c.Status == StatusComplete || c.Status == StatusAbandoned
}
