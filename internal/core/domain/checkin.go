package domain

import "time"

// CheckInAction is the corrective action a check-in recommends, ordered
// from least to most aggressive.
type CheckInAction string

const (
	ActionNone       CheckInAction = "none"
	ActionAddChannel CheckInAction = "add_channel"
	ActionExpandTier CheckInAction = "expand_tier"
	ActionReDiscover CheckInAction = "re_discover"
)

// aggressiveness orders actions for comparison.
var aggressiveness = map[CheckInAction]int{
	ActionNone:       0,
	ActionAddChannel: 1,
	ActionExpandTier: 2,
	ActionReDiscover: 3,
}

// MoreAggressiveThan reports whether a is a stronger intervention than b.
func (a CheckInAction) MoreAggressiveThan(b CheckInAction) bool {
	return aggressiveness[a] > aggressiveness[b]
}

// CheckInResult is a point-in-time evaluation of a campaign against its
// planned response curve. Each checkpoint fraction fires at most once per
// campaign; results are retained for audit and never mutated.
type CheckInResult struct {
	CampaignID string
	Fraction   float64
	Expected   float64
	Actual     int
	OnTrack    bool
	Action     CheckInAction
	CreatedAt  time.Time
}
