package domain

import "time"

// Tier identifies a contractor-sourcing strategy, ordered by assumed
// quality and cost: internal registry, re-engagement pool, external
// discovery.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// Tiers lists all tiers in preference order.
var Tiers = []Tier{Tier1, Tier2, Tier3}

// ContractorCandidate is a scored, tier-tagged contractor considered for a
// campaign. Tier and score are immutable once assigned; a later discovery
// pass supersedes a candidate with a new record rather than mutating it.
type ContractorCandidate struct {
	CampaignID   string
	ContractorID string
	Contractor   Contractor // carried for dispatch; persisted by reference
	Tier         Tier
	Score        int // 0-100
	Channels     []Channel
	DiscoveredAt time.Time
}
