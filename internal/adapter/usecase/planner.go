package usecase

import (
	"fmt"
	"math"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// PlanResult is the tier allocation the planner hands to discovery and
// dispatch. Desired is what the probability model asks for; Allocated is
// Desired clamped to what each tier actually has. The plan is advisory: a
// shortfall is not an error, the first check-in deals with it.
type PlanResult struct {
	Desired    map[domain.Tier]int
	Allocated  map[domain.Tier]int
	Expected   float64 // expected responses from the allocated counts
	Shortfall  bool    // fewer candidates available than the model wants
	TimeBudget time.Duration
}

// Planner computes how many contractors to contact per tier so that the
// expected number of responses covers the bid target ("N-to-target").
// Cheaper, higher-quality tiers are exhausted first.
type Planner struct {
	tuning Tuning
}

func NewPlanner(tuning Tuning) *Planner {
	return &Planner{tuning: tuning}
}

// Plan allocates contractor counts across tiers for the project. available
// holds the per-tier candidate counts discovery found. Urgency raises the
// initial counts (front-loading the probability of early success) and sets
// the time budget, but never changes the target itself. Returns
// ErrInsufficientCandidates only when every tier is empty.
func (p *Planner) Plan(project domain.Project, targetBids int, available map[domain.Tier]int) (*PlanResult, error) {
	if targetBids < 1 {
		return nil, fmt.Errorf("target bid count must be >= 1, got %d", targetBids)
	}

	total := 0
	for _, n := range available {
		total += n
	}
	if total == 0 {
		return nil, port.ErrInsufficientCandidates
	}

	frontLoad := 1.0
	if project.Urgency == domain.UrgencyEmergency && p.tuning.FrontLoadFactor > 1 {
		frontLoad = p.tuning.FrontLoadFactor
	}

	res := &PlanResult{
		Desired:    make(map[domain.Tier]int),
		Allocated:  make(map[domain.Tier]int),
		TimeBudget: p.tuning.Budget(project.Urgency),
	}

	remaining := float64(targetBids)
	for _, tier := range domain.Tiers {
		if remaining <= 0 {
			break
		}
		rate := p.tuning.TierRates[tier]
		if rate <= 0 {
			continue
		}
		desired := int(math.Ceil(math.Ceil(remaining/rate) * frontLoad))
		if desired <= 0 {
			continue
		}
		res.Desired[tier] = desired
		take := min(desired, available[tier])
		if take > 0 {
			res.Allocated[tier] = take
			res.Expected += float64(take) * rate
		}
		remaining = float64(targetBids) - res.Expected
	}

	res.Shortfall = remaining > 0
	return res, nil
}
