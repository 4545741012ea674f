package usecase

import (
	"math"
	"slices"
	"time"

	"outreach-engine/internal/core/domain"
)

// ScoreWeights distributes the 100 score points across the four match
// factors. Weights should sum to 100; the scorer does not renormalise.
type ScoreWeights struct {
	Geo          float64
	Trade        float64
	History      float64
	Availability float64
}

// DefaultScoreWeights favours proximity and trade fit over history.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Geo: 35, Trade: 30, History: 25, Availability: 10}
}

// Scorer assigns match scores to contractors for a project. Score is a
// pure function of its inputs: no I/O, no hidden clock, so identical
// inputs always produce identical scores. That property is what makes the
// tier cache and the tests reproducible.
type Scorer struct {
	weights ScoreWeights
}

func NewScorer(w ScoreWeights) *Scorer {
	return &Scorer{weights: w}
}

// Score rates how well the contractor matches the project, 0-100. now is
// the reference time for the availability factor and must be supplied by
// the caller.
func (s *Scorer) Score(c domain.Contractor, p domain.Project, now time.Time) int {
	w := s.weights
	raw := w.Geo*s.geoFactor(c, p) +
		w.Trade*s.tradeFactor(c, p) +
		w.History*historyFactor(c) +
		w.Availability*availabilityFactor(c, now)
	score := int(math.Round(raw))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// geoFactor decays linearly to 0.5 at the project radius, then
// exponentially beyond it. Distance past the stated radius is penalised
// much harder than distance within it.
func (s *Scorer) geoFactor(c domain.Contractor, p domain.Project) float64 {
	radius := p.RadiusKm
	if radius <= 0 {
		radius = 25
	}
	d := c.Geo.DistanceKm(p.Geo)
	if d <= radius {
		return 1 - 0.5*(d/radius)
	}
	return 0.5 * math.Exp(-(d-radius)/radius)
}

// tradeFactor ranks exact trade match above specialty overlap above none.
func (s *Scorer) tradeFactor(c domain.Contractor, p domain.Project) float64 {
	if slices.Contains(c.Trades, p.Trade) {
		return 1.0
	}
	for _, sp := range p.Specialties {
		if slices.Contains(c.Trades, sp) {
			return 0.6
		}
	}
	return 0
}

// historyFactor is the contractor's Laplace-smoothed response rate across
// prior campaigns: (responded+1)/(contacted+2). A contractor with no
// history gets the 0.5 prior instead of zero, so new contractors are not
// permanently buried.
func historyFactor(c domain.Contractor) float64 {
	return float64(c.RespondedCount+1) / float64(c.ContactedCount+2)
}

// availabilityFactor rewards recent activity. An unknown last-active time
// reads as neutral rather than inactive.
func availabilityFactor(c domain.Contractor, now time.Time) float64 {
	if c.LastActiveAt.IsZero() {
		return 0.5
	}
	switch age := now.Sub(c.LastActiveAt); {
	case age <= 7*24*time.Hour:
		return 1.0
	case age <= 30*24*time.Hour:
		return 0.7
	case age <= 90*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}
