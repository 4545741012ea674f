package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"outreach-engine/internal/core/domain"
)

func TestScoreDeterministic(t *testing.T) {
	scorer := NewScorer(DefaultScoreWeights())
	project := testProject(domain.UrgencyWeek)
	contractor := testContractor("c-1")
	contractor.ContactedCount = 5
	contractor.RespondedCount = 3
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	first := scorer.Score(contractor, project, now)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, scorer.Score(contractor, project, now))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.LessOrEqual(t, first, 100)
}

func TestScoreSmoothedHistoryPrior(t *testing.T) {
	scorer := NewScorer(DefaultScoreWeights())
	project := testProject(domain.UrgencyWeek)
	now := time.Now()

	fresh := testContractor("fresh")

	burned := testContractor("burned")
	burned.ContactedCount = 10
	burned.RespondedCount = 0

	// A contractor with no history gets the neutral prior, not zero, so it
	// must outrank one with a long record of silence.
	assert.Greater(t, scorer.Score(fresh, project, now), scorer.Score(burned, project, now))

	proven := testContractor("proven")
	proven.ContactedCount = 10
	proven.RespondedCount = 9
	assert.Greater(t, scorer.Score(proven, project, now), scorer.Score(fresh, project, now))
}

func TestScoreGeoDecay(t *testing.T) {
	scorer := NewScorer(DefaultScoreWeights())
	project := testProject(domain.UrgencyWeek)
	now := time.Now()

	near := testContractor("near")
	near.Geo = project.Geo

	atRadius := testContractor("edge")
	atRadius.Geo = domain.GeoPoint{Lat: project.Geo.Lat + 0.25, Lng: project.Geo.Lng}

	far := testContractor("far")
	far.Geo = domain.GeoPoint{Lat: project.Geo.Lat + 1.5, Lng: project.Geo.Lng}

	nearScore := scorer.Score(near, project, now)
	edgeScore := scorer.Score(atRadius, project, now)
	farScore := scorer.Score(far, project, now)

	assert.Greater(t, nearScore, edgeScore)
	assert.Greater(t, edgeScore, farScore)
}

func TestScoreTradeMatch(t *testing.T) {
	scorer := NewScorer(DefaultScoreWeights())
	project := testProject(domain.UrgencyWeek)
	project.Specialties = []string{"drain_cleaning"}
	now := time.Now()

	exact := testContractor("exact", "plumbing")
	specialty := testContractor("specialty", "drain_cleaning")
	unrelated := testContractor("unrelated", "roofing")

	assert.Greater(t, scorer.Score(exact, project, now), scorer.Score(specialty, project, now))
	assert.Greater(t, scorer.Score(specialty, project, now), scorer.Score(unrelated, project, now))
}

func TestScoreAvailabilityRecency(t *testing.T) {
	scorer := NewScorer(DefaultScoreWeights())
	project := testProject(domain.UrgencyWeek)
	now := time.Now()

	active := testContractor("active")
	active.LastActiveAt = now.Add(-48 * time.Hour)

	dormant := testContractor("dormant")
	dormant.LastActiveAt = now.Add(-120 * 24 * time.Hour)

	assert.Greater(t, scorer.Score(active, project, now), scorer.Score(dormant, project, now))
}
