package usecase

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

func TestPlanEmergencyFrontLoads(t *testing.T) {
	planner := NewPlanner(DefaultTuning())
	project := testProject(domain.UrgencyEmergency)

	// 3 bids wanted, 5 tier-1 contractors available. The model wants
	// ceil(3/0.9)=4, front-loaded x1.5 to 6, clamped to the 5 on hand.
	plan, err := planner.Plan(project, 3, map[domain.Tier]int{domain.Tier1: 5})
	require.NoError(t, err)

	assert.Equal(t, 6, plan.Desired[domain.Tier1])
	assert.Equal(t, 5, plan.Allocated[domain.Tier1])
	assert.InDelta(t, 4.5, plan.Expected, 1e-9)
	assert.False(t, plan.Shortfall)
	assert.Equal(t, 6*time.Hour, plan.TimeBudget)

	// Tier 1 alone covers the target; cheaper tiers never spill over.
	assert.NotContains(t, plan.Allocated, domain.Tier2)
	assert.NotContains(t, plan.Allocated, domain.Tier3)
}

func TestPlanNoFrontLoadOutsideEmergency(t *testing.T) {
	planner := NewPlanner(DefaultTuning())
	project := testProject(domain.UrgencyWeek)

	plan, err := planner.Plan(project, 3, map[domain.Tier]int{domain.Tier1: 100})
	require.NoError(t, err)

	assert.Equal(t, 4, plan.Desired[domain.Tier1])
	assert.Equal(t, 4, plan.Allocated[domain.Tier1])
	assert.Equal(t, 7*24*time.Hour, plan.TimeBudget)
}

func TestPlanColdStartTier3Only(t *testing.T) {
	planner := NewPlanner(DefaultTuning())
	project := testProject(domain.UrgencyWeek)

	// Nothing in tier 1/2, 20 externally discovered contractors. The model
	// wants ceil(10/0.33)=31 but settles for everyone available and flags
	// the shortfall for the first check-in.
	plan, err := planner.Plan(project, 10, map[domain.Tier]int{domain.Tier3: 20})
	require.NoError(t, err)

	wantDesired := map[domain.Tier]int{
		domain.Tier1: 12, // ceil(10/0.90), nobody there to take
		domain.Tier2: 20, // ceil(10/0.50), same
		domain.Tier3: 31,
	}
	if diff := cmp.Diff(wantDesired, plan.Desired); diff != "" {
		t.Errorf("desired allocation mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[domain.Tier]int{domain.Tier3: 20}, plan.Allocated); diff != "" {
		t.Errorf("clamped allocation mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 6.6, plan.Expected, 1e-9)
	assert.True(t, plan.Shortfall)
}

func TestPlanFailsOnEmptyPool(t *testing.T) {
	planner := NewPlanner(DefaultTuning())
	project := testProject(domain.UrgencyWeek)

	_, err := planner.Plan(project, 3, map[domain.Tier]int{})
	assert.ErrorIs(t, err, port.ErrInsufficientCandidates)
}

func TestPlanRejectsNonPositiveTarget(t *testing.T) {
	planner := NewPlanner(DefaultTuning())
	project := testProject(domain.UrgencyWeek)

	_, err := planner.Plan(project, 0, map[domain.Tier]int{domain.Tier1: 5})
	assert.Error(t, err)
}

func TestPlanExpectationCoversTarget(t *testing.T) {
	planner := NewPlanner(DefaultTuning())
	ample := map[domain.Tier]int{domain.Tier1: 500, domain.Tier2: 500, domain.Tier3: 500}
	urgencies := []domain.Urgency{
		domain.UrgencyEmergency, domain.UrgencyWeek,
		domain.UrgencyMonth, domain.UrgencyFlexible,
	}

	for _, urgency := range urgencies {
		project := testProject(urgency)
		for target := 1; target <= 15; target++ {
			plan, err := planner.Plan(project, target, ample)
			require.NoError(t, err)

			// With enough candidates the expected response count always
			// covers the target, whatever the urgency.
			assert.GreaterOrEqual(t, plan.Expected+1e-9, float64(target),
				"urgency=%s target=%d", urgency, target)
			assert.False(t, plan.Shortfall)
			for tier, n := range plan.Allocated {
				assert.LessOrEqual(t, n, ample[tier])
				assert.LessOrEqual(t, n, plan.Desired[tier])
			}
		}
	}
}
