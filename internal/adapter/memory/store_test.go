package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

func newCampaign(id, projectID string) *domain.Campaign {
	now := time.Now()
	return &domain.Campaign{
		ID:         id,
		ProjectID:  projectID,
		Urgency:    domain.UrgencyWeek,
		TargetBids: 3,
		TimeBudget: 7 * 24 * time.Hour,
		Status:     domain.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestOneActiveCampaignPerProject(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateCampaign(ctx, newCampaign("camp-1", "proj-1")))
	err := store.CreateCampaign(ctx, newCampaign("camp-2", "proj-1"))
	assert.ErrorIs(t, err, port.ErrActiveCampaignExists)

	// A terminal campaign frees the project up again.
	done, err := store.GetCampaign(ctx, "camp-1")
	require.NoError(t, err)
	done.Status = domain.StatusComplete
	require.NoError(t, store.UpdateCampaignCAS(ctx, done))
	assert.NoError(t, store.CreateCampaign(ctx, newCampaign("camp-2", "proj-1")))
}

func TestUpdateCampaignCASConflict(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.CreateCampaign(ctx, newCampaign("camp-1", "proj-1")))

	first, err := store.GetCampaign(ctx, "camp-1")
	require.NoError(t, err)
	second, err := store.GetCampaign(ctx, "camp-1")
	require.NoError(t, err)

	first.PlannedExpected = 5
	require.NoError(t, store.UpdateCampaignCAS(ctx, first))

	// The second reader's version is stale now.
	second.PlannedExpected = 9
	err = store.UpdateCampaignCAS(ctx, second)
	assert.ErrorIs(t, err, port.ErrVersionConflict)

	stored, err := store.GetCampaign(ctx, "camp-1")
	require.NoError(t, err)
	assert.InDelta(t, 5, stored.PlannedExpected, 1e-9)
}

func TestUpsertAttemptDeduplicates(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	attempt := &domain.OutreachAttempt{
		CampaignID:   "camp-1",
		ContractorID: "c-1",
		Channel:      domain.ChannelEmail,
		Status:       domain.DeliveryQueued,
		DispatchedAt: time.Now(),
	}

	inserted, err := store.UpsertAttempt(ctx, attempt)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.UpsertAttempt(ctx, attempt)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Same contractor on a different channel is a distinct attempt.
	sms := *attempt
	sms.Channel = domain.ChannelSMS
	inserted, err = store.UpsertAttempt(ctx, &sms)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestMarkResponseIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.MarkResponse(ctx, "camp-1", "c-1", domain.ChannelEmail, time.Now())
	assert.ErrorIs(t, err, port.ErrAttemptNotFound)

	_, err = store.UpsertAttempt(ctx, &domain.OutreachAttempt{
		CampaignID:   "camp-1",
		ContractorID: "c-1",
		Channel:      domain.ChannelEmail,
		Status:       domain.DeliverySent,
		DispatchedAt: time.Now(),
	})
	require.NoError(t, err)

	recorded, err := store.MarkResponse(ctx, "camp-1", "c-1", domain.ChannelEmail, time.Now())
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = store.MarkResponse(ctx, "camp-1", "c-1", domain.ChannelEmail, time.Now())
	require.NoError(t, err)
	assert.False(t, recorded)

	n, err := store.CountResponses(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCountResponsesDistinctContractors(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for _, ch := range []domain.Channel{domain.ChannelEmail, domain.ChannelSMS} {
		_, err := store.UpsertAttempt(ctx, &domain.OutreachAttempt{
			CampaignID:   "camp-1",
			ContractorID: "c-1",
			Channel:      ch,
			Status:       domain.DeliverySent,
			DispatchedAt: time.Now(),
		})
		require.NoError(t, err)
		_, err = store.MarkResponse(ctx, "camp-1", "c-1", ch, time.Now())
		require.NoError(t, err)
	}

	// One contractor answering on two channels is still one response.
	n, err := store.CountResponses(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSaveCheckInAtMostOncePerFraction(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	result := &domain.CheckInResult{
		CampaignID: "camp-1",
		Fraction:   0.25,
		Expected:   3,
		Actual:     1,
		Action:     domain.ActionAddChannel,
		CreatedAt:  time.Now(),
	}

	saved, err := store.SaveCheckIn(ctx, result)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = store.SaveCheckIn(ctx, result)
	require.NoError(t, err)
	assert.False(t, saved)

	later := *result
	later.Fraction = 0.5
	saved, err = store.SaveCheckIn(ctx, &later)
	require.NoError(t, err)
	assert.True(t, saved)

	results, err := store.ListCheckIns(ctx, "camp-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.25, results[0].Fraction)
	assert.Equal(t, 0.5, results[1].Fraction)
}
