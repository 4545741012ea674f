package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine/internal/adapter/memory"
	"outreach-engine/internal/core/domain"
)

func testCampaign(id string) *domain.Campaign {
	now := time.Now()
	return &domain.Campaign{
		ID:         id,
		ProjectID:  "proj-1",
		Urgency:    domain.UrgencyWeek,
		TargetBids: 3,
		TimeBudget: 7 * 24 * time.Hour,
		Status:     domain.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// candidateFor derives a campaign-bound candidate from a contractor.
func candidateFor(campaignID string, c domain.Contractor, tier domain.Tier) domain.ContractorCandidate {
	return domain.ContractorCandidate{
		CampaignID:   campaignID,
		ContractorID: c.ID,
		Contractor:   c,
		Tier:         tier,
		Score:        50,
		Channels:     c.Channels(),
		DiscoveredAt: time.Now(),
	}
}

func TestDispatchIdempotent(t *testing.T) {
	store := memory.NewStore()
	sender := &fakeSender{}
	dispatcher := NewDispatcher(store, allSenders(sender), testDispatchConfig(), testLogger)
	campaign := testCampaign("camp-1")

	a := testContractor("c-a")
	a.Phone = "+13035550001"
	b := testContractor("c-b")
	b.Phone = "+13035550002"
	candidates := []domain.ContractorCandidate{
		candidateFor(campaign.ID, a, domain.Tier1),
		candidateFor(campaign.ID, b, domain.Tier1),
	}

	dispatched, err := dispatcher.Dispatch(context.Background(), campaign, candidates)
	require.NoError(t, err)
	assert.Equal(t, 4, dispatched)

	// Re-running the exact same dispatch sends nothing new.
	dispatched, err = dispatcher.Dispatch(context.Background(), campaign, candidates)
	require.NoError(t, err)
	assert.Equal(t, 0, dispatched)

	attempts, err := store.ListAttempts(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 4)
	assert.Equal(t, 4, sender.sentCount())
}

func TestDispatchIsolatesChannelFailure(t *testing.T) {
	store := memory.NewStore()
	campaign := testCampaign("camp-2")
	a := testContractor("c-a")
	a.Phone = "+13035550001"
	b := testContractor("c-b")

	failKey := domain.AttemptKey(campaign.ID, a.ID, domain.ChannelSMS)
	sender := &fakeSender{fail: map[string]bool{failKey: true}}
	dispatcher := NewDispatcher(store, allSenders(sender), testDispatchConfig(), testLogger)

	candidates := []domain.ContractorCandidate{
		candidateFor(campaign.ID, a, domain.Tier1),
		candidateFor(campaign.ID, b, domain.Tier1),
	}
	dispatched, err := dispatcher.Dispatch(context.Background(), campaign, candidates)
	require.NoError(t, err)
	assert.Equal(t, 2, dispatched)

	attempts, err := store.ListAttempts(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	for _, attempt := range attempts {
		if attempt.ContractorID == a.ID && attempt.Channel == domain.ChannelSMS {
			assert.Equal(t, domain.DeliveryFailed, attempt.Status)
		} else {
			assert.Equal(t, domain.DeliverySent, attempt.Status)
		}
	}
}

func TestDispatchSkipsRespondedContractors(t *testing.T) {
	store := memory.NewStore()
	sender := &fakeSender{}
	dispatcher := NewDispatcher(store, allSenders(sender), testDispatchConfig(), testLogger)
	campaign := testCampaign("camp-3")

	a := testContractor("c-a")
	a.Phone = "+13035550001"
	b := testContractor("c-b")

	// Contractor a already responded over email in an earlier wave.
	_, err := store.UpsertAttempt(context.Background(), &domain.OutreachAttempt{
		CampaignID:   campaign.ID,
		ContractorID: a.ID,
		Channel:      domain.ChannelEmail,
		Status:       domain.DeliverySent,
		DispatchedAt: time.Now(),
	})
	require.NoError(t, err)
	_, err = store.MarkResponse(context.Background(), campaign.ID, a.ID, domain.ChannelEmail, time.Now())
	require.NoError(t, err)

	candidates := []domain.ContractorCandidate{
		candidateFor(campaign.ID, a, domain.Tier1),
		candidateFor(campaign.ID, b, domain.Tier1),
	}
	dispatched, err := dispatcher.Dispatch(context.Background(), campaign, candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, dispatched)

	attempts, err := store.ListAttempts(context.Background(), campaign.ID)
	require.NoError(t, err)
	// No sms follow-up to a: a responded contractor is left alone entirely.
	require.Len(t, attempts, 2)
	for _, attempt := range attempts {
		if attempt.ContractorID == a.ID {
			assert.Equal(t, domain.ChannelEmail, attempt.Channel)
		}
	}
}

func TestDispatchMissingSenderFailsAttempt(t *testing.T) {
	store := memory.NewStore()
	sender := &fakeSender{}
	senders := allSenders(sender)
	delete(senders, domain.ChannelSMS)
	dispatcher := NewDispatcher(store, senders, testDispatchConfig(), testLogger)
	campaign := testCampaign("camp-4")

	a := testContractor("c-a")
	a.Phone = "+13035550001"
	dispatched, err := dispatcher.Dispatch(context.Background(), campaign,
		[]domain.ContractorCandidate{candidateFor(campaign.ID, a, domain.Tier1)})
	require.NoError(t, err)
	assert.Equal(t, 1, dispatched)

	attempts, err := store.ListAttempts(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	for _, attempt := range attempts {
		if attempt.Channel == domain.ChannelSMS {
			assert.Equal(t, domain.DeliveryFailed, attempt.Status)
		}
	}
}
