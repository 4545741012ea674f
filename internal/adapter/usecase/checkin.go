package usecase

import (
	"context"
	"log/slog"
	"math"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// CheckIn evaluates campaign progress against the planned response curve
// at checkpoint fractions of the time budget and hands behind-schedule
// results to the escalator. Checkpoints fire at most once per campaign;
// the store's unique (campaign, fraction) constraint is the gate.
type CheckIn struct {
	store     port.CampaignStore
	tuning    Tuning
	escalator *Escalator
	events    port.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewCheckIn(store port.CampaignStore, tuning Tuning, escalator *Escalator, events port.EventPublisher, logger *slog.Logger) *CheckIn {
	return &CheckIn{
		store:     store,
		tuning:    tuning,
		escalator: escalator,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// ExpectedAt evaluates the planned response curve at elapsed-time fraction
// f. Response arrival is modeled as front-loaded, 1-exp(-k*f) normalised
// to reach the full planned expectation at f=1; real-world responses
// mostly arrive early, so a uniform model would under-alarm.
func (c *CheckIn) ExpectedAt(planned, f float64) float64 {
	k := c.tuning.CurveSteepness
	if k <= 0 {
		return planned * f
	}
	return planned * (1 - math.Exp(-k*f)) / (1 - math.Exp(-k))
}

// Run performs the checkpoint at fraction for one campaign. It returns the
// stored result, or nil when the campaign is terminal, the checkpoint
// already fired, or the bid target is already met (which short-circuits
// straight to complete).
func (c *CheckIn) Run(ctx context.Context, campaignID string, fraction float64) (*domain.CheckInResult, error) {
	campaign, err := c.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Terminal() {
		return nil, nil
	}

	actual, err := c.store.CountResponses(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if actual >= campaign.TargetBids {
		return nil, c.complete(ctx, campaign, actual)
	}

	expected := c.ExpectedAt(campaign.PlannedExpected, fraction)
	onTrack, action := c.decide(campaign, expected, actual, fraction)
	result := &domain.CheckInResult{
		CampaignID: campaignID,
		Fraction:   fraction,
		Expected:   expected,
		Actual:     actual,
		OnTrack:    onTrack,
		Action:     action,
		CreatedAt:  c.now(),
	}
	saved, err := c.store.SaveCheckIn(ctx, result)
	if err != nil {
		return nil, err
	}
	if !saved {
		return nil, nil // checkpoint already fired
	}

	// The campaign sits in check_in_pending while the evaluation's outcome
	// is applied, then cycles back to active.
	if _, err := transitionStatus(ctx, c.store, campaignID, domain.StatusCheckInPending, c.now); err != nil {
		return nil, err
	}

	c.publish(domain.EventCheckedIn, campaignID, map[string]any{
		"fraction": fraction,
		"expected": expected,
		"actual":   actual,
		"on_track": onTrack,
		"action":   string(action),
	})

	if action != domain.ActionNone {
		if err := c.escalate(ctx, campaignID, result); err != nil {
			// Escalation failures leave the campaign running; the next
			// checkpoint gets another chance.
			c.logger.Warn("escalation failed",
				slog.String("campaign_id", campaignID),
				slog.String("action", string(action)),
				slog.Any("error", err))
		}
	}
	if _, err := transitionStatus(ctx, c.store, campaignID, domain.StatusActive, c.now); err != nil {
		return nil, err
	}
	return result, nil
}

// decide derives the recommendation deterministically from the delta
// between expected and actual. Severity is the deficit scaled by the
// remaining time fraction, so the same shortfall later in the budget maps
// to a more aggressive action.
func (c *CheckIn) decide(campaign *domain.Campaign, expected float64, actual int, fraction float64) (bool, domain.CheckInAction) {
	if expected <= 0 {
		if campaign.Tier3Degraded {
			return true, domain.ActionReDiscover
		}
		return true, domain.ActionNone
	}
	ratio := float64(actual) / expected
	if ratio >= c.tuning.OnTrackRatio {
		if campaign.Tier3Degraded {
			// On track, but the Tier 3 pool is stale; refresh it anyway.
			return true, domain.ActionReDiscover
		}
		return true, domain.ActionNone
	}

	remainingTime := 1 - fraction
	if remainingTime < 0.05 {
		remainingTime = 0.05
	}
	severity := (1 - ratio) / remainingTime

	switch {
	case campaign.Tier3Degraded || severity > c.tuning.SevereSeverity:
		return false, domain.ActionReDiscover
	case severity > c.tuning.MildSeverity:
		return false, domain.ActionExpandTier
	default:
		return false, domain.ActionAddChannel
	}
}

func (c *CheckIn) escalate(ctx context.Context, campaignID string, result *domain.CheckInResult) error {
	campaign, err := transitionStatus(ctx, c.store, campaignID, domain.StatusEscalated, c.now)
	if err != nil {
		return err
	}
	if campaign == nil || campaign.Terminal() {
		return nil
	}
	c.publish(domain.EventEscalated, campaignID, map[string]any{
		"action":   string(result.Action),
		"fraction": result.Fraction,
	})

	if c.escalator != nil {
		if err := c.escalator.Apply(ctx, campaign, result); err != nil {
			return err
		}
	}

	// Escalated cycles back to active once the corrective action is in.
	_, err = transitionStatus(ctx, c.store, campaignID, domain.StatusActive, c.now)
	return err
}

// Finalize resolves a campaign whose time budget is exhausted: complete if
// the target was met along the way, abandoned otherwise. Abandonment is an
// expected outcome, not a system fault.
func (c *CheckIn) Finalize(ctx context.Context, campaignID string) error {
	campaign, err := c.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if campaign.Terminal() {
		return nil
	}
	actual, err := c.store.CountResponses(ctx, campaignID)
	if err != nil {
		return err
	}
	if actual >= campaign.TargetBids {
		return c.complete(ctx, campaign, actual)
	}

	if _, err := transitionStatus(ctx, c.store, campaignID, domain.StatusAbandoned, c.now); err != nil {
		return err
	}
	c.publish(domain.EventAbandoned, campaignID, map[string]any{
		"responses": actual,
		"target":    campaign.TargetBids,
	})
	return nil
}

func (c *CheckIn) complete(ctx context.Context, campaign *domain.Campaign, actual int) error {
	if _, err := transitionStatus(ctx, c.store, campaign.ID, domain.StatusComplete, c.now); err != nil {
		return err
	}
	c.publish(domain.EventCompleted, campaign.ID, map[string]any{
		"responses": actual,
		"target":    campaign.TargetBids,
	})
	return nil
}

func (c *CheckIn) publish(kind domain.EventKind, campaignID string, detail map[string]any) {
	if c.events == nil {
		return
	}
	c.events.Publish(domain.Event{
		Kind:       kind,
		CampaignID: campaignID,
		OccurredAt: c.now(),
		Detail:     detail,
	})
}
