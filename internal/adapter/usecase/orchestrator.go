package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// Orchestrator is the primary entry point of the engine: it plans
// campaigns, runs discovery, dispatches the initial outreach wave and
// ingests responses. It implements port.CampaignUseCase.
type Orchestrator struct {
	store      port.CampaignStore
	sourcer    *Sourcer
	planner    *Planner
	dispatcher *Dispatcher
	events     port.EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewOrchestrator(store port.CampaignStore, sourcer *Sourcer, planner *Planner, dispatcher *Dispatcher, events port.EventPublisher, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		sourcer:    sourcer,
		planner:    planner,
		dispatcher: dispatcher,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// StartCampaign plans and launches a campaign: discover all tiers, compute
// the tier allocation, persist campaign and selected candidates, dispatch
// the first wave and activate. Tier 3 discovery failure degrades to the
// remaining tiers; only an entirely empty candidate pool fails the call.
func (o *Orchestrator) StartCampaign(ctx context.Context, project domain.Project, targetBids int) (*port.CampaignProgress, error) {
	perTier, degraded, err := o.sourcer.DiscoverAll(ctx, project, false)
	if err != nil {
		return nil, err
	}

	available := make(map[domain.Tier]int, len(perTier))
	for tier, cands := range perTier {
		available[tier] = len(cands)
	}
	plan, err := o.planner.Plan(project, targetBids, available)
	if err != nil {
		return nil, err
	}

	nowT := o.now()
	campaign := &domain.Campaign{
		ID:              uuid.NewString(),
		ProjectID:       project.ID,
		Urgency:         project.Urgency,
		TargetBids:      targetBids,
		TimeBudget:      plan.TimeBudget,
		Status:          domain.StatusPlanning,
		PlannedExpected: plan.Expected,
		Tier3Degraded:   degraded,
		CreatedAt:       nowT,
		UpdatedAt:       nowT,
	}
	if err := o.store.SaveProject(ctx, project); err != nil {
		return nil, err
	}
	if err := o.store.CreateCampaign(ctx, campaign); err != nil {
		return nil, err
	}

	selected := selectCandidates(campaign.ID, perTier, plan.Allocated)
	if err := o.store.SaveCandidates(ctx, campaign.ID, selected); err != nil {
		return nil, err
	}
	o.publish(domain.EventPlanned, campaign.ID, map[string]any{
		"target":    targetBids,
		"expected":  plan.Expected,
		"selected":  len(selected),
		"shortfall": plan.Shortfall,
		"degraded":  degraded,
	})

	dispatched, err := o.dispatcher.Dispatch(ctx, campaign, selected)
	if err != nil {
		return nil, err
	}
	o.publish(domain.EventDispatched, campaign.ID, map[string]any{
		"dispatched": dispatched,
	})

	campaign, err = transitionStatus(ctx, o.store, campaign.ID, domain.StatusActive, o.now)
	if err != nil {
		return nil, err
	}
	return o.progress(ctx, campaign)
}

// GetCampaign returns the campaign with live progress counters.
func (o *Orchestrator) GetCampaign(ctx context.Context, id string) (*port.CampaignProgress, error) {
	campaign, err := o.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.progress(ctx, campaign)
}

// RecordResponse ingests an externally detected contractor response and
// recomputes progress. Hitting the bid target completes the campaign
// immediately, regardless of checkpoint timing. Duplicate responses are
// absorbed.
func (o *Orchestrator) RecordResponse(ctx context.Context, campaignID, contractorID string, ch domain.Channel, at time.Time) error {
	campaign, err := o.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	recorded, err := o.store.MarkResponse(ctx, campaignID, contractorID, ch, at)
	if err != nil {
		return err
	}
	if !recorded {
		return nil // already counted
	}

	actual, err := o.store.CountResponses(ctx, campaignID)
	if err != nil {
		return err
	}
	if actual >= campaign.TargetBids && !campaign.Terminal() {
		if _, err := transitionStatus(ctx, o.store, campaignID, domain.StatusComplete, o.now); err != nil {
			return err
		}
		o.publish(domain.EventCompleted, campaignID, map[string]any{
			"responses": actual,
			"target":    campaign.TargetBids,
		})
	}
	return nil
}

// ListCheckIns returns the audit trail of checkpoint evaluations.
func (o *Orchestrator) ListCheckIns(ctx context.Context, campaignID string) ([]domain.CheckInResult, error) {
	return o.store.ListCheckIns(ctx, campaignID)
}

// GetStats aggregates outreach counts over a period.
func (o *Orchestrator) GetStats(ctx context.Context, req port.StatsReq) (*port.StatsResp, error) {
	return o.store.GetStats(ctx, req)
}

func (o *Orchestrator) progress(ctx context.Context, campaign *domain.Campaign) (*port.CampaignProgress, error) {
	candidates, err := o.store.ListCandidates(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	attempts, err := o.store.ListAttempts(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	responses, err := o.store.CountResponses(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	return &port.CampaignProgress{
		Campaign:   *campaign,
		Candidates: len(candidates),
		Attempts:   len(attempts),
		Responses:  responses,
	}, nil
}

func (o *Orchestrator) publish(kind domain.EventKind, campaignID string, detail map[string]any) {
	if o.events == nil {
		return
	}
	o.events.Publish(domain.Event{
		Kind:       kind,
		CampaignID: campaignID,
		OccurredAt: o.now(),
		Detail:     detail,
	})
}

// selectCandidates takes the top allocated slice of each tier's ranked
// list and binds it to the campaign. When a tier discovered fewer
// candidates than allocated, everyone available is contacted rather than
// failing.
func selectCandidates(campaignID string, perTier map[domain.Tier][]domain.ContractorCandidate, allocated map[domain.Tier]int) []domain.ContractorCandidate {
	var selected []domain.ContractorCandidate
	for _, tier := range domain.Tiers {
		n := min(allocated[tier], len(perTier[tier]))
		for _, cand := range perTier[tier][:n] {
			cand.CampaignID = campaignID
			selected = append(selected, cand)
		}
	}
	return selected
}

// transitionStatus moves a campaign to a new status with a bounded CAS
// retry loop. Terminal campaigns are left untouched; the caller gets the
// campaign as last read.
func transitionStatus(ctx context.Context, store port.CampaignStore, campaignID string, to domain.CampaignStatus, now func() time.Time) (*domain.Campaign, error) {
	for range 5 {
		campaign, err := store.GetCampaign(ctx, campaignID)
		if err != nil {
			return nil, err
		}
		if campaign.Terminal() || campaign.Status == to {
			return campaign, nil
		}
		campaign.Status = to
		campaign.UpdatedAt = now()
		err = store.UpdateCampaignCAS(ctx, campaign)
		if err == nil {
			return campaign, nil
		}
		if !errors.Is(err, port.ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, port.ErrVersionConflict
}
