package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// Escalator applies the corrective action a behind-schedule check-in
// recommends. Every action is additive: new attempts are created through
// the dispatcher's upsert path, so prior attempts are never cancelled or
// duplicated no matter how many escalation cycles a campaign goes through.
type Escalator struct {
	store      port.CampaignStore
	sourcer    *Sourcer
	dispatcher *Dispatcher
	tuning     Tuning
	logger     *slog.Logger
	now        func() time.Time
}

func NewEscalator(store port.CampaignStore, sourcer *Sourcer, dispatcher *Dispatcher, tuning Tuning, logger *slog.Logger) *Escalator {
	return &Escalator{
		store:      store,
		sourcer:    sourcer,
		dispatcher: dispatcher,
		tuning:     tuning,
		logger:     logger,
		now:        time.Now,
	}
}

// Apply executes the recommended action for the campaign.
func (e *Escalator) Apply(ctx context.Context, campaign *domain.Campaign, result *domain.CheckInResult) error {
	switch result.Action {
	case domain.ActionAddChannel:
		return e.addChannel(ctx, campaign)
	case domain.ActionExpandTier:
		return e.expandTier(ctx, campaign)
	case domain.ActionReDiscover:
		return e.reDiscover(ctx, campaign)
	default:
		return nil
	}
}

// addChannel dispatches the channels existing candidates have not been
// tried on yet. Contractors that already responded are left alone.
func (e *Escalator) addChannel(ctx context.Context, campaign *domain.Campaign) error {
	candidates, err := e.store.ListCandidates(ctx, campaign.ID)
	if err != nil {
		return err
	}
	attempted, responded, err := e.attemptIndex(ctx, campaign.ID)
	if err != nil {
		return err
	}

	var expanded []domain.ContractorCandidate
	for _, cand := range candidates {
		if responded[cand.ContractorID] {
			continue
		}
		var missing []domain.Channel
		for _, ch := range cand.Channels {
			if !attempted[cand.ContractorID][ch] {
				missing = append(missing, ch)
			}
		}
		if len(missing) > 0 {
			cand.Channels = missing
			expanded = append(expanded, cand)
		}
	}
	if len(expanded) == 0 {
		return nil
	}
	_, err = e.dispatcher.Dispatch(ctx, campaign, expanded)
	return err
}

// expandTier pulls additional candidates from the next unused tier, or a
// larger slice of an already-discovered tier, until the remaining response
// need is covered in expectation.
func (e *Escalator) expandTier(ctx context.Context, campaign *domain.Campaign) error {
	project, err := e.store.GetProject(ctx, campaign.ProjectID)
	if err != nil {
		return err
	}
	remaining, err := e.remainingNeed(ctx, campaign)
	if err != nil {
		return err
	}
	if remaining <= 0 {
		return nil
	}
	known, err := e.knownContractors(ctx, campaign.ID)
	if err != nil {
		return err
	}

	for _, tier := range domain.Tiers {
		if remaining <= 0 {
			break
		}
		rate := e.tuning.TierRates[tier]
		if rate <= 0 {
			continue
		}
		pool, err := e.sourcer.Discover(ctx, *project, tier, false)
		if err != nil {
			// A tier that cannot be reached right now is skipped, not
			// fatal; re_discover at a later checkpoint retries it.
			e.logger.Warn("tier expansion discovery failed",
				slog.String("campaign_id", campaign.ID),
				slog.Int("tier", int(tier)),
				slog.Any("error", err))
			continue
		}
		need := int(math.Ceil(remaining / rate))
		fresh := take(pool, known, need)
		if len(fresh) == 0 {
			continue
		}
		if err := e.adopt(ctx, campaign, fresh, rate); err != nil {
			return err
		}
		remaining -= float64(len(fresh)) * rate
	}
	return nil
}

// reDiscover refreshes the Tier 3 pool bypassing the cache, then adopts
// enough fresh candidates to cover the remaining need. A successful
// refresh clears the campaign's degraded flag.
func (e *Escalator) reDiscover(ctx context.Context, campaign *domain.Campaign) error {
	project, err := e.store.GetProject(ctx, campaign.ProjectID)
	if err != nil {
		return err
	}
	pool, err := e.sourcer.Discover(ctx, *project, domain.Tier3, true)
	if err != nil {
		if errors.Is(err, port.ErrSourceUnavailable) || errors.Is(err, port.ErrRateLimited) {
			e.logger.Warn("re-discovery still unavailable",
				slog.String("campaign_id", campaign.ID),
				slog.Any("error", err))
			return nil
		}
		return err
	}

	if campaign.Tier3Degraded {
		if err := e.clearDegraded(ctx, campaign.ID); err != nil {
			return err
		}
		campaign.Tier3Degraded = false
	}

	remaining, err := e.remainingNeed(ctx, campaign)
	if err != nil {
		return err
	}
	if remaining <= 0 {
		return nil
	}
	known, err := e.knownContractors(ctx, campaign.ID)
	if err != nil {
		return err
	}
	rate := e.tuning.TierRates[domain.Tier3]
	need := len(pool)
	if rate > 0 {
		need = int(math.Ceil(remaining / rate))
	}
	fresh := take(pool, known, need)
	if len(fresh) == 0 {
		return nil
	}
	return e.adopt(ctx, campaign, fresh, rate)
}

// adopt binds fresh candidates to the campaign, persists them, bumps the
// planned expectation and dispatches them.
func (e *Escalator) adopt(ctx context.Context, campaign *domain.Campaign, fresh []domain.ContractorCandidate, rate float64) error {
	for i := range fresh {
		fresh[i].CampaignID = campaign.ID
	}
	if err := e.store.SaveCandidates(ctx, campaign.ID, fresh); err != nil {
		return err
	}
	if err := e.raiseExpectation(ctx, campaign.ID, float64(len(fresh))*rate); err != nil {
		return err
	}
	_, err := e.dispatcher.Dispatch(ctx, campaign, fresh)
	return err
}

// remainingNeed is the bid shortfall as of now.
func (e *Escalator) remainingNeed(ctx context.Context, campaign *domain.Campaign) (float64, error) {
	actual, err := e.store.CountResponses(ctx, campaign.ID)
	if err != nil {
		return 0, err
	}
	return float64(campaign.TargetBids - actual), nil
}

func (e *Escalator) knownContractors(ctx context.Context, campaignID string) (map[string]bool, error) {
	candidates, err := e.store.ListCandidates(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ContractorID] = true
	}
	return known, nil
}

func (e *Escalator) attemptIndex(ctx context.Context, campaignID string) (map[string]map[domain.Channel]bool, map[string]bool, error) {
	attempts, err := e.store.ListAttempts(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	attempted := make(map[string]map[domain.Channel]bool)
	responded := make(map[string]bool)
	for _, a := range attempts {
		if attempted[a.ContractorID] == nil {
			attempted[a.ContractorID] = make(map[domain.Channel]bool)
		}
		attempted[a.ContractorID][a.Channel] = true
		if a.ResponseReceived {
			responded[a.ContractorID] = true
		}
	}
	return attempted, responded, nil
}

func (e *Escalator) raiseExpectation(ctx context.Context, campaignID string, delta float64) error {
	for range 3 {
		campaign, err := e.store.GetCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		campaign.PlannedExpected += delta
		campaign.UpdatedAt = e.now()
		err = e.store.UpdateCampaignCAS(ctx, campaign)
		if !errors.Is(err, port.ErrVersionConflict) {
			return err
		}
	}
	return port.ErrVersionConflict
}

func (e *Escalator) clearDegraded(ctx context.Context, campaignID string) error {
	for range 3 {
		campaign, err := e.store.GetCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		campaign.Tier3Degraded = false
		campaign.UpdatedAt = e.now()
		err = e.store.UpdateCampaignCAS(ctx, campaign)
		if !errors.Is(err, port.ErrVersionConflict) {
			return err
		}
	}
	return port.ErrVersionConflict
}

// take returns up to n candidates from pool whose contractors are not
// already known to the campaign, marking them known as it goes.
func take(pool []domain.ContractorCandidate, known map[string]bool, n int) []domain.ContractorCandidate {
	var out []domain.ContractorCandidate
	for _, cand := range pool {
		if len(out) >= n {
			break
		}
		if known[cand.ContractorID] {
			continue
		}
		known[cand.ContractorID] = true
		out = append(out, cand)
	}
	return out
}
