package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"outreach-engine/internal/config/configs"
	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// Dispatcher fans outreach out per candidate and per channel. The attempt
// row is upserted before the provider call, so a retried dispatch — or an
// escalation re-covering the same candidates — can never double-send: the
// (campaign, contractor, channel) key either inserts once or is absorbed
// as a no-op.
type Dispatcher struct {
	store   port.CampaignStore
	senders map[domain.Channel]port.ChannelSender
	timeout time.Duration
	limit   int
	logger  *slog.Logger
	now     func() time.Time
}

func NewDispatcher(store port.CampaignStore, senders map[domain.Channel]port.ChannelSender, cfg configs.Dispatch, logger *slog.Logger) *Dispatcher {
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	return &Dispatcher{
		store:   store,
		senders: senders,
		timeout: cfg.SendTimeout,
		limit:   limit,
		logger:  logger,
		now:     time.Now,
	}
}

// Dispatch creates and sends attempts for every (candidate, channel) pair.
// Contractors that already responded are skipped. A single channel failure
// is recorded and never blocks the rest of the fan-out; only store errors
// abort. Returns the number of attempts newly handed to a provider.
func (d *Dispatcher) Dispatch(ctx context.Context, campaign *domain.Campaign, candidates []domain.ContractorCandidate) (int, error) {
	responded, err := d.respondedContractors(ctx, campaign.ID)
	if err != nil {
		return 0, err
	}

	var dispatched atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.limit)

	for _, cand := range candidates {
		if responded[cand.ContractorID] {
			continue
		}
		for _, ch := range cand.Channels {
			g.Go(func() error {
				sent, err := d.dispatchOne(gctx, campaign, cand, ch)
				if err != nil {
					return err
				}
				if sent {
					dispatched.Add(1)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return int(dispatched.Load()), err
	}
	return int(dispatched.Load()), nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, campaign *domain.Campaign, cand domain.ContractorCandidate, ch domain.Channel) (bool, error) {
	attempt := &domain.OutreachAttempt{
		CampaignID:   campaign.ID,
		ContractorID: cand.ContractorID,
		Channel:      ch,
		Status:       domain.DeliveryQueued,
		DispatchedAt: d.now(),
	}
	inserted, err := d.store.UpsertAttempt(ctx, attempt)
	if err != nil {
		return false, err
	}
	if !inserted {
		// Duplicate attempt: already dispatched by an earlier call or a
		// concurrent retry. Absorb silently.
		return false, nil
	}

	sender, ok := d.senders[ch]
	if !ok {
		d.logger.Warn("no sender for channel",
			slog.String("channel", string(ch)),
			slog.String("campaign_id", campaign.ID))
		return false, d.store.UpdateAttemptStatus(ctx, campaign.ID, cand.ContractorID, ch, domain.DeliveryFailed, "")
	}

	sctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	res, sendErr := sender.Send(sctx, cand.Contractor, *campaign, attempt.IdempotencyKey())

	status := res.Status
	if sendErr != nil {
		status = domain.DeliveryFailed
		d.logger.Warn("channel send failed",
			slog.String("campaign_id", campaign.ID),
			slog.String("contractor_id", cand.ContractorID),
			slog.String("channel", string(ch)),
			slog.Any("error", sendErr))
	} else if status == "" {
		status = domain.DeliverySent
	}

	if err := d.store.UpdateAttemptStatus(ctx, campaign.ID, cand.ContractorID, ch, status, res.ProviderRef); err != nil {
		return false, err
	}
	return status == domain.DeliverySent || status == domain.DeliveryQueued, nil
}

func (d *Dispatcher) respondedContractors(ctx context.Context, campaignID string) (map[string]bool, error) {
	attempts, err := d.store.ListAttempts(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	responded := make(map[string]bool)
	for _, a := range attempts {
		if a.ResponseReceived {
			responded[a.ContractorID] = true
		}
	}
	return responded, nil
}
