package usecase

import (
	"context"
	"log/slog"
	"time"

	"outreach-engine/internal/core/port"
)

// Scheduler sweeps active campaigns on a fixed interval and fires any
// checkpoint whose fraction of the time budget has elapsed. At-most-once
// per checkpoint is guaranteed by the store, not the sweep, so overlapping
// sweeps and process restarts are harmless. Scheduler ticks are also the
// only trigger for terminal transitions, aside from the target-met
// short-circuit in response ingestion.
type Scheduler struct {
	store    port.CampaignStore
	checkin  *CheckIn
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewScheduler(store port.CampaignStore, checkin *CheckIn, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		store:    store,
		checkin:  checkin,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs due checkpoints for every non-terminal campaign, then
// finalizes any campaign past its deadline. Per-campaign failures are
// logged and skipped; the next sweep retries them.
func (s *Scheduler) Sweep(ctx context.Context) {
	campaigns, err := s.store.ListActiveCampaigns(ctx)
	if err != nil {
		s.logger.Error("check-in sweep: list campaigns", slog.Any("error", err))
		return
	}
	nowT := s.now()
	for _, campaign := range campaigns {
		elapsed := campaign.ElapsedFraction(nowT)
		for _, fraction := range s.checkin.tuning.CheckpointFractions {
			if elapsed < fraction {
				break
			}
			if _, err := s.checkin.Run(ctx, campaign.ID, fraction); err != nil {
				s.logger.Error("check-in failed",
					slog.String("campaign_id", campaign.ID),
					slog.Float64("fraction", fraction),
					slog.Any("error", err))
			}
		}
		if !nowT.Before(campaign.Deadline()) {
			if err := s.checkin.Finalize(ctx, campaign.ID); err != nil {
				s.logger.Error("campaign finalize failed",
					slog.String("campaign_id", campaign.ID),
					slog.Any("error", err))
			}
		}
	}
}
