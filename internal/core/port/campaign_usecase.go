package port

import (
	"context"
	"errors"
	"time"

	"outreach-engine/internal/core/domain"
)

// ErrInsufficientCandidates is returned by StartCampaign when zero
// candidates are discoverable across all tiers. A partial shortfall is not
// an error; escalation handles it at the first check-in.
var ErrInsufficientCandidates = errors.New("no candidates discoverable in any tier")

// CampaignUseCase is the primary port into the orchestration engine.
type CampaignUseCase interface {
	// StartCampaign plans, discovers, persists and dispatches a new
	// campaign for the project, then activates it. Fails with
	// ErrInsufficientCandidates when no tier yields any candidate and with
	// ErrActiveCampaignExists when the project already has a live campaign.
	StartCampaign(ctx context.Context, project domain.Project, targetBids int) (*CampaignProgress, error)

	// GetCampaign returns the campaign with its progress counters.
	GetCampaign(ctx context.Context, id string) (*CampaignProgress, error)

	// RecordResponse ingests an externally detected contractor response.
	// Reaching the bid target transitions the campaign to complete
	// immediately, independent of checkpoint timing.
	RecordResponse(ctx context.Context, campaignID, contractorID string, ch domain.Channel, at time.Time) error

	// ListCheckIns returns the audit trail of check-in evaluations.
	ListCheckIns(ctx context.Context, campaignID string) ([]domain.CheckInResult, error)

	// GetStats aggregates attempts and responses over a period, optionally
	// scoped to one campaign.
	GetStats(ctx context.Context, req StatsReq) (*StatsResp, error)
}

// CampaignProgress is the DTO returned to inbound adapters. It carries no
// domain behaviour.
type CampaignProgress struct {
	Campaign   domain.Campaign
	Candidates int
	Attempts   int
	Responses  int
}

// StatsReq selects the aggregation window. A nil CampaignID spans all
// campaigns.
type StatsReq struct {
	From       time.Time
	To         time.Time
	CampaignID *string
}

// StatsResp contains aggregated outreach counts for the window.
type StatsResp struct {
	Attempts  int64
	Sent      int64
	Failed    int64
	Responses int64
}
