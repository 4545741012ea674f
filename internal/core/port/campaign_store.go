package port

import (
	"context"
	"errors"
	"time"

	"outreach-engine/internal/core/domain"
)

var (
	// ErrCampaignNotFound is returned when a campaign ID is unknown.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrVersionConflict is returned by compare-and-swap updates when the
	// campaign was modified concurrently. Callers reload and retry.
	ErrVersionConflict = errors.New("campaign version conflict")
	// ErrActiveCampaignExists is returned when creating a campaign for a
	// project that already has one in a non-terminal state.
	ErrActiveCampaignExists = errors.New("project already has an active campaign")
	// ErrAttemptNotFound is returned when a response references an attempt
	// that was never dispatched.
	ErrAttemptNotFound = errors.New("outreach attempt not found")
)

// CampaignStore is the durable record of campaigns, candidates, attempts
// and check-in results. It is the single source of truth for progress
// calculations; in-process state is never authoritative. Implementations
// must be concurrency-safe and provide the upsert atomicity the dispatcher
// relies on.
type CampaignStore interface {
	// CreateCampaign persists a new campaign. It fails with
	// ErrActiveCampaignExists if the project already has a non-terminal one.
	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	// GetCampaign returns the campaign or ErrCampaignNotFound.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)
	// UpdateCampaignCAS writes the campaign if its stored version still
	// matches c.Version, then increments the version. A concurrent change
	// yields ErrVersionConflict.
	UpdateCampaignCAS(ctx context.Context, c *domain.Campaign) error
	// ListActiveCampaigns returns campaigns in a non-terminal state, for
	// the check-in scheduler's sweep.
	ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)

	// SaveProject persists the project a campaign sources bids for, so
	// escalation can re-run discovery later without the caller present.
	SaveProject(ctx context.Context, p domain.Project) error
	// GetProject returns the stored project.
	GetProject(ctx context.Context, id string) (*domain.Project, error)

	// SaveCandidates appends candidate records for a campaign. Candidates
	// are append-only; a re-discovery pass supersedes rather than replaces.
	SaveCandidates(ctx context.Context, campaignID string, cands []domain.ContractorCandidate) error
	// ListCandidates returns all candidate records for a campaign.
	ListCandidates(ctx context.Context, campaignID string) ([]domain.ContractorCandidate, error)

	// UpsertAttempt atomically inserts an attempt keyed by (campaign,
	// contractor, channel). It reports false when the attempt already
	// exists, in which case the stored record is left untouched.
	UpsertAttempt(ctx context.Context, a *domain.OutreachAttempt) (bool, error)
	// UpdateAttemptStatus records the delivery outcome for an attempt.
	UpdateAttemptStatus(ctx context.Context, campaignID, contractorID string, ch domain.Channel, status domain.DeliveryStatus, providerRef string) error
	// MarkResponse flags an attempt as responded. It reports false when
	// the response was already recorded (idempotent), and
	// ErrAttemptNotFound when no such attempt exists.
	MarkResponse(ctx context.Context, campaignID, contractorID string, ch domain.Channel, at time.Time) (bool, error)
	// ListAttempts returns all attempts for a campaign.
	ListAttempts(ctx context.Context, campaignID string) ([]domain.OutreachAttempt, error)
	// CountResponses returns the number of distinct contractors that have
	// responded in a campaign.
	CountResponses(ctx context.Context, campaignID string) (int, error)

	// SaveCheckIn persists a check-in result. It reports false when the
	// (campaign, fraction) checkpoint already fired.
	SaveCheckIn(ctx context.Context, r *domain.CheckInResult) (bool, error)
	// ListCheckIns returns check-in results ordered by fraction.
	ListCheckIns(ctx context.Context, campaignID string) ([]domain.CheckInResult, error)

	// GetStats aggregates attempt and response counts over a period.
	GetStats(ctx context.Context, req StatsReq) (*StatsResp, error)
}
