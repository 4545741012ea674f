package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

const pgUniqueViolation = "23505"

// CampaignStore implements port.CampaignStore using pgxpool for
// PostgreSQL. Idempotency relies on the schema: a unique key on
// (campaign_id, contractor_id, channel) for attempts, on (campaign_id,
// checkpoint_fraction) for check-ins, and a partial unique index keeping
// one non-terminal campaign per project. Versioned updates give the
// compare-and-swap semantics the engine serialises campaign writes with.
type CampaignStore struct {
	pool *pgxpool.Pool
}

// NewCampaignStore returns a new store instance.
func NewCampaignStore(pool *pgxpool.Pool) *CampaignStore {
	return &CampaignStore{pool: pool}
}

// CreateCampaign persists a new campaign with version 1.
func (s *CampaignStore) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	c.Version = 1
	_, err := s.pool.Exec(ctx, `INSERT INTO campaigns
        (id, project_id, urgency, target_bids, time_budget_seconds, status,
         planned_expected, tier3_degraded, version, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		c.ID, c.ProjectID, c.Urgency, c.TargetBids, int64(c.TimeBudget.Seconds()),
		c.Status, c.PlannedExpected, c.Tier3Degraded, c.Version, c.CreatedAt, c.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return port.ErrActiveCampaignExists
	}
	return err
}

// GetCampaign returns the campaign or port.ErrCampaignNotFound.
func (s *CampaignStore) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, project_id, urgency, target_bids,
        time_budget_seconds, status, planned_expected, tier3_degraded, version,
        created_at, updated_at FROM campaigns WHERE id = $1`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCampaignCAS writes the campaign guarded by its version. Zero rows
// affected means a concurrent writer won; the caller reloads and retries.
func (s *CampaignStore) UpdateCampaignCAS(ctx context.Context, c *domain.Campaign) error {
	tag, err := s.pool.Exec(ctx, `UPDATE campaigns SET
        status = $1, planned_expected = $2, tier3_degraded = $3,
        updated_at = $4, version = version + 1
        WHERE id = $5 AND version = $6`,
		c.Status, c.PlannedExpected, c.Tier3Degraded, c.UpdatedAt, c.ID, c.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return port.ErrVersionConflict
	}
	c.Version++
	return nil
}

// ListActiveCampaigns returns campaigns in a non-terminal state.
func (s *CampaignStore) ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, project_id, urgency, target_bids,
        time_budget_seconds, status, planned_expected, tier3_degraded, version,
        created_at, updated_at FROM campaigns
        WHERE status NOT IN ('complete','abandoned') ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Campaign, error) {
		c, err := scanCampaign(row)
		if err != nil {
			return domain.Campaign{}, err
		}
		return *c, nil
	})
}

// SaveProject upserts the project record (last write wins).
func (s *CampaignStore) SaveProject(ctx context.Context, p domain.Project) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO projects
        (id, trade, specialties, category, lat, lng, radius_km, urgency)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (id) DO UPDATE SET trade = EXCLUDED.trade,
            specialties = EXCLUDED.specialties, category = EXCLUDED.category,
            lat = EXCLUDED.lat, lng = EXCLUDED.lng,
            radius_km = EXCLUDED.radius_km, urgency = EXCLUDED.urgency`,
		p.ID, p.Trade, p.Specialties, p.Category, p.Geo.Lat, p.Geo.Lng, p.RadiusKm, p.Urgency)
	return err
}

// GetProject returns the stored project.
func (s *CampaignStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	err := s.pool.QueryRow(ctx, `SELECT id, trade, specialties, category, lat, lng,
        radius_km, urgency FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Trade, &p.Specialties, &p.Category, &p.Geo.Lat, &p.Geo.Lng, &p.RadiusKm, &p.Urgency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, port.ErrCampaignNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveCandidates appends candidate records. Candidates are append-only; a
// later discovery pass supersedes earlier rows with fresh ones.
func (s *CampaignStore) SaveCandidates(ctx context.Context, campaignID string, cands []domain.ContractorCandidate) error {
	if len(cands) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()
	for _, cand := range cands {
		// The contractor snapshot must exist before the candidate row that
		// references it; externally discovered contractors are new to the
		// contractors table. The snapshot also lets escalation dispatch to
		// channels discovered outside the registry.
		c := cand.Contractor
		if _, err = tx.Exec(ctx, `INSERT INTO contractors
            (id, name, trades, lat, lng, email, phone, web_form_url,
             contacted_count, responded_count, last_active_at, pool)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,'discovered')
            ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Name, c.Trades, c.Geo.Lat, c.Geo.Lng, c.Email, c.Phone,
			c.WebFormURL, c.ContactedCount, c.RespondedCount, nullableTime(c.LastActiveAt)); err != nil {
			return err
		}
		channels := make([]string, len(cand.Channels))
		for i, ch := range cand.Channels {
			channels[i] = string(ch)
		}
		if _, err = tx.Exec(ctx, `INSERT INTO contractor_candidates
            (campaign_id, contractor_id, tier, score, channels, discovered_at)
            VALUES ($1,$2,$3,$4,$5,$6)`,
			campaignID, cand.ContractorID, int(cand.Tier), cand.Score, channels, cand.DiscoveredAt); err != nil {
			return err
		}
	}
	return nil
}

// ListCandidates returns candidate records with their contractor snapshot.
func (s *CampaignStore) ListCandidates(ctx context.Context, campaignID string) ([]domain.ContractorCandidate, error) {
	rows, err := s.pool.Query(ctx, `SELECT
        cc.campaign_id, cc.contractor_id, cc.tier, cc.score, cc.channels, cc.discovered_at,
        c.id, c.name, c.trades, c.lat, c.lng, c.email, c.phone, c.web_form_url,
        c.contacted_count, c.responded_count, c.last_active_at
        FROM contractor_candidates cc
        JOIN contractors c ON c.id = cc.contractor_id
        WHERE cc.campaign_id = $1
        ORDER BY cc.score DESC, cc.discovered_at DESC`, campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ContractorCandidate, error) {
		var (
			cand       domain.ContractorCandidate
			tier       int
			channels   []string
			lastActive *time.Time
		)
		err := row.Scan(
			&cand.CampaignID, &cand.ContractorID, &tier, &cand.Score, &channels, &cand.DiscoveredAt,
			&cand.Contractor.ID, &cand.Contractor.Name, &cand.Contractor.Trades,
			&cand.Contractor.Geo.Lat, &cand.Contractor.Geo.Lng,
			&cand.Contractor.Email, &cand.Contractor.Phone, &cand.Contractor.WebFormURL,
			&cand.Contractor.ContactedCount, &cand.Contractor.RespondedCount, &lastActive)
		if err != nil {
			return cand, err
		}
		cand.Tier = domain.Tier(tier)
		cand.Channels = make([]domain.Channel, len(channels))
		for i, ch := range channels {
			cand.Channels[i] = domain.Channel(ch)
		}
		if lastActive != nil {
			cand.Contractor.LastActiveAt = *lastActive
		}
		return cand, nil
	})
}

// UpsertAttempt atomically inserts an attempt; ON CONFLICT DO NOTHING
// makes concurrent retries collapse to exactly one row. Inserting also
// bumps the contractor's contacted counter for future scoring.
func (s *CampaignStore) UpsertAttempt(ctx context.Context, a *domain.OutreachAttempt) (bool, error) {
	tag, err := s.pool.Exec(ctx, `INSERT INTO outreach_attempts
        (campaign_id, contractor_id, channel, status, provider_ref, dispatched_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (campaign_id, contractor_id, channel) DO NOTHING`,
		a.CampaignID, a.ContractorID, a.Channel, a.Status, a.ProviderRef, a.DispatchedAt)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	_, err = s.pool.Exec(ctx, `UPDATE contractors SET contacted_count = contacted_count + 1
        WHERE id = $1`, a.ContractorID)
	return true, err
}

// UpdateAttemptStatus records the delivery outcome.
func (s *CampaignStore) UpdateAttemptStatus(ctx context.Context, campaignID, contractorID string, ch domain.Channel, status domain.DeliveryStatus, providerRef string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE outreach_attempts
        SET status = $1, provider_ref = $2
        WHERE campaign_id = $3 AND contractor_id = $4 AND channel = $5`,
		status, providerRef, campaignID, contractorID, ch)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return port.ErrAttemptNotFound
	}
	return nil
}

// MarkResponse flags an attempt as responded. The WHERE clause keeps it
// idempotent: a second response for the same attempt affects zero rows.
func (s *CampaignStore) MarkResponse(ctx context.Context, campaignID, contractorID string, ch domain.Channel, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE outreach_attempts
        SET response_received = TRUE, responded_at = $1
        WHERE campaign_id = $2 AND contractor_id = $3 AND channel = $4
          AND response_received = FALSE`,
		at, campaignID, contractorID, ch)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err = s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM outreach_attempts
            WHERE campaign_id = $1 AND contractor_id = $2 AND channel = $3)`,
			campaignID, contractorID, ch).Scan(&exists)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, port.ErrAttemptNotFound
		}
		return false, nil
	}
	_, err = s.pool.Exec(ctx, `UPDATE contractors SET responded_count = responded_count + 1,
        last_active_at = $1 WHERE id = $2`, at, contractorID)
	return true, err
}

// ListAttempts returns all attempts for a campaign.
func (s *CampaignStore) ListAttempts(ctx context.Context, campaignID string) ([]domain.OutreachAttempt, error) {
	rows, err := s.pool.Query(ctx, `SELECT campaign_id, contractor_id, channel, status,
        provider_ref, dispatched_at, response_received, responded_at
        FROM outreach_attempts WHERE campaign_id = $1
        ORDER BY contractor_id, channel`, campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OutreachAttempt, error) {
		var a domain.OutreachAttempt
		err := row.Scan(&a.CampaignID, &a.ContractorID, &a.Channel, &a.Status,
			&a.ProviderRef, &a.DispatchedAt, &a.ResponseReceived, &a.RespondedAt)
		return a, err
	})
}

// CountResponses counts distinct responded contractors in a campaign.
func (s *CampaignStore) CountResponses(ctx context.Context, campaignID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT contractor_id)
        FROM outreach_attempts
        WHERE campaign_id = $1 AND response_received = TRUE`, campaignID).Scan(&n)
	return n, err
}

// SaveCheckIn persists a check-in result; the unique (campaign, fraction)
// key makes each checkpoint fire at most once.
func (s *CampaignStore) SaveCheckIn(ctx context.Context, r *domain.CheckInResult) (bool, error) {
	tag, err := s.pool.Exec(ctx, `INSERT INTO check_in_results
        (campaign_id, checkpoint_fraction, expected, actual, on_track, action, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (campaign_id, checkpoint_fraction) DO NOTHING`,
		r.CampaignID, r.Fraction, r.Expected, r.Actual, r.OnTrack, r.Action, r.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListCheckIns returns results ordered by fraction.
func (s *CampaignStore) ListCheckIns(ctx context.Context, campaignID string) ([]domain.CheckInResult, error) {
	rows, err := s.pool.Query(ctx, `SELECT campaign_id, checkpoint_fraction, expected,
        actual, on_track, action, created_at
        FROM check_in_results WHERE campaign_id = $1
        ORDER BY checkpoint_fraction`, campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CheckInResult, error) {
		var r domain.CheckInResult
		err := row.Scan(&r.CampaignID, &r.Fraction, &r.Expected, &r.Actual,
			&r.OnTrack, &r.Action, &r.CreatedAt)
		return r, err
	})
}

// GetStats aggregates attempt and response counts over a period.
func (s *CampaignStore) GetStats(ctx context.Context, req port.StatsReq) (*port.StatsResp, error) {
	args := []any{req.From, req.To}
	whereCampaign := ""
	if req.CampaignID != nil {
		whereCampaign = "AND campaign_id = $3"
		args = append(args, *req.CampaignID)
	}
	query := fmt.Sprintf(`SELECT
        COUNT(*),
        COUNT(*) FILTER (WHERE status = 'sent'),
        COUNT(*) FILTER (WHERE status IN ('failed','bounced')),
        COUNT(*) FILTER (WHERE response_received)
        FROM outreach_attempts
        WHERE dispatched_at >= $1 AND dispatched_at <= $2 %s`, whereCampaign)
	resp := &port.StatsResp{}
	err := s.pool.QueryRow(ctx, query, args...).
		Scan(&resp.Attempts, &resp.Sent, &resp.Failed, &resp.Responses)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		c       domain.Campaign
		seconds int64
	)
	err := row.Scan(&c.ID, &c.ProjectID, &c.Urgency, &c.TargetBids, &seconds,
		&c.Status, &c.PlannedExpected, &c.Tier3Degraded, &c.Version,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.TimeBudget = time.Duration(seconds) * time.Second
	return &c, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
