package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach-engine/internal/core/domain"
)

// Registry implements port.ContractorRegistry over the contractors table.
// Tier 1 queries the registry pool; Tier 2 queries the re-engagement pool
// of contractors engaged in prior campaigns. The trade filter runs in SQL;
// the precise radius check runs in Go on the coarse result set, same
// pattern as filtering targeting rules application-side.
type Registry struct {
	pool *pgxpool.Pool
}

// NewRegistry returns a new registry view.
func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{pool: pool}
}

// FindByTradeAndGeography returns registry contractors for the trade
// within radiusKm of geo.
func (r *Registry) FindByTradeAndGeography(ctx context.Context, trade string, geo domain.GeoPoint, radiusKm float64) ([]domain.Contractor, error) {
	return r.query(ctx, `SELECT id, name, trades, lat, lng, email, phone, web_form_url,
        contacted_count, responded_count, last_active_at
        FROM contractors WHERE pool = 'registry' AND $1 = ANY(trades)`, trade, geo, radiusKm)
}

// FindReEngagementPool returns previously-engaged contractors for the
// trade within radiusKm of geo.
func (r *Registry) FindReEngagementPool(ctx context.Context, trade string, geo domain.GeoPoint, radiusKm float64) ([]domain.Contractor, error) {
	return r.query(ctx, `SELECT id, name, trades, lat, lng, email, phone, web_form_url,
        contacted_count, responded_count, last_active_at
        FROM contractors WHERE pool = 're_engagement' AND $1 = ANY(trades)`, trade, geo, radiusKm)
}

func (r *Registry) query(ctx context.Context, sql, trade string, geo domain.GeoPoint, radiusKm float64) ([]domain.Contractor, error) {
	rows, err := r.pool.Query(ctx, sql, trade)
	if err != nil {
		return nil, err
	}
	contractors, err := pgx.CollectRows(rows, scanContractor)
	if err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		return contractors, nil
	}
	// Keep contractors within twice the project radius; the scorer
	// penalises the outer band, discovery should not hide it entirely.
	within := contractors[:0]
	for _, c := range contractors {
		if c.Geo.DistanceKm(geo) <= 2*radiusKm {
			within = append(within, c)
		}
	}
	return within, nil
}

func scanContractor(row pgx.CollectableRow) (domain.Contractor, error) {
	var (
		c          domain.Contractor
		lastActive *time.Time
	)
	err := row.Scan(&c.ID, &c.Name, &c.Trades, &c.Geo.Lat, &c.Geo.Lng,
		&c.Email, &c.Phone, &c.WebFormURL,
		&c.ContactedCount, &c.RespondedCount, &lastActive)
	if err != nil {
		return c, err
	}
	if lastActive != nil {
		c.LastActiveAt = *lastActive
	}
	return c, nil
}
