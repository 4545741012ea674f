package port

import (
	"context"
	"errors"

	"outreach-engine/internal/core/domain"
)

var (
	// ErrSourceUnavailable means a discovery tier's backing source could
	// not be reached. Fatal for Tier 1/2, degradable for Tier 3.
	ErrSourceUnavailable = errors.New("discovery source unavailable")
	// ErrRateLimited means the external discovery provider refused the
	// query. Treated like ErrSourceUnavailable by the sourcing engine.
	ErrRateLimited = errors.New("discovery source rate limited")
)

// ContractorRegistry is the read-only view over known contractors. Tier 1
// queries the primary match; Tier 2 queries the previously-engaged pool.
type ContractorRegistry interface {
	FindByTradeAndGeography(ctx context.Context, trade string, geo domain.GeoPoint, radiusKm float64) ([]domain.Contractor, error)
	FindReEngagementPool(ctx context.Context, trade string, geo domain.GeoPoint, radiusKm float64) ([]domain.Contractor, error)
}

// DiscoveryProvider is the Tier 3 external search source. It may fail with
// ErrSourceUnavailable or ErrRateLimited; the engine tolerates both.
type DiscoveryProvider interface {
	Search(ctx context.Context, trade string, geo domain.GeoPoint, radiusKm float64) ([]domain.Contractor, error)
}

// SendResult is a channel provider's acknowledgment of one send.
type SendResult struct {
	Status      domain.DeliveryStatus
	ProviderRef string
}

// ChannelSender delivers outreach on one channel. idempotencyKey is the
// (campaign, contractor, channel) attempt key; providers must treat a
// repeated key as a no-op resend.
type ChannelSender interface {
	Send(ctx context.Context, contractor domain.Contractor, campaign domain.Campaign, idempotencyKey string) (SendResult, error)
}

// EventPublisher receives campaign lifecycle events for external
// monitoring. Implementations must not block the caller.
type EventPublisher interface {
	Publish(event domain.Event)
}
