package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// SourceKey identifies one tier discovery result in the cache. Keys are
// scoped by (tier, project category, geography bucket), not by campaign,
// so concurrent campaigns in the same area share discovery work.
type SourceKey struct {
	Tier      domain.Tier
	Category  string
	GeoBucket string
}

func (k SourceKey) String() string {
	return fmt.Sprintf("t%d:%s:%s", k.Tier, k.Category, k.GeoBucket)
}

func sourceKeyFor(tier domain.Tier, p domain.Project) SourceKey {
	// 0.1 degree buckets, roughly 11km, coarse enough to share cache
	// entries between nearby projects of the same category.
	return SourceKey{
		Tier:      tier,
		Category:  p.Category,
		GeoBucket: fmt.Sprintf("%.1f,%.1f", p.Geo.Lat, p.Geo.Lng),
	}
}

type cacheEntry struct {
	candidates []domain.ContractorCandidate
	createdAt  time.Time
}

// Sourcer produces ranked candidate lists from the three tiers with
// per-tier TTL caching. Tier 1 and 2 query the contractor registry
// synchronously; Tier 3 goes to the external discovery provider and is the
// only tier allowed to fail without failing the discovery call.
type Sourcer struct {
	registry  port.ContractorRegistry
	discovery port.DiscoveryProvider
	scorer    *Scorer
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.RWMutex
	cache  map[SourceKey]cacheEntry
	flight singleflight.Group
}

func NewSourcer(registry port.ContractorRegistry, discovery port.DiscoveryProvider, scorer *Scorer, ttl time.Duration, logger *slog.Logger) *Sourcer {
	return &Sourcer{
		registry:  registry,
		discovery: discovery,
		scorer:    scorer,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
		cache:     make(map[SourceKey]cacheEntry),
	}
}

// Discover returns scored candidates for one tier, ordered by match score
// descending with ties broken by more recent discovery. Unexpired cache
// entries are served as-is; bypass forces a fresh source query and a cache
// refresh (used by re_discover escalations).
func (s *Sourcer) Discover(ctx context.Context, project domain.Project, tier domain.Tier, bypass bool) ([]domain.ContractorCandidate, error) {
	key := sourceKeyFor(tier, project)
	if !bypass {
		if cands, ok := s.cached(key); ok {
			return cands, nil
		}
	}

	// Concurrent misses for the same key collapse into one source query.
	v, err, _ := s.flight.Do(key.String(), func() (any, error) {
		contractors, err := s.query(ctx, project, tier)
		if err != nil {
			return nil, err
		}
		cands := s.rank(contractors, project, tier)
		s.mu.Lock()
		s.cache[key] = cacheEntry{candidates: cands, createdAt: s.now()}
		s.mu.Unlock()
		return cands, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneCandidates(v.([]domain.ContractorCandidate)), nil
}

// DiscoverAll queries every tier concurrently. Tier 1/2 failures abort the
// call (the registry is assumed available); a Tier 3 failure degrades to
// the remaining tiers and is reported via the degraded flag so the
// campaign can be refreshed at the next check-in.
func (s *Sourcer) DiscoverAll(ctx context.Context, project domain.Project, bypass bool) (map[domain.Tier][]domain.ContractorCandidate, bool, error) {
	var (
		mu       sync.Mutex
		perTier  = make(map[domain.Tier][]domain.ContractorCandidate, len(domain.Tiers))
		degraded bool
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, tier := range domain.Tiers {
		g.Go(func() error {
			cands, err := s.Discover(gctx, project, tier, bypass)
			if err != nil {
				if tier == domain.Tier3 {
					s.logger.Warn("tier 3 discovery degraded",
						slog.String("project_id", project.ID),
						slog.Any("error", err))
					mu.Lock()
					degraded = true
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("tier %d discovery: %w", tier, err)
			}
			mu.Lock()
			perTier[tier] = cands
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, degraded, err
	}
	return perTier, degraded, nil
}

func (s *Sourcer) cached(key SourceKey) ([]domain.ContractorCandidate, bool) {
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if !ok || s.now().Sub(entry.createdAt) >= s.ttl {
		return nil, false
	}
	return cloneCandidates(entry.candidates), true
}

func (s *Sourcer) query(ctx context.Context, p domain.Project, tier domain.Tier) ([]domain.Contractor, error) {
	switch tier {
	case domain.Tier1:
		return s.registry.FindByTradeAndGeography(ctx, p.Trade, p.Geo, p.RadiusKm)
	case domain.Tier2:
		return s.registry.FindReEngagementPool(ctx, p.Trade, p.Geo, p.RadiusKm)
	case domain.Tier3:
		contractors, err := s.discovery.Search(ctx, p.Trade, p.Geo, p.RadiusKm)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", port.ErrSourceUnavailable, err)
		}
		return contractors, nil
	default:
		return nil, fmt.Errorf("unknown tier %d", tier)
	}
}

// rank scores and sorts contractors into candidate records. Rescoring
// always produces new records; candidates are never mutated in place.
func (s *Sourcer) rank(contractors []domain.Contractor, p domain.Project, tier domain.Tier) []domain.ContractorCandidate {
	now := s.now()
	cands := make([]domain.ContractorCandidate, 0, len(contractors))
	for _, c := range contractors {
		channels := c.Channels()
		if len(channels) == 0 {
			continue // unreachable contractor, nothing to dispatch to
		}
		cands = append(cands, domain.ContractorCandidate{
			ContractorID: c.ID,
			Contractor:   c,
			Tier:         tier,
			Score:        s.scorer.Score(c, p, now),
			Channels:     channels,
			DiscoveredAt: now,
		})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].DiscoveredAt.After(cands[j].DiscoveredAt)
	})
	return cands
}

func cloneCandidates(in []domain.ContractorCandidate) []domain.ContractorCandidate {
	out := make([]domain.ContractorCandidate, len(in))
	copy(out, in)
	return out
}
