// Package memory provides an in-memory CampaignStore. It backs unit tests
// and local development without a database; the postgres adapter is the
// production implementation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

type attemptKey struct {
	contractorID string
	channel      domain.Channel
}

// Store implements port.CampaignStore with maps behind one mutex. All
// methods give the same atomicity guarantees the postgres adapter gets
// from unique constraints and row versioning.
type Store struct {
	mu         sync.Mutex
	campaigns  map[string]domain.Campaign
	projects   map[string]domain.Project
	candidates map[string][]domain.ContractorCandidate
	attempts   map[string]map[attemptKey]domain.OutreachAttempt
	checkins   map[string]map[float64]domain.CheckInResult
}

func NewStore() *Store {
	return &Store{
		campaigns:  make(map[string]domain.Campaign),
		projects:   make(map[string]domain.Project),
		candidates: make(map[string][]domain.ContractorCandidate),
		attempts:   make(map[string]map[attemptKey]domain.OutreachAttempt),
		checkins:   make(map[string]map[float64]domain.CheckInResult),
	}
}

func (s *Store) CreateCampaign(_ context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.campaigns {
		if existing.ProjectID == c.ProjectID && !existing.Terminal() {
			return port.ErrActiveCampaignExists
		}
	}
	c.Version = 1
	s.campaigns[c.ID] = *c
	return nil
}

func (s *Store) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, port.ErrCampaignNotFound
	}
	return &c, nil
}

func (s *Store) UpdateCampaignCAS(_ context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.campaigns[c.ID]
	if !ok {
		return port.ErrCampaignNotFound
	}
	if stored.Version != c.Version {
		return port.ErrVersionConflict
	}
	c.Version++
	s.campaigns[c.ID] = *c
	return nil
}

func (s *Store) ListActiveCampaigns(_ context.Context) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if !c.Terminal() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SaveProject(_ context.Context, p domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
	return nil
}

func (s *Store) GetProject(_ context.Context, id string) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, port.ErrCampaignNotFound
	}
	return &p, nil
}

func (s *Store) SaveCandidates(_ context.Context, campaignID string, cands []domain.ContractorCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[campaignID] = append(s.candidates[campaignID], cands...)
	return nil
}

func (s *Store) ListCandidates(_ context.Context, campaignID string) ([]domain.ContractorCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ContractorCandidate, len(s.candidates[campaignID]))
	copy(out, s.candidates[campaignID])
	return out, nil
}

func (s *Store) UpsertAttempt(_ context.Context, a *domain.OutreachAttempt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKey := s.attempts[a.CampaignID]
	if byKey == nil {
		byKey = make(map[attemptKey]domain.OutreachAttempt)
		s.attempts[a.CampaignID] = byKey
	}
	key := attemptKey{a.ContractorID, a.Channel}
	if _, exists := byKey[key]; exists {
		return false, nil
	}
	byKey[key] = *a
	return true, nil
}

func (s *Store) UpdateAttemptStatus(_ context.Context, campaignID, contractorID string, ch domain.Channel, status domain.DeliveryStatus, providerRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{contractorID, ch}
	a, ok := s.attempts[campaignID][key]
	if !ok {
		return port.ErrAttemptNotFound
	}
	a.Status = status
	a.ProviderRef = providerRef
	s.attempts[campaignID][key] = a
	return nil
}

func (s *Store) MarkResponse(_ context.Context, campaignID, contractorID string, ch domain.Channel, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{contractorID, ch}
	a, ok := s.attempts[campaignID][key]
	if !ok {
		return false, port.ErrAttemptNotFound
	}
	if a.ResponseReceived {
		return false, nil
	}
	a.ResponseReceived = true
	a.RespondedAt = &at
	s.attempts[campaignID][key] = a
	return true, nil
}

func (s *Store) ListAttempts(_ context.Context, campaignID string) ([]domain.OutreachAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OutreachAttempt
	for _, a := range s.attempts[campaignID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContractorID != out[j].ContractorID {
			return out[i].ContractorID < out[j].ContractorID
		}
		return out[i].Channel < out[j].Channel
	})
	return out, nil
}

func (s *Store) CountResponses(_ context.Context, campaignID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	for _, a := range s.attempts[campaignID] {
		if a.ResponseReceived {
			seen[a.ContractorID] = true
		}
	}
	return len(seen), nil
}

func (s *Store) SaveCheckIn(_ context.Context, r *domain.CheckInResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byFraction := s.checkins[r.CampaignID]
	if byFraction == nil {
		byFraction = make(map[float64]domain.CheckInResult)
		s.checkins[r.CampaignID] = byFraction
	}
	if _, exists := byFraction[r.Fraction]; exists {
		return false, nil
	}
	byFraction[r.Fraction] = *r
	return true, nil
}

func (s *Store) ListCheckIns(_ context.Context, campaignID string) ([]domain.CheckInResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CheckInResult
	for _, r := range s.checkins[campaignID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fraction < out[j].Fraction })
	return out, nil
}

func (s *Store) GetStats(_ context.Context, req port.StatsReq) (*port.StatsResp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := &port.StatsResp{}
	for campaignID, byKey := range s.attempts {
		if req.CampaignID != nil && *req.CampaignID != campaignID {
			continue
		}
		for _, a := range byKey {
			if a.DispatchedAt.Before(req.From) || a.DispatchedAt.After(req.To) {
				continue
			}
			resp.Attempts++
			switch a.Status {
			case domain.DeliverySent:
				resp.Sent++
			case domain.DeliveryFailed, domain.DeliveryBounced:
				resp.Failed++
			}
			if a.ResponseReceived {
				resp.Responses++
			}
		}
	}
	return resp, nil
}
