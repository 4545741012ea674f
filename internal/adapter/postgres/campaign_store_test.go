package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/db"
)

// testPool connects to the database named by TEST_PSQL_ADDRESS with the
// schema migrated, or skips the test when no database is configured.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	addr := os.Getenv("TEST_PSQL_ADDRESS")
	if addr == "" {
		t.Skip("TEST_PSQL_ADDRESS not set")
	}
	require.NoError(t, db.Migrate(addr))
	pool, err := pgxpool.New(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func createTestCampaign(t *testing.T, store *CampaignStore) *domain.Campaign {
	t.Helper()
	ctx := context.Background()
	project := domain.Project{
		ID:       "proj-" + uuid.NewString(),
		Trade:    "plumbing",
		Category: "plumbing",
		Geo:      domain.GeoPoint{Lat: 39.74, Lng: -104.99},
		RadiusKm: 30,
		Urgency:  domain.UrgencyWeek,
	}
	require.NoError(t, store.SaveProject(ctx, project))

	now := time.Now()
	campaign := &domain.Campaign{
		ID:         uuid.NewString(),
		ProjectID:  project.ID,
		Urgency:    project.Urgency,
		TargetBids: 3,
		TimeBudget: 7 * 24 * time.Hour,
		Status:     domain.StatusPlanning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.CreateCampaign(ctx, campaign))
	return campaign
}

func TestSaveCandidatesAcceptsFreshlyDiscoveredContractors(t *testing.T) {
	store := NewCampaignStore(testPool(t))
	ctx := context.Background()
	campaign := createTestCampaign(t, store)

	// An externally discovered contractor has no row in contractors yet;
	// its snapshot must be written before the candidate row referencing it
	// or the whole save rolls back on the foreign key.
	contractor := domain.Contractor{
		ID:     "disc-" + uuid.NewString(),
		Name:   "Discovered Plumbing Co",
		Trades: []string{"plumbing"},
		Geo:    domain.GeoPoint{Lat: 39.75, Lng: -104.98},
		Email:  "bids@discovered.example.com",
	}
	cand := domain.ContractorCandidate{
		CampaignID:   campaign.ID,
		ContractorID: contractor.ID,
		Contractor:   contractor,
		Tier:         domain.Tier3,
		Score:        70,
		Channels:     contractor.Channels(),
		DiscoveredAt: time.Now(),
	}
	require.NoError(t, store.SaveCandidates(ctx, campaign.ID, []domain.ContractorCandidate{cand}))

	got, err := store.ListCandidates(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, contractor.ID, got[0].ContractorID)
	assert.Equal(t, domain.Tier3, got[0].Tier)
	assert.Equal(t, contractor.Email, got[0].Contractor.Email)

	// The snapshot is usable by a follow-up dispatch.
	inserted, err := store.UpsertAttempt(ctx, &domain.OutreachAttempt{
		CampaignID:   campaign.ID,
		ContractorID: contractor.ID,
		Channel:      domain.ChannelEmail,
		Status:       domain.DeliveryQueued,
		DispatchedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, inserted)
}
