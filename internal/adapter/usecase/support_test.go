package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"outreach-engine/internal/config/configs"
	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// testProject is a plumbing job in Denver with a 30km radius.
func testProject(urgency domain.Urgency) domain.Project {
	return domain.Project{
		ID:       "proj-1",
		Trade:    "plumbing",
		Category: "plumbing",
		Geo:      domain.GeoPoint{Lat: 39.74, Lng: -104.99},
		RadiusKm: 30,
		Urgency:  urgency,
	}
}

// testContractor builds a reachable contractor close to the test project.
func testContractor(id string, trades ...string) domain.Contractor {
	if len(trades) == 0 {
		trades = []string{"plumbing"}
	}
	return domain.Contractor{
		ID:     id,
		Name:   "Contractor " + id,
		Trades: trades,
		Geo:    domain.GeoPoint{Lat: 39.75, Lng: -104.98},
		Email:  id + "@example.com",
	}
}

func testContractors(prefix string, n int) []domain.Contractor {
	out := make([]domain.Contractor, n)
	for i := range out {
		out[i] = testContractor(fmt.Sprintf("%s-%d", prefix, i))
	}
	return out
}

// fakeRegistry serves fixed tier 1 and tier 2 pools and counts calls.
type fakeRegistry struct {
	mu     sync.Mutex
	tier1  []domain.Contractor
	tier2  []domain.Contractor
	err1   error
	err2   error
	calls1 int
	calls2 int
}

func (f *fakeRegistry) FindByTradeAndGeography(context.Context, string, domain.GeoPoint, float64) ([]domain.Contractor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls1++
	return f.tier1, f.err1
}

func (f *fakeRegistry) FindReEngagementPool(context.Context, string, domain.GeoPoint, float64) ([]domain.Contractor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls2++
	return f.tier2, f.err2
}

// mockDiscovery is a testify mock for the Tier 3 provider, used where call
// counts matter (cache TTL, re-discovery).
type mockDiscovery struct {
	mock.Mock
}

func (m *mockDiscovery) Search(ctx context.Context, trade string, geo domain.GeoPoint, radiusKm float64) ([]domain.Contractor, error) {
	args := m.Called(ctx, trade, geo, radiusKm)
	var contractors []domain.Contractor
	if v := args.Get(0); v != nil {
		contractors = v.([]domain.Contractor)
	}
	return contractors, args.Error(1)
}

// fakeSender records idempotency keys and can be told to fail some of
// them.
type fakeSender struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (f *fakeSender) Send(_ context.Context, _ domain.Contractor, _ domain.Campaign, key string) (port.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[key] {
		return port.SendResult{Status: domain.DeliveryFailed}, fmt.Errorf("provider rejected %s", key)
	}
	f.sent = append(f.sent, key)
	return port.SendResult{Status: domain.DeliverySent, ProviderRef: "ref-" + key}, nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// eventRecorder captures published lifecycle events.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Publish(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *eventRecorder) has(kind domain.EventKind) bool {
	for _, k := range r.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func testDispatchConfig() configs.Dispatch {
	return configs.Dispatch{SendTimeout: time.Second, MaxConcurrent: 4}
}

// allSenders maps every channel to the same fake sender.
func allSenders(f *fakeSender) map[domain.Channel]port.ChannelSender {
	return map[domain.Channel]port.ChannelSender{
		domain.ChannelEmail:   f,
		domain.ChannelSMS:     f,
		domain.ChannelWebForm: f,
	}
}
