package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nadi/reservation-engine/internal/clock"
	"github.com/nadi/reservation-engine/internal/domain"
	"github.com/nadi/reservation-engine/internal/events"
	"github.com/nadi/reservation-engine/internal/slots"
	"github.com/nadi/reservation-engine/internal/storage/memory"
)

// Monday 2025-01-06, 08:00 UTC.
var testNow = time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2025, 1, 6, h, m, 0, 0, time.UTC)
}

type fixture struct {
	clk          *clock.Manual
	store        *memory.ReservationStore
	index        *slots.Index
	admin        *AdminService
	holds        *HoldService
	reservations *ReservationService
	sweeper      *Sweeper
	events       *recordingPublisher
	cache        *fakeCache
	court        domain.Court
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		clk:    clock.NewManual(testNow),
		store:  memory.NewReservationStore(),
		index:  slots.New(),
		admin:  NewAdminService(memory.NewCatalogStore()),
		events: &recordingPublisher{},
		cache:  newFakeCache(),
	}
	opts = append([]Option{WithEvents(f.events, "test"), WithAvailabilityCache(f.cache)}, opts...)

	ctx := context.Background()
	court, err := f.admin.CreateCourt(ctx, CreateCourtInput{VenueID: "v1", SportID: "padel", Name: "Court 1", MinPlayers: 2, MaxPlayers: 4})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}
	f.court = court
	if _, err := f.admin.CreatePriceRule(ctx, CreatePriceRuleInput{
		CourtID: court.ID, Weekday: int(time.Monday), StartTime: "06:00", EndTime: "22:00", PricePerSlot: 1500,
	}); err != nil {
		t.Fatalf("create price rule: %v", err)
	}

	f.holds = NewHoldService(f.store, f.index, f.admin, f.admin, f.clk, opts...)
	f.reservations = NewReservationService(f.store, f.index, f.clk, opts...)
	f.sweeper = NewSweeper(f.store, f.index, f.clk, opts...)
	return f
}

func (f *fixture) hold(t *testing.T, user string, start, end time.Time) domain.Reservation {
	t.Helper()
	r, err := f.holds.CreateHold(context.Background(), CreateHoldInput{
		CourtID: f.court.ID, UserID: user, Start: start, End: end, PlayersCount: 2,
	})
	if err != nil {
		t.Fatalf("hold %s %s-%s: %v", user, start.Format("15:04"), end.Format("15:04"), err)
	}
	return r
}

func (f *fixture) status(t *testing.T, id string) domain.Status {
	t.Helper()
	r, err := f.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return r.Status
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

// fakeCache mirrors the redis cache: the invalidation count is the court's
// generation and entries are keyed by it.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]domain.Interval
	invalidated map[string]int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]domain.Interval{}, invalidated: map[string]int{}}
}

func cacheKey(courtID string, gen int64, from, to time.Time) string {
	return fmt.Sprintf("%s|%d|%s|%s", courtID, gen, from, to)
}

func (c *fakeCache) Get(_ context.Context, courtID string, from, to time.Time) ([]domain.Interval, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := int64(c.invalidated[courtID])
	ivs, ok := c.entries[cacheKey(courtID, gen, from, to)]
	return ivs, gen, ok, nil
}

func (c *fakeCache) Set(_ context.Context, courtID string, gen int64, from, to time.Time, ivs []domain.Interval) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(courtID, gen, from, to)] = ivs
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, courtID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated[courtID]++
	return nil
}

func (c *fakeCache) invalidations(courtID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated[courtID]
}
