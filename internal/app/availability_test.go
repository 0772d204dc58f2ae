package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nadi/reservation-engine/internal/domain"
	"github.com/nadi/reservation-engine/internal/slots"
	"github.com/nadi/reservation-engine/internal/storage/memory"
)

func TestAvailabilityService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	svc := NewAvailabilityService(f.index, WithAvailabilityCache(f.cache))

	f.hold(t, "alice", at(10, 0), at(11, 0))
	f.hold(t, "bob", at(13, 0), at(14, 0))

	got, err := svc.Occupied(ctx, f.court.ID, at(9, 0), at(12, 0))
	if err != nil {
		t.Fatalf("occupied: %v", err)
	}
	if len(got) != 1 || !got[0].Start.Equal(at(10, 0)) {
		t.Fatalf("expected [10:00-11:00), got %+v", got)
	}

	// served from cache until a lifecycle change invalidates it
	if _, err := f.index.CheckAndReserve(f.court.ID, "direct", domain.Interval{Start: at(9, 0), End: at(9, 30)}, nil); err != nil {
		t.Fatalf("direct reserve: %v", err)
	}
	cached, _ := svc.Occupied(ctx, f.court.ID, at(9, 0), at(12, 0))
	if len(cached) != 1 {
		t.Fatalf("expected cached result, got %+v", cached)
	}

	f.hold(t, "carol", at(11, 0), at(11, 30))
	fresh, _ := svc.Occupied(ctx, f.court.ID, at(9, 0), at(12, 0))
	if len(fresh) != 3 {
		t.Fatalf("expected cache invalidated by new hold, got %+v", fresh)
	}

	all, _ := svc.Occupied(ctx, f.court.ID, time.Time{}, time.Time{})
	if len(all) != 4 {
		t.Fatalf("expected 4 intervals with open bounds, got %d", len(all))
	}

	if _, err := svc.Occupied(ctx, f.court.ID, at(12, 0), at(9, 0)); !errors.Is(err, domain.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}

	free, err := svc.IsAvailable(ctx, f.court.ID, domain.Interval{Start: at(11, 30), End: at(13, 0)})
	if err != nil || !free {
		t.Fatalf("expected 11:30-13:00 free, got %v, %v", free, err)
	}
	busy, _ := svc.IsAvailable(ctx, f.court.ID, domain.Interval{Start: at(13, 30), End: at(14, 30)})
	if busy {
		t.Fatalf("expected 13:30-14:30 busy")
	}
}

// invalidatingCache bumps the generation right after the first miss, as a
// hold committing between a reader's cache miss and its cache fill would.
type invalidatingCache struct {
	*fakeCache
	once sync.Once
}

func (c *invalidatingCache) Get(ctx context.Context, courtID string, from, to time.Time) ([]domain.Interval, int64, bool, error) {
	ivs, gen, ok, err := c.fakeCache.Get(ctx, courtID, from, to)
	if !ok {
		c.once.Do(func() { _ = c.fakeCache.Invalidate(ctx, courtID) })
	}
	return ivs, gen, ok, err
}

func TestAvailabilityService_FillRacedByInvalidateIsNotServed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	cache := &invalidatingCache{fakeCache: newFakeCache()}
	svc := NewAvailabilityService(f.index, WithAvailabilityCache(cache))

	got, err := svc.Occupied(ctx, f.court.ID, at(9, 0), at(12, 0))
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty court, got %+v, %v", got, err)
	}

	// the fill above went to the old generation, so this read must see the index
	if _, err := f.index.CheckAndReserve(f.court.ID, "direct", domain.Interval{Start: at(10, 0), End: at(11, 0)}, nil); err != nil {
		t.Fatalf("direct reserve: %v", err)
	}
	got, err = svc.Occupied(ctx, f.court.ID, at(9, 0), at(12, 0))
	if err != nil {
		t.Fatalf("occupied: %v", err)
	}
	if len(got) != 1 || !got[0].Start.Equal(at(10, 0)) {
		t.Fatalf("stale snapshot served: %+v", got)
	}
}

func TestRebuildIndex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	a := f.hold(t, "alice", at(10, 0), at(11, 0))
	b := f.hold(t, "bob", at(12, 0), at(13, 0))
	if _, err := f.reservations.Confirm(ctx, ConfirmInput{ReservationID: b.ID, UserID: "bob"}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	c := f.hold(t, "carol", at(14, 0), at(15, 0))
	if _, err := f.reservations.Cancel(ctx, CancelInput{ReservationID: c.ID, UserID: "carol"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	fresh := slots.New()
	n, err := RebuildIndex(ctx, f.store, fresh)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 2 || fresh.Len(f.court.ID) != 2 {
		t.Fatalf("expected 2 active reservations loaded, got n=%d len=%d", n, fresh.Len(f.court.ID))
	}
	toks := fresh.Occupied(f.court.ID, time.Time{}, time.Time{})
	if toks[0].ReservationID != a.ID || toks[1].ReservationID != b.ID {
		t.Fatalf("unexpected tokens: %+v", toks)
	}

	empty, err := RebuildIndex(ctx, memory.NewReservationStore(), slots.New())
	if err != nil || empty != 0 {
		t.Fatalf("expected empty rebuild, got %d, %v", empty, err)
	}
}
