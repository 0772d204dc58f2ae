package app

import (
	"context"
	"time"

	"github.com/nadi/reservation-engine/internal/domain"
	"github.com/nadi/reservation-engine/internal/events"
)

// ReservationStore owns reservation records. Implementations must apply
// Transition as a compare-and-set on From and return domain.ErrStatusConflict
// when the current status differs.
type ReservationStore interface {
	Create(ctx context.Context, r domain.Reservation) error
	Get(ctx context.Context, id string) (domain.Reservation, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error)
	ListActive(ctx context.Context) ([]domain.Reservation, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
	Transition(ctx context.Context, tr domain.Transition) (domain.Reservation, error)
}

// CourtCatalog resolves court capability for the hold path.
type CourtCatalog interface {
	GetCourtCapability(ctx context.Context, courtID string) (domain.CourtCapability, error)
}

// PriceLookup quotes the price of an interval on a court.
type PriceLookup interface {
	GetPrice(ctx context.Context, courtID string, weekday time.Weekday, iv domain.Interval) (domain.Price, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, evt events.Envelope) error
}

// AvailabilityCache stores occupied-interval snapshots for display reads.
// Get returns the court's current generation even on a miss; Set stores
// under the generation the caller read, so a snapshot taken before an
// Invalidate is never served after it.
type AvailabilityCache interface {
	Get(ctx context.Context, courtID string, from, to time.Time) (ivs []domain.Interval, gen int64, ok bool, err error)
	Set(ctx context.Context, courtID string, gen int64, from, to time.Time, ivs []domain.Interval) error
	Invalidate(ctx context.Context, courtID string) error
}

// SweepLock elects a single sweeper across replicas for one tick.
type SweepLock interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}
