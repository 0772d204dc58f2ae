package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nadi/reservation-engine/internal/clock"
	"github.com/nadi/reservation-engine/internal/domain"
	"github.com/nadi/reservation-engine/internal/events"
	"github.com/nadi/reservation-engine/internal/slots"
)

var tracer = otel.Tracer("github.com/nadi/reservation-engine/internal/app")

const (
	defaultHoldTTL       = 10 * time.Minute
	defaultSweepInterval = 30 * time.Second
	defaultSweepBatch    = 100
	defaultProducer      = "reservation-engine"
)

type settings struct {
	holdTTL        time.Duration
	allowPastStart bool
	sweepInterval  time.Duration
	sweepBatch     int
	sweepLock      SweepLock
	events         EventPublisher
	cache          AvailabilityCache
	producer       string
	logger         zerolog.Logger
}

func defaultSettings() settings {
	return settings{
		holdTTL:       defaultHoldTTL,
		sweepInterval: defaultSweepInterval,
		sweepBatch:    defaultSweepBatch,
		events:        events.Noop{},
		producer:      defaultProducer,
		logger:        zerolog.Nop(),
	}
}

// Option configures the reservation services. Options that do not apply to a
// service are ignored by it.
type Option func(*settings)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithAllowPastStart lets holds start before the current time.
func WithAllowPastStart(allow bool) Option {
	return func(s *settings) { s.allowPastStart = allow }
}

func WithSweepInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

func WithSweepBatchSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

// WithSweepLock makes the sweeper skip ticks where another replica holds the
// lease.
func WithSweepLock(l SweepLock) Option {
	return func(s *settings) { s.sweepLock = l }
}

func WithEvents(p EventPublisher, producer string) Option {
	return func(s *settings) {
		if p != nil {
			s.events = p
		}
		if producer != "" {
			s.producer = producer
		}
	}
}

func WithAvailabilityCache(c AvailabilityCache) Option {
	return func(s *settings) { s.cache = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// lifecycle holds what every status-changing path needs: the store, the
// index and the post-commit side effects.
type lifecycle struct {
	store ReservationStore
	index *slots.Index
	clock clock.Clock
	settings
}

func newLifecycle(store ReservationStore, index *slots.Index, clk clock.Clock, opts []Option) lifecycle {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return lifecycle{store: store, index: index, clock: clk, settings: s}
}

func tokenFor(r domain.Reservation) slots.Token {
	return slots.Token{CourtID: r.CourtID, ReservationID: r.ID, Interval: r.Interval()}
}

// release moves r out of an active status and unregisters its interval in
// the same court critical section.
func (l *lifecycle) release(ctx context.Context, r domain.Reservation, to domain.Status, at time.Time, reason string) (domain.Reservation, error) {
	var updated domain.Reservation
	_, err := l.index.Release(tokenFor(r), func() error {
		var err error
		updated, err = l.store.Transition(ctx, domain.Transition{
			ID:     r.ID,
			From:   r.Status,
			To:     to,
			At:     at,
			Reason: reason,
		})
		return err
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	l.committed(ctx, updated)
	return updated, nil
}

// expire moves a lapsed hold to EXPIRED. A lost race is reported as
// domain.ErrStatusConflict.
func (l *lifecycle) expire(ctx context.Context, r domain.Reservation, now time.Time) (domain.Reservation, error) {
	updated, err := l.release(ctx, r, domain.StatusExpired, now, "")
	if err != nil {
		return domain.Reservation{}, err
	}
	l.logger.Info().
		Str("reservation_id", r.ID).
		Str("court_id", r.CourtID).
		Msg("hold expired")
	return updated, nil
}

var errStillActive = errors.New("reservation still active")

// dropStale unregisters tok when its stored reservation is no longer active,
// which happens when another process released it. The record is re-read
// under the court lock. It reports whether tok was dropped.
func (l *lifecycle) dropStale(ctx context.Context, tok slots.Token) (bool, error) {
	_, err := l.index.Release(tok, func() error {
		r, err := l.store.Get(ctx, tok.ReservationID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if r.Status.Active() {
			return errStillActive
		}
		return nil
	})
	if errors.Is(err, errStillActive) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// committed runs best-effort side effects after a status change is durable.
func (l *lifecycle) committed(ctx context.Context, r domain.Reservation) {
	if l.cache != nil {
		if err := l.cache.Invalidate(ctx, r.CourtID); err != nil {
			l.logger.Warn().Err(err).Str("court_id", r.CourtID).Msg("invalidate availability cache")
		}
	}

	evt, err := events.NewReservationEvent(r, l.producer, l.clock.Now())
	if err != nil {
		l.logger.Error().Err(err).Str("reservation_id", r.ID).Msg("build event")
		return
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		evt.TraceID = sc.TraceID().String()
	}
	if err := l.events.Publish(ctx, evt); err != nil {
		l.logger.Warn().Err(err).
			Str("event_type", evt.EventType).
			Str("reservation_id", r.ID).
			Msg("publish event")
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil && !isExpected(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// isExpected reports domain outcomes that are not failures of the service.
func isExpected(err error) bool {
	for _, target := range []error{
		domain.ErrSlotUnavailable,
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrExpired,
		domain.ErrInvalidInterval,
		domain.ErrCapacityExceeded,
		domain.ErrCourtNotFound,
		domain.ErrPriceUnavailable,
		domain.ErrIdempotencyConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
