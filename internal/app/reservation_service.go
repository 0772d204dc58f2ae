package app

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nadi/reservation-engine/internal/clock"
	"github.com/nadi/reservation-engine/internal/domain"
	"github.com/nadi/reservation-engine/internal/slots"
)

// maxTransitionAttempts bounds re-reads after losing a compare-and-set. Each
// loss means the record moved to another status, and no status moves more
// than twice.
const maxTransitionAttempts = 3

type ReservationService struct {
	lifecycle
}

func NewReservationService(store ReservationStore, index *slots.Index, clk clock.Clock, opts ...Option) *ReservationService {
	return &ReservationService{lifecycle: newLifecycle(store, index, clk, opts)}
}

type ConfirmInput struct {
	ReservationID string
	UserID        string
}

type ConfirmResult struct {
	Reservation domain.Reservation
	// Changed is false when the reservation was already confirmed.
	Changed bool
}

// Confirm turns the caller's live hold into a confirmed reservation. A hold
// that has lapsed is expired on the spot and reported as domain.ErrExpired.
func (s *ReservationService) Confirm(ctx context.Context, in ConfirmInput) (out ConfirmResult, err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.Confirm", trace.WithAttributes(
		attribute.String("reservation.id", in.ReservationID),
	))
	defer func() { endSpan(span, err) }()

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		r, err := s.owned(ctx, in.ReservationID, in.UserID)
		if err != nil {
			return ConfirmResult{}, err
		}

		switch r.Status {
		case domain.StatusConfirmed:
			return ConfirmResult{Reservation: r, Changed: false}, nil
		case domain.StatusCancelled, domain.StatusExpired:
			return ConfirmResult{}, domain.ErrExpired
		}

		now := s.clock.Now().UTC()
		if r.HoldLapsed(now) {
			if _, err := s.expire(ctx, r, now); err != nil {
				if errors.Is(err, domain.ErrStatusConflict) {
					continue
				}
				return ConfirmResult{}, err
			}
			return ConfirmResult{}, domain.ErrExpired
		}

		updated, err := s.store.Transition(ctx, domain.Transition{
			ID:              r.ID,
			From:            domain.StatusHeld,
			To:              domain.StatusConfirmed,
			At:              now,
			RequireLiveHold: true,
		})
		if errors.Is(err, domain.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return ConfirmResult{}, err
		}

		s.committed(ctx, updated)
		s.logger.Info().
			Str("reservation_id", updated.ID).
			Str("court_id", updated.CourtID).
			Msg("reservation confirmed")
		return ConfirmResult{Reservation: updated, Changed: true}, nil
	}
	return ConfirmResult{}, domain.ErrStatusConflict
}

type CancelInput struct {
	ReservationID string
	UserID        string
	Reason        string
}

type CancelResult struct {
	Reservation domain.Reservation
	// Changed is false when the reservation was already cancelled.
	Changed bool
}

// Cancel releases a held or confirmed reservation. Cancelling twice is a
// no-op; cancelling an expired hold fails with domain.ErrExpired.
func (s *ReservationService) Cancel(ctx context.Context, in CancelInput) (out CancelResult, err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.Cancel", trace.WithAttributes(
		attribute.String("reservation.id", in.ReservationID),
	))
	defer func() { endSpan(span, err) }()

	reason := strings.TrimSpace(in.Reason)
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		r, err := s.owned(ctx, in.ReservationID, in.UserID)
		if err != nil {
			return CancelResult{}, err
		}

		switch r.Status {
		case domain.StatusCancelled:
			return CancelResult{Reservation: r, Changed: false}, nil
		case domain.StatusExpired:
			return CancelResult{}, domain.ErrExpired
		}

		now := s.clock.Now().UTC()
		if r.HoldLapsed(now) {
			if _, err := s.expire(ctx, r, now); err != nil {
				if errors.Is(err, domain.ErrStatusConflict) {
					continue
				}
				return CancelResult{}, err
			}
			return CancelResult{}, domain.ErrExpired
		}

		updated, err := s.release(ctx, r, domain.StatusCancelled, now, reason)
		if errors.Is(err, domain.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return CancelResult{}, err
		}

		s.logger.Info().
			Str("reservation_id", updated.ID).
			Str("court_id", updated.CourtID).
			Str("from", string(r.Status)).
			Msg("reservation cancelled")
		return CancelResult{Reservation: updated, Changed: true}, nil
	}
	return CancelResult{}, domain.ErrStatusConflict
}

// Get returns a reservation owned by userID.
func (s *ReservationService) Get(ctx context.Context, reservationID, userID string) (domain.Reservation, error) {
	return s.owned(ctx, reservationID, userID)
}

// ListForUser returns the user's reservations, newest start first.
func (s *ReservationService) ListForUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	return s.store.ListByUser(ctx, userID)
}

func (s *ReservationService) owned(ctx context.Context, reservationID, userID string) (domain.Reservation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Reservation{}, domain.ErrUserRequired
	}
	if strings.TrimSpace(reservationID) == "" {
		return domain.Reservation{}, domain.ErrNotFound
	}
	r, err := s.store.Get(ctx, reservationID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if r.UserID != userID {
		return domain.Reservation{}, domain.ErrForbidden
	}
	return r, nil
}
