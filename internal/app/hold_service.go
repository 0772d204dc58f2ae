package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nadi/reservation-engine/internal/clock"
	"github.com/nadi/reservation-engine/internal/domain"
	"github.com/nadi/reservation-engine/internal/slots"
)

type HoldService struct {
	lifecycle
	catalog CourtCatalog
	pricing PriceLookup
}

func NewHoldService(store ReservationStore, index *slots.Index, catalog CourtCatalog, pricing PriceLookup, clk clock.Clock, opts ...Option) *HoldService {
	return &HoldService{
		lifecycle: newLifecycle(store, index, clk, opts),
		catalog:   catalog,
		pricing:   pricing,
	}
}

type CreateHoldInput struct {
	CourtID        string
	UserID         string
	Start          time.Time
	End            time.Time
	PlayersCount   int
	IdempotencyKey string
}

// CreateHold places a HELD reservation on the requested interval. With an
// idempotency key, a repeated identical request returns the existing hold.
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (res domain.Reservation, err error) {
	ctx, span := tracer.Start(ctx, "HoldService.CreateHold", trace.WithAttributes(
		attribute.String("court.id", in.CourtID),
		attribute.String("user.id", in.UserID),
	))
	defer func() { endSpan(span, err) }()

	in.CourtID = strings.TrimSpace(in.CourtID)
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return domain.Reservation{}, domain.ErrUserRequired
	}
	if in.CourtID == "" {
		return domain.Reservation{}, domain.ErrCourtNotFound
	}
	if in.PlayersCount <= 0 {
		return domain.Reservation{}, domain.ErrInvalidPlayers
	}
	iv, err := domain.NewInterval(in.Start, in.End)
	if err != nil {
		return domain.Reservation{}, err
	}

	now := s.clock.Now().UTC()
	if !s.allowPastStart && iv.Start.Before(now) {
		return domain.Reservation{}, domain.ErrInvalidInterval
	}

	if in.IdempotencyKey != "" {
		if existing, ok, err := s.replay(ctx, in, iv); err != nil || ok {
			return existing, err
		}
	}

	capability, err := s.catalog.GetCourtCapability(ctx, in.CourtID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !capability.Allows(in.PlayersCount) {
		return domain.Reservation{}, domain.ErrCapacityExceeded
	}

	price, err := s.pricing.GetPrice(ctx, in.CourtID, iv.Start.Weekday(), iv)
	if err != nil {
		return domain.Reservation{}, err
	}

	expiresAt := now.Add(s.holdTTL)
	hold := domain.Reservation{
		ID:             newUUID(),
		CourtID:        in.CourtID,
		UserID:         in.UserID,
		Start:          iv.Start,
		End:            iv.End,
		PlayersCount:   in.PlayersCount,
		Status:         domain.StatusHeld,
		HoldExpiresAt:  &expiresAt,
		PriceTotal:     price.Amount,
		Currency:       price.Currency,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.reserve(ctx, hold)
	var conflict *slots.ConflictError
	if errors.As(err, &conflict) && s.clearConflicts(ctx, conflict, now) {
		err = s.reserve(ctx, hold)
	}
	if err != nil {
		// A concurrent retry with the same key may have won the slot.
		if in.IdempotencyKey != "" && (errors.Is(err, domain.ErrSlotUnavailable) || errors.Is(err, domain.ErrIdempotencyConflict)) {
			if existing, ok, rerr := s.replay(ctx, in, iv); rerr != nil || ok {
				return existing, rerr
			}
		}
		return domain.Reservation{}, err
	}

	s.committed(ctx, hold)
	s.logger.Info().
		Str("reservation_id", hold.ID).
		Str("court_id", hold.CourtID).
		Time("start", hold.Start).
		Time("end", hold.End).
		Time("hold_expires_at", expiresAt).
		Msg("hold created")
	return hold, nil
}

func (s *HoldService) reserve(ctx context.Context, hold domain.Reservation) error {
	_, err := s.index.CheckAndReserve(hold.CourtID, hold.ID, hold.Interval(), func() error {
		return s.store.Create(ctx, hold)
	})
	return err
}

// replay returns the reservation previously created under the same key. A key
// reused for a different request is an idempotency conflict.
func (s *HoldService) replay(ctx context.Context, in CreateHoldInput, iv domain.Interval) (domain.Reservation, bool, error) {
	existing, err := s.store.FindByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
	if err != nil || existing == nil {
		return domain.Reservation{}, false, err
	}
	if existing.CourtID != in.CourtID ||
		!existing.Start.Equal(iv.Start) ||
		!existing.End.Equal(iv.End) ||
		existing.PlayersCount != in.PlayersCount {
		return domain.Reservation{}, false, domain.ErrIdempotencyConflict
	}
	return *existing, true, nil
}

// clearConflicts frees the slot when every conflicting reservation is either
// a hold lapsed at now or one another process already released. It reports
// whether a retry can succeed.
func (s *HoldService) clearConflicts(ctx context.Context, conflict *slots.ConflictError, now time.Time) bool {
	var lapsed []domain.Reservation
	var stale []slots.Token
	for _, tok := range conflict.Conflicts {
		r, err := s.store.Get(ctx, tok.ReservationID)
		if errors.Is(err, domain.ErrNotFound) {
			stale = append(stale, tok)
			continue
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("reservation_id", tok.ReservationID).Msg("load conflicting reservation")
			return false
		}
		switch {
		case !r.Status.Active():
			stale = append(stale, tok)
		case r.HoldLapsed(now):
			lapsed = append(lapsed, r)
		default:
			return false
		}
	}

	for _, r := range lapsed {
		_, err := s.expire(ctx, r, now)
		if errors.Is(err, domain.ErrStatusConflict) {
			// changed elsewhere; keep it only if it is still active
			stale = append(stale, tokenFor(r))
			continue
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("reservation_id", r.ID).Msg("expire lapsed hold")
			return false
		}
	}
	for _, tok := range stale {
		dropped, err := s.dropStale(ctx, tok)
		if err != nil {
			s.logger.Warn().Err(err).Str("reservation_id", tok.ReservationID).Msg("drop released reservation")
			return false
		}
		if !dropped {
			return false
		}
		s.logger.Debug().Str("reservation_id", tok.ReservationID).Str("court_id", tok.CourtID).Msg("dropped reservation released elsewhere")
	}
	return true
}
