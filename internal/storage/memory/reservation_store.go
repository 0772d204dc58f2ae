// Package memory implements the reservation and catalog stores in process
// memory, for tests and single-node deployments without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nadi/reservation-engine/internal/domain"
)

type ReservationStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Reservation
	byKey map[idemKey]string
}

type idemKey struct {
	userID string
	key    string
}

func NewReservationStore() *ReservationStore {
	return &ReservationStore{
		byID:  make(map[string]domain.Reservation),
		byKey: make(map[idemKey]string),
	}
}

func (s *ReservationStore) Create(_ context.Context, r domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[r.ID]; ok {
		return domain.ErrInvalidID
	}
	if r.IdempotencyKey != "" {
		k := idemKey{userID: r.UserID, key: r.IdempotencyKey}
		if _, ok := s.byKey[k]; ok {
			return domain.ErrIdempotencyConflict
		}
		s.byKey[k] = r.ID
	}
	s.byID[r.ID] = clone(r)
	return nil
}

func (s *ReservationStore) Get(_ context.Context, id string) (domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return clone(r), nil
}

func (s *ReservationStore) FindByIdempotencyKey(_ context.Context, userID, key string) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[idemKey{userID: userID, key: key}]
	if !ok {
		return nil, nil
	}
	r := clone(s.byID[id])
	return &r, nil
}

// ListByUser returns the user's reservations, latest start first.
func (s *ReservationStore) ListByUser(_ context.Context, userID string) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Reservation, 0)
	for _, r := range s.byID {
		if r.UserID == userID {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.After(out[j].Start)
	})
	return out, nil
}

func (s *ReservationStore) ListActive(_ context.Context) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Reservation, 0)
	for _, r := range s.byID {
		if r.Status.Active() {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// ListExpiredHolds returns up to limit HELD reservations whose hold lapsed at
// now, oldest expiry first.
func (s *ReservationStore) ListExpiredHolds(_ context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Reservation, 0)
	for _, r := range s.byID {
		if r.HoldLapsed(now) {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoldExpiresAt.Before(*out[j].HoldExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Transition applies tr only when the stored status equals tr.From.
func (s *ReservationStore) Transition(_ context.Context, tr domain.Transition) (domain.Reservation, error) {
	if !domain.CanTransition(tr.From, tr.To) {
		return domain.Reservation{}, domain.ErrStatusConflict
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[tr.ID]
	if !ok {
		return domain.Reservation{}, domain.ErrNotFound
	}
	if r.Status != tr.From {
		return domain.Reservation{}, domain.ErrStatusConflict
	}
	if tr.RequireLiveHold && r.HoldLapsed(tr.At) {
		return domain.Reservation{}, domain.ErrStatusConflict
	}

	r.Status = tr.To
	r.UpdatedAt = tr.At
	if tr.To != domain.StatusHeld {
		r.HoldExpiresAt = nil
	}
	if tr.To == domain.StatusCancelled {
		r.CancelReason = tr.Reason
	}
	s.byID[r.ID] = r
	return clone(r), nil
}

func clone(r domain.Reservation) domain.Reservation {
	if r.HoldExpiresAt != nil {
		exp := *r.HoldExpiresAt
		r.HoldExpiresAt = &exp
	}
	return r
}
