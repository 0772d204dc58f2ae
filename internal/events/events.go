// Package events defines the reservation lifecycle messages published after a
// status change commits.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nadi/reservation-engine/internal/domain"
)

const (
	TypeReservationHeld      = "reservation.held"
	TypeReservationConfirmed = "reservation.confirmed"
	TypeReservationCancelled = "reservation.cancelled"
	TypeReservationExpired   = "reservation.expired"
)

const currentVersion = 1

type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	TraceID      string          `json:"trace_id,omitempty"`
	// Key routes the message; court id so a court's events stay ordered.
	Key     string          `json:"-"`
	Payload json.RawMessage `json:"payload"`
}

type ReservationPayload struct {
	ReservationID string     `json:"reservation_id"`
	CourtID       string     `json:"court_id"`
	UserID        string     `json:"user_id"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	PlayersCount  int        `json:"players_count"`
	Status        string     `json:"status"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
	PriceTotal    int64      `json:"price_total"`
	Currency      string     `json:"currency"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
}

// TypeFor maps a reservation status to its lifecycle event type.
func TypeFor(s domain.Status) (string, bool) {
	switch s {
	case domain.StatusHeld:
		return TypeReservationHeld, true
	case domain.StatusConfirmed:
		return TypeReservationConfirmed, true
	case domain.StatusCancelled:
		return TypeReservationCancelled, true
	case domain.StatusExpired:
		return TypeReservationExpired, true
	default:
		return "", false
	}
}

// NewReservationEvent builds the envelope for r's current status.
func NewReservationEvent(r domain.Reservation, producer string, at time.Time) (Envelope, error) {
	typ, ok := TypeFor(r.Status)
	if !ok {
		return Envelope{}, fmt.Errorf("no event for status %q", r.Status)
	}
	payload, err := json.Marshal(ReservationPayload{
		ReservationID: r.ID,
		CourtID:       r.CourtID,
		UserID:        r.UserID,
		Start:         r.Start,
		End:           r.End,
		PlayersCount:  r.PlayersCount,
		Status:        string(r.Status),
		HoldExpiresAt: r.HoldExpiresAt,
		PriceTotal:    r.PriceTotal,
		Currency:      r.Currency,
		CancelReason:  r.CancelReason,
	})
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload: %w", err)
	}
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    typ,
		EventVersion: currentVersion,
		OccurredAt:   at.UTC(),
		Producer:     producer,
		Key:          r.CourtID,
		Payload:      payload,
	}, nil
}

// DecodePayload unwraps a specific payload type from an envelope.
func DecodePayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }
