package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/nadi/reservation-engine/internal/app"
	"github.com/nadi/reservation-engine/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// HoldCreator is the minimal interface needed to create a hold.
type HoldCreator interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Reservation, error)
}

// HandleCreateHold returns an HTTP handler for placing holds. The idempotency
// key may come from the body or the Idempotency-Key header.
func HandleCreateHold(svc HoldCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createHoldRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.StartTime == nil || req.EndTime == nil {
			writeError(w, http.StatusBadRequest, codeInvalidInterval, "startTime and endTime are required")
			return
		}
		key := req.IdempotencyKey
		if key == "" {
			key = strings.TrimSpace(r.Header.Get(idempotencyHeader))
		}

		res, err := svc.CreateHold(r.Context(), app.CreateHoldInput{
			CourtID:        req.CourtID,
			UserID:         req.UserID,
			Start:          *req.StartTime,
			End:            *req.EndTime,
			PlayersCount:   req.PlayersCount,
			IdempotencyKey: key,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toReservationResponse(res))
	}
}

type createHoldRequest struct {
	CourtID        string     `json:"courtId"`
	UserID         string     `json:"userId"`
	StartTime      *time.Time `json:"startTime"`
	EndTime        *time.Time `json:"endTime"`
	PlayersCount   int        `json:"playersCount"`
	IdempotencyKey string     `json:"idempotencyKey,omitempty"`
}

type reservationResponse struct {
	ID            string     `json:"id"`
	CourtID       string     `json:"courtId"`
	UserID        string     `json:"userId"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       time.Time  `json:"endTime"`
	PlayersCount  int        `json:"playersCount"`
	Status        string     `json:"status"`
	HoldExpiresAt *time.Time `json:"holdExpiresAt,omitempty"`
	PriceTotal    int64      `json:"priceTotal"`
	Currency      string     `json:"currency"`
	CancelReason  string     `json:"cancelReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:            r.ID,
		CourtID:       r.CourtID,
		UserID:        r.UserID,
		StartTime:     r.Start,
		EndTime:       r.End,
		PlayersCount:  r.PlayersCount,
		Status:        string(r.Status),
		HoldExpiresAt: r.HoldExpiresAt,
		PriceTotal:    r.PriceTotal,
		Currency:      r.Currency,
		CancelReason:  r.CancelReason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
