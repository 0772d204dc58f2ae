package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nadi/reservation-engine/internal/app"
	"github.com/nadi/reservation-engine/internal/domain"
)

// ReservationManager covers the per-reservation endpoints.
type ReservationManager interface {
	Confirm(ctx context.Context, in app.ConfirmInput) (app.ConfirmResult, error)
	Cancel(ctx context.Context, in app.CancelInput) (app.CancelResult, error)
	Get(ctx context.Context, reservationID, userID string) (domain.Reservation, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Reservation, error)
}

// HandleConfirm confirms a held reservation. Confirming twice answers 200
// with the same body.
func HandleConfirm(svc ReservationManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.Confirm(r.Context(), app.ConfirmInput{
			ReservationID: chi.URLParam(r, "id"),
			UserID:        req.UserID,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toReservationResponse(res.Reservation))
	}
}

// HandleCancel cancels a held or confirmed reservation.
func HandleCancel(svc ReservationManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cancelRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.Cancel(r.Context(), app.CancelInput{
			ReservationID: chi.URLParam(r, "id"),
			UserID:        req.UserID,
			Reason:        req.Reason,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toReservationResponse(res.Reservation))
	}
}

func HandleGetReservation(svc ReservationManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Get(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("userId"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toReservationResponse(res))
	}
}

// HandleMyReservations lists the caller's reservations, latest start first.
func HandleMyReservations(svc ReservationManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListForUser(r.Context(), r.URL.Query().Get("userId"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		resp := make([]reservationResponse, 0, len(list))
		for _, res := range list {
			resp = append(resp, toReservationResponse(res))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type confirmRequest struct {
	UserID string `json:"userId"`
}

type cancelRequest struct {
	UserID string `json:"userId"`
	Reason string `json:"reason,omitempty"`
}
