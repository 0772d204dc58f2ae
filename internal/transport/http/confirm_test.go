package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/nadi/reservation-engine/internal/domain"
)

func TestReservationEndpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		serviceErr     error
		expectedStatus int
		expectedCode   string
	}{
		{name: "confirm", method: http.MethodPost, target: "/api/v1/reservations/res-1/confirm", body: `{"userId":"alice"}`, expectedStatus: http.StatusOK},
		{name: "confirm expired", method: http.MethodPost, target: "/api/v1/reservations/res-1/confirm", body: `{"userId":"alice"}`, serviceErr: domain.ErrExpired, expectedStatus: http.StatusConflict, expectedCode: codeExpired},
		{name: "confirm forbidden", method: http.MethodPost, target: "/api/v1/reservations/res-1/confirm", body: `{"userId":"mallory"}`, serviceErr: domain.ErrForbidden, expectedStatus: http.StatusForbidden, expectedCode: codeForbidden},
		{name: "confirm not found", method: http.MethodPost, target: "/api/v1/reservations/res-1/confirm", body: `{"userId":"alice"}`, serviceErr: domain.ErrNotFound, expectedStatus: http.StatusNotFound, expectedCode: codeReservationNotFound},
		{name: "confirm bad body", method: http.MethodPost, target: "/api/v1/reservations/res-1/confirm", body: `nope`, expectedStatus: http.StatusBadRequest, expectedCode: codeInvalidRequestBody},
		{name: "cancel", method: http.MethodPost, target: "/api/v1/reservations/res-1/cancel", body: `{"userId":"alice","reason":"rain"}`, expectedStatus: http.StatusOK},
		{name: "cancel missing user", method: http.MethodPost, target: "/api/v1/reservations/res-1/cancel", body: `{}`, serviceErr: domain.ErrUserRequired, expectedStatus: http.StatusBadRequest, expectedCode: codeUserRequired},
		{name: "get", method: http.MethodGet, target: "/api/v1/reservations/res-1?userId=alice", expectedStatus: http.StatusOK},
		{name: "get forbidden", method: http.MethodGet, target: "/api/v1/reservations/res-1?userId=bob", serviceErr: domain.ErrForbidden, expectedStatus: http.StatusForbidden, expectedCode: codeForbidden},
		{name: "confirm wrong method", method: http.MethodGet, target: "/api/v1/reservations/res-1/confirm", expectedStatus: http.StatusMethodNotAllowed, expectedCode: codeMethodNotAllowed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubReservationService{res: sampleReservation(domain.StatusConfirmed), err: tt.serviceErr}
			rec := do(t, newTestRouter(Services{Reservations: svc}), tt.method, tt.target, tt.body)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedCode != "" {
				var resp errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode error: %v", err)
				}
				if resp.Code != tt.expectedCode {
					t.Fatalf("expected code %s, got %s", tt.expectedCode, resp.Code)
				}
				return
			}
			if svc.lastID != "res-1" || svc.lastUser != "alice" {
				t.Fatalf("expected id and user forwarded, got %q %q", svc.lastID, svc.lastUser)
			}
			var resp reservationResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != "CONFIRMED" || resp.HoldExpiresAt != nil {
				t.Fatalf("unexpected response: %+v", resp)
			}
		})
	}
}

func TestHandleCancel_ForwardsReason(t *testing.T) {
	t.Parallel()

	svc := &stubReservationService{res: sampleReservation(domain.StatusCancelled)}
	rec := do(t, newTestRouter(Services{Reservations: svc}), http.MethodPost, "/api/v1/reservations/res-1/cancel", `{"userId":"alice","reason":"rain"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastReason != "rain" {
		t.Fatalf("expected reason forwarded, got %q", svc.lastReason)
	}
}

func TestHandleMyReservations(t *testing.T) {
	t.Parallel()

	svc := &stubReservationService{list: []domain.Reservation{
		sampleReservation(domain.StatusHeld),
		sampleReservation(domain.StatusCancelled),
	}}
	rec := do(t, newTestRouter(Services{Reservations: svc}), http.MethodGet, "/api/v1/reservations/my?userId=alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp []reservationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 || svc.lastUser != "alice" {
		t.Fatalf("unexpected list %+v for %q", resp, svc.lastUser)
	}

	empty := &stubReservationService{}
	rec = do(t, newTestRouter(Services{Reservations: empty}), http.MethodGet, "/api/v1/reservations/my?userId=bob", "")
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty JSON array, got %q", body)
	}
}
