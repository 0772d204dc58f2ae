package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nadi/reservation-engine/internal/app"
	"github.com/nadi/reservation-engine/internal/domain"
)

var (
	testStart = time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	testEnd   = testStart.Add(time.Hour)
)

func sampleReservation(status domain.Status) domain.Reservation {
	exp := testStart.Add(-2 * time.Hour)
	r := domain.Reservation{
		ID:           "res-1",
		CourtID:      "court-1",
		UserID:       "alice",
		Start:        testStart,
		End:          testEnd,
		PlayersCount: 2,
		Status:       status,
		PriceTotal:   3000,
		Currency:     "USD",
		CreatedAt:    testStart.Add(-3 * time.Hour),
		UpdatedAt:    testStart.Add(-3 * time.Hour),
	}
	if status == domain.StatusHeld {
		r.HoldExpiresAt = &exp
	}
	return r
}

type stubHoldService struct {
	res  domain.Reservation
	err  error
	last app.CreateHoldInput
}

func (s *stubHoldService) CreateHold(_ context.Context, in app.CreateHoldInput) (domain.Reservation, error) {
	s.last = in
	return s.res, s.err
}

type stubReservationService struct {
	res        domain.Reservation
	list       []domain.Reservation
	err        error
	lastUser   string
	lastID     string
	lastReason string
}

func (s *stubReservationService) Confirm(_ context.Context, in app.ConfirmInput) (app.ConfirmResult, error) {
	s.lastID, s.lastUser = in.ReservationID, in.UserID
	if s.err != nil {
		return app.ConfirmResult{}, s.err
	}
	return app.ConfirmResult{Reservation: s.res, Changed: true}, nil
}

func (s *stubReservationService) Cancel(_ context.Context, in app.CancelInput) (app.CancelResult, error) {
	s.lastID, s.lastUser, s.lastReason = in.ReservationID, in.UserID, in.Reason
	if s.err != nil {
		return app.CancelResult{}, s.err
	}
	return app.CancelResult{Reservation: s.res, Changed: true}, nil
}

func (s *stubReservationService) Get(_ context.Context, id, userID string) (domain.Reservation, error) {
	s.lastID, s.lastUser = id, userID
	return s.res, s.err
}

func (s *stubReservationService) ListForUser(_ context.Context, userID string) ([]domain.Reservation, error) {
	s.lastUser = userID
	return s.list, s.err
}

type stubAvailability struct {
	occupied []domain.Interval
	err      error
	from, to time.Time
}

func (s *stubAvailability) Occupied(_ context.Context, _ string, from, to time.Time) ([]domain.Interval, error) {
	s.from, s.to = from, to
	return s.occupied, s.err
}

type stubAdmin struct {
	court     domain.Court
	rule      domain.PriceRule
	err       error
	lastRule  app.CreatePriceRuleInput
	lastCourt app.CreateCourtInput
}

func (s *stubAdmin) CreateCourt(_ context.Context, in app.CreateCourtInput) (domain.Court, error) {
	s.lastCourt = in
	return s.court, s.err
}

func (s *stubAdmin) ListCourts(context.Context) ([]domain.Court, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Court{s.court}, nil
}

func (s *stubAdmin) CreatePriceRule(_ context.Context, in app.CreatePriceRuleInput) (domain.PriceRule, error) {
	s.lastRule = in
	return s.rule, s.err
}

func (s *stubAdmin) ListPriceRules(context.Context, string) ([]domain.PriceRule, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.PriceRule{s.rule}, nil
}

func newTestRouter(svc Services) http.Handler {
	if svc.Holds == nil {
		svc.Holds = &stubHoldService{}
	}
	if svc.Reservations == nil {
		svc.Reservations = &stubReservationService{}
	}
	if svc.Availability == nil {
		svc.Availability = &stubAvailability{}
	}
	if svc.Admin == nil {
		svc.Admin = &stubAdmin{}
	}
	return NewRouter(svc, RouterConfig{Logger: zerolog.Nop(), CORSOrigins: []string{"http://localhost:5173"}})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
