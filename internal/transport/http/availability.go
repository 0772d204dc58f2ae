package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nadi/reservation-engine/internal/domain"
)

type AvailabilityReader interface {
	Occupied(ctx context.Context, courtID string, from, to time.Time) ([]domain.Interval, error)
}

// HandleAvailability lists occupied intervals on a court. from and to are
// optional RFC 3339 bounds.
func HandleAvailability(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, ok := parseOptionalTime(q.Get("from"))
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid from")
			return
		}
		to, ok := parseOptionalTime(q.Get("to"))
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid to")
			return
		}

		courtID := chi.URLParam(r, "courtId")
		occupied, err := svc.Occupied(r.Context(), courtID, from, to)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		resp := availabilityResponse{
			CourtID:  courtID,
			Occupied: make([]intervalResponse, 0, len(occupied)),
		}
		if !from.IsZero() {
			resp.From = &from
		}
		if !to.IsZero() {
			resp.To = &to
		}
		for _, iv := range occupied {
			resp.Occupied = append(resp.Occupied, intervalResponse{StartTime: iv.Start, EndTime: iv.End})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseOptionalTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

type availabilityResponse struct {
	CourtID  string             `json:"courtId"`
	From     *time.Time         `json:"from,omitempty"`
	To       *time.Time         `json:"to,omitempty"`
	Occupied []intervalResponse `json:"occupied"`
}

type intervalResponse struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}
