package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/nadi/reservation-engine/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidTime         = "invalid_time"
	codeInvalidID           = "invalid_id"
	codeUserRequired        = "user_id_required"
	codeInvalidInterval     = "invalid_interval"
	codeCapacityExceeded    = "capacity_exceeded"
	codeSlotUnavailable     = "slot_unavailable"
	codeExpired             = "reservation_expired"
	codeIdempotencyConflict = "idempotency_conflict"
	codeReservationNotFound = "reservation_not_found"
	codeCourtNotFound       = "court_not_found"
	codePriceUnavailable    = "price_unavailable"
	codeCourtNameRequired   = "court_name_required"
	codeVenueRequired       = "venue_id_required"
	codeInvalidPlayers      = "invalid_players"
	codeInvalidPriceRule    = "invalid_price_rule"
	codePriceRuleOverlap    = "price_rule_overlap"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrSlotUnavailable, http.StatusConflict, codeSlotUnavailable},
	{domain.ErrExpired, http.StatusConflict, codeExpired},
	{domain.ErrIdempotencyConflict, http.StatusConflict, codeIdempotencyConflict},
	{domain.ErrPriceRuleOverlap, http.StatusConflict, codePriceRuleOverlap},
	{domain.ErrNotFound, http.StatusNotFound, codeReservationNotFound},
	{domain.ErrCourtNotFound, http.StatusNotFound, codeCourtNotFound},
	{domain.ErrForbidden, http.StatusForbidden, codeForbidden},
	{domain.ErrInvalidInterval, http.StatusBadRequest, codeInvalidInterval},
	{domain.ErrCapacityExceeded, http.StatusBadRequest, codeCapacityExceeded},
	{domain.ErrUserRequired, http.StatusBadRequest, codeUserRequired},
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrCourtNameRequired, http.StatusBadRequest, codeCourtNameRequired},
	{domain.ErrVenueRequired, http.StatusBadRequest, codeVenueRequired},
	{domain.ErrInvalidPlayers, http.StatusBadRequest, codeInvalidPlayers},
	{domain.ErrInvalidPriceRule, http.StatusBadRequest, codeInvalidPriceRule},
	{domain.ErrPriceUnavailable, http.StatusUnprocessableEntity, codePriceUnavailable},
}

// writeDomainError maps a service error to its status and code. Unknown
// errors are logged and reported as 500 without their message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			writeError(w, e.status, e.code, e.err.Error())
			return
		}
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
