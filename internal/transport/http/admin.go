package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nadi/reservation-engine/internal/app"
	"github.com/nadi/reservation-engine/internal/domain"
)

// CatalogAdmin is the minimal interface needed for the admin catalog endpoints.
type CatalogAdmin interface {
	CreateCourt(ctx context.Context, in app.CreateCourtInput) (domain.Court, error)
	ListCourts(ctx context.Context) ([]domain.Court, error)
	CreatePriceRule(ctx context.Context, in app.CreatePriceRuleInput) (domain.PriceRule, error)
	ListPriceRules(ctx context.Context, courtID string) ([]domain.PriceRule, error)
}

func HandleCreateCourt(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCourtRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		court, err := svc.CreateCourt(r.Context(), app.CreateCourtInput{
			VenueID:    req.VenueID,
			SportID:    req.SportID,
			Name:       req.Name,
			MinPlayers: req.MinPlayers,
			MaxPlayers: req.MaxPlayers,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCourtResponse(court))
	}
}

func HandleListCourts(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courts, err := svc.ListCourts(r.Context())
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		resp := make([]courtResponse, 0, len(courts))
		for _, c := range courts {
			resp = append(resp, toCourtResponse(c))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleCreatePriceRule(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPriceRuleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Weekday == nil {
			writeError(w, http.StatusBadRequest, codeInvalidPriceRule, "weekday is required")
			return
		}

		rule, err := svc.CreatePriceRule(r.Context(), app.CreatePriceRuleInput{
			CourtID:      chi.URLParam(r, "courtId"),
			Weekday:      *req.Weekday,
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			PricePerSlot: req.PricePerSlot,
			Currency:     req.Currency,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPriceRuleResponse(rule))
	}
}

func HandleListPriceRules(svc CatalogAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rules, err := svc.ListPriceRules(r.Context(), chi.URLParam(r, "courtId"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		resp := make([]priceRuleResponse, 0, len(rules))
		for _, rule := range rules {
			resp = append(resp, toPriceRuleResponse(rule))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type createCourtRequest struct {
	VenueID    string `json:"venueId"`
	SportID    string `json:"sportId"`
	Name       string `json:"name"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
}

type courtResponse struct {
	ID         string `json:"id"`
	VenueID    string `json:"venueId"`
	SportID    string `json:"sportId"`
	Name       string `json:"name"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
	Active     bool   `json:"active"`
}

func toCourtResponse(c domain.Court) courtResponse {
	return courtResponse{
		ID:         c.ID,
		VenueID:    c.VenueID,
		SportID:    c.SportID,
		Name:       c.Name,
		MinPlayers: c.MinPlayers,
		MaxPlayers: c.MaxPlayers,
		Active:     c.Active,
	}
}

// Weekday follows time.Weekday: 0 is Sunday.
type createPriceRuleRequest struct {
	Weekday      *int   `json:"weekday"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	PricePerSlot int64  `json:"pricePerSlot"`
	Currency     string `json:"currency,omitempty"`
}

type priceRuleResponse struct {
	ID           string `json:"id"`
	CourtID      string `json:"courtId"`
	Weekday      int    `json:"weekday"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	PricePerSlot int64  `json:"pricePerSlot"`
	Currency     string `json:"currency"`
}

func toPriceRuleResponse(p domain.PriceRule) priceRuleResponse {
	return priceRuleResponse{
		ID:           p.ID,
		CourtID:      p.CourtID,
		Weekday:      int(p.Weekday),
		StartTime:    domain.FormatMinuteOfDay(p.StartMinute),
		EndTime:      domain.FormatMinuteOfDay(p.EndMinute),
		PricePerSlot: p.PricePerSlot,
		Currency:     p.Currency,
	}
}
