package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nadi/reservation-engine/internal/domain"
)

type CatalogRepository interface {
	CreateCourt(ctx context.Context, court domain.Court) error
	ListCourts(ctx context.Context) ([]domain.Court, error)
	GetCourt(ctx context.Context, courtID string) (domain.Court, error)
	CreatePriceRule(ctx context.Context, rule domain.PriceRule) error
	ListPriceRules(ctx context.Context, courtID string) ([]domain.PriceRule, error)
}

// AdminService manages the court catalog. It also serves court capability
// and pricing to the hold path.
type AdminService struct {
	repo CatalogRepository
}

func NewAdminService(repo CatalogRepository) *AdminService {
	return &AdminService{repo: repo}
}

type CreateCourtInput struct {
	VenueID    string
	SportID    string
	Name       string
	MinPlayers int
	MaxPlayers int
}

func (s *AdminService) CreateCourt(ctx context.Context, in CreateCourtInput) (domain.Court, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.VenueID = strings.TrimSpace(in.VenueID)
	if in.Name == "" {
		return domain.Court{}, domain.ErrCourtNameRequired
	}
	if in.VenueID == "" {
		return domain.Court{}, domain.ErrVenueRequired
	}
	if in.MinPlayers <= 0 || in.MaxPlayers < in.MinPlayers {
		return domain.Court{}, domain.ErrInvalidPlayers
	}

	court := domain.Court{
		ID:         newUUID(),
		VenueID:    in.VenueID,
		SportID:    strings.TrimSpace(in.SportID),
		Name:       in.Name,
		MinPlayers: in.MinPlayers,
		MaxPlayers: in.MaxPlayers,
		Active:     true,
	}
	if err := s.repo.CreateCourt(ctx, court); err != nil {
		return domain.Court{}, err
	}
	return court, nil
}

func (s *AdminService) ListCourts(ctx context.Context) ([]domain.Court, error) {
	return s.repo.ListCourts(ctx)
}

type CreatePriceRuleInput struct {
	CourtID      string
	Weekday      int
	StartTime    string
	EndTime      string
	PricePerSlot int64
	Currency     string
}

func (s *AdminService) CreatePriceRule(ctx context.Context, in CreatePriceRuleInput) (domain.PriceRule, error) {
	if strings.TrimSpace(in.CourtID) == "" {
		return domain.PriceRule{}, domain.ErrInvalidID
	}
	if in.Weekday < 0 || in.Weekday > 6 || in.PricePerSlot < 0 {
		return domain.PriceRule{}, domain.ErrInvalidPriceRule
	}
	start, err := domain.ParseMinuteOfDay(in.StartTime)
	if err != nil {
		return domain.PriceRule{}, err
	}
	end, err := domain.ParseMinuteOfDay(in.EndTime)
	if err != nil {
		return domain.PriceRule{}, err
	}
	if start >= end {
		return domain.PriceRule{}, domain.ErrInvalidPriceRule
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	if _, err := s.repo.GetCourt(ctx, in.CourtID); err != nil {
		return domain.PriceRule{}, err
	}

	rule := domain.PriceRule{
		ID:           newUUID(),
		CourtID:      in.CourtID,
		Weekday:      time.Weekday(in.Weekday),
		StartMinute:  start,
		EndMinute:    end,
		PricePerSlot: in.PricePerSlot,
		Currency:     currency,
	}

	existing, err := s.repo.ListPriceRules(ctx, in.CourtID)
	if err != nil {
		return domain.PriceRule{}, err
	}
	for _, other := range existing {
		if rule.Overlaps(other) {
			return domain.PriceRule{}, domain.ErrPriceRuleOverlap
		}
	}

	if err := s.repo.CreatePriceRule(ctx, rule); err != nil {
		return domain.PriceRule{}, err
	}
	return rule, nil
}

func (s *AdminService) ListPriceRules(ctx context.Context, courtID string) ([]domain.PriceRule, error) {
	if strings.TrimSpace(courtID) == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListPriceRules(ctx, courtID)
}

// GetCourtCapability returns the player limits of an active court.
func (s *AdminService) GetCourtCapability(ctx context.Context, courtID string) (domain.CourtCapability, error) {
	court, err := s.repo.GetCourt(ctx, courtID)
	if err != nil {
		return domain.CourtCapability{}, err
	}
	if !court.Active {
		return domain.CourtCapability{}, domain.ErrCourtNotFound
	}
	return domain.CourtCapability{
		MinPlayers: court.MinPlayers,
		MaxPlayers: court.MaxPlayers,
		VenueID:    court.VenueID,
	}, nil
}

// GetPrice prices iv with the rule for weekday whose window contains the whole
// interval. Intervals crossing midnight are not priced.
func (s *AdminService) GetPrice(ctx context.Context, courtID string, weekday time.Weekday, iv domain.Interval) (domain.Price, error) {
	if !iv.Valid() {
		return domain.Price{}, domain.ErrInvalidInterval
	}
	start := domain.MinuteOfDay(iv.Start)
	end := start + int(iv.Duration()/time.Minute)
	if iv.Duration()%time.Minute != 0 {
		end++
	}
	if end > 24*60 {
		return domain.Price{}, domain.ErrPriceUnavailable
	}

	rules, err := s.repo.ListPriceRules(ctx, courtID)
	if err != nil {
		if errors.Is(err, domain.ErrCourtNotFound) {
			return domain.Price{}, domain.ErrPriceUnavailable
		}
		return domain.Price{}, err
	}
	for _, rule := range rules {
		if rule.Weekday == weekday && rule.Covers(start, end) {
			currency := rule.Currency
			if currency == "" {
				currency = domain.DefaultCurrency
			}
			return domain.Price{
				Amount:   rule.PricePerSlot * domain.SlotCount(iv.Duration()),
				Currency: currency,
			}, nil
		}
	}
	return domain.Price{}, domain.ErrPriceUnavailable
}
