package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/nadi/reservation-engine/internal/domain"
)

type CatalogStore struct {
	mu     sync.RWMutex
	courts map[string]domain.Court
	rules  map[string][]domain.PriceRule
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		courts: make(map[string]domain.Court),
		rules:  make(map[string][]domain.PriceRule),
	}
}

func (s *CatalogStore) CreateCourt(_ context.Context, court domain.Court) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courts[court.ID]; ok {
		return domain.ErrInvalidID
	}
	s.courts[court.ID] = court
	return nil
}

func (s *CatalogStore) ListCourts(_ context.Context) ([]domain.Court, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Court, 0, len(s.courts))
	for _, c := range s.courts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *CatalogStore) GetCourt(_ context.Context, courtID string) (domain.Court, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courts[courtID]
	if !ok {
		return domain.Court{}, domain.ErrCourtNotFound
	}
	return c, nil
}

func (s *CatalogStore) CreatePriceRule(_ context.Context, rule domain.PriceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courts[rule.CourtID]; !ok {
		return domain.ErrCourtNotFound
	}
	for _, other := range s.rules[rule.CourtID] {
		if rule.Overlaps(other) {
			return domain.ErrPriceRuleOverlap
		}
	}
	s.rules[rule.CourtID] = append(s.rules[rule.CourtID], rule)
	return nil
}

// ListPriceRules returns the court's rules ordered by weekday and start.
func (s *CatalogStore) ListPriceRules(_ context.Context, courtID string) ([]domain.PriceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.courts[courtID]; !ok {
		return nil, domain.ErrCourtNotFound
	}
	out := append([]domain.PriceRule(nil), s.rules[courtID]...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday == out[j].Weekday {
			return out[i].StartMinute < out[j].StartMinute
		}
		return out[i].Weekday < out[j].Weekday
	})
	if out == nil {
		out = []domain.PriceRule{}
	}
	return out, nil
}
