package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nadi/reservation-engine/internal/domain"
	"github.com/nadi/reservation-engine/internal/slots"
)

// AvailabilityService answers display queries from the conflict index. Results
// may lag concurrent holds; CreateHold is the authoritative check.
type AvailabilityService struct {
	index  *slots.Index
	cache  AvailabilityCache
	logger zerolog.Logger
}

func NewAvailabilityService(index *slots.Index, opts ...Option) *AvailabilityService {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &AvailabilityService{index: index, cache: s.cache, logger: s.logger}
}

// Occupied returns the occupied intervals on courtID overlapping [from, to).
// A zero bound is open.
func (s *AvailabilityService) Occupied(ctx context.Context, courtID string, from, to time.Time) ([]domain.Interval, error) {
	courtID = strings.TrimSpace(courtID)
	if courtID == "" {
		return nil, domain.ErrCourtNotFound
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, domain.ErrInvalidInterval
	}
	from, to = from.UTC(), to.UTC()

	// The generation is read before the index so a snapshot raced by an
	// invalidation lands under a generation nobody reads any more.
	cacheable := false
	var gen int64
	if s.cache != nil {
		ivs, g, ok, err := s.cache.Get(ctx, courtID, from, to)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Str("court_id", courtID).Msg("read availability cache")
		case ok:
			return ivs, nil
		default:
			cacheable, gen = true, g
		}
	}

	toks := s.index.Occupied(courtID, from, to)
	ivs := make([]domain.Interval, 0, len(toks))
	for _, tok := range toks {
		ivs = append(ivs, tok.Interval)
	}

	if cacheable {
		if err := s.cache.Set(ctx, courtID, gen, from, to, ivs); err != nil {
			s.logger.Warn().Err(err).Str("court_id", courtID).Msg("write availability cache")
		}
	}
	return ivs, nil
}

// IsAvailable reports whether iv is free on courtID right now. It bypasses
// the cache.
func (s *AvailabilityService) IsAvailable(_ context.Context, courtID string, iv domain.Interval) (bool, error) {
	if !iv.Valid() {
		return false, domain.ErrInvalidInterval
	}
	return len(s.index.Occupied(courtID, iv.Start, iv.End)) == 0, nil
}

// RebuildIndex registers every active reservation in the store with the
// index. It runs once at startup, before the service accepts requests.
func RebuildIndex(ctx context.Context, store ReservationStore, index *slots.Index) (int, error) {
	active, err := store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active reservations: %w", err)
	}
	toks := make([]slots.Token, 0, len(active))
	for _, r := range active {
		toks = append(toks, tokenFor(r))
	}
	if err := index.Load(toks); err != nil {
		return 0, err
	}
	return len(toks), nil
}
