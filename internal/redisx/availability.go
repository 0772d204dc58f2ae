package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nadi/reservation-engine/internal/domain"
)

// AvailabilityCache stores occupied-interval snapshots per court. Invalidate
// bumps a per-court generation so stale snapshots are never read again; they
// age out through their TTL.
type AvailabilityCache struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewAvailabilityCache(rdb redis.Cmdable, prefix string, ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		ttl = TTLAvailability
	}
	return &AvailabilityCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

type cachedInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Get returns the snapshot for the court's current generation along with that
// generation, which a caller filling a miss passes back to Set.
func (c *AvailabilityCache) Get(ctx context.Context, courtID string, from, to time.Time) ([]domain.Interval, int64, bool, error) {
	gen, err := c.generation(ctx, courtID)
	if err != nil {
		return nil, 0, false, err
	}
	raw, err := c.rdb.Get(ctx, c.key(courtID, gen, from, to)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("get availability: %w", err)
	}

	var cached []cachedInterval
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, 0, false, fmt.Errorf("decode availability: %w", err)
	}
	out := make([]domain.Interval, 0, len(cached))
	for _, iv := range cached {
		out = append(out, domain.Interval{Start: iv.Start.UTC(), End: iv.End.UTC()})
	}
	return out, gen, true, nil
}

// Set stores ivs under gen. A gen older than the current one writes a key no
// Get will look up.
func (c *AvailabilityCache) Set(ctx context.Context, courtID string, gen int64, from, to time.Time, ivs []domain.Interval) error {
	cached := make([]cachedInterval, 0, len(ivs))
	for _, iv := range ivs {
		cached = append(cached, cachedInterval{Start: iv.Start, End: iv.End})
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(courtID, gen, from, to), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set availability: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, courtID string) error {
	if err := c.rdb.Incr(ctx, c.prefix+fmt.Sprintf(KeyAvailabilityVersion, courtID)).Err(); err != nil {
		return fmt.Errorf("bump availability generation: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) generation(ctx context.Context, courtID string) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.prefix+fmt.Sprintf(KeyAvailabilityVersion, courtID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get availability generation: %w", err)
	}
	return gen, nil
}

func (c *AvailabilityCache) key(courtID string, gen int64, from, to time.Time) string {
	return c.prefix + fmt.Sprintf(KeyAvailability, courtID, gen, from.Unix(), to.Unix())
}
