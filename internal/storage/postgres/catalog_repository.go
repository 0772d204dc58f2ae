package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nadi/reservation-engine/internal/domain"
)

type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreateCourt(ctx context.Context, court domain.Court) error {
	const stmt = `
INSERT INTO courts (id, venue_id, sport_id, name, min_players, max_players, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		court.ID, court.VenueID, court.SportID, court.Name, court.MinPlayers, court.MaxPlayers, court.Active)
	if err != nil {
		if isInvalidUUID(err) || isUniqueViolation(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create court: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListCourts(ctx context.Context) ([]domain.Court, error) {
	const query = `
SELECT id, venue_id, sport_id, name, min_players, max_players, active
FROM courts
ORDER BY name, id`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list courts: %w", err)
	}
	defer rows.Close()

	courts := make([]domain.Court, 0)
	for rows.Next() {
		var c domain.Court
		if err := rows.Scan(&c.ID, &c.VenueID, &c.SportID, &c.Name, &c.MinPlayers, &c.MaxPlayers, &c.Active); err != nil {
			return nil, fmt.Errorf("scan court: %w", err)
		}
		courts = append(courts, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate courts: %w", rows.Err())
	}
	return courts, nil
}

func (r *CatalogRepository) GetCourt(ctx context.Context, courtID string) (domain.Court, error) {
	const query = `
SELECT id, venue_id, sport_id, name, min_players, max_players, active
FROM courts
WHERE id = $1`
	var c domain.Court
	err := conn(ctx, r.pool).QueryRow(ctx, query, courtID).
		Scan(&c.ID, &c.VenueID, &c.SportID, &c.Name, &c.MinPlayers, &c.MaxPlayers, &c.Active)
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Court{}, domain.ErrCourtNotFound
		}
		return domain.Court{}, fmt.Errorf("get court: %w", err)
	}
	return c, nil
}

func (r *CatalogRepository) CreatePriceRule(ctx context.Context, rule domain.PriceRule) error {
	const stmt = `
INSERT INTO court_price_rules (id, court_id, weekday, start_minute, end_minute, price_per_slot, currency)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		rule.ID, rule.CourtID, int(rule.Weekday), rule.StartMinute, rule.EndMinute, rule.PricePerSlot, rule.Currency)
	if err != nil {
		switch {
		case isExclusionViolation(err):
			return domain.ErrPriceRuleOverlap
		case isForeignKeyViolation(err), isInvalidUUID(err):
			return domain.ErrCourtNotFound
		}
		return fmt.Errorf("create price rule: %w", err)
	}
	return nil
}

// ListPriceRules returns the court's rules ordered by weekday and start.
func (r *CatalogRepository) ListPriceRules(ctx context.Context, courtID string) ([]domain.PriceRule, error) {
	q := conn(ctx, r.pool)

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courts WHERE id = $1)`, courtID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrCourtNotFound
		}
		return nil, fmt.Errorf("check court: %w", err)
	}
	if !exists {
		return nil, domain.ErrCourtNotFound
	}

	const query = `
SELECT id, court_id, weekday, start_minute, end_minute, price_per_slot, currency
FROM court_price_rules
WHERE court_id = $1
ORDER BY weekday, start_minute`
	rows, err := q.Query(ctx, query, courtID)
	if err != nil {
		return nil, fmt.Errorf("list price rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.PriceRule, 0)
	for rows.Next() {
		var (
			rule    domain.PriceRule
			weekday int
		)
		if err := rows.Scan(&rule.ID, &rule.CourtID, &weekday, &rule.StartMinute, &rule.EndMinute, &rule.PricePerSlot, &rule.Currency); err != nil {
			return nil, fmt.Errorf("scan price rule: %w", err)
		}
		rule.Weekday = time.Weekday(weekday)
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate price rules: %w", rows.Err())
	}
	return rules, nil
}
