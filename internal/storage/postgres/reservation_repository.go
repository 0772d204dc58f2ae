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

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const reservationColumns = `id, court_id, user_id, start_time, end_time, players_count, status,
hold_expires_at, price_total, currency, COALESCE(idempotency_key, ''), COALESCE(cancel_reason, ''),
created_at, updated_at`

func (r *ReservationRepository) Create(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, court_id, user_id, start_time, end_time, players_count, status,
	hold_expires_at, price_total, currency, idempotency_key, cancel_reason, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), NULLIF($12, ''), $13, $14)`

	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		res.ID,
		res.CourtID,
		res.UserID,
		res.Start,
		res.End,
		res.PlayersCount,
		string(res.Status),
		res.HoldExpiresAt,
		res.PriceTotal,
		res.Currency,
		res.IdempotencyKey,
		res.CancelReason,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		switch {
		case isExclusionViolation(err):
			return domain.ErrSlotUnavailable
		case isUniqueViolation(err):
			return domain.ErrIdempotencyConflict
		case isForeignKeyViolation(err), isInvalidUUID(err):
			return domain.ErrCourtNotFound
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) Get(ctx context.Context, id string) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1 AND idempotency_key = $2`
	res, err := scanReservation(conn(ctx, r.pool).QueryRow(ctx, query, userID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find reservation by idempotency key: %w", err)
	}
	return &res, nil
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
FROM reservations
WHERE user_id = $1
ORDER BY start_time DESC, id`
	return r.list(ctx, "list user reservations", query, userID)
}

func (r *ReservationRepository) ListActive(ctx context.Context) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
FROM reservations
WHERE status IN ('HELD', 'CONFIRMED')
ORDER BY start_time`
	return r.list(ctx, "list active reservations", query)
}

// ListExpiredHolds reads from the partial hold expiry index, oldest first.
func (r *ReservationRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
FROM reservations
WHERE status = 'HELD' AND hold_expires_at <= $1
ORDER BY hold_expires_at
LIMIT $2`
	return r.list(ctx, "list expired holds", query, now, limit)
}

// Transition is a compare-and-set on status. When no row matches it tells a
// missing reservation apart from one whose status moved on.
func (r *ReservationRepository) Transition(ctx context.Context, tr domain.Transition) (domain.Reservation, error) {
	if !domain.CanTransition(tr.From, tr.To) {
		return domain.Reservation{}, domain.ErrStatusConflict
	}

	stmt := `
UPDATE reservations
SET status = $3::text,
	updated_at = $4,
	hold_expires_at = CASE WHEN $3::text = 'HELD' THEN hold_expires_at ELSE NULL END,
	cancel_reason = CASE WHEN $3::text = 'CANCELLED' THEN NULLIF($5::text, '') ELSE cancel_reason END
WHERE id = $1 AND status = $2::text
	AND (NOT $6::boolean OR hold_expires_at > $4)
RETURNING ` + reservationColumns

	var out domain.Reservation
	err := r.WithTx(ctx, func(txCtx context.Context) error {
		q := conn(txCtx, r.pool)
		res, err := scanReservation(q.QueryRow(txCtx, stmt,
			tr.ID, string(tr.From), string(tr.To), tr.At, tr.Reason, tr.RequireLiveHold,
		))
		if err == nil {
			out = res
			return nil
		}
		if isInvalidUUID(err) {
			return domain.ErrNotFound
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("transition reservation: %w", err)
		}

		var exists bool
		if err := q.QueryRow(txCtx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, tr.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check reservation: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrStatusConflict
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return out, nil
}

func (r *ReservationRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]domain.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}
	return out, nil
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var (
		res       domain.Reservation
		status    string
		expiresAt *time.Time
	)
	err := row.Scan(
		&res.ID,
		&res.CourtID,
		&res.UserID,
		&res.Start,
		&res.End,
		&res.PlayersCount,
		&status,
		&expiresAt,
		&res.PriceTotal,
		&res.Currency,
		&res.IdempotencyKey,
		&res.CancelReason,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.Status = domain.Status(status)
	res.Start = res.Start.UTC()
	res.End = res.End.UTC()
	res.CreatedAt = res.CreatedAt.UTC()
	res.UpdatedAt = res.UpdatedAt.UTC()
	if expiresAt != nil {
		exp := expiresAt.UTC()
		res.HoldExpiresAt = &exp
	}
	return res, nil
}
