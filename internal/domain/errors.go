package domain

import "errors"

var (
	ErrSlotUnavailable     = errors.New("slot unavailable")
	ErrNotFound            = errors.New("reservation not found")
	ErrForbidden           = errors.New("forbidden")
	ErrExpired             = errors.New("reservation expired or already finalized")
	ErrInvalidInterval     = errors.New("invalid interval")
	ErrCapacityExceeded    = errors.New("players count outside court capacity")
	ErrCourtNotFound       = errors.New("court not found")
	ErrPriceUnavailable    = errors.New("no price rule for requested slot")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrInvalidID           = errors.New("invalid id")
	ErrUserRequired        = errors.New("user id required")

	// ErrStatusConflict is returned by stores when a compare-and-set on status
	// finds a different current status.
	ErrStatusConflict = errors.New("status changed concurrently")

	ErrCourtNameRequired = errors.New("court name required")
	ErrVenueRequired     = errors.New("venue id required")
	ErrInvalidPlayers    = errors.New("invalid players range")
	ErrInvalidPriceRule  = errors.New("invalid price rule")
	ErrPriceRuleOverlap  = errors.New("price rule overlaps existing rule")
)
