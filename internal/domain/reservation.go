package domain

import "time"

type Status string

const (
	StatusHeld      Status = "HELD"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

var validNext = map[Status]map[Status]bool{
	StatusHeld:      {StatusConfirmed: true, StatusCancelled: true, StatusExpired: true},
	StatusConfirmed: {StatusCancelled: true},
	StatusCancelled: {},
	StatusExpired:   {},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Active reports whether a reservation in this status occupies its slot.
func (s Status) Active() bool {
	return s == StatusHeld || s == StatusConfirmed
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start.UTC(), End: end.UTC()}
	if !iv.Valid() {
		return Interval{}, ErrInvalidInterval
	}
	return iv, nil
}

func (i Interval) Valid() bool {
	return !i.Start.IsZero() && !i.End.IsZero() && i.Start.Before(i.End)
}

// Overlaps uses half-open semantics: touching intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Reservation is a court booking. Only Status, HoldExpiresAt, UpdatedAt and
// CancelReason change after creation.
type Reservation struct {
	ID             string
	CourtID        string
	UserID         string
	Start          time.Time
	End            time.Time
	PlayersCount   int
	Status         Status
	HoldExpiresAt  *time.Time
	PriceTotal     int64
	Currency       string
	IdempotencyKey string
	CancelReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r Reservation) Interval() Interval {
	return Interval{Start: r.Start, End: r.End}
}

// HoldLapsed reports whether a HELD reservation is past its expiry at now.
func (r Reservation) HoldLapsed(now time.Time) bool {
	if r.Status != StatusHeld || r.HoldExpiresAt == nil {
		return false
	}
	return !r.HoldExpiresAt.After(now)
}

// Transition describes a compare-and-set status change applied by a store.
type Transition struct {
	ID     string
	From   Status
	To     Status
	At     time.Time
	Reason string
	// RequireLiveHold makes the store reject the change when the hold has
	// already lapsed at At.
	RequireLiveHold bool
}
