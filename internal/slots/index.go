// Package slots keeps the per-court view of occupied time ranges used to
// reject overlapping reservations.
//
// The index does not own reservations. Callers pass a persist callback that
// runs inside the court's critical section so the store and the index change
// together or not at all.
package slots

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nadi/reservation-engine/internal/domain"
)

// Token identifies one registered interval.
type Token struct {
	CourtID       string
	ReservationID string
	Interval      domain.Interval
}

// ConflictError lists the registered intervals blocking a reservation.
type ConflictError struct {
	CourtID   string
	Conflicts []Token
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot unavailable on court %s: %d conflicting reservation(s)", e.CourtID, len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error {
	return domain.ErrSlotUnavailable
}

// Index serializes access per court. Operations on different courts only
// share the brief map lookup in courtFor.
type Index struct {
	mu     sync.Mutex
	courts map[string]*court
}

type court struct {
	mu sync.RWMutex
	// sorted by Start; entries never overlap so End is sorted too
	slots []Token
}

func New() *Index {
	return &Index{courts: make(map[string]*court)}
}

func (x *Index) courtFor(courtID string) *court {
	x.mu.Lock()
	defer x.mu.Unlock()
	c, ok := x.courts[courtID]
	if !ok {
		c = &court{}
		x.courts[courtID] = c
	}
	return c
}

func (x *Index) lookup(courtID string) *court {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.courts[courtID]
}

// CheckAndReserve registers iv for reservationID on courtID unless it overlaps
// a registered interval. persist, when non-nil, runs after the overlap check
// and before registration; if it fails nothing is registered.
func (x *Index) CheckAndReserve(courtID, reservationID string, iv domain.Interval, persist func() error) (Token, error) {
	if !iv.Valid() {
		return Token{}, domain.ErrInvalidInterval
	}

	c := x.courtFor(courtID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if conflicts := c.overlapping(iv); len(conflicts) > 0 {
		return Token{}, &ConflictError{CourtID: courtID, Conflicts: conflicts}
	}

	if persist != nil {
		if err := persist(); err != nil {
			return Token{}, err
		}
	}

	tok := Token{CourtID: courtID, ReservationID: reservationID, Interval: iv}
	c.insert(tok)
	return tok, nil
}

// Release runs persist and then unregisters tok. The persist step runs even
// when tok is not registered (e.g. created by another process) so the store
// transition still happens. The bool reports whether an interval was removed;
// releasing twice removes nothing the second time.
func (x *Index) Release(tok Token, persist func() error) (bool, error) {
	c := x.courtFor(tok.CourtID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if persist != nil {
		if err := persist(); err != nil {
			return false, err
		}
	}
	return c.remove(tok), nil
}

// Load registers tokens without a persist step, used to rebuild the index
// from the store at startup.
func (x *Index) Load(tokens []Token) error {
	for _, tok := range tokens {
		if _, err := x.CheckAndReserve(tok.CourtID, tok.ReservationID, tok.Interval, nil); err != nil {
			return fmt.Errorf("load reservation %s: %w", tok.ReservationID, err)
		}
	}
	return nil
}

// Occupied returns a snapshot of the registered intervals on courtID that
// overlap [from, to). Zero bounds are open.
func (x *Index) Occupied(courtID string, from, to time.Time) []Token {
	c := x.lookup(courtID)
	if c == nil {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if from.IsZero() && to.IsZero() {
		out := make([]Token, len(c.slots))
		copy(out, c.slots)
		return out
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return c.overlapping(domain.Interval{Start: from, End: to})
}

// Len returns the number of registered intervals on courtID.
func (x *Index) Len(courtID string) int {
	c := x.lookup(courtID)
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.slots)
}

func (c *court) overlapping(iv domain.Interval) []Token {
	i := sort.Search(len(c.slots), func(i int) bool {
		return c.slots[i].Interval.End.After(iv.Start)
	})
	var out []Token
	for ; i < len(c.slots) && c.slots[i].Interval.Start.Before(iv.End); i++ {
		out = append(out, c.slots[i])
	}
	return out
}

func (c *court) insert(tok Token) {
	i := sort.Search(len(c.slots), func(i int) bool {
		return !c.slots[i].Interval.Start.Before(tok.Interval.Start)
	})
	c.slots = append(c.slots, Token{})
	copy(c.slots[i+1:], c.slots[i:])
	c.slots[i] = tok
}

// remove matches on reservation id only; stored timestamps may have lost
// precision relative to the token.
func (c *court) remove(tok Token) bool {
	for i := range c.slots {
		if c.slots[i].ReservationID == tok.ReservationID {
			c.slots = append(c.slots[:i], c.slots[i+1:]...)
			return true
		}
	}
	return false
}
