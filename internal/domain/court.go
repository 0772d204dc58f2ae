package domain

import (
	"fmt"
	"time"
)

const (
	DefaultCurrency = "USD"
	SlotDuration    = 30 * time.Minute
)

// Court is a bookable court within a venue.
type Court struct {
	ID         string
	VenueID    string
	SportID    string
	Name       string
	MinPlayers int
	MaxPlayers int
	Active     bool
}

// CourtCapability is the subset of court data the hold path needs.
type CourtCapability struct {
	MinPlayers int
	MaxPlayers int
	VenueID    string
}

func (c CourtCapability) Allows(players int) bool {
	return players >= c.MinPlayers && players <= c.MaxPlayers
}

// PriceRule prices 30-minute slots on one weekday within a time-of-day window.
// Minutes are offsets from midnight UTC; Weekday 0 is Sunday.
type PriceRule struct {
	ID           string
	CourtID      string
	Weekday      time.Weekday
	StartMinute  int
	EndMinute    int
	PricePerSlot int64
	Currency     string
}

func (p PriceRule) Covers(startMinute, endMinute int) bool {
	return startMinute >= p.StartMinute && endMinute <= p.EndMinute
}

func (p PriceRule) Overlaps(o PriceRule) bool {
	return p.Weekday == o.Weekday && p.StartMinute < o.EndMinute && o.StartMinute < p.EndMinute
}

// Price is an amount in minor currency units.
type Price struct {
	Amount   int64
	Currency string
}

// SlotCount returns the number of 30-minute pricing slots in d, rounding up.
func SlotCount(d time.Duration) int64 {
	n := int64(d / SlotDuration)
	if d%SlotDuration != 0 {
		n++
	}
	return n
}

// MinuteOfDay returns minutes since midnight for t in UTC.
func MinuteOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}

// ParseMinuteOfDay parses an "HH:mm" time of day. "24:00" is accepted as the
// end of the day.
func ParseMinuteOfDay(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidPriceRule
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidPriceRule
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, ErrInvalidPriceRule
	}
	return h*60 + m, nil
}

func FormatMinuteOfDay(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
