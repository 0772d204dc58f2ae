package domain

import (
	"testing"
	"time"
)

func TestInterval_Overlaps(t *testing.T) {
	t.Parallel()

	at := func(h, m int) time.Time { return time.Date(2025, 1, 6, h, m, 0, 0, time.UTC) }
	base := Interval{Start: at(10, 0), End: at(11, 0)}

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{name: "identical", other: base, want: true},
		{name: "partial tail", other: Interval{Start: at(10, 30), End: at(11, 30)}, want: true},
		{name: "partial head", other: Interval{Start: at(9, 30), End: at(10, 30)}, want: true},
		{name: "contained", other: Interval{Start: at(10, 15), End: at(10, 45)}, want: true},
		{name: "touching end", other: Interval{Start: at(11, 0), End: at(12, 0)}, want: false},
		{name: "touching start", other: Interval{Start: at(9, 0), End: at(10, 0)}, want: false},
		{name: "disjoint", other: Interval{Start: at(13, 0), End: at(14, 0)}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := base.Overlaps(tt.other); got != tt.want {
				t.Fatalf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Fatalf("Overlaps not symmetric: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewInterval_RejectsEmptyAndInverted(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	if _, err := NewInterval(now, now); err != ErrInvalidInterval {
		t.Fatalf("expected ErrInvalidInterval for empty interval, got %v", err)
	}
	if _, err := NewInterval(now, now.Add(-time.Minute)); err != ErrInvalidInterval {
		t.Fatalf("expected ErrInvalidInterval for inverted interval, got %v", err)
	}
	if _, err := NewInterval(time.Time{}, now); err != ErrInvalidInterval {
		t.Fatalf("expected ErrInvalidInterval for zero start, got %v", err)
	}
	iv, err := NewInterval(now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("expected valid interval, got %v", err)
	}
	if iv.Duration() != time.Hour {
		t.Fatalf("expected 1h duration, got %v", iv.Duration())
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := [][2]Status{
		{StatusHeld, StatusConfirmed},
		{StatusHeld, StatusCancelled},
		{StatusHeld, StatusExpired},
		{StatusConfirmed, StatusCancelled},
	}
	for _, tr := range allowed {
		if !CanTransition(tr[0], tr[1]) {
			t.Fatalf("expected %s -> %s to be allowed", tr[0], tr[1])
		}
	}

	denied := [][2]Status{
		{StatusConfirmed, StatusExpired},
		{StatusConfirmed, StatusHeld},
		{StatusCancelled, StatusConfirmed},
		{StatusExpired, StatusConfirmed},
		{StatusExpired, StatusCancelled},
		{StatusCancelled, StatusCancelled},
	}
	for _, tr := range denied {
		if CanTransition(tr[0], tr[1]) {
			t.Fatalf("expected %s -> %s to be rejected", tr[0], tr[1])
		}
	}
}

func TestReservation_HoldLapsed(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	exp := now

	r := Reservation{Status: StatusHeld, HoldExpiresAt: &exp}
	if !r.HoldLapsed(now) {
		t.Fatalf("expected hold to lapse exactly at expiry")
	}
	if r.HoldLapsed(now.Add(-time.Second)) {
		t.Fatalf("expected hold to be live before expiry")
	}

	r.Status = StatusConfirmed
	if r.HoldLapsed(now.Add(time.Hour)) {
		t.Fatalf("confirmed reservation must never lapse")
	}
}

func TestSlotCount_RoundsUp(t *testing.T) {
	t.Parallel()

	if got := SlotCount(time.Hour); got != 2 {
		t.Fatalf("expected 2 slots, got %d", got)
	}
	if got := SlotCount(45 * time.Minute); got != 2 {
		t.Fatalf("expected 2 slots for 45m, got %d", got)
	}
	if got := SlotCount(30 * time.Minute); got != 1 {
		t.Fatalf("expected 1 slot, got %d", got)
	}
}
