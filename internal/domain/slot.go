package domain

import (
	"fmt"
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/types"
)

// Slot is a half-open interval [Start, End) within one day.
type Slot struct {
	Start types.TimeString
	End   types.TimeString
}

// NewSlot validates both bounds and that start < end.
func NewSlot(start, end types.TimeString) (Slot, error) {
	if err := start.Validate(); err != nil {
		return Slot{}, fmt.Errorf("%w: start: %v", ErrValidation, err)
	}
	if err := end.Validate(); err != nil {
		return Slot{}, fmt.Errorf("%w: end: %v", ErrValidation, err)
	}
	if !start.IsBefore(end) {
		return Slot{}, fmt.Errorf("%w: start %s must be before end %s", ErrValidation, start, end)
	}
	return Slot{Start: start, End: end}, nil
}

// DurationMinutes is End - Start.
func (s Slot) DurationMinutes() int {
	return s.End.Sub(s.Start)
}

// Overlaps reports whether [a,b) and [c,d) intersect: a < d && c < b.
// Touching intervals (b == c) do not overlap.
func (s Slot) Overlaps(other Slot) bool {
	return s.Start.IsBefore(other.End) && other.Start.IsBefore(s.End)
}

// FindConflict returns the first booking of providerID on date that still holds
// a slot overlapping candidate. Bookings for other providers or dates and
// bookings in terminal statuses are ignored.
func FindConflict(providerID int64, date time.Time, candidate Slot, existing []*Booking) (*Booking, bool) {
	for _, b := range existing {
		if b.ProviderID != providerID || !sameDate(b.Date, date) || !b.HoldsSlot() {
			continue
		}
		if candidate.Overlaps(b.Slot()) {
			return b, true
		}
	}
	return nil, false
}

// HasConflict is FindConflict without the offending booking.
func HasConflict(providerID int64, date time.Time, candidate Slot, existing []*Booking) bool {
	_, found := FindConflict(providerID, date, candidate, existing)
	return found
}

// AvailableSlot is one step of a provider's working day.
type AvailableSlot struct {
	Slot      Slot
	Available bool
}

func sameDate(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
