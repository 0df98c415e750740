package domain

import (
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/types"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusInProgress BookingStatus = "in-progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
	StatusNoShow     BookingStatus = "no-show"
)

// ParseBookingStatus validates a status string.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch st := BookingStatus(s); st {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, true
	}
	return "", false
}

// Method is the communication channel of a session
type Method string

const (
	MethodVideo Method = "video"
	MethodVoice Method = "voice"
	MethodChat  Method = "chat"
)

func (m Method) Valid() bool {
	return m == MethodVideo || m == MethodVoice || m == MethodChat
}

// PaymentStatus tracks the fee charged for a booking
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Topic is the counselling subject chosen by the client
type Topic string

const (
	TopicDepression   Topic = "depression"
	TopicAnxiety      Topic = "anxiety"
	TopicTrauma       Topic = "trauma"
	TopicRelationship Topic = "relationship"
	TopicFamily       Topic = "family"
	TopicWork         Topic = "work"
	TopicOther        Topic = "other"
)

func (t Topic) Valid() bool {
	switch t {
	case TopicDepression, TopicAnxiety, TopicTrauma, TopicRelationship, TopicFamily, TopicWork, TopicOther:
		return true
	}
	return false
}

// Booking binds a client, a provider and a slot on one date.
type Booking struct {
	ID              int64
	ClientID        int64
	ProviderID      int64
	Date            time.Time // date only, midnight UTC
	StartTime       types.TimeString
	EndTime         types.TimeString
	DurationMinutes int
	Method          Method
	Topic           *Topic
	Notes           *string
	Fee             int64

	Status        BookingStatus
	PaymentStatus PaymentStatus
	PaymentID     *string

	SessionID             *string
	SessionStartedAt      *time.Time
	SessionEndedAt        *time.Time
	ActualDurationMinutes *int

	CancelledBy        *int64
	CancelledAt        *time.Time
	CancellationReason *string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slot returns the booked interval.
func (b *Booking) Slot() Slot {
	return Slot{Start: b.StartTime, End: b.EndTime}
}

// HoldsSlot reports whether the booking still occupies its slot.
func (b *Booking) HoldsSlot() bool {
	for _, s := range SlotHoldingStatuses {
		if b.Status == s {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transition is possible
func (b *Booking) IsTerminal() bool {
	return !b.HoldsSlot()
}

// StartsAt is the scheduled start instant in loc.
func (b *Booking) StartsAt(loc *time.Location) time.Time {
	return b.StartTime.On(b.Date, loc)
}

// Clone returns a deep copy so callers can mutate without affecting shared state.
func (b *Booking) Clone() *Booking {
	c := *b
	c.Topic = clonePtr(b.Topic)
	c.Notes = clonePtr(b.Notes)
	c.PaymentID = clonePtr(b.PaymentID)
	c.SessionID = clonePtr(b.SessionID)
	c.SessionStartedAt = clonePtr(b.SessionStartedAt)
	c.SessionEndedAt = clonePtr(b.SessionEndedAt)
	c.ActualDurationMinutes = clonePtr(b.ActualDurationMinutes)
	c.CancelledBy = clonePtr(b.CancelledBy)
	c.CancelledAt = clonePtr(b.CancelledAt)
	c.CancellationReason = clonePtr(b.CancellationReason)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// BookingsFilter selects bookings for list queries.
type BookingsFilter struct {
	ClientID   *int64
	ProviderID *int64
	Status     *BookingStatus
	Offset     int
	Limit      int
}
