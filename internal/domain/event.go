package domain

import (
	"fmt"
	"time"
)

// StatusChangedEvent is emitted after a transition has been persisted.
// FromStatus is empty for a newly created booking.
type StatusChangedEvent struct {
	BookingID  int64         `json:"bookingId"`
	FromStatus BookingStatus `json:"fromStatus"`
	ToStatus   BookingStatus `json:"toStatus"`
	ActorID    int64         `json:"actorId"`
	Timestamp  time.Time     `json:"timestamp"`
	SessionID  string        `json:"sessionId,omitempty"`
	Version    int           `json:"version"`
}

// NewStatusChangedEvent builds the event for a persisted transition of b.
func NewStatusChangedEvent(b *Booking, t Transition) StatusChangedEvent {
	e := StatusChangedEvent{
		BookingID:  b.ID,
		FromStatus: t.From,
		ToStatus:   t.To,
		ActorID:    t.ActorID,
		Timestamp:  t.At,
		Version:    b.Version,
	}
	if b.SessionID != nil {
		e.SessionID = *b.SessionID
	}
	return e
}

// Key identifies the event for deduplication by at-least-once consumers.
func (e StatusChangedEvent) Key() string {
	return fmt.Sprintf("booking:%d:%s:v%d", e.BookingID, e.ToStatus, e.Version)
}

// Type is the routing key, e.g. "booking.confirmed".
func (e StatusChangedEvent) Type() string {
	if e.FromStatus == "" {
		return "booking.created"
	}
	return "booking." + string(e.ToStatus)
}
