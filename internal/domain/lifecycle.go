package domain

import (
	"fmt"
	"time"
)

// Action is an operation an actor may attempt on a booking.
type Action string

const (
	ActionView    Action = "view"
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
	ActionStart   Action = "start"
	ActionEnd     Action = "end"
	ActionNoShow  Action = "no-show"
	ActionJoin    Action = "join"
)

// transitions lists the allowed next statuses. Terminal statuses have none.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition describes an applied status change.
type Transition struct {
	From    BookingStatus
	To      BookingStatus
	ActorID int64
	At      time.Time
}

// CancellationPolicy decides how late a booking may still be cancelled.
type CancellationPolicy struct {
	// Window is the minimum lead time before the scheduled start.
	Window time.Duration
	// Location interprets Booking.Date and StartTime.
	Location *time.Location
}

// Authorize checks whether actor may perform action on b, without looking at status.
func (b *Booking) Authorize(action Action, actor Actor) error {
	var ok bool
	switch action {
	case ActionView:
		ok = actor.IsParticipantOf(b) || actor.IsAdmin()
	case ActionJoin:
		ok = actor.IsParticipantOf(b)
	case ActionConfirm, ActionStart:
		ok = actor.IsProviderOf(b)
	case ActionCancel:
		ok = actor.IsParticipantOf(b)
	case ActionEnd:
		ok = actor.IsParticipantOf(b) || actor.IsAdmin()
	case ActionNoShow:
		ok = actor.IsAdmin()
	}
	if !ok {
		return fmt.Errorf("%w: %s by user %d (%s) on booking %d", ErrNotAuthorized, action, actor.UserID, actor.Role, b.ID)
	}
	return nil
}

// Confirm moves pending -> confirmed. Only the assigned provider may confirm.
func (b *Booking) Confirm(actor Actor, now time.Time) (Transition, error) {
	if err := b.Authorize(ActionConfirm, actor); err != nil {
		return Transition{}, err
	}
	return b.moveTo(StatusConfirmed, actor, now)
}

// Cancel moves pending|confirmed -> cancelled while the start is further away than
// the policy window. A rejected cancel leaves b untouched.
func (b *Booking) Cancel(actor Actor, reason string, now time.Time, policy CancellationPolicy) (Transition, error) {
	if err := b.Authorize(ActionCancel, actor); err != nil {
		return Transition{}, err
	}
	if !CanTransition(b.Status, StatusCancelled) {
		return Transition{}, b.transitionError(StatusCancelled)
	}
	if len([]rune(reason)) > MaxCancellationReasonLength {
		return Transition{}, fmt.Errorf("%w: %d characters max", ErrReasonTooLong, MaxCancellationReasonLength)
	}

	loc := policy.Location
	if loc == nil {
		loc = time.UTC
	}
	lead := b.StartsAt(loc).Sub(now)
	if lead <= policy.Window {
		return Transition{}, fmt.Errorf("%w: %s before start, need more than %s",
			ErrCancellationWindow, lead.Truncate(time.Minute), policy.Window)
	}

	t, err := b.moveTo(StatusCancelled, actor, now)
	if err != nil {
		return Transition{}, err
	}
	cancelledBy, cancelledAt := actor.UserID, now
	b.CancelledBy = &cancelledBy
	b.CancelledAt = &cancelledAt
	if reason != "" {
		b.CancellationReason = &reason
	}
	return t, nil
}

// Start moves confirmed -> in-progress and mints the session id once.
func (b *Booking) Start(actor Actor, now time.Time, newSessionID func() string) (Transition, error) {
	if err := b.Authorize(ActionStart, actor); err != nil {
		return Transition{}, err
	}
	if !CanTransition(b.Status, StatusInProgress) {
		return Transition{}, b.transitionError(StatusInProgress)
	}

	t, err := b.moveTo(StatusInProgress, actor, now)
	if err != nil {
		return Transition{}, err
	}
	if b.SessionID == nil {
		sessionID := newSessionID()
		b.SessionID = &sessionID
	}
	startedAt := now
	b.SessionStartedAt = &startedAt
	return t, nil
}

// End moves in-progress -> completed and records the rounded session length.
func (b *Booking) End(actor Actor, now time.Time) (Transition, error) {
	if err := b.Authorize(ActionEnd, actor); err != nil {
		return Transition{}, err
	}
	t, err := b.moveTo(StatusCompleted, actor, now)
	if err != nil {
		return Transition{}, err
	}
	endedAt := now
	b.SessionEndedAt = &endedAt
	if b.SessionStartedAt != nil {
		d := ActualDurationMinutes(*b.SessionStartedAt, endedAt)
		b.ActualDurationMinutes = &d
	}
	return t, nil
}

// MarkNoShow moves confirmed -> no-show. Admin only.
func (b *Booking) MarkNoShow(actor Actor, now time.Time) (Transition, error) {
	if err := b.Authorize(ActionNoShow, actor); err != nil {
		return Transition{}, err
	}
	return b.moveTo(StatusNoShow, actor, now)
}

// ActualDurationMinutes rounds (end - start) to whole minutes, half up.
func ActualDurationMinutes(start, end time.Time) int {
	ms := end.Sub(start).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int((ms + 30_000) / 60_000)
}

func (b *Booking) moveTo(to BookingStatus, actor Actor, now time.Time) (Transition, error) {
	if !CanTransition(b.Status, to) {
		return Transition{}, b.transitionError(to)
	}
	t := Transition{From: b.Status, To: to, ActorID: actor.UserID, At: now}
	b.Status = to
	b.UpdatedAt = now
	return t, nil
}

func (b *Booking) transitionError(to BookingStatus) error {
	return fmt.Errorf("%w: booking %d is %s, cannot become %s", ErrTransitionNotAllowed, b.ID, b.Status, to)
}
