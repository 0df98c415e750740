package domain

import "time"

// Booking policy bounds.
const (
	MinDurationMinutes          = 30
	MaxDurationMinutes          = 120
	DefaultCancellationWindow   = 24 * time.Hour
	MaxNotesLength              = 1000
	MaxCancellationReasonLength = 500
	MaxChatMessageLength        = 1000
)

// Paging bounds for booking lists.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Time format constants
const (
	TimeFormat      = "15:04"      // HH:MM
	DateFormat      = "2006-01-02" // YYYY-MM-DD
	DefaultTimezone = "Asia/Seoul"
)

// SlotHoldingStatuses are the statuses whose bookings occupy their slot.
// Terminal statuses release the slot.
var SlotHoldingStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
}

// TerminalStatuses are final; no transition leaves them.
var TerminalStatuses = []BookingStatus{
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}
