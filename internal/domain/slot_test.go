package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/types"
)

var june1 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func slot(t *testing.T, start, end string) Slot {
	t.Helper()
	s, err := NewSlot(types.TimeString(start), types.TimeString(end))
	require.NoError(t, err)
	return s
}

func TestSlot_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b [2]string
		want bool
	}{
		{"identical", [2]string{"14:00", "15:00"}, [2]string{"14:00", "15:00"}, true},
		{"partial tail", [2]string{"14:00", "15:00"}, [2]string{"14:30", "15:30"}, true},
		{"partial head", [2]string{"14:00", "15:00"}, [2]string{"13:30", "14:30"}, true},
		{"contained", [2]string{"14:00", "15:00"}, [2]string{"14:15", "14:45"}, true},
		{"adjacent after", [2]string{"14:00", "15:00"}, [2]string{"15:00", "16:00"}, false},
		{"adjacent before", [2]string{"14:00", "15:00"}, [2]string{"13:00", "14:00"}, false},
		{"disjoint", [2]string{"09:00", "10:00"}, [2]string{"11:00", "12:00"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := slot(t, tt.a[0], tt.a[1]), slot(t, tt.b[0], tt.b[1])
			assert.Equal(t, tt.want, a.Overlaps(b))
			assert.Equal(t, tt.want, b.Overlaps(a))
		})
	}
}

func TestNewSlot_Validation(t *testing.T) {
	_, err := NewSlot("15:00", "14:00")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewSlot("14:00", "14:00")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewSlot("25:00", "26:00")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFindConflict_ProviderDayScenario(t *testing.T) {
	existing := []*Booking{{
		ID: 1, ProviderID: 7, Date: june1,
		StartTime: "14:00", EndTime: "15:00", Status: StatusConfirmed,
	}}

	conflict, found := FindConflict(7, june1, slot(t, "14:30", "15:30"), existing)
	assert.True(t, found)
	assert.Equal(t, int64(1), conflict.ID)

	assert.False(t, HasConflict(7, june1, slot(t, "15:00", "16:00"), existing))
}

func TestFindConflict_IgnoresUnrelatedAndTerminal(t *testing.T) {
	candidate := slot(t, "10:00", "11:00")
	existing := []*Booking{
		{ProviderID: 8, Date: june1, StartTime: "10:00", EndTime: "11:00", Status: StatusPending},
		{ProviderID: 7, Date: june1.AddDate(0, 0, 1), StartTime: "10:00", EndTime: "11:00", Status: StatusPending},
		{ProviderID: 7, Date: june1, StartTime: "10:00", EndTime: "11:00", Status: StatusCancelled},
		{ProviderID: 7, Date: june1, StartTime: "10:00", EndTime: "11:00", Status: StatusCompleted},
		{ProviderID: 7, Date: june1, StartTime: "10:00", EndTime: "11:00", Status: StatusNoShow},
	}
	assert.False(t, HasConflict(7, june1, candidate, existing))

	for _, st := range SlotHoldingStatuses {
		holding := []*Booking{{ProviderID: 7, Date: june1, StartTime: "10:30", EndTime: "11:30", Status: st}}
		assert.True(t, HasConflict(7, june1, candidate, holding), st)
	}
}
