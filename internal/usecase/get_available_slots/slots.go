package get_available_slots

import (
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/providerservice"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/types"
)

// generateSlots нарезает окна приёма на слоты длительностью duration с шагом step.
// Слот не выходит за конец окна. Некорректные окна пропускаются.
func generateSlots(windows []providerservice.TimeWindow, duration, step int) []domain.Slot {
	slots := make([]domain.Slot, 0)

	for _, w := range windows {
		open, err := types.NewTimeStringFromString(w.Start)
		if err != nil {
			continue
		}
		closing, err := types.NewTimeStringFromString(w.End)
		if err != nil {
			continue
		}

		for start := open.Minutes(); start+duration <= closing.Minutes(); start += step {
			s, err := types.FromMinutes(start)
			if err != nil {
				break
			}
			e, err := types.FromMinutes(start + duration)
			if err != nil {
				break
			}
			slots = append(slots, domain.Slot{Start: s, End: e})
		}
	}

	return slots
}

// markAvailability помечает занятые слоты детектором пересечений.
// Слоты, начавшиеся до now, отбрасываются.
func markAvailability(
	providerID int64,
	date time.Time,
	slots []domain.Slot,
	holders []*domain.Booking,
	now time.Time,
	loc *time.Location,
) []domain.AvailableSlot {
	result := make([]domain.AvailableSlot, 0, len(slots))

	for _, slot := range slots {
		if !slot.Start.On(date, loc).After(now) {
			continue
		}
		result = append(result, domain.AvailableSlot{
			Slot:      slot,
			Available: !domain.HasConflict(providerID, date, slot, holders),
		})
	}

	return result
}
