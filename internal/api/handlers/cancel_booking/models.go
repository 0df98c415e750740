package cancel_booking

import (
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings/models"
)

// CancelBookingRequest HTTP request model; тело запроса необязательно
type CancelBookingRequest struct {
	CancellationReason *string `json:"cancellationReason,omitempty"`
}

// ToServiceRequest конвертирует HTTP request в модель сервиса
func (r *CancelBookingRequest) ToServiceRequest() *models.CancelBookingRequest {
	reason := ""
	if r.CancellationReason != nil {
		reason = *r.CancellationReason
	}

	return &models.CancelBookingRequest{Reason: reason}
}
