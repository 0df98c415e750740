package create_booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	createBooking "github.com/humanaid-digital/mindbuddy-scheduler/internal/usecase/create_booking"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/types"
)

var (
	errParseDate   = errors.New("invalid date")
	errParseTime   = errors.New("invalid time")
	errParseMethod = errors.New("invalid method")
	errParseTopic  = errors.New("invalid topic")
)

// CreateBookingRequest HTTP request model. ID клиента берётся из токена.
type CreateBookingRequest struct {
	ProviderID int64   `json:"providerId"`
	Date       string  `json:"date"`      // "2024-06-01"
	StartTime  string  `json:"startTime"` // "14:00"
	EndTime    string  `json:"endTime"`   // "15:00"
	Method     string  `json:"method"`    // video | voice | chat
	Topic      *string `json:"topic,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateBookingRequest) ToUseCaseRequest(clientID int64) (*createBooking.Request, error) {
	date, err := time.Parse(domain.DateFormat, r.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errParseDate, err)
	}

	start, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", errParseTime, err)
	}
	end, err := types.NewTimeStringFromString(r.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", errParseTime, err)
	}

	method := domain.Method(r.Method)
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", errParseMethod, r.Method)
	}

	var topic *domain.Topic
	if r.Topic != nil {
		t := domain.Topic(*r.Topic)
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", errParseTopic, *r.Topic)
		}
		topic = &t
	}

	return &createBooking.Request{
		ClientID:   clientID,
		ProviderID: r.ProviderID,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		Method:     method,
		Topic:      topic,
		Notes:      r.Notes,
	}, nil
}
