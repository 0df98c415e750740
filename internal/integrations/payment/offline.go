package payment

import (
	"context"
	"fmt"
)

// OfflineGateway используется, когда платежи выключены в конфиге:
// ничего не списывает и возвращает локальный идентификатор.
type OfflineGateway struct {
	logger Logger
}

func NewOfflineGateway(logger Logger) *OfflineGateway {
	return &OfflineGateway{logger: logger}
}

func (g *OfflineGateway) ChargeFee(_ context.Context, bookingID int64, amount int64) (string, error) {
	if amount < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	g.logger.Info("ChargeFee: payments disabled, booking=%d amount=%d recorded offline", bookingID, amount)
	return fmt.Sprintf("offline-%d", bookingID), nil
}

func (g *OfflineGateway) Refund(_ context.Context, bookingID int64, paymentID string, amount int64) error {
	g.logger.Info("Refund: payments disabled, booking=%d payment=%s amount=%d recorded offline", bookingID, paymentID, amount)
	return nil
}
