package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type refundCreator interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// StripeGateway списывает оплату сессии через PaymentIntent и делает возвраты.
// Ключи идемпотентности строятся из ID бронирования, поэтому повтор запроса
// после сетевой ошибки не приводит к двойному списанию.
type StripeGateway struct {
	intents       intentCreator
	refunds       refundCreator
	currency      string
	paymentMethod string
	logger        Logger
}

// NewStripeGateway создаёт шлюз поверх stripe client.API.
func NewStripeGateway(secretKey, currency, paymentMethod string, logger Logger) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return newStripeGateway(sc.PaymentIntents, sc.Refunds, currency, paymentMethod, logger)
}

func newStripeGateway(intents intentCreator, refunds refundCreator, currency, paymentMethod string, logger Logger) *StripeGateway {
	return &StripeGateway{
		intents:       intents,
		refunds:       refunds,
		currency:      currency,
		paymentMethod: paymentMethod,
		logger:        logger,
	}
}

// ChargeFee списывает amount за бронирование и возвращает ID платежа.
func (g *StripeGateway) ChargeFee(ctx context.Context, bookingID int64, amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(g.currency),
		Confirm:     stripe.Bool(true),
		Description: stripe.String(fmt.Sprintf("Counselling session, booking %d", bookingID)),
	}
	if g.paymentMethod != "" {
		params.PaymentMethod = stripe.String(g.paymentMethod)
	}
	params.Context = ctx
	params.SetIdempotencyKey(fmt.Sprintf("booking-%d-charge", bookingID))
	params.AddMetadata("booking_id", strconv.FormatInt(bookingID, 10))

	intent, err := g.intents.New(params)
	if err != nil {
		g.logger.Warn("ChargeFee: booking=%d amount=%d failed: %v", bookingID, amount, err)
		return "", classify(err)
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		g.logger.Info("ChargeFee: booking=%d charged amount=%d intent=%s status=%s", bookingID, amount, intent.ID, intent.Status)
		return intent.ID, nil
	default:
		return "", fmt.Errorf("%w: intent %s is %s", ErrDeclined, intent.ID, intent.Status)
	}
}

// Refund возвращает amount по платежу paymentID.
func (g *StripeGateway) Refund(ctx context.Context, bookingID int64, paymentID string, amount int64) error {
	if amount <= 0 || paymentID == "" {
		return fmt.Errorf("%w: amount=%d payment=%q", ErrInvalidAmount, amount, paymentID)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentID),
		Amount:        stripe.Int64(amount),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(fmt.Sprintf("booking-%d-refund", bookingID))
	params.AddMetadata("booking_id", strconv.FormatInt(bookingID, 10))

	refund, err := g.refunds.New(params)
	if err != nil {
		return classify(err)
	}
	g.logger.Info("Refund: booking=%d refunded amount=%d refund=%s status=%s", bookingID, amount, refund.ID, refund.Status)
	return nil
}

func classify(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
			return fmt.Errorf("%w: %s (%s)", ErrDeclined, stripeErr.Msg, stripeErr.Code)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
