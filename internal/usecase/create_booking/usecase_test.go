package create_booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	bookingRepo "github.com/humanaid-digital/mindbuddy-scheduler/internal/infra/storage/booking"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/payment"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/providerservice"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/keylock"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/logger"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/ptr"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/txmanager"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/types"
)

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

type fakeProviders struct {
	providers map[int64]*providerservice.Provider
	err       error
}

func (f *fakeProviders) GetProvider(_ context.Context, id int64) (*providerservice.Provider, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.providers[id]
	if !ok {
		return nil, providerservice.ErrProviderNotFound
	}
	return p, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	chargeErr error
	charges   []int64
	refunds   []string
}

func (g *fakeGateway) ChargeFee(_ context.Context, bookingID int64, amount int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chargeErr != nil {
		return "", g.chargeErr
	}
	g.charges = append(g.charges, amount)
	return fmt.Sprintf("pi_%d", bookingID), nil
}

func (g *fakeGateway) Refund(_ context.Context, _ int64, paymentID string, _ int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, paymentID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.StatusChangedEvent
}

func (p *recordingPublisher) Publish(e domain.StatusChangedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

type countingMetrics struct {
	mu        sync.Mutex
	conflicts int
}

func (m *countingMetrics) IncBookingConflict() {
	m.mu.Lock()
	m.conflicts++
	m.mu.Unlock()
}

func (m *countingMetrics) IncBookingTransition(string, string) {}

type commitFailingTx struct{ inner TransactionManager }

func (c commitFailingTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.inner.DoSerializable(ctx, fn); err != nil {
		return err
	}
	return errors.New("pq: could not serialize access")
}

type exhaustedRetriesTx struct{ inner TransactionManager }

func (c exhaustedRetriesTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.inner.DoSerializable(ctx, fn); err != nil {
		return err
	}
	return fmt.Errorf("%w: after 3 attempts: %w", txmanager.ErrSerialization, &pq.Error{Code: "40001"})
}

type fixture struct {
	uc        *UseCase
	repo      *bookingRepo.MemoryRepository
	providers *fakeProviders
	gateway   *fakeGateway
	events    *recordingPublisher
	metrics   *countingMetrics
}

var (
	now  = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	june = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
)

func newFixture() *fixture {
	f := &fixture{
		repo: bookingRepo.NewMemoryRepository(),
		providers: &fakeProviders{providers: map[int64]*providerservice.Provider{
			7: {ID: 7, Status: providerservice.StatusApproved, IsActive: true, Methods: []string{"video", "voice"}, Fee: 80000},
			8: {ID: 8, Status: providerservice.StatusApproved, IsActive: true, Methods: []string{"chat"}, Fee: 50000},
			9: {ID: 9, Status: providerservice.StatusPending, IsActive: true, Methods: []string{"video"}, Fee: 50000},
		}},
		gateway: &fakeGateway{},
		events:  &recordingPublisher{},
		metrics: &countingMetrics{},
	}
	f.uc = NewUseCase(f.repo, f.providers, f.gateway, f.repo, keylock.New(), f.events, f.metrics, DefaultPolicy(), logger.Nop())
	f.uc.timeProvider = fixedTime{now}
	return f
}

func request(providerID int64, start, end string) *Request {
	return &Request{
		ClientID:   11,
		ProviderID: providerID,
		Date:       june,
		StartTime:  types.TimeString(start),
		EndTime:    types.TimeString(end),
		Method:     domain.MethodVideo,
	}
}

func TestExecute_CreatesPendingPaidBooking(t *testing.T) {
	f := newFixture()
	topic := domain.TopicAnxiety
	req := request(7, "14:00", "15:00")
	req.Topic = &topic
	req.Notes = ptr.Ptr("first session")

	b, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, b.Status)
	assert.Equal(t, 60, b.DurationMinutes)
	assert.Equal(t, int64(80000), b.Fee)
	assert.Equal(t, domain.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, fmt.Sprintf("pi_%d", b.ID), *b.PaymentID)
	assert.Equal(t, 1, b.Version)
	assert.Nil(t, b.SessionID)

	stored, err := f.repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, "booking.created", f.events.events[0].Type())
	assert.Equal(t, int64(11), f.events.events[0].ActorID)
	assert.Equal(t, []int64{80000}, f.gateway.charges)
}

func TestExecute_OverlapAndAdjacency(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, request(7, "14:00", "15:00"))
	require.NoError(t, err)

	_, err = f.uc.Execute(ctx, request(7, "14:30", "15:30"))
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))

	_, err = f.uc.Execute(ctx, request(7, "15:00", "16:00"))
	assert.NoError(t, err)

	_, err = f.uc.Execute(ctx, request(7, "13:00", "14:00"))
	assert.NoError(t, err)

	assert.Equal(t, 1, f.metrics.conflicts)
	assert.Len(t, f.gateway.charges, 3)
}

func TestExecute_Validation(t *testing.T) {
	longNotes := strings.Repeat("가", domain.MaxNotesLength+1)
	badTopic := domain.Topic("astrology")

	tests := []struct {
		name   string
		modify func(r *Request)
		want   error
	}{
		{"missing client", func(r *Request) { r.ClientID = 0 }, ErrInvalidInput},
		{"bad time format", func(r *Request) { r.StartTime = "9am" }, ErrInvalidInput},
		{"end before start", func(r *Request) { r.StartTime, r.EndTime = "15:00", "14:00" }, ErrInvalidInput},
		{"end equals start", func(r *Request) { r.EndTime = r.StartTime }, ErrInvalidInput},
		{"too short", func(r *Request) { r.EndTime = "14:20" }, ErrDurationOutOfRange},
		{"too long", func(r *Request) { r.EndTime = "16:30" }, ErrDurationOutOfRange},
		{"unknown method", func(r *Request) { r.Method = "fax" }, ErrInvalidInput},
		{"unknown topic", func(r *Request) { r.Topic = &badTopic }, ErrInvalidInput},
		{"notes too long", func(r *Request) { r.Notes = &longNotes }, ErrInvalidInput},
		{"past date", func(r *Request) { r.Date = now.AddDate(0, 0, -1) }, ErrInvalidDate},
		{"already started today", func(r *Request) { r.Date, r.StartTime, r.EndTime = now, "08:30", "09:30" }, ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := request(7, "14:00", "15:00")
			tt.modify(req)

			_, err := f.uc.Execute(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Empty(t, f.gateway.charges)
		})
	}
}

func TestExecute_BoundaryDurationsAccepted(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Execute(context.Background(), request(7, "09:00", "09:30"))
	assert.NoError(t, err)

	_, err = f.uc.Execute(context.Background(), request(7, "10:00", "12:00"))
	assert.NoError(t, err)
}

func TestExecute_ProviderChecks(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.Execute(context.Background(), request(404, "14:00", "15:00"))
		assert.ErrorIs(t, err, ErrProviderNotFound)
		assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
	})

	t.Run("provider awaiting approval", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.Execute(context.Background(), request(9, "14:00", "15:00"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unsupported method", func(t *testing.T) {
		f := newFixture()
		_, err := f.uc.Execute(context.Background(), request(8, "14:00", "15:00"))
		assert.ErrorIs(t, err, ErrMethodNotSupported)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("directory unavailable", func(t *testing.T) {
		f := newFixture()
		f.providers.err = fmt.Errorf("%w: status 503", providerservice.ErrUnavailable)
		_, err := f.uc.Execute(context.Background(), request(7, "14:00", "15:00"))
		assert.ErrorIs(t, err, domain.ErrTransient)
	})
}

func TestExecute_ConcurrentIdenticalRequests(t *testing.T) {
	f := newFixture()
	const attempts = 10

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := request(7, "14:00", "15:00")
			req.ClientID = int64(100 + i)
			_, errs[i] = f.uc.Execute(context.Background(), req)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotNotAvailable)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.gateway.charges, 1)

	holders, err := f.repo.ListSlotHolders(context.Background(), 7, june)
	require.NoError(t, err)
	assert.Len(t, holders, 1)
}

func TestExecute_PaymentDeclinedRollsBack(t *testing.T) {
	f := newFixture()
	f.gateway.chargeErr = fmt.Errorf("%w: card_declined", payment.ErrDeclined)

	_, err := f.uc.Execute(context.Background(), request(7, "14:00", "15:00"))
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	holders, err := f.repo.ListSlotHolders(context.Background(), 7, june)
	require.NoError(t, err)
	assert.Empty(t, holders)
	assert.Empty(t, f.events.events)
	assert.Empty(t, f.gateway.refunds)
}

func TestExecute_PaymentGatewayUnavailable(t *testing.T) {
	f := newFixture()
	f.gateway.chargeErr = fmt.Errorf("%w: timeout", payment.ErrUnavailable)

	_, err := f.uc.Execute(context.Background(), request(7, "14:00", "15:00"))
	assert.ErrorIs(t, err, ErrPaymentUnavailable)
	assert.Equal(t, domain.CodeTransient, domain.CodeOf(err))
}

func TestExecute_RefundsChargeWhenCommitFails(t *testing.T) {
	f := newFixture()
	f.uc.txManager = commitFailingTx{inner: f.repo}

	_, err := f.uc.Execute(context.Background(), request(7, "14:00", "15:00"))
	assert.ErrorIs(t, err, ErrInternal)
	assert.Len(t, f.gateway.refunds, 1)
	assert.Empty(t, f.events.events)
}

func TestExecute_SerializationRetriesExhaustedIsTransient(t *testing.T) {
	f := newFixture()
	f.uc.txManager = exhaustedRetriesTx{inner: f.repo}

	_, err := f.uc.Execute(context.Background(), request(7, "14:00", "15:00"))
	assert.ErrorIs(t, err, ErrConcurrentBooking)
	assert.Equal(t, domain.CodeTransient, domain.CodeOf(err))
	assert.Len(t, f.gateway.refunds, 1)
	assert.Empty(t, f.events.events)
}

type hangingGateway struct{ fakeGateway }

func (g *hangingGateway) ChargeFee(ctx context.Context, _ int64, _ int64) (string, error) {
	<-ctx.Done()
	return "", fmt.Errorf("%w: %v", payment.ErrUnavailable, ctx.Err())
}

func TestExecute_ChargeIsBoundedByTimeout(t *testing.T) {
	f := newFixture()
	f.uc.payments = &hangingGateway{}
	f.uc.policy.ChargeTimeout = 20 * time.Millisecond

	start := time.Now()
	_, err := f.uc.Execute(context.Background(), request(7, "14:00", "15:00"))

	assert.ErrorIs(t, err, ErrPaymentUnavailable)
	assert.Less(t, time.Since(start), time.Second)
	holders, err := f.repo.ListSlotHolders(context.Background(), 7, june)
	require.NoError(t, err)
	assert.Empty(t, holders)
}

func TestExecute_LockTimeout(t *testing.T) {
	f := newFixture()
	locks := keylock.New()
	f.uc.locker = locks
	f.uc.policy.LockTimeout = 20 * time.Millisecond

	unlock, err := locks.Lock(context.Background(), lockKey(7, june))
	require.NoError(t, err)
	defer unlock()

	_, err = f.uc.Execute(context.Background(), request(7, "14:00", "15:00"))
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestExecute_RandomOperationsKeepSlotsDisjoint(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(42))
	days := []time.Time{june, june.AddDate(0, 0, 1)}
	created := make([]int64, 0)

	for i := 0; i < 300; i++ {
		if len(created) > 0 && rnd.Intn(4) == 0 {
			id := created[rnd.Intn(len(created))]
			b, err := f.repo.GetByID(ctx, id)
			require.NoError(t, err)
			if b.HoldsSlot() {
				version := b.Version
				b.Status = domain.StatusCancelled
				require.NoError(t, f.repo.Update(ctx, b, version))
			}
			continue
		}

		startMin := 8*60 + rnd.Intn(72)*10
		duration := 30 + rnd.Intn(10)*10
		start, err := types.FromMinutes(startMin)
		require.NoError(t, err)
		end, err := types.FromMinutes(startMin + duration)
		require.NoError(t, err)

		req := request(7, start.String(), end.String())
		req.Date = days[rnd.Intn(len(days))]
		b, err := f.uc.Execute(ctx, req)
		if err != nil {
			require.ErrorIs(t, err, ErrSlotNotAvailable)
			continue
		}
		created = append(created, b.ID)
	}

	for _, day := range days {
		holders, err := f.repo.ListSlotHolders(ctx, 7, day)
		require.NoError(t, err)
		for i := range holders {
			for j := i + 1; j < len(holders); j++ {
				assert.False(t, holders[i].Slot().Overlaps(holders[j].Slot()),
					"bookings %d and %d overlap", holders[i].ID, holders[j].ID)
			}
		}
	}
}
