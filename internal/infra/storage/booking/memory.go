package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

// MemoryRepository потокобезопасное хранилище бронирований в памяти.
// Используется в тестах и при database.driver = "memory".
// Create повторяет поведение EXCLUDE constraint: пересекающаяся вставка
// возвращает ErrSlotTaken. Репозиторий сам реализует TransactionManager:
// транзакции выполняются по одной, а записи внутри них откатываются при ошибке.
type MemoryRepository struct {
	txMu     sync.Mutex
	mu       sync.RWMutex
	nextID   int64
	bookings map[int64]*domain.Booking
	now      func() time.Time
}

type memTxKey struct{}

// memJournal список операций отката записей, сделанных внутри транзакции
type memJournal struct {
	undo []func()
}

func journalFrom(ctx context.Context) *memJournal {
	j, _ := ctx.Value(memTxKey{}).(*memJournal)
	return j
}

func (j *memJournal) record(undo func()) {
	if j != nil {
		j.undo = append(j.undo, undo)
	}
}

// Do выполняет fn как транзакцию.
func (r *MemoryRepository) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.DoSerializable(ctx, fn)
}

// DoReadOnly выполняет fn как транзакцию.
func (r *MemoryRepository) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.DoSerializable(ctx, fn)
}

// DoSerializable выполняет fn эксклюзивно относительно других транзакций
// и откатывает её записи, если fn вернула ошибку.
func (r *MemoryRepository) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	j := &memJournal{}
	if err := fn(context.WithValue(ctx, memTxKey{}, j)); err != nil {
		r.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		r.mu.Unlock()
		return err
	}
	return nil
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bookings: make(map[int64]*domain.Booking),
		now:      time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.HoldsSlot() {
		for _, existing := range r.bookings {
			if existing.ProviderID == booking.ProviderID &&
				existing.Date.Equal(booking.Date) &&
				existing.HoldsSlot() &&
				existing.Slot().Overlaps(booking.Slot()) {
				return nil, fmt.Errorf("%w: Create - overlaps booking %d", ErrSlotTaken, existing.ID)
			}
		}
	}

	r.nextID++
	now := r.now()
	booking.ID = r.nextID
	booking.CreatedAt = now
	booking.UpdatedAt = now
	r.bookings[booking.ID] = booking.Clone()

	id := booking.ID
	journalFrom(ctx).record(func() { delete(r.bookings, id) })
	return booking, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r *MemoryRepository) GetBySessionID(_ context.Context, sessionID string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bookings {
		if b.SessionID != nil && *b.SessionID == sessionID {
			return b.Clone(), nil
		}
	}
	return nil, ErrBookingNotFound
}

func (r *MemoryRepository) ListSlotHolders(_ context.Context, providerID int64, date time.Time) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Booking, 0)
	for _, b := range r.bookings {
		if b.ProviderID == providerID && b.Date.Equal(date) && b.HoldsSlot() {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.IsBefore(out[j].StartTime) })
	return out, nil
}

func (r *MemoryRepository) List(_ context.Context, filter domain.BookingsFilter) ([]*domain.Booking, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*domain.Booking, 0)
	for _, b := range r.bookings {
		if filter.ClientID != nil && b.ClientID != *filter.ClientID {
			continue
		}
		if filter.ProviderID != nil && b.ProviderID != *filter.ProviderID {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		matched = append(matched, b)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime.IsAfter(b.StartTime)
		}
		return a.ID > b.ID
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	page := make([]*domain.Booking, 0, end-start)
	for _, b := range matched[start:end] {
		page = append(page, b.Clone())
	}
	return page, total, nil
}

func (r *MemoryRepository) Update(ctx context.Context, booking *domain.Booking, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[booking.ID]
	if !ok {
		return ErrBookingNotFound
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: Update - booking=%d expected version=%d, stored %d",
			domain.ErrVersionConflict, booking.ID, expectedVersion, stored.Version)
	}

	src := booking.Clone()
	updated := stored.Clone()
	updated.Status = src.Status
	updated.SessionID = src.SessionID
	updated.SessionStartedAt = src.SessionStartedAt
	updated.SessionEndedAt = src.SessionEndedAt
	updated.ActualDurationMinutes = src.ActualDurationMinutes
	updated.CancelledBy = src.CancelledBy
	updated.CancelledAt = src.CancelledAt
	updated.CancellationReason = src.CancellationReason
	updated.Version = expectedVersion + 1
	updated.UpdatedAt = r.now()
	r.bookings[booking.ID] = updated
	journalFrom(ctx).record(func() { r.bookings[stored.ID] = stored })

	booking.Version = updated.Version
	booking.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *MemoryRepository) UpdatePayment(ctx context.Context, id int64, status domain.PaymentStatus, paymentID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	updated := stored.Clone()
	updated.PaymentStatus = status
	if paymentID != nil {
		p := *paymentID
		updated.PaymentID = &p
	}
	updated.UpdatedAt = r.now()
	r.bookings[id] = updated
	journalFrom(ctx).record(func() { r.bookings[id] = stored })
	return nil
}
