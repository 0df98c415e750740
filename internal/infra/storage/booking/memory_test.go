package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/ptr"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/types"
)

var day = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func pending(providerID int64, start, end string) *domain.Booking {
	return &domain.Booking{
		ClientID: 11, ProviderID: providerID, Date: day,
		StartTime: types.TimeString(start), EndTime: types.TimeString(end),
		Method: domain.MethodVideo, Status: domain.StatusPending,
		PaymentStatus: domain.PaymentPending, Version: 1,
	}
}

func TestMemoryRepository_CreateRejectsOverlap(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, pending(7, "14:00", "15:00"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, pending(7, "14:30", "15:30"))
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.Create(ctx, pending(7, "15:00", "16:00"))
	assert.NoError(t, err)

	_, err = repo.Create(ctx, pending(8, "14:00", "15:00"))
	assert.NoError(t, err)

	holders, err := repo.ListSlotHolders(ctx, 7, day)
	require.NoError(t, err)
	require.Len(t, holders, 2)
	assert.Equal(t, types.TimeString("14:00"), holders[0].StartTime)
}

func TestMemoryRepository_UpdateChecksVersion(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, pending(7, "14:00", "15:00"))
	require.NoError(t, err)

	first, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	first.Status = domain.StatusConfirmed
	require.NoError(t, repo.Update(ctx, first, 1))
	assert.Equal(t, 2, first.Version)

	second.Status = domain.StatusCancelled
	err = repo.Update(ctx, second, 1)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)

	assert.ErrorIs(t, repo.Update(ctx, &domain.Booking{ID: 999}, 1), ErrBookingNotFound)
}

func TestMemoryRepository_TransactionRollsBack(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	boom := errors.New("charge failed")

	err := repo.DoSerializable(ctx, func(txCtx context.Context) error {
		b, err := repo.Create(txCtx, pending(7, "10:00", "11:00"))
		require.NoError(t, err)
		require.NoError(t, repo.UpdatePayment(txCtx, b.ID, domain.PaymentPaid, ptr.Ptr("pi_1")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	holders, err := repo.ListSlotHolders(ctx, 7, day)
	require.NoError(t, err)
	assert.Empty(t, holders)
}

func TestMemoryRepository_ListPagesNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, start := range []string{"09:00", "11:00", "13:00"} {
		end, _ := types.TimeString(start).AddMinutes(60)
		_, err := repo.Create(ctx, pending(7, start, end.String()))
		require.NoError(t, err)
	}

	page, total, err := repo.List(ctx, domain.BookingsFilter{ProviderID: ptr.Ptr(int64(7)), Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, types.TimeString("13:00"), page[0].StartTime)

	page, _, err = repo.List(ctx, domain.BookingsFilter{ProviderID: ptr.Ptr(int64(7)), Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, types.TimeString("09:00"), page[0].StartTime)
}

func TestMemoryRepository_GetBySessionID(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	b, err := repo.Create(ctx, pending(7, "10:00", "11:00"))
	require.NoError(t, err)
	b.Status = domain.StatusInProgress
	b.SessionID = ptr.Ptr("sess-1")
	require.NoError(t, repo.Update(ctx, b, 1))

	found, err := repo.GetBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)

	_, err = repo.GetBySessionID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIsExclusionViolation(t *testing.T) {
	assert.True(t, isExclusionViolation(&pq.Error{Code: "23P01"}))
	assert.False(t, isExclusionViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isExclusionViolation(errors.New("other")))
}
