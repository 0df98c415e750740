package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/dbmetrics"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/psqlbuilder"
)

// SQLSTATE exclusion_violation: сработал EXCLUDE constraint bookings_no_overlap
const pqExclusionViolation = "23P01"

var bookingColumns = []string{
	"id",
	"client_id",
	"provider_id",
	"booking_date",
	"start_time",
	"end_time",
	"duration_minutes",
	"method",
	"topic",
	"notes",
	"fee",
	"status",
	"payment_status",
	"payment_id",
	"session_id",
	"session_started_at",
	"session_ended_at",
	"actual_duration_minutes",
	"cancelled_by",
	"cancelled_at",
	"cancellation_reason",
	"version",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с бронированиями в PostgreSQL
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новое бронирование со статусом и версией из booking.
// Если в контексте передана активная транзакция, использует её.
// Пересечение с существующим бронированием того же консультанта отсекается
// EXCLUDE constraint'ом и возвращается как ErrSlotTaken.
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"client_id",
			"provider_id",
			"booking_date",
			"start_time",
			"end_time",
			"duration_minutes",
			"method",
			"topic",
			"notes",
			"fee",
			"status",
			"payment_status",
			"version",
		).
		Values(
			booking.ClientID,
			booking.ProviderID,
			booking.Date,
			booking.StartTime,
			booking.EndTime,
			booking.DurationMinutes,
			booking.Method,
			booking.Topic,
			booking.Notes,
			booking.Fee,
			booking.Status,
			booking.PaymentStatus,
			booking.Version,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&booking.ID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if isExclusionViolation(err) {
		return nil, fmt.Errorf("%w: Create - provider=%d date=%s %s-%s",
			ErrSlotTaken, booking.ProviderID, booking.Date.Format(domain.DateFormat), booking.StartTime, booking.EndTime)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	return booking, nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.getOne(ctx, "GetByID", squirrel.Eq{"id": id})
}

// GetBySessionID получает бронирование по идентификатору сессии
func (r *Repository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Booking, error) {
	return r.getOne(ctx, "GetBySessionID", squirrel.Eq{"session_id": sessionID})
}

func (r *Repository) getOne(ctx context.Context, op string, where squirrel.Eq) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, op, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan booking: %w", ErrScanRow, op, err)
	}
	return booking, nil
}

// ListSlotHolders получает бронирования консультанта на дату, которые занимают слот
// (pending, confirmed, in-progress). Внутри транзакции строки блокируются FOR UPDATE.
func (r *Repository) ListSlotHolders(ctx context.Context, providerID int64, date time.Time) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{
			"provider_id":  providerID,
			"booking_date": date,
			"status":       statusStrings(domain.SlotHoldingStatuses),
		}).
		OrderBy("start_time ASC")

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListSlotHolders - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListSlotHolders - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// List получает страницу бронирований по фильтру (новые сначала) и общее количество
func (r *Repository) List(ctx context.Context, filter domain.BookingsFilter) ([]*domain.Booking, int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	where := squirrel.And{}
	if filter.ClientID != nil {
		where = append(where, squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.ProviderID != nil {
		where = append(where, squirrel.Eq{"provider_id": *filter.ProviderID})
	}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"status": *filter.Status})
	}

	countQuery, countArgs, err := psqlbuilder.Select("COUNT(*)").From("bookings").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - build count query: %v", ErrBuildQuery, err)
	}
	var total int
	if err := executor.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: List - count: %w", ErrExecQuery, err)
	}

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(where).
		OrderBy("booking_date DESC", "start_time DESC", "id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: List - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	bookings, err := scanBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// Update сохраняет поля жизненного цикла, если версия в БД равна expectedVersion.
// При успехе booking.Version = expectedVersion+1. Поля оплаты не трогает
// (их пишет UpdatePayment).
func (r *Repository) Update(ctx context.Context, booking *domain.Booking, expectedVersion int) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("status", booking.Status).
		Set("session_id", booking.SessionID).
		Set("session_started_at", booking.SessionStartedAt).
		Set("session_ended_at", booking.SessionEndedAt).
		Set("actual_duration_minutes", booking.ActualDurationMinutes).
		Set("cancelled_by", booking.CancelledBy).
		Set("cancelled_at", booking.CancelledAt).
		Set("cancellation_reason", booking.CancellationReason).
		Set("version", expectedVersion+1).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": booking.ID, "version": expectedVersion}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Update - build update query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&booking.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Либо бронирования нет, либо его уже изменили
		if _, getErr := r.GetByID(ctx, booking.ID); errors.Is(getErr, ErrBookingNotFound) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("%w: Update - booking=%d expected version=%d", domain.ErrVersionConflict, booking.ID, expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("%w: Update - execute update: %w", ErrExecQuery, err)
	}

	booking.Version = expectedVersion + 1
	return nil
}

// UpdatePayment обновляет статус оплаты и ID платежа
func (r *Repository) UpdatePayment(ctx context.Context, id int64, status domain.PaymentStatus, paymentID *string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	updateBuilder := psqlbuilder.Update("bookings").
		Set("payment_status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id})
	if paymentID != nil {
		updateBuilder = updateBuilder.Set("payment_id", *paymentID)
	}

	query, args, err := updateBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdatePayment - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: UpdatePayment - execute update: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: UpdatePayment - get rows affected: %w", ErrExecQuery, err)
	}
	if rowsAffected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID,
		&b.ClientID,
		&b.ProviderID,
		&b.Date,
		&b.StartTime,
		&b.EndTime,
		&b.DurationMinutes,
		&b.Method,
		&b.Topic,
		&b.Notes,
		&b.Fee,
		&b.Status,
		&b.PaymentStatus,
		&b.PaymentID,
		&b.SessionID,
		&b.SessionStartedAt,
		&b.SessionEndedAt,
		&b.ActualDurationMinutes,
		&b.CancelledBy,
		&b.CancelledAt,
		&b.CancellationReason,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// scanBookings сканирует результаты запроса в слайс бронирований
func scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %w", ErrScanRow, err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows iteration: %w", ErrScanRow, err)
	}
	return bookings, nil
}

func statusStrings(statuses []domain.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func isExclusionViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqExclusionViolation
}
