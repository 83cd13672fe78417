package repository

import (
	"context"
	"errors"
	"time"

	"ticketing/internal/domain/booking"
	"ticketing/internal/infra"
	"ticketing/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type BookingRepository struct{}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{}
}

const createBookingSQL = `
INSERT INTO bookings (id, user_id, event_id, quantity, total_amount_cents, status, booking_reference, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func (r *BookingRepository) Create(ctx context.Context, tx db.DBTX, b *booking.Booking) error {
	_, err := tx.Exec(ctx, createBookingSQL,
		b.ID(), b.UserID(), b.EventID(), b.Quantity(), b.TotalAmountCents(),
		b.Status().String(), b.BookingReference(), b.CreatedAt(), b.UpdatedAt(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return infra.WrapRepoErr("booking reference already exists", err, infra.KindDuplicateKey)
		}
		return infra.WrapRepoErr("failed to create booking", err)
	}
	return nil
}

const bookingColumns = `
id, user_id, event_id, quantity, total_amount_cents, status, booking_reference,
payment_reference, ticket_artifact, cancel_reason, created_at, updated_at`

func (r *BookingRepository) FindByID(ctx context.Context, tx db.DBTX, id uuid.UUID) (*booking.Booking, error) {
	row := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanBooking(row, "booking not found")
}

func (r *BookingRepository) FindByReference(ctx context.Context, tx db.DBTX, ref string) (*booking.Booking, error) {
	row := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_reference = $1`, ref)
	return scanBooking(row, "booking not found by reference")
}

const confirmBookingSQL = `
UPDATE bookings
SET status = 'CONFIRMED', payment_reference = $2, updated_at = $3
WHERE id = $1 AND status = 'PENDING'`

// UpdateStatusConfirmed は PENDING からのみ遷移させる。0 行更新は
// 「並行する confirm/cancel に負けた」ことを意味し、呼び出し側が再読込して判断する。
func (r *BookingRepository) UpdateStatusConfirmed(ctx context.Context, tx db.DBTX, id uuid.UUID, paymentRef string, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, confirmBookingSQL, id, paymentRef, now)
	if err != nil {
		return false, infra.WrapRepoErr("failed to confirm booking", err)
	}
	return tag.RowsAffected() == 1, nil
}

const cancelBookingSQL = `
UPDATE bookings
SET status = 'CANCELLED', cancel_reason = $2, updated_at = $3
WHERE id = $1 AND status IN ('PENDING', 'CONFIRMED')`

func (r *BookingRepository) UpdateStatusCancelled(ctx context.Context, tx db.DBTX, id uuid.UUID, reason string, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, cancelBookingSQL, id, reason, now)
	if err != nil {
		return false, infra.WrapRepoErr("failed to cancel booking", err)
	}
	return tag.RowsAffected() == 1, nil
}

const completeBookingSQL = `
UPDATE bookings
SET status = 'COMPLETED', updated_at = $2
WHERE id = $1 AND status = 'CONFIRMED'`

func (r *BookingRepository) UpdateStatusCompleted(ctx context.Context, tx db.DBTX, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, completeBookingSQL, id, now)
	if err != nil {
		return false, infra.WrapRepoErr("failed to complete booking", err)
	}
	return tag.RowsAffected() == 1, nil
}

const setTicketArtifactSQL = `
UPDATE bookings
SET ticket_artifact = $2, updated_at = $3
WHERE id = $1`

func (r *BookingRepository) SetTicketArtifact(ctx context.Context, tx db.DBTX, id uuid.UUID, artifact string, now time.Time) error {
	if _, err := tx.Exec(ctx, setTicketArtifactSQL, id, artifact, now); err != nil {
		return infra.WrapRepoErr("failed to attach ticket artifact", err)
	}
	return nil
}

const findExpiredPendingSQL = `
SELECT id
FROM bookings
WHERE status = 'PENDING' AND created_at < $1
ORDER BY created_at`

// FindExpiredPendingIDs は掃き出し対象（猶予切れの PENDING）の id を返す。
// cutoff = now - holdDuration。candidate を返すだけで、確定判定は cancel 側の条件付き UPDATE が行う。
func (r *BookingRepository) FindExpiredPendingIDs(ctx context.Context, tx db.DBTX, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, findExpiredPendingSQL, cutoff)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list expired pending bookings", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, infra.WrapRepoErr("failed to scan expired booking id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate expired bookings", err)
	}
	return ids, nil
}

func scanBooking(row pgx.Row, notFoundMsg string) (*booking.Booking, error) {
	var (
		id, userID, eventID                        uuid.UUID
		quantity                                   int32
		totalAmountCents                           int64
		status, bookingReference                   string
		paymentReference, ticketArtifact, cancelReason *string
		createdAt, updatedAt                       time.Time
	)

	err := row.Scan(&id, &userID, &eventID, &quantity, &totalAmountCents, &status, &bookingReference,
		&paymentReference, &ticketArtifact, &cancelReason, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr(notFoundMsg, err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan booking", err)
	}

	return booking.ReconstructBooking(
		id, userID, eventID, quantity, totalAmountCents,
		booking.Status(status), bookingReference,
		paymentReference, ticketArtifact, cancelReason,
		createdAt, updatedAt,
	)
}
