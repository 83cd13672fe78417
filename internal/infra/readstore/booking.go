package readstore

import (
	"context"
	"errors"

	"ticketing/internal/infra"
	"ticketing/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingReadStore struct {
	pool *pgxpool.Pool
}

func NewBookingReadStore(pool *pgxpool.Pool) *BookingReadStore {
	return &BookingReadStore{pool: pool}
}

const bookingViewSQL = `
SELECT b.id, b.event_id, e.name, e.start_date, e.end_date, b.user_id,
       b.quantity, b.total_amount_cents, b.status, b.booking_reference,
       b.payment_reference, b.ticket_artifact, b.cancel_reason, b.created_at, b.updated_at
FROM bookings b
JOIN events e ON e.id = b.event_id`

func (s *BookingReadStore) FindViewByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	return s.scanView(s.pool.QueryRow(ctx, bookingViewSQL+` WHERE b.id = $1`, id))
}

func (s *BookingReadStore) FindViewByReference(ctx context.Context, ref string) (*queries.BookingView, error) {
	return s.scanView(s.pool.QueryRow(ctx, bookingViewSQL+` WHERE b.booking_reference = $1`, ref))
}

const bookingListSQL = `
SELECT b.id, b.event_id, e.name, b.quantity, b.total_amount_cents, b.status, b.booking_reference, b.created_at
FROM bookings b
JOIN events e ON e.id = b.event_id
WHERE b.user_id = $1
ORDER BY b.created_at DESC
LIMIT $2 OFFSET $3`

func (s *BookingReadStore) ListViewsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*queries.BookingListItem, error) {
	rows, err := s.pool.Query(ctx, bookingListSQL, userID, limit, offset)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list bookings", err)
	}
	defer rows.Close()

	items := make([]*queries.BookingListItem, 0)
	for rows.Next() {
		var item queries.BookingListItem
		if err := rows.Scan(&item.ID, &item.EventID, &item.EventName, &item.Quantity,
			&item.TotalAmountCents, &item.Status, &item.BookingReference, &item.CreatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking list item", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate booking list", err)
	}
	return items, nil
}

func (s *BookingReadStore) scanView(row pgx.Row) (*queries.BookingView, error) {
	var v queries.BookingView
	err := row.Scan(&v.ID, &v.EventID, &v.EventName, &v.EventStartDate, &v.EventEndDate, &v.UserID,
		&v.Quantity, &v.TotalAmountCents, &v.Status, &v.BookingReference,
		&v.PaymentReference, &v.TicketArtifact, &v.CancelReason, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("booking view not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan booking view", err)
	}
	return &v, nil
}
