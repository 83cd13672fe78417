package queries

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Read models (DTO for read side)
type BookingView struct {
	ID               uuid.UUID  `json:"id"`
	EventID          uuid.UUID  `json:"event_id"`
	EventName        string     `json:"event_name"`
	EventStartDate   time.Time  `json:"event_start_date"`
	EventEndDate     time.Time  `json:"event_end_date"`
	UserID           uuid.UUID  `json:"user_id"`
	Quantity         int32      `json:"quantity"`
	TotalAmountCents int64      `json:"total_amount_cents"`
	Status           string     `json:"status"`
	BookingReference string     `json:"booking_reference"`
	PaymentReference *string    `json:"payment_reference,omitempty"`
	TicketArtifact   *string    `json:"ticket_artifact,omitempty"`
	CancelReason     *string    `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type BookingListItem struct {
	ID               uuid.UUID `json:"id"`
	EventID          uuid.UUID `json:"event_id"`
	EventName        string    `json:"event_name"`
	Quantity         int32     `json:"quantity"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	Status           string    `json:"status"`
	BookingReference string    `json:"booking_reference"`
	CreatedAt        time.Time `json:"created_at"`
}

type PaymentView struct {
	ID                uuid.UUID  `json:"id"`
	BookingID         uuid.UUID  `json:"booking_id"`
	AmountCents       int64      `json:"amount_cents"`
	Status            string     `json:"status"`
	Provider          string     `json:"provider"`
	Reference         string     `json:"reference"`
	ProviderReference *string    `json:"provider_reference,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	RefundRequired    bool       `json:"refund_required"`
	CreatedAt         time.Time  `json:"created_at"`
}

type BookingQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*BookingView, error)
	GetByReference(ctx context.Context, ref string) (*BookingView, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*BookingListItem, error)
}

type PaymentQueries interface {
	GetByReference(ctx context.Context, ref string) (*PaymentView, error)
}

type BookingReadStore interface {
	FindViewByID(ctx context.Context, id uuid.UUID) (*BookingView, error)
	FindViewByReference(ctx context.Context, ref string) (*BookingView, error)
	ListViewsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*BookingListItem, error)
}

type PaymentReadStore interface {
	FindViewByReference(ctx context.Context, ref string) (*PaymentView, error)
}

type bookingQueriesImpl struct {
	store BookingReadStore
}

func NewBookingQueries(store BookingReadStore) BookingQueries {
	return &bookingQueriesImpl{store: store}
}

func (q *bookingQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*BookingView, error) {
	return q.store.FindViewByID(ctx, id)
}

func (q *bookingQueriesImpl) GetByReference(ctx context.Context, ref string) (*BookingView, error) {
	return q.store.FindViewByReference(ctx, ref)
}

func (q *bookingQueriesImpl) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]*BookingListItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return q.store.ListViewsByUser(ctx, userID, limit, offset)
}

type paymentQueriesImpl struct {
	store PaymentReadStore
}

func NewPaymentQueries(store PaymentReadStore) PaymentQueries {
	return &paymentQueriesImpl{store: store}
}

func (q *paymentQueriesImpl) GetByReference(ctx context.Context, ref string) (*PaymentView, error) {
	return q.store.FindViewByReference(ctx, ref)
}
