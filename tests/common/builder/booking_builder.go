//go:build unit || e2e

package builder

import (
	"time"

	dombooking "ticketing/internal/domain/booking"
	reqdto "ticketing/internal/handler/dto/request"
	"ticketing/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingBuilder struct {
	ID               uuid.UUID
	EventID          uuid.UUID
	EventName        string
	EventStartDate   time.Time
	EventEndDate     time.Time
	UserID           uuid.UUID
	Quantity         int32
	UnitPriceCents   int64
	Status           dombooking.Status
	BookingReference string
	PaymentReference *string
	TicketArtifact   *string
	CancelReason     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewBookingBuilder() *BookingBuilder {
	now := time.Now().UTC().Truncate(time.Second)
	return &BookingBuilder{
		ID:               uuid.New(),
		EventID:          uuid.New(),
		EventName:        "Summer Jazz Festival",
		EventStartDate:   now.Add(48 * time.Hour),
		EventEndDate:     now.Add(54 * time.Hour),
		UserID:           uuid.New(),
		Quantity:         2,
		UnitPriceCents:   500000,
		Status:           dombooking.StatusPending,
		BookingReference: "TKT-8F3KQW2NVXYZ",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

func (b *BookingBuilder) TotalAmountCents() int64 {
	return b.UnitPriceCents * int64(b.Quantity)
}

func (b *BookingBuilder) BuildDomain() (*dombooking.Booking, error) {
	return dombooking.ReconstructBooking(
		b.ID, b.UserID, b.EventID,
		b.Quantity,
		b.TotalAmountCents(),
		b.Status,
		b.BookingReference,
		b.PaymentReference, b.TicketArtifact, b.CancelReason,
		b.CreatedAt, b.UpdatedAt,
	)
}

func (b *BookingBuilder) BuildView() *queries.BookingView {
	return &queries.BookingView{
		ID:               b.ID,
		EventID:          b.EventID,
		EventName:        b.EventName,
		EventStartDate:   b.EventStartDate,
		EventEndDate:     b.EventEndDate,
		UserID:           b.UserID,
		Quantity:         b.Quantity,
		TotalAmountCents: b.TotalAmountCents(),
		Status:           string(b.Status),
		BookingReference: b.BookingReference,
		PaymentReference: b.PaymentReference,
		TicketArtifact:   b.TicketArtifact,
		CancelReason:     b.CancelReason,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func (b *BookingBuilder) BuildListItem() *queries.BookingListItem {
	return &queries.BookingListItem{
		ID:               b.ID,
		EventID:          b.EventID,
		EventName:        b.EventName,
		Quantity:         b.Quantity,
		TotalAmountCents: b.TotalAmountCents(),
		Status:           string(b.Status),
		BookingReference: b.BookingReference,
		CreatedAt:        b.CreatedAt,
	}
}

func (b *BookingBuilder) BuildCreateRequestDTO() reqdto.CreateBookingRequest {
	return reqdto.CreateBookingRequest{
		EventID:  b.EventID,
		Quantity: b.Quantity,
	}
}
