package response

import (
	"time"

	"ticketing/internal/domain/booking"
	"ticketing/internal/usecase/commands"
	"ticketing/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type BookingResponse struct {
	ID               uuid.UUID  `json:"id"`
	EventID          uuid.UUID  `json:"eventId"`
	EventName        string     `json:"eventName"`
	EventStartDate   time.Time  `json:"eventStartDate"`
	EventEndDate     time.Time  `json:"eventEndDate"`
	UserID           uuid.UUID  `json:"userId"`
	Quantity         int32      `json:"quantity"`
	TotalAmountCents int64      `json:"totalAmountCents"`
	Status           string     `json:"status"`
	BookingReference string     `json:"bookingReference"`
	PaymentReference *string    `json:"paymentReference,omitempty"`
	TicketArtifact   *string    `json:"ticketArtifact,omitempty"`
	CancelReason     *string    `json:"cancelReason,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type BookingListResponse struct {
	ID               uuid.UUID `json:"id"`
	EventID          uuid.UUID `json:"eventId"`
	EventName        string    `json:"eventName"`
	Quantity         int32     `json:"quantity"`
	TotalAmountCents int64     `json:"totalAmountCents"`
	Status           string    `json:"status"`
	BookingReference string    `json:"bookingReference"`
	CreatedAt        time.Time `json:"createdAt"`
}

type CreateBookingResponse struct {
	ID               uuid.UUID `json:"id"`
	EventID          uuid.UUID `json:"eventId"`
	Quantity         int32     `json:"quantity"`
	TotalAmountCents int64     `json:"totalAmountCents"`
	Status           string    `json:"status"`
	BookingReference string    `json:"bookingReference"`
	HoldExpiresAt    time.Time `json:"holdExpiresAt"`
	CreatedAt        time.Time `json:"createdAt"`
}

type CancelBookingResponse struct {
	ID           uuid.UUID `json:"id"`
	Status       string    `json:"status"`
	CancelReason *string   `json:"cancelReason,omitempty"`
}

func FromBookingView(rm *queries.BookingView) *BookingResponse {
	var resp BookingResponse
	_ = copier.Copy(&resp, rm)
	return &resp
}

func FromBookingListItem(rm *queries.BookingListItem) *BookingListResponse {
	var resp BookingListResponse
	_ = copier.Copy(&resp, rm)
	return &resp
}

func FromStartBookingResult(result *commands.StartBookingResult) *CreateBookingResponse {
	b := result.Booking
	return &CreateBookingResponse{
		ID:               b.ID(),
		EventID:          b.EventID(),
		Quantity:         b.Quantity(),
		TotalAmountCents: b.TotalAmountCents(),
		Status:           string(b.Status()),
		BookingReference: b.BookingReference(),
		HoldExpiresAt:    result.HoldExpiresAt,
		CreatedAt:        b.CreatedAt(),
	}
}

func FromCancelledBooking(b *booking.Booking) *CancelBookingResponse {
	return &CancelBookingResponse{
		ID:           b.ID(),
		Status:       string(b.Status()),
		CancelReason: b.CancelReason(),
	}
}
