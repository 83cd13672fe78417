package response

import (
	"time"

	"ticketing/internal/usecase/commands"
	"ticketing/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type InitializePaymentResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorizationUrl"`
	QRCode           string `json:"qrCode,omitempty"`
	AmountCents      int64  `json:"amountCents"`
}

type PaymentResolutionResponse struct {
	Reference      string    `json:"reference"`
	Status         string    `json:"status"`
	RefundRequired bool      `json:"refundRequired"`
	BookingID      uuid.UUID `json:"bookingId"`
}

type PaymentResponse struct {
	ID                uuid.UUID  `json:"id"`
	BookingID         uuid.UUID  `json:"bookingId"`
	AmountCents       int64      `json:"amountCents"`
	Status            string     `json:"status"`
	Provider          string     `json:"provider"`
	Reference         string     `json:"reference"`
	ProviderReference *string    `json:"providerReference,omitempty"`
	PaidAt            *time.Time `json:"paidAt,omitempty"`
	RefundRequired    bool       `json:"refundRequired"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type TicketVerificationResponse struct {
	Valid            bool   `json:"valid"`
	Status           string `json:"status"`
	Message          string `json:"message"`
	BookingReference string `json:"bookingReference,omitempty"`
}

func FromInitializePaymentResult(result *commands.InitializePaymentResult) *InitializePaymentResponse {
	return &InitializePaymentResponse{
		Reference:        result.Reference,
		AuthorizationURL: result.AuthorizationURL,
		QRCode:           result.QRCode,
		AmountCents:      result.AmountCents,
	}
}

func FromPaymentResolution(resolution *commands.PaymentResolution) *PaymentResolutionResponse {
	return &PaymentResolutionResponse{
		Reference:      resolution.Reference,
		Status:         string(resolution.Status),
		RefundRequired: resolution.RefundRequired,
		BookingID:      resolution.BookingID,
	}
}

func FromPaymentView(view *queries.PaymentView) *PaymentResponse {
	var resp PaymentResponse
	_ = copier.Copy(&resp, view)
	return &resp
}

func FromTicketVerification(v *commands.TicketVerification) *TicketVerificationResponse {
	resp := &TicketVerificationResponse{
		Valid:   v.Valid,
		Status:  v.Status,
		Message: v.Message,
	}
	if v.Booking != nil {
		resp.BookingReference = v.Booking.BookingReference()
	}
	return resp
}
