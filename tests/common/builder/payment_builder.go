//go:build unit || e2e

package builder

import (
	"time"

	dompayment "ticketing/internal/domain/payment"
	reqdto "ticketing/internal/handler/dto/request"
	"ticketing/internal/usecase/queries"

	"github.com/google/uuid"
)

type PaymentBuilder struct {
	ID                uuid.UUID
	BookingID         uuid.UUID
	AmountCents       int64
	Status            dompayment.Status
	Provider          dompayment.Provider
	Reference         string
	ProviderReference *string
	PaidAt            *time.Time
	RefundRequired    bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewPaymentBuilder() *PaymentBuilder {
	now := time.Now().UTC().Truncate(time.Second)
	return &PaymentBuilder{
		ID:          uuid.New(),
		BookingID:   uuid.New(),
		AmountCents: 1000000,
		Status:      dompayment.StatusPending,
		Provider:    dompayment.ProviderPaystack,
		Reference:   "PAY-3MWXK7RNQ2VZ",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *PaymentBuilder) With(mutate func(*PaymentBuilder)) *PaymentBuilder {
	mutate(p)
	return p
}

func (p *PaymentBuilder) BuildDomain() (*dompayment.Payment, error) {
	return dompayment.ReconstructPayment(
		p.ID, p.BookingID,
		p.AmountCents,
		p.Status,
		p.Provider,
		p.Reference,
		p.ProviderReference,
		p.PaidAt,
		p.RefundRequired,
		p.CreatedAt, p.UpdatedAt,
	)
}

func (p *PaymentBuilder) BuildView() *queries.PaymentView {
	return &queries.PaymentView{
		ID:                p.ID,
		BookingID:         p.BookingID,
		AmountCents:       p.AmountCents,
		Status:            string(p.Status),
		Provider:          string(p.Provider),
		Reference:         p.Reference,
		ProviderReference: p.ProviderReference,
		PaidAt:            p.PaidAt,
		RefundRequired:    p.RefundRequired,
		CreatedAt:         p.CreatedAt,
	}
}

func (p *PaymentBuilder) BuildInitializeRequestDTO() reqdto.InitializePaymentRequest {
	return reqdto.InitializePaymentRequest{
		Provider: string(p.Provider),
		Email:    "attendee@example.com",
	}
}
