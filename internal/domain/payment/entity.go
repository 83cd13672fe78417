package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyResolved = errors.New("payment is already resolved")
	ErrInvalidAmount   = errors.New("payment amount must be positive")
	ErrInvalidStatus   = errors.New("invalid payment status")
	ErrEmptyReference  = errors.New("payment reference is required")
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
	StatusRefunded   Status = "REFUNDED"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccessful, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

// IsResolved は SUCCESSFUL / FAILED / REFUNDED への到達を表す。
// 到達後の再判定は冪等に無視される（Webhook の重複配信対策）。
func (s Status) IsResolved() bool {
	return s != StatusPending
}

type Provider string

const (
	ProviderPaystack    Provider = "paystack"
	ProviderFlutterwave Provider = "flutterwave"
)

func (p Provider) IsValid() bool {
	return p == ProviderPaystack || p == ProviderFlutterwave
}

type Payment struct {
	id                uuid.UUID
	bookingID         uuid.UUID
	amountCents       int64
	status            Status
	provider          Provider
	reference         string // 冪等キー。ユニーク制約あり
	providerReference *string
	paidAt            *time.Time
	refundRequired    bool
	createdAt         time.Time
	updatedAt         time.Time
}

func NewPayment(bookingID uuid.UUID, amountCents int64, provider Provider, ref string, now time.Time) (*Payment, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if ref == "" {
		return nil, ErrEmptyReference
	}

	return &Payment{
		id:          uuid.New(),
		bookingID:   bookingID,
		amountCents: amountCents,
		status:      StatusPending,
		provider:    provider,
		reference:   ref,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

func ReconstructPayment(
	id, bookingID uuid.UUID,
	amountCents int64,
	status Status,
	provider Provider,
	ref string,
	providerReference *string,
	paidAt *time.Time,
	refundRequired bool,
	createdAt, updatedAt time.Time,
) (*Payment, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return &Payment{
		id:                id,
		bookingID:         bookingID,
		amountCents:       amountCents,
		status:            status,
		provider:          provider,
		reference:         ref,
		providerReference: providerReference,
		paidAt:            paidAt,
		refundRequired:    refundRequired,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}, nil
}

func (p *Payment) MarkSuccessful(paidAt time.Time) error {
	if p.status.IsResolved() {
		return ErrAlreadyResolved
	}
	p.status = StatusSuccessful
	p.paidAt = &paidAt
	p.updatedAt = paidAt
	return nil
}

func (p *Payment) MarkFailed(now time.Time) error {
	if p.status.IsResolved() {
		return ErrAlreadyResolved
	}
	p.status = StatusFailed
	p.updatedAt = now
	return nil
}

// FlagRefundRequired は「支払い成功したが予約はすでに失効していた」ケースの印。
// 決済履歴は SUCCESSFUL のまま残し、手動返金の対象として浮かび上がらせる。
func (p *Payment) FlagRefundRequired() {
	p.refundRequired = true
}

func (p *Payment) IsResolved() bool { return p.status.IsResolved() }

func (p *Payment) ID() uuid.UUID               { return p.id }
func (p *Payment) BookingID() uuid.UUID        { return p.bookingID }
func (p *Payment) AmountCents() int64          { return p.amountCents }
func (p *Payment) Status() Status              { return p.status }
func (p *Payment) Provider() Provider          { return p.provider }
func (p *Payment) Reference() string           { return p.reference }
func (p *Payment) ProviderReference() *string  { return p.providerReference }
func (p *Payment) PaidAt() *time.Time          { return p.paidAt }
func (p *Payment) RefundRequired() bool        { return p.refundRequired }
func (p *Payment) CreatedAt() time.Time        { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time        { return p.updatedAt }
