package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrNegativeAmount   = errors.New("total amount cannot be negative")
	ErrAlreadyTerminal  = errors.New("booking is already in a terminal state")
	ErrNotPending       = errors.New("booking is not pending")
	ErrNotConfirmed     = errors.New("booking is not confirmed")
	ErrInvalidStatus    = errors.New("invalid booking status")
	ErrEmptyReference   = errors.New("booking reference is required")
)

// Booking は予約1件。行の削除は行わず、取り消しは終端ステータスで表現する。
// createdAt はホールド開始の永続的な起点（アクセラレータ側のマーカーは揮発し得る）。
type Booking struct {
	id               uuid.UUID
	userID           uuid.UUID
	eventID          uuid.UUID
	quantity         int32
	totalAmountCents int64
	status           Status
	bookingReference string
	paymentReference *string
	ticketArtifact   *string
	cancelReason     *string
	createdAt        time.Time
	updatedAt        time.Time
}

func NewBooking(
	userID, eventID uuid.UUID,
	quantity int32,
	unitPriceCents int64,
	bookingReference string,
	now time.Time,
) (*Booking, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if unitPriceCents < 0 {
		return nil, ErrNegativeAmount
	}
	if bookingReference == "" {
		return nil, ErrEmptyReference
	}

	return &Booking{
		id:               uuid.New(),
		userID:           userID,
		eventID:          eventID,
		quantity:         quantity,
		totalAmountCents: unitPriceCents * int64(quantity), // 予約時点の価格スナップショット
		status:           StatusPending,
		bookingReference: bookingReference,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

func ReconstructBooking(
	id, userID, eventID uuid.UUID,
	quantity int32,
	totalAmountCents int64,
	status Status,
	bookingReference string,
	paymentReference, ticketArtifact, cancelReason *string,
	createdAt, updatedAt time.Time,
) (*Booking, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return &Booking{
		id:               id,
		userID:           userID,
		eventID:          eventID,
		quantity:         quantity,
		totalAmountCents: totalAmountCents,
		status:           status,
		bookingReference: bookingReference,
		paymentReference: paymentReference,
		ticketArtifact:   ticketArtifact,
		cancelReason:     cancelReason,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}, nil
}

// HoldExpiresAt はこの予約の支払い猶予期限。
func (b *Booking) HoldExpiresAt(holdDuration time.Duration) time.Time {
	return b.createdAt.Add(holdDuration)
}

// HoldLapsed はリレーショナルストア上の createdAt を基準に猶予切れを判定する。
// キャッシュのマーカー有無はここでは使わない（揮発するため根拠にならない）。
func (b *Booking) HoldLapsed(now time.Time, holdDuration time.Duration) bool {
	return now.After(b.HoldExpiresAt(holdDuration))
}

func (b *Booking) Confirm(paymentReference string, now time.Time) error {
	if b.status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	if b.status != StatusPending {
		return ErrNotPending
	}
	b.status = StatusConfirmed
	b.paymentReference = &paymentReference
	b.updatedAt = now
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) error {
	if b.status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	b.status = StatusCancelled
	b.cancelReason = &reason
	b.updatedAt = now
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	if b.status != StatusConfirmed {
		return ErrNotConfirmed
	}
	b.status = StatusCompleted
	b.updatedAt = now
	return nil
}

func (b *Booking) AttachTicketArtifact(artifact string, now time.Time) {
	b.ticketArtifact = &artifact
	b.updatedAt = now
}

func (b *Booking) IsPending() bool   { return b.status == StatusPending }
func (b *Booking) IsConfirmed() bool { return b.status == StatusConfirmed }
func (b *Booking) IsTerminal() bool  { return b.status.IsTerminal() }

func (b *Booking) ID() uuid.UUID             { return b.id }
func (b *Booking) UserID() uuid.UUID         { return b.userID }
func (b *Booking) EventID() uuid.UUID        { return b.eventID }
func (b *Booking) Quantity() int32           { return b.quantity }
func (b *Booking) TotalAmountCents() int64   { return b.totalAmountCents }
func (b *Booking) Status() Status            { return b.status }
func (b *Booking) BookingReference() string  { return b.bookingReference }
func (b *Booking) PaymentReference() *string { return b.paymentReference }
func (b *Booking) TicketArtifact() *string   { return b.ticketArtifact }
func (b *Booking) CancelReason() *string     { return b.cancelReason }
func (b *Booking) CreatedAt() time.Time      { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time      { return b.updatedAt }
