package commands

import (
	"context"
	"time"

	"ticketing/internal/domain/booking"
	"ticketing/internal/domain/event"
	"ticketing/internal/domain/payment"
	"ticketing/internal/infra/db"

	"github.com/google/uuid"
)

// Write-side ports. Repositories take an explicit DB handle so that the
// command layer owns every transaction boundary.

type EventRepository interface {
	FindByID(ctx context.Context, tx db.DBTX, id uuid.UUID) (*event.Event, error)
	ReserveCapacity(ctx context.Context, tx db.DBTX, eventID uuid.UUID, quantity int32, now time.Time) (bool, error)
	RestoreCapacity(ctx context.Context, tx db.DBTX, eventID uuid.UUID, quantity int32) error
}

type BookingRepository interface {
	Create(ctx context.Context, tx db.DBTX, b *booking.Booking) error
	FindByID(ctx context.Context, tx db.DBTX, id uuid.UUID) (*booking.Booking, error)
	FindByReference(ctx context.Context, tx db.DBTX, ref string) (*booking.Booking, error)
	UpdateStatusConfirmed(ctx context.Context, tx db.DBTX, id uuid.UUID, paymentRef string, now time.Time) (bool, error)
	UpdateStatusCancelled(ctx context.Context, tx db.DBTX, id uuid.UUID, reason string, now time.Time) (bool, error)
	UpdateStatusCompleted(ctx context.Context, tx db.DBTX, id uuid.UUID, now time.Time) (bool, error)
	SetTicketArtifact(ctx context.Context, tx db.DBTX, id uuid.UUID, artifact string, now time.Time) error
	FindExpiredPendingIDs(ctx context.Context, tx db.DBTX, cutoff time.Time) ([]uuid.UUID, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, tx db.DBTX, p *payment.Payment) error
	FindByReference(ctx context.Context, tx db.DBTX, ref string) (*payment.Payment, error)
	UpdateResolved(ctx context.Context, tx db.DBTX, ref string, status payment.Status, paidAt *time.Time, now time.Time) (bool, error)
	SetProviderReference(ctx context.Context, tx db.DBTX, ref, providerRef string, now time.Time) error
	FlagRefundRequired(ctx context.Context, tx db.DBTX, ref string, now time.Time) error
}

// HoldStore はアクセラレータ側のホールドマーカー。全操作ベストエフォートで、
// 期限判定そのものには使わない（正は bookings.created_at + holdDuration）。
type HoldStore interface {
	Arm(ctx context.Context, bookingID uuid.UUID)
	Disarm(ctx context.Context, bookingID uuid.UUID)
}
