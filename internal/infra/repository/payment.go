package repository

import (
	"context"
	"errors"
	"time"

	"ticketing/internal/domain/payment"
	"ticketing/internal/infra"
	"ticketing/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type PaymentRepository struct{}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

const createPaymentSQL = `
INSERT INTO payments (id, booking_id, amount_cents, status, provider, reference, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (r *PaymentRepository) Create(ctx context.Context, tx db.DBTX, p *payment.Payment) error {
	_, err := tx.Exec(ctx, createPaymentSQL,
		p.ID(), p.BookingID(), p.AmountCents(), p.Status().String(), string(p.Provider()),
		p.Reference(), p.CreatedAt(), p.UpdatedAt(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return infra.WrapRepoErr("payment reference already exists", err, infra.KindDuplicateKey)
		}
		return infra.WrapRepoErr("failed to create payment", err)
	}
	return nil
}

const paymentColumns = `
id, booking_id, amount_cents, status, provider, reference, provider_reference,
paid_at, refund_required, created_at, updated_at`

func (r *PaymentRepository) FindByReference(ctx context.Context, tx db.DBTX, ref string) (*payment.Payment, error) {
	row := tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, ref)
	return scanPayment(row)
}

const resolvePaymentSQL = `
UPDATE payments
SET status = $2, paid_at = $3, updated_at = $4
WHERE reference = $1 AND status = 'PENDING'`

// UpdateResolved は PENDING の決済だけを終端化する。0 行更新 = 既に解決済み。
// この条件付き UPDATE が verify/webhook の収束点であり、どちらの経路が先でも二度目は素通りする。
// SUCCESSFUL への遷移は部分ユニークインデックスにも縛られる: 同じ予約の別決済が
// 既に成功していれば 23505 が返り、DUPLICATE_KEY として呼び出し側に渡る。
func (r *PaymentRepository) UpdateResolved(ctx context.Context, tx db.DBTX, ref string, status payment.Status, paidAt *time.Time, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, resolvePaymentSQL, ref, status.String(), paidAt, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, infra.WrapRepoErr("another payment already succeeded for booking", err, infra.KindDuplicateKey)
		}
		return false, infra.WrapRepoErr("failed to resolve payment", err)
	}
	return tag.RowsAffected() == 1, nil
}

const setProviderReferenceSQL = `
UPDATE payments
SET provider_reference = $2, updated_at = $3
WHERE reference = $1`

func (r *PaymentRepository) SetProviderReference(ctx context.Context, tx db.DBTX, ref, providerRef string, now time.Time) error {
	if _, err := tx.Exec(ctx, setProviderReferenceSQL, ref, providerRef, now); err != nil {
		return infra.WrapRepoErr("failed to set provider reference", err)
	}
	return nil
}

const flagRefundRequiredSQL = `
UPDATE payments
SET refund_required = TRUE, updated_at = $2
WHERE reference = $1`

func (r *PaymentRepository) FlagRefundRequired(ctx context.Context, tx db.DBTX, ref string, now time.Time) error {
	if _, err := tx.Exec(ctx, flagRefundRequiredSQL, ref, now); err != nil {
		return infra.WrapRepoErr("failed to flag refund", err)
	}
	return nil
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var (
		id, bookingID        uuid.UUID
		amountCents          int64
		status, provider, ref string
		providerRef          *string
		paidAt               *time.Time
		refundRequired       bool
		createdAt, updatedAt time.Time
	)

	err := row.Scan(&id, &bookingID, &amountCents, &status, &provider, &ref, &providerRef,
		&paidAt, &refundRequired, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("payment not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan payment", err)
	}

	return payment.ReconstructPayment(
		id, bookingID, amountCents,
		payment.Status(status), payment.Provider(provider), ref,
		providerRef, paidAt, refundRequired,
		createdAt, updatedAt,
	)
}
