package readstore

import (
	"context"
	"errors"

	"ticketing/internal/infra"
	"ticketing/internal/usecase/queries"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentReadStore struct {
	pool *pgxpool.Pool
}

func NewPaymentReadStore(pool *pgxpool.Pool) *PaymentReadStore {
	return &PaymentReadStore{pool: pool}
}

const paymentViewSQL = `
SELECT id, booking_id, amount_cents, status, provider, reference, provider_reference,
       paid_at, refund_required, created_at
FROM payments
WHERE reference = $1`

func (s *PaymentReadStore) FindViewByReference(ctx context.Context, ref string) (*queries.PaymentView, error) {
	var v queries.PaymentView
	err := s.pool.QueryRow(ctx, paymentViewSQL, ref).Scan(
		&v.ID, &v.BookingID, &v.AmountCents, &v.Status, &v.Provider, &v.Reference,
		&v.ProviderReference, &v.PaidAt, &v.RefundRequired, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("payment view not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan payment view", err)
	}
	return &v, nil
}
