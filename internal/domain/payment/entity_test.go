//go:build unit

package payment_test

import (
	"testing"
	"time"

	"ticketing/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newPendingPayment(t *testing.T) *payment.Payment {
	t.Helper()
	p, err := payment.NewPayment(uuid.New(), 15000, payment.ProviderPaystack, "PAY-TESTTESTTEST", t0)
	require.NoError(t, err)
	return p
}

func TestNewPayment(t *testing.T) {
	t.Run("basic success case", func(t *testing.T) {
		p := newPendingPayment(t)
		assert.Equal(t, payment.StatusPending, p.Status())
		assert.False(t, p.IsResolved())
		assert.Nil(t, p.PaidAt())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := payment.NewPayment(uuid.New(), 0, payment.ProviderPaystack, "PAY-X", t0)
		assert.ErrorIs(t, err, payment.ErrInvalidAmount)
	})

	t.Run("rejects empty reference", func(t *testing.T) {
		_, err := payment.NewPayment(uuid.New(), 100, payment.ProviderPaystack, "", t0)
		assert.ErrorIs(t, err, payment.ErrEmptyReference)
	})
}

func TestResolution(t *testing.T) {
	t.Run("success resolves exactly once", func(t *testing.T) {
		p := newPendingPayment(t)
		paidAt := t0.Add(time.Minute)

		require.NoError(t, p.MarkSuccessful(paidAt))
		assert.Equal(t, payment.StatusSuccessful, p.Status())
		require.NotNil(t, p.PaidAt())
		assert.Equal(t, paidAt, *p.PaidAt())

		// Webhook の重複配信相当
		assert.ErrorIs(t, p.MarkSuccessful(paidAt.Add(time.Second)), payment.ErrAlreadyResolved)
		assert.ErrorIs(t, p.MarkFailed(paidAt.Add(time.Second)), payment.ErrAlreadyResolved)
		assert.Equal(t, paidAt, *p.PaidAt(), "first resolution wins")
	})

	t.Run("failure resolves exactly once", func(t *testing.T) {
		p := newPendingPayment(t)
		require.NoError(t, p.MarkFailed(t0.Add(time.Minute)))
		assert.ErrorIs(t, p.MarkSuccessful(t0.Add(2*time.Minute)), payment.ErrAlreadyResolved)
		assert.Nil(t, p.PaidAt())
	})
}

func TestRefundFlag(t *testing.T) {
	p := newPendingPayment(t)
	require.NoError(t, p.MarkSuccessful(t0.Add(time.Minute)))

	p.FlagRefundRequired()
	assert.True(t, p.RefundRequired())
	assert.Equal(t, payment.StatusSuccessful, p.Status(), "audit trail keeps the successful status")
}

func TestProvider(t *testing.T) {
	assert.True(t, payment.ProviderPaystack.IsValid())
	assert.True(t, payment.ProviderFlutterwave.IsValid())
	assert.False(t, payment.Provider("stripe").IsValid())
}
