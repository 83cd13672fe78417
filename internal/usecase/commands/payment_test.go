//go:build unit

package commands

import (
	"context"
	"testing"
	"time"

	"ticketing/internal/domain/booking"
	"ticketing/internal/domain/payment"
	paymentgw "ticketing/internal/gateway/payment"
	"ticketing/internal/notification"
	"ticketing/internal/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	*bookingFixture
	payments *fakePaymentRepo
	gateway  *scriptedGateway
	eventID  uuid.UUID
	uc       PaymentCommands
}

func newPaymentFixture(t *testing.T, capacity int32) *paymentFixture {
	t.Helper()
	ev := activeEvent(t, capacity)
	bf := newBookingFixture(ev)
	f := &paymentFixture{
		bookingFixture: bf,
		payments:       newFakePaymentRepo(),
		gateway:        &scriptedGateway{name: "paystack", verify: map[string]*paymentgw.VerificationResult{}},
		eventID:        ev.ID(),
	}
	f.uc = NewPaymentUseCase(
		f.payments, f.bookings, bf.uc,
		paymentgw.NewRegistry(f.gateway),
		f.notifier, stubPool{}, f.clk,
		config.PaymentConfig{CallbackURL: "https://tickets.example/payments/callback"},
		discardLogger(),
	)
	return f
}

func (f *paymentFixture) startBooking(t *testing.T) *StartBookingResult {
	t.Helper()
	res, err := f.bookingFixture.uc.StartBooking(context.Background(), uuid.New(), f.eventID, 2)
	require.NoError(t, err)
	return res
}

func (f *paymentFixture) initPayment(t *testing.T, b *StartBookingResult) string {
	t.Helper()
	res, err := f.uc.InitializePayment(context.Background(), b.Booking.ID(), b.Booking.UserID(), "paystack", "attendee@example.com")
	require.NoError(t, err)
	return res.Reference
}

func successEvent(ref string) *paymentgw.WebhookEvent {
	return &paymentgw.WebhookEvent{
		Provider:  "paystack",
		EventType: "charge.success",
		Reference: ref,
		Status:    paymentgw.StatusSuccess,
	}
}

func failureEvent(ref string) *paymentgw.WebhookEvent {
	return &paymentgw.WebhookEvent{
		Provider:  "paystack",
		EventType: "charge.failed",
		Reference: ref,
		Status:    paymentgw.StatusFailed,
	}
}

func TestPaymentUseCase_VerifyThenWebhook_ConfirmsOnce(t *testing.T) {
	f := newPaymentFixture(t, 10)
	ctx := context.Background()

	b := f.startBooking(t)
	ref := f.initPayment(t, b)
	f.gateway.verify[ref] = &paymentgw.VerificationResult{Reference: ref, Status: paymentgw.StatusSuccess}

	resolution, err := f.uc.VerifyPayment(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, payment.StatusSuccessful, resolution.Status)
	require.False(t, resolution.RefundRequired)
	require.Equal(t, booking.StatusConfirmed, f.bookings.status(b.Booking.ID()))

	// 同じ成功が webhook からも届く。全て素通りで、確定もチケット発行も一度きり
	f.gateway.event = successEvent(ref)
	require.NoError(t, f.uc.HandleWebhook(ctx, "paystack", "sig", []byte(`{}`)))

	require.Equal(t, 1, f.bookings.artifactSet)
	require.Equal(t, 1, f.notifier.count(notification.TopicBookingConfirmed))
	require.Equal(t, payment.StatusSuccessful, f.payments.get(ref).Status())
}

func TestPaymentUseCase_FailedPayment_CancelsAndRestoresOnce(t *testing.T) {
	f := newPaymentFixture(t, 10)
	ctx := context.Background()

	b := f.startBooking(t)
	ref := f.initPayment(t, b)

	f.gateway.event = failureEvent(ref)
	require.NoError(t, f.uc.HandleWebhook(ctx, "paystack", "sig", []byte(`{}`)))

	require.Equal(t, payment.StatusFailed, f.payments.get(ref).Status())
	require.Equal(t, booking.StatusCancelled, f.bookings.status(b.Booking.ID()))
	require.Equal(t, 1, f.events.restores)

	// 失敗イベントの再送は ack されるだけ
	require.NoError(t, f.uc.HandleWebhook(ctx, "paystack", "sig", []byte(`{}`)))
	require.Equal(t, 1, f.events.restores)
	require.Equal(t, 1, f.notifier.count(notification.TopicPaymentFailed))
}

func TestPaymentUseCase_PaidAfterExpiry_FlagsRefund(t *testing.T) {
	f := newPaymentFixture(t, 10)
	ctx := context.Background()

	b := f.startBooking(t)
	ref := f.initPayment(t, b)

	// 掃き出しがホールド切れでキャンセルした後に成功シグナルが届く
	f.clk.Add(testHoldDuration + time.Minute)
	_, err := f.bookingFixture.uc.SystemCancel(ctx, b.Booking.ID(), "hold expired")
	require.NoError(t, err)

	f.gateway.verify[ref] = &paymentgw.VerificationResult{Reference: ref, Status: paymentgw.StatusSuccess}
	resolution, err := f.uc.VerifyPayment(ctx, ref)
	require.NoError(t, err)

	require.Equal(t, payment.StatusSuccessful, resolution.Status)
	require.True(t, resolution.RefundRequired)
	require.Equal(t, booking.StatusCancelled, f.bookings.status(b.Booking.ID()))
	require.True(t, f.payments.get(ref).RefundRequired())
	require.Equal(t, 1, f.notifier.count(notification.TopicRefundRequired))
}

func TestPaymentUseCase_DuplicateSuccess_SecondChargeFlaggedForRefund(t *testing.T) {
	f := newPaymentFixture(t, 10)
	ctx := context.Background()

	b := f.startBooking(t)
	refA := f.initPayment(t, b)
	refB := f.initPayment(t, b)

	f.gateway.event = successEvent(refA)
	require.NoError(t, f.uc.HandleWebhook(ctx, "paystack", "sig", []byte(`{}`)))
	require.Equal(t, booking.StatusConfirmed, f.bookings.status(b.Booking.ID()))

	// 同じ予約のもう一方の決済も成功して届く。SUCCESSFUL は予約ごとに一行までなので
	// 二本目は成功扱いにならず、二重課金として返金対象に立つ
	f.gateway.event = successEvent(refB)
	require.NoError(t, f.uc.HandleWebhook(ctx, "paystack", "sig", []byte(`{}`)))

	require.Equal(t, 1, f.payments.successfulCount(b.Booking.ID()))
	require.Equal(t, payment.StatusPending, f.payments.get(refB).Status())
	require.True(t, f.payments.get(refB).RefundRequired())
	require.Equal(t, 1, f.notifier.count(notification.TopicRefundRequired))

	// verify 経由でも同じ答えに収束する
	f.gateway.verify[refB] = &paymentgw.VerificationResult{Reference: refB, Status: paymentgw.StatusSuccess}
	resolution, err := f.uc.VerifyPayment(ctx, refB)
	require.NoError(t, err)
	require.True(t, resolution.RefundRequired)
	require.Equal(t, 1, f.payments.successfulCount(b.Booking.ID()))
}

func TestPaymentUseCase_HandleWebhook_InvalidSignatureHasNoSideEffects(t *testing.T) {
	f := newPaymentFixture(t, 10)
	ctx := context.Background()

	b := f.startBooking(t)
	ref := f.initPayment(t, b)

	f.gateway.sigErr = paymentgw.ErrInvalidSignature
	f.gateway.event = successEvent(ref)

	err := f.uc.HandleWebhook(ctx, "paystack", "bad-sig", []byte(`{}`))
	require.ErrorIs(t, err, ErrSignatureInvalid)

	require.Equal(t, payment.StatusPending, f.payments.get(ref).Status())
	require.Equal(t, booking.StatusPending, f.bookings.status(b.Booking.ID()))
}

func TestPaymentUseCase_VerifyPayment_IndeterminateStaysPending(t *testing.T) {
	f := newPaymentFixture(t, 10)
	ctx := context.Background()

	b := f.startBooking(t)
	ref := f.initPayment(t, b)

	f.gateway.verifyErr = paymentgw.ErrProviderCall

	_, err := f.uc.VerifyPayment(ctx, ref)
	require.ErrorIs(t, err, ErrUpstreamPayment)
	require.Equal(t, payment.StatusPending, f.payments.get(ref).Status())
	require.Equal(t, booking.StatusPending, f.bookings.status(b.Booking.ID()))
}
