package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ticketing/internal/domain/payment"
	paymentgw "ticketing/internal/gateway/payment"
	"ticketing/internal/infra"
	"ticketing/internal/infra/db"
	"ticketing/internal/notification"
	"ticketing/internal/pkg/clock"
	"ticketing/internal/pkg/config"
	"ticketing/internal/pkg/errs"
	"ticketing/internal/pkg/reference"
	"ticketing/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrPaymentNotFound   = errs.New("payment not found")
	ErrInvalidProvider   = errs.New("unsupported payment provider")
	ErrBookingNotPayable = errs.New("booking cannot accept a payment")
	ErrSignatureInvalid  = errs.New("webhook signature verification failed")
	ErrMalformedWebhook  = errs.New("webhook payload is malformed")
	ErrUpstreamPayment   = errs.New("payment provider unavailable")
)

type InitializePaymentResult struct {
	Reference        string
	AuthorizationURL string
	QRCode           string
	AmountCents      int64
}

type PaymentResolution struct {
	Reference      string
	Status         payment.Status
	RefundRequired bool
	BookingID      uuid.UUID
}

type PaymentCommands interface {
	InitializePayment(ctx context.Context, bookingID, userID uuid.UUID, provider, email string) (*InitializePaymentResult, error)
	// VerifyPayment は同期照会経路。解決済みなら現状をそのまま返す（プロバイダには問い合わせない）。
	VerifyPayment(ctx context.Context, ref string) (*PaymentResolution, error)
	// HandleWebhook は非同期通知経路。署名検証に失敗した場合は一切の副作用なしで弾く。
	HandleWebhook(ctx context.Context, provider, signature string, body []byte) error
}

// paymentUseCaseImpl は verify / webhook の二系統を一つの遷移へ収束させる照合コーディネータ。
// 自前のリトライは持たない——冪等性がプロバイダ側の再送をそのまま安全にする。
type paymentUseCaseImpl struct {
	payments    PaymentRepository
	bookings    BookingRepository
	transitions BookingCommands
	registry    *paymentgw.Registry
	notifier    notification.Notifier
	pool        db.Pool
	clock       clock.Clock
	callback    string
	logger      *slog.Logger
}

func NewPaymentUseCase(
	payments PaymentRepository,
	bookings BookingRepository,
	transitions BookingCommands,
	registry *paymentgw.Registry,
	notifier notification.Notifier,
	pool db.Pool,
	clk clock.Clock,
	cfg config.PaymentConfig,
	logger *slog.Logger,
) PaymentCommands {
	return &paymentUseCaseImpl{
		payments:    payments,
		bookings:    bookings,
		transitions: transitions,
		registry:    registry,
		notifier:    notifier,
		pool:        pool,
		clock:       clk,
		callback:    cfg.CallbackURL,
		logger:      logger,
	}
}

func (u *paymentUseCaseImpl) InitializePayment(ctx context.Context, bookingID, userID uuid.UUID, provider, email string) (*InitializePaymentResult, error) {
	gw, err := u.registry.Get(provider)
	if err != nil {
		return nil, ErrInvalidProvider
	}

	b, err := u.bookings.FindByID(ctx, u.pool, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if b.UserID() != userID {
		return nil, ErrNotBookingOwner
	}
	if !b.IsPending() {
		return nil, ErrBookingNotPayable
	}

	ref, err := reference.NewPaymentReference()
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	now := u.clock.Now()
	p, err := payment.NewPayment(bookingID, b.TotalAmountCents(), payment.Provider(provider), ref, now)
	if err != nil {
		return nil, errs.Mark(err, ErrBookingNotPayable)
	}

	if err := u.payments.Create(ctx, u.pool, p); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	// プロバイダ呼び出しはタイムアウト付き。失敗しても Payment 行は PENDING のまま残り、
	// 後からの initialize やり直し・verify 再試行を妨げない
	init, err := gw.Initialize(ctx, paymentgw.InitializeRequest{
		Reference:   ref,
		AmountCents: p.AmountCents(),
		Email:       email,
		CallbackURL: u.callback,
		Metadata: map[string]string{
			"booking_id":        bookingID.String(),
			"booking_reference": b.BookingReference(),
		},
	})
	if err != nil {
		return nil, errs.Mark(err, ErrUpstreamPayment)
	}

	if init.ProviderRef != "" {
		if err := u.payments.SetProviderReference(ctx, u.pool, ref, init.ProviderRef, u.clock.Now()); err != nil {
			u.logger.Warn("failed to store provider reference", "reference", ref, "error", err)
		}
	}

	return &InitializePaymentResult{
		Reference:        ref,
		AuthorizationURL: init.AuthorizationURL,
		QRCode:           init.QRCode,
		AmountCents:      p.AmountCents(),
	}, nil
}

func (u *paymentUseCaseImpl) VerifyPayment(ctx context.Context, ref string) (*PaymentResolution, error) {
	p, err := u.findPayment(ctx, ref)
	if err != nil {
		return nil, err
	}

	// 冪等ガード: 既に終端なら現状を返すだけ（webhook 先着のケース）
	if p.IsResolved() {
		return u.resolutionOf(p), nil
	}

	gw, err := u.registry.Get(string(p.Provider()))
	if err != nil {
		return nil, ErrInvalidProvider
	}

	vr, err := gw.Verify(ctx, ref)
	if err != nil {
		// タイムアウト含む indeterminate。FAILED と断定せず PENDING のまま再試行可能にする
		return nil, errs.Mark(err, ErrUpstreamPayment)
	}

	switch vr.Status {
	case paymentgw.StatusSuccess:
		return u.applySuccess(ctx, p, vr.PaidAt)
	case paymentgw.StatusFailed:
		return u.applyFailure(ctx, p)
	default:
		return &PaymentResolution{Reference: ref, Status: payment.StatusPending, BookingID: p.BookingID()}, nil
	}
}

func (u *paymentUseCaseImpl) HandleWebhook(ctx context.Context, provider, signature string, body []byte) error {
	gw, err := u.registry.Get(provider)
	if err != nil {
		return ErrInvalidProvider
	}

	// 署名検証は全ての副作用より前
	if err := gw.VerifySignature(signature, body); err != nil {
		return ErrSignatureInvalid
	}

	ev, err := gw.ParseWebhook(body)
	if err != nil {
		return errs.Mark(err, ErrMalformedWebhook)
	}

	p, err := u.findPayment(ctx, ev.Reference)
	if err != nil {
		return err
	}

	// 重複配信は ack して終わり
	if p.IsResolved() {
		return nil
	}

	switch ev.Status {
	case paymentgw.StatusSuccess:
		_, err = u.applySuccess(ctx, p, ev.PaidAt)
	case paymentgw.StatusFailed:
		_, err = u.applyFailure(ctx, p)
	default:
		// 中間イベントは無視（終了イベントの再送に任せる）
	}
	return err
}

// applySuccess は Payment を SUCCESSFUL に終端化し、予約の confirm を試みる。
// confirm が猶予切れで拒まれても決済記録は成功のまま残し、手動返金対象として立てる。
func (u *paymentUseCaseImpl) applySuccess(ctx context.Context, p *payment.Payment, paidAt *time.Time) (*PaymentResolution, error) {
	now := u.clock.Now()
	when := now
	if paidAt != nil {
		when = *paidAt
	}

	resolved, err := shared.RunInTx(ctx, u.pool, func(tx db.DBTX) (bool, error) {
		ok, err := u.payments.UpdateResolved(ctx, tx, p.Reference(), payment.StatusSuccessful, &when, now)
		if err != nil {
			return false, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return ok, nil
	})
	if err != nil {
		// 部分ユニークインデックスに弾かれた = 同じ予約の別決済が既に SUCCESSFUL。
		// この決済も実際に課金されているので、成功扱いにはせず返金対象として立てる
		if infra.IsKind(err, infra.KindDuplicateKey) {
			return u.flagDuplicateCharge(ctx, p)
		}
		return nil, err
	}
	if !resolved {
		// もう一方の経路が先に終端化した。現状を読み直して返す
		current, err := u.findPayment(ctx, p.Reference())
		if err != nil {
			return nil, err
		}
		return u.resolutionOf(current), nil
	}

	_, confirmErr := u.transitions.ConfirmBooking(ctx, p.BookingID(), p.Reference())
	if confirmErr != nil {
		if errors.Is(confirmErr, ErrHoldExpired) || errors.Is(confirmErr, ErrAlreadyTerminal) {
			return u.flagPaidAfterExpiry(ctx, p)
		}
		return nil, confirmErr
	}

	return &PaymentResolution{
		Reference: p.Reference(),
		Status:    payment.StatusSuccessful,
		BookingID: p.BookingID(),
	}, nil
}

func (u *paymentUseCaseImpl) applyFailure(ctx context.Context, p *payment.Payment) (*PaymentResolution, error) {
	now := u.clock.Now()

	resolved, err := shared.RunInTx(ctx, u.pool, func(tx db.DBTX) (bool, error) {
		ok, err := u.payments.UpdateResolved(ctx, tx, p.Reference(), payment.StatusFailed, nil, now)
		if err != nil {
			return false, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}
	if !resolved {
		current, err := u.findPayment(ctx, p.Reference())
		if err != nil {
			return nil, err
		}
		return u.resolutionOf(current), nil
	}

	if _, cancelErr := u.transitions.SystemCancel(ctx, p.BookingID(), "payment failed"); cancelErr != nil {
		if !errors.Is(cancelErr, ErrAlreadyTerminal) {
			return nil, cancelErr
		}
	}

	u.notifier.Notify(ctx, notification.TopicPaymentFailed, notification.Payload{
		BookingID:        p.BookingID(),
		PaymentReference: p.Reference(),
	}).Log(u.logger, notification.TopicPaymentFailed)

	return &PaymentResolution{
		Reference: p.Reference(),
		Status:    payment.StatusFailed,
		BookingID: p.BookingID(),
	}, nil
}

// flagPaidAfterExpiry: 支払い成功後に予約が失効していた齟齬。黙って握り潰さず、
// 返金フラグと通知で人の目に届くところまで上げる。
func (u *paymentUseCaseImpl) flagPaidAfterExpiry(ctx context.Context, p *payment.Payment) (*PaymentResolution, error) {
	u.logger.Error("payment succeeded after booking hold expired, manual refund required",
		"reference", p.Reference(), "booking_id", p.BookingID())
	return u.flagRefund(ctx, p, payment.StatusSuccessful, "paid after hold expiry")
}

// flagDuplicateCharge: 成功決済が既に存在する予約への二本目の成功シグナル。
// 予約の成立状態には触れず、二重課金分だけを返金対象として立てる。
// 決済行は PENDING のまま残る（SUCCESSFUL は予約ごとに一行という不変条件を守るため）。
func (u *paymentUseCaseImpl) flagDuplicateCharge(ctx context.Context, p *payment.Payment) (*PaymentResolution, error) {
	u.logger.Error("duplicate successful charge for booking, manual refund required",
		"reference", p.Reference(), "booking_id", p.BookingID())
	return u.flagRefund(ctx, p, p.Status(), "duplicate charge for booking")
}

func (u *paymentUseCaseImpl) flagRefund(ctx context.Context, p *payment.Payment, status payment.Status, reason string) (*PaymentResolution, error) {
	now := u.clock.Now()
	if err := u.payments.FlagRefundRequired(ctx, u.pool, p.Reference(), now); err != nil {
		u.logger.Error("failed to flag refund", "reference", p.Reference(), "error", err)
	}

	u.notifier.Notify(ctx, notification.TopicRefundRequired, notification.Payload{
		BookingID:        p.BookingID(),
		PaymentReference: p.Reference(),
		Reason:           reason,
	}).Log(u.logger, notification.TopicRefundRequired)

	return &PaymentResolution{
		Reference:      p.Reference(),
		Status:         status,
		RefundRequired: true,
		BookingID:      p.BookingID(),
	}, nil
}

func (u *paymentUseCaseImpl) resolutionOf(p *payment.Payment) *PaymentResolution {
	return &PaymentResolution{
		Reference:      p.Reference(),
		Status:         p.Status(),
		RefundRequired: p.RefundRequired(),
		BookingID:      p.BookingID(),
	}
}

func (u *paymentUseCaseImpl) findPayment(ctx context.Context, ref string) (*payment.Payment, error) {
	p, err := u.payments.FindByReference(ctx, u.pool, ref)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return p, nil
}
