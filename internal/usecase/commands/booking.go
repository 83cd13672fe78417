package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ticketing/internal/domain/booking"
	"ticketing/internal/infra"
	"ticketing/internal/infra/db"
	"ticketing/internal/notification"
	"ticketing/internal/pkg/clock"
	"ticketing/internal/pkg/config"
	"ticketing/internal/pkg/errs"
	"ticketing/internal/pkg/reference"
	"ticketing/internal/ticket"
	"ticketing/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrEventNotFound            = errs.New("event not found")
	ErrEventNotBookable         = errs.New("event is not bookable")
	ErrInsufficientAvailability = errs.New("insufficient availability")
	ErrInvalidQuantity          = errs.New("quantity must be positive")
	ErrBookingNotFound          = errs.New("booking not found")
	ErrNotBookingOwner          = errs.New("booking does not belong to actor")
	ErrAlreadyTerminal          = errs.New("booking is already terminal")
	ErrHoldExpired              = errs.New("booking hold has expired")
	ErrDatabaseOperationFailed  = errs.New("database operation failed")
)

type StartBookingResult struct {
	Booking       *booking.Booking
	HoldExpiresAt time.Time
}

type TicketVerification struct {
	Valid   bool
	Status  string // EARLY | VALID | EXPIRED | PENDING | CANCELLED | USED
	Message string
	Booking *booking.Booking
}

type BookingCommands interface {
	StartBooking(ctx context.Context, userID, eventID uuid.UUID, quantity int32) (*StartBookingResult, error)
	// ConfirmBooking は決済照合レイヤからのみ呼ばれる。既に CONFIRMED の場合は
	// 同じ予約をそのまま返す（verify と webhook の競合を冪等に収束させるため）。
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID, paymentReference string) (*booking.Booking, error)
	CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*booking.Booking, error)
	// SystemCancel は掃き出しと決済失敗の補償経路。所有者チェックを行わない。
	SystemCancel(ctx context.Context, bookingID uuid.UUID, reason string) (*booking.Booking, error)
	ListExpiredPending(ctx context.Context) ([]uuid.UUID, error)
	VerifyTicket(ctx context.Context, bookingReference string) (*TicketVerification, error)
}

type bookingUseCaseImpl struct {
	events       EventRepository
	bookings     BookingRepository
	holds        HoldStore
	issuer       *ticket.Issuer
	notifier     notification.Notifier
	pool         db.Pool
	clock        clock.Clock
	holdDuration time.Duration
	logger       *slog.Logger
}

func NewBookingUseCase(
	events EventRepository,
	bookings BookingRepository,
	holds HoldStore,
	issuer *ticket.Issuer,
	notifier notification.Notifier,
	pool db.Pool,
	clk clock.Clock,
	cfg config.BookingConfig,
	logger *slog.Logger,
) BookingCommands {
	return &bookingUseCaseImpl{
		events:       events,
		bookings:     bookings,
		holds:        holds,
		issuer:       issuer,
		notifier:     notifier,
		pool:         pool,
		clock:        clk,
		holdDuration: cfg.HoldDuration,
		logger:       logger,
	}
}

func (u *bookingUseCaseImpl) StartBooking(ctx context.Context, userID, eventID uuid.UUID, quantity int32) (*StartBookingResult, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	now := u.clock.Now()

	created, err := shared.WithDefaultRetry(ctx, u.pool, func(tx db.DBTX) (*booking.Booking, error) {
		ev, err := u.events.FindByID(ctx, tx, eventID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, ErrEventNotFound
			}
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := ev.CheckBookable(now); err != nil {
			return nil, errs.Mark(err, ErrEventNotBookable)
		}

		// 条件付きデクリメント。ここが oversell 防止の唯一の関門で、
		// 上の CheckBookable は分かりやすいエラーを返すための事前診断にすぎない。
		reserved, err := u.events.ReserveCapacity(ctx, tx, eventID, quantity, now)
		if err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if !reserved {
			return nil, ErrInsufficientAvailability
		}

		b, err := u.newBookingWithReference(ctx, tx, userID, ev.ID(), quantity, ev.PriceCents(), now)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}

	// コミット後のベストエフォート。失敗しても予約は成立している
	u.holds.Arm(ctx, created.ID())
	u.notifier.Notify(ctx, notification.TopicBookingCreated, notification.Payload{
		BookingID:        created.ID(),
		BookingReference: created.BookingReference(),
	}).Log(u.logger, notification.TopicBookingCreated)

	return &StartBookingResult{
		Booking:       created,
		HoldExpiresAt: created.HoldExpiresAt(u.holdDuration),
	}, nil
}

// newBookingWithReference は参照コードのユニーク制約衝突時に一度だけ再生成する。
func (u *bookingUseCaseImpl) newBookingWithReference(
	ctx context.Context,
	tx db.DBTX,
	userID, eventID uuid.UUID,
	quantity int32,
	priceCents int64,
	now time.Time,
) (*booking.Booking, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ref, err := reference.NewBookingReference()
		if err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}

		b, err := booking.NewBooking(userID, eventID, quantity, priceCents, ref, now)
		if err != nil {
			return nil, errs.Mark(err, ErrInvalidQuantity)
		}

		if err := u.bookings.Create(ctx, tx, b); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) && attempt == 0 {
				continue
			}
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return b, nil
	}
	return nil, ErrDatabaseOperationFailed
}

func (u *bookingUseCaseImpl) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, paymentReference string) (*booking.Booking, error) {
	b, err := u.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.IsConfirmed() {
		return b, nil // 冪等: 二本目の成功シグナルは素通り
	}
	if b.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	// ホールド判定はリレーショナル側の createdAt を正とする。Redis のマーカーは
	// TTL 付きの加速用にすぎず、eviction やリストアで実際より長生きし得るため判定には使わない。
	now := u.clock.Now()
	if b.HoldLapsed(now, u.holdDuration) {
		if _, cancelErr := u.SystemCancel(ctx, bookingID, "hold expired"); cancelErr != nil && !errors.Is(cancelErr, ErrAlreadyTerminal) {
			u.logger.Error("failed to cancel lapsed booking during confirm",
				"booking_id", bookingID, "error", cancelErr)
		}
		return nil, ErrHoldExpired
	}

	confirmed, err := shared.RunInTx(ctx, u.pool, func(tx db.DBTX) (bool, error) {
		ok, err := u.bookings.UpdateStatusConfirmed(ctx, tx, bookingID, paymentReference, now)
		if err != nil {
			return false, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}

	if !confirmed {
		// 競合に負けた。再読込して冪等に解決する
		b, err = u.findBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if b.IsConfirmed() {
			return b, nil
		}
		return nil, ErrAlreadyTerminal
	}

	u.holds.Disarm(ctx, bookingID)
	u.issueTicket(ctx, bookingID, b.BookingReference())
	u.notifier.Notify(ctx, notification.TopicBookingConfirmed, notification.Payload{
		BookingID:        bookingID,
		BookingReference: b.BookingReference(),
		PaymentReference: paymentReference,
	}).Log(u.logger, notification.TopicBookingConfirmed)

	return u.findBooking(ctx, bookingID)
}

func (u *bookingUseCaseImpl) CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*booking.Booking, error) {
	b, err := u.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID() != actorID {
		return nil, ErrNotBookingOwner
	}
	return u.SystemCancel(ctx, bookingID, reason)
}

func (u *bookingUseCaseImpl) SystemCancel(ctx context.Context, bookingID uuid.UUID, reason string) (*booking.Booking, error) {
	b, err := u.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.IsTerminal() {
		return nil, ErrAlreadyTerminal
	}

	now := u.clock.Now()

	cancelled, err := shared.WithDefaultRetry(ctx, u.pool, func(tx db.DBTX) (bool, error) {
		ok, err := u.bookings.UpdateStatusCancelled(ctx, tx, bookingID, reason, now)
		if err != nil {
			return false, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if !ok {
			return false, nil
		}
		// ステータス遷移が 1 行成立した場合に限り在庫を戻す（同一トランザクション、二重戻しなし）
		if err := u.events.RestoreCapacity(ctx, tx, b.EventID(), b.Quantity()); err != nil {
			return false, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !cancelled {
		// 並行する confirm/sweep に負けた
		return nil, ErrAlreadyTerminal
	}

	u.holds.Disarm(ctx, bookingID)
	u.notifier.Notify(ctx, notification.TopicBookingCancelled, notification.Payload{
		BookingID:        bookingID,
		BookingReference: b.BookingReference(),
		Reason:           reason,
	}).Log(u.logger, notification.TopicBookingCancelled)

	return u.findBooking(ctx, bookingID)
}

func (u *bookingUseCaseImpl) ListExpiredPending(ctx context.Context) ([]uuid.UUID, error) {
	cutoff := u.clock.Now().Add(-u.holdDuration)
	ids, err := u.bookings.FindExpiredPendingIDs(ctx, u.pool, cutoff)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return ids, nil
}

func (u *bookingUseCaseImpl) VerifyTicket(ctx context.Context, bookingReference string) (*TicketVerification, error) {
	b, err := u.bookings.FindByReference(ctx, u.pool, bookingReference)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	switch b.Status() {
	case booking.StatusPending:
		return &TicketVerification{Valid: false, Status: "PENDING", Message: "booking has not been paid for", Booking: b}, nil
	case booking.StatusCancelled:
		return &TicketVerification{Valid: false, Status: "CANCELLED", Message: "booking was cancelled", Booking: b}, nil
	case booking.StatusCompleted:
		return &TicketVerification{Valid: false, Status: "USED", Message: "ticket has already been used", Booking: b}, nil
	}

	ev, err := u.events.FindByID(ctx, u.pool, b.EventID())
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	now := u.clock.Now()
	switch {
	case !ev.HasStarted(now):
		return &TicketVerification{Valid: false, Status: "EARLY", Message: "event has not started yet", Booking: b}, nil
	case ev.HasEnded(now):
		return &TicketVerification{Valid: false, Status: "EXPIRED", Message: "event has already ended", Booking: b}, nil
	}

	// 開催時間内の提示で一度だけ COMPLETED へ。条件付き UPDATE が同時提示を一名に絞る
	completed, err := shared.RunInTx(ctx, u.pool, func(tx db.DBTX) (bool, error) {
		ok, err := u.bookings.UpdateStatusCompleted(ctx, tx, b.ID(), now)
		if err != nil {
			return false, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}
	if !completed {
		return &TicketVerification{Valid: false, Status: "USED", Message: "ticket has already been used", Booking: b}, nil
	}

	return &TicketVerification{Valid: true, Status: "VALID", Message: "ticket verified", Booking: b}, nil
}

func (u *bookingUseCaseImpl) findBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, err := u.bookings.FindByID(ctx, u.pool, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return b, nil
}

// issueTicket は confirm 成立後のベストエフォート発行。失敗しても confirm は巻き戻さない
// （アーティファクトは bookingReference から常に再生成できる派生データ）。
func (u *bookingUseCaseImpl) issueTicket(ctx context.Context, bookingID uuid.UUID, bookingReference string) {
	res := u.issuer.Issue(bookingReference)
	res.Log(u.logger, bookingReference)
	if res.Err != nil {
		return
	}

	if err := u.bookings.SetTicketArtifact(ctx, u.pool, bookingID, res.Artifact, u.clock.Now()); err != nil {
		u.logger.Warn("failed to store ticket artifact", "booking_id", bookingID, "error", err)
	}
}
