// Package notification は確定済みの状態遷移に後追いで通知を流す。
// 失敗しても遷移は巻き戻さない——結果を型として返し、呼び出し側はログに残すだけ。
package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ticketing/internal/infra/db"
	"ticketing/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Topic string

const (
	TopicBookingCreated   Topic = "booking_created"
	TopicBookingConfirmed Topic = "booking_confirmed"
	TopicBookingCancelled Topic = "booking_cancelled"
	TopicPaymentFailed    Topic = "payment_failed"
	TopicRefundRequired   Topic = "refund_required"
)

// Result は明示的なベストエフォート結果。Err が入っていても呼び出し元の処理は失敗しない。
type Result struct {
	Delivered bool
	Err       error
}

func (r Result) Log(logger *slog.Logger, topic Topic) {
	if r.Err != nil {
		logger.Warn("notification delivery failed", "topic", string(topic), "error", r.Err)
	}
}

type Payload struct {
	BookingID        uuid.UUID `json:"booking_id"`
	BookingReference string    `json:"booking_reference,omitempty"`
	PaymentReference string    `json:"payment_reference,omitempty"`
	Reason           string    `json:"reason,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, topic Topic, payload Payload) Result
}

type JobRepository interface {
	CreateJob(ctx context.Context, tx db.DBTX, kind, topic string, payload []byte, runAt time.Time) error
}

// jobNotifier は通知ジョブ行を積むだけの実装。配送自体は外部コラボレータの仕事。
type jobNotifier struct {
	repo  JobRepository
	pool  *pgxpool.Pool
	clock clock.Clock
}

func NewJobNotifier(repo JobRepository, pool *pgxpool.Pool, clk clock.Clock) Notifier {
	return &jobNotifier{repo: repo, pool: pool, clock: clk}
}

func (n *jobNotifier) Notify(ctx context.Context, topic Topic, payload Payload) Result {
	data, err := json.Marshal(payload)
	if err != nil {
		return Result{Err: err}
	}

	if err := n.repo.CreateJob(ctx, n.pool, "email", string(topic), data, n.clock.Now()); err != nil {
		return Result{Err: err}
	}
	return Result{Delivered: true}
}
