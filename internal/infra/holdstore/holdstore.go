package holdstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// opTimeout はアクセラレータ操作の上限。超えたら諦めてリレーショナル側に任せる。
const opTimeout = 2 * time.Second

// HoldStore は「まだ支払い猶予内」を示す TTL 付きマーカーを Redis に置く。
// マーカーはあくまで高速化のためのもので、真実は bookings.created_at + holdDuration 側にある。
// 書き込み・削除の失敗は正しさに影響しないため、ログだけ残して呑み込む。
type HoldStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *HoldStore {
	return &HoldStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func key(bookingID uuid.UUID) string {
	return "booking:hold:" + bookingID.String()
}

// Arm は予約成立直後にホールドマーカーを立てる（ベストエフォート）。
func (s *HoldStore) Arm(ctx context.Context, bookingID uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, key(bookingID), "1", s.ttl).Err(); err != nil {
		s.logger.Warn("failed to arm hold marker", "booking_id", bookingID, "error", err)
	}
}

// Disarm は confirm/cancel 後にマーカーを消す（ベストエフォート）。
// 消し損ねても TTL で消えるだけで、以後の判定には影響しない。
func (s *HoldStore) Disarm(ctx context.Context, bookingID uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, key(bookingID)).Err(); err != nil {
		s.logger.Warn("failed to disarm hold marker", "booking_id", bookingID, "error", err)
	}
}
