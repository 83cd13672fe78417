// Package worker hosts the periodic expiry sweep: the durable backstop that
// releases inventory held by bookings whose payment never arrived.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ticketing/internal/usecase/commands"
)

// Sweeper は固定間隔で猶予切れ PENDING を探し、cancel の補償経路に流す。
// アクセラレータのマーカーが消えても在庫が漏れ続けないための最後の砦。
type Sweeper struct {
	bookings commands.BookingCommands
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(bookings commands.BookingCommands, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		bookings: bookings,
		interval: interval,
		logger:   logger,
	}
}

// Run は ctx がキャンセルされるまでブロックする。bootstrap の fx ライフサイクルから
// goroutine として起動される。
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce は 1 周分の掃き出し。1 件の失敗で残りを道連れにしない——
// 並行する confirm に負けた予約は AlreadyTerminal になるだけで正常系。
func (s *Sweeper) SweepOnce(ctx context.Context) (cancelled int) {
	ids, err := s.bookings.ListExpiredPending(ctx)
	if err != nil {
		s.logger.Error("failed to list expired bookings", "error", err)
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	for _, id := range ids {
		if _, err := s.bookings.SystemCancel(ctx, id, "hold expired"); err != nil {
			if errors.Is(err, commands.ErrAlreadyTerminal) || errors.Is(err, commands.ErrBookingNotFound) {
				continue // 列挙とキャンセルの間に confirm された等。スキップして次へ
			}
			s.logger.Error("failed to cancel expired booking", "booking_id", id, "error", err)
			continue
		}
		cancelled++
	}

	if cancelled > 0 {
		s.logger.Info("expiry sweep released lapsed holds", "cancelled", cancelled, "candidates", len(ids))
	}
	return cancelled
}
