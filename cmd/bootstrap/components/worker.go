package components

import (
	"context"
	"log/slog"

	"ticketing/internal/pkg/config"
	"ticketing/internal/usecase/commands"
	"ticketing/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewSweeper,
	),
	fx.Invoke(StartSweeper),
)

func NewSweeper(bookings commands.BookingCommands, cfg config.BookingConfig, logger *slog.Logger) *worker.Sweeper {
	return worker.NewSweeper(bookings, cfg.SweepInterval, logger)
}

func StartSweeper(lc fx.Lifecycle, sweeper *worker.Sweeper) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				sweeper.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
