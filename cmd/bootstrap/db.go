package bootstrap

import (
	"context"

	"ticketing/internal/infra/db"
	"ticketing/internal/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var DBModule = fx.Module("db",
	fx.Provide(
		NewDB,
		AsPool,
	),
)

// AsPool は具象プールを usecase 層が要求するハンドル型で提供し直す。
func AsPool(pool *pgxpool.Pool) db.Pool {
	return pool
}

func NewDB(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	pool, cleanup, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
	})

	return pool, nil
}
