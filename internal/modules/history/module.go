package history

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/fx"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/config"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/history/service"
	"github.com/dev0xiinko/xiinko-trading-bot/pkg/db"
)

// Module выбирает хранилище истории: Postgres при заданном DSN,
// иначе кольцо в памяти.
func Module() fx.Option {
	return fx.Module("history",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (service.Sink, error) {
				if cfg.DB == "" {
					log.Println("[HISTORY] DSN не задан, история сделок в памяти")
					return service.NewMemorySink(1000), nil
				}

				pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
				if err != nil {
					return nil, fmt.Errorf("failed to create pool: %w", err)
				}
				if err := pool.Ping(ctx); err != nil {
					return nil, fmt.Errorf("failed to ping db: %w", err)
				}

				tm := db.NewPgTxManager(pool)
				sink := service.NewPgSink(tm)
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return sink.EnsureSchema(ctx)
					},
					OnStop: func(context.Context) error {
						tm.Close()
						return nil
					},
				})
				log.Println("[HISTORY] история сделок в Postgres")
				return sink, nil
			},
		),
	)
}
