package engine

import (
	"context"
	"log"
	"time"

	"go.uber.org/fx"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/config"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/state"
)

// Module собирает стор и движок, вешает таймер циклов на lifecycle.
func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			newStore,
			newEngine,
		),
		fx.Invoke(registerCycleTimer),
	)
}

func newStore(cfg *config.Config) *state.Store {
	tc := models.TradeConfig{
		Margin:      cfg.Trading.Margin,
		Leverage:    cfg.Trading.Leverage,
		MaxLeverage: cfg.Trading.MaxLeverage,
	}
	return state.New(tc, cfg.Trading.LogCapacity)
}

func newEngine(cfg *config.Config, store *state.Store, ex Exchange, sink History, n Notifier) *Engine {
	return New(store, ex, sink, n, Options{
		Instruments:     cfg.Trading.Instruments,
		Timeframe:       cfg.Trading.Timeframe,
		CandleLimit:     cfg.Trading.CandleLimit,
		FastPeriod:      cfg.Trading.FastPeriod,
		SlowPeriod:      cfg.Trading.SlowPeriod,
		Cooldown:        cfg.Trading.Cooldown,
		InstrumentPause: cfg.Trading.InstrumentPause,
		WatchTopN:       cfg.Trading.WatchTopN,
	})
}

func registerCycleTimer(lc fx.Lifecycle, e *Engine, cfg *config.Config) {
	interval := cfg.Trading.CycleInterval
	loopCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			e.EnsureWatchlist(ctx)
			if interval <= 0 {
				log.Println("[CYCLE] таймер выключен (CYCLE_INTERVAL=0), запуск только через API")
				return nil
			}
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-loopCtx.Done():
						return
					case <-ticker.C:
						e.RunCycle(loopCtx)
					}
				}
			}()
			log.Printf("[CYCLE] таймер запущен: каждые %s", interval)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
