package marketws

import (
	"context"
	"log"

	"go.uber.org/fx"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/config"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/marketws/service"
)

// Module поднимает стрим последних цен. Гейтится флагом ws_enabled:
// REST-циклу стрим не нужен, это только свежие цены в сторе и статусе.
func Module() fx.Option {
	return fx.Module("marketws",
		fx.Provide(service.NewStream),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, s *service.Stream) {
			if !cfg.WSEnabled {
				log.Println("[WS] стрим выключен (WS_ENABLED=false)")
				return
			}
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go s.Run(runCtx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
