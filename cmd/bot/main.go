package main

import (
	"context"

	"go.uber.org/fx"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/engine"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/api"
	apiservice "github.com/dev0xiinko/xiinko-trading-bot/internal/modules/api/service"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/config"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/history"
	historyservice "github.com/dev0xiinko/xiinko-trading-bot/internal/modules/history/service"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/marketws"
	marketwsservice "github.com/dev0xiinko/xiinko-trading-bot/internal/modules/marketws/service"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/okx"
	okxservice "github.com/dev0xiinko/xiinko-trading-bot/internal/modules/okx/service"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/settings"
	settingsservice "github.com/dev0xiinko/xiinko-trading-bot/internal/modules/settings/service"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/notify"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/state"
	"github.com/dev0xiinko/xiinko-trading-bot/pkg/logger"
	"github.com/dev0xiinko/xiinko-trading-bot/pkg/tracing"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			// Notifier: если TELEGRAM_* нет — используем stdout
			func(cfg *config.Config, store *state.Store) engine.Notifier {
				if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
					if tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, store); err == nil {
						return tg
					}
				}
				return notify.NewStdout()
			},
			// связки интерфейсов с сервисами
			func(c *okxservice.Client) engine.Exchange { return c },
			func(s historyservice.Sink) engine.History { return s },
			func(e *engine.Engine) apiservice.CycleRunner { return e },
			func(c *okxservice.Client) apiservice.Exchange { return c },
			func(s historyservice.Sink) apiservice.HistorySource { return s },
			func(st *settingsservice.Store) apiservice.SettingsSaver { return st },
			func(e *engine.Engine) marketwsservice.Watchlist { return e },
			func(st *apiservice.State) marketwsservice.Status { return st },
		),
		config.Module(),
		okx.Module(),
		history.Module(),
		settings.Module(),
		engine.Module(),
		marketws.Module(),
		api.Module(),
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config) error {
				logger.SetServiceName(cfg.Service.Name)
				tracing.SetServiceName(cfg.Service.Name)
				_, closeTracer, err := tracing.InitTracer(tracing.Config{
					Host: cfg.Tracing.Host,
					Port: cfg.Tracing.Port,
				})
				if err != nil {
					return err
				}
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						closeTracer()
						logger.Sync()
						return nil
					},
				})
				return nil
			},
			func(lc fx.Lifecycle, n engine.Notifier, e *engine.Engine) {
				tg, ok := n.(*notify.Telegram)
				if !ok {
					return
				}
				tg.SetRunner(e)
				pollCtx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						return tg.Start(pollCtx)
					},
					OnStop: func(context.Context) error {
						cancel()
						return nil
					},
				})
			},
		),
	)
	app.Run()
}
