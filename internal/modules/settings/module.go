package settings

import (
	"log"

	"go.uber.org/fx"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/config"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/settings/service"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/state"
)

// Module накатывает сохранённые торговые настройки поверх дефолтов
// при старте. Сохранение делает API при каждом изменении.
func Module() fx.Option {
	return fx.Module("settings",
		fx.Provide(
			func(cfg *config.Config) *service.Store {
				return service.NewStore(cfg.SettingsPath)
			},
		),
		fx.Invoke(func(st *service.Store, store *state.Store) {
			saved, ok, err := st.Load()
			if err != nil {
				log.Printf("[SETTINGS] не удалось прочитать настройки: %v", err)
				return
			}
			if !ok {
				return
			}
			applied := store.SetTradeConfig(saved.Margin, saved.Leverage)
			log.Printf("[SETTINGS] из файла: margin=%.2f leverage=%d", applied.Margin, applied.Leverage)
		}),
	)
}
