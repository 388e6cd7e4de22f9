package okx

import (
	"go.uber.org/fx"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/okx/service"
)

// Module поднимает REST-клиент OKX.
func Module() fx.Option {
	return fx.Module("okx",
		fx.Provide(
			service.NewClient,
		),
	)
}
