package engine

import (
	"context"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

// Exchange — всё, что движку нужно от биржевого коннектора.
// Ретраи и таймауты — забота коннектора, движок их не дублирует.
type Exchange interface {
	GetTicker(ctx context.Context, instID string) (models.Ticker, error)
	GetCandles(ctx context.Context, instID, bar string, limit int) ([]models.Candle, error)
	PlaceMarketOrder(ctx context.Context, instID string, side models.OrderSide, margin float64, leverage int) (models.OrderResult, error)
	TopVolatile(ctx context.Context, n int) ([]string, error)
	IsConfigured() bool
	IsDemoMode() bool
}

// History — синк истории сделок. Ошибки синка сделку не отменяют.
type History interface {
	Append(ctx context.Context, rec models.TradeRecord) error
}

// Notifier — пуши о сделках и ошибках. Telegram или stdout, выбирает main.
type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}
