package engine

import "github.com/dev0xiinko/xiinko-trading-bot/internal/models"

type Decision struct {
	Trade  bool
	Side   models.OrderSide
	Reason string
}

// Decide превращает сигнал и последнюю позицию в вердикт.
// WAIT не торгует, добор в ту же сторону не торгует (без пирамидинга).
// Размер не решается здесь — это зона TradeConfig.
func Decide(sig models.Signal, last models.PositionSide) Decision {
	switch sig.Direction {
	case models.DirectionBuy:
		if last == models.PositionLong {
			return Decision{Reason: "already long"}
		}
		return Decision{Trade: true, Side: models.OrderBuy, Reason: sig.Reason}
	case models.DirectionSell:
		if last == models.PositionShort {
			return Decision{Reason: "already short"}
		}
		return Decision{Trade: true, Side: models.OrderSell, Reason: sig.Reason}
	default:
		return Decision{Reason: sig.Reason}
	}
}
