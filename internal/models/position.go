package models

import "time"

type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

func (s OrderSide) PositionSide() PositionSide {
	if s == OrderSell {
		return PositionShort
	}
	return PositionLong
}

// Position — открытая позиция. Size в единицах базовой валюты,
// пересчёт из нотционала делается один раз по цене входа.
type Position struct {
	ID           string       `json:"id"`
	InstID       string       `json:"instId"`
	Side         PositionSide `json:"side"`
	Size         float64      `json:"size"`
	Leverage     int          `json:"leverage"`
	EntryPrice   float64      `json:"entryPrice"`
	CurrentPrice float64      `json:"currentPrice"`
	OpenedAt     time.Time    `json:"openedAt"`
	OrderID      string       `json:"orderId"`
	Mode         string       `json:"mode"` // cross/isolated
}

// PnL по заданной цене выхода.
func (p Position) PnL(exit float64) float64 {
	d := exit - p.EntryPrice
	if p.Side == PositionShort {
		d = -d
	}
	return d * p.Size
}
