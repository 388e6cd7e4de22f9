package models

import "time"

// TradeRecord — строка истории сделок. Signal хранит срез сигнала
// на момент исполнения (в PG уходит jsonb-колонкой).
type TradeRecord struct {
	ID        int64     `json:"id,omitempty"`
	InstID    string    `json:"instId"`
	Side      OrderSide `json:"side"`
	Size      float64   `json:"size"`
	Price     float64   `json:"price"`
	Leverage  int       `json:"leverage"`
	OrderID   string    `json:"orderId"`
	Simulated bool      `json:"simulated"`
	Reason    string    `json:"reason"`
	Signal    *Signal   `json:"signal,omitempty"`
	At        time.Time `json:"at"`
}
