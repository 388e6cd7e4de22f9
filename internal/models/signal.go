package models

import "time"

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionWait Direction = "WAIT"
)

// Signal — итог анализа одного инструмента за цикл.
// MA nil, если истории не хватило на оба периода.
type Signal struct {
	InstID    string    `json:"instId"`
	Direction Direction `json:"direction"`
	FastMA    *float64  `json:"fastMA,omitempty"`
	SlowMA    *float64  `json:"slowMA,omitempty"`
	Price     float64   `json:"price"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}
