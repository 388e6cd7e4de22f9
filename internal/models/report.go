package models

import "time"

// InstrumentState — последняя активность по инструменту.
type InstrumentState struct {
	LastPosition PositionSide `json:"lastPosition,omitempty"`
	LastTradeAt  time.Time    `json:"lastTradeAt,omitempty"`
	LastSignal   *Signal      `json:"lastSignal,omitempty"`
	LastPrice    float64      `json:"lastPrice,omitempty"`
}

type InstrumentResult struct {
	InstID   string    `json:"instId"`
	Executed bool      `json:"executed"`
	Reason   string    `json:"reason"`
	Side     OrderSide `json:"side,omitempty"`
	Price    float64   `json:"price,omitempty"`
	OrderID  string    `json:"orderId,omitempty"`
	Signal   *Signal   `json:"signal,omitempty"`
}

type CycleReport struct {
	Executed         bool               `json:"executed"`
	Reason           string             `json:"reason,omitempty"`
	TradesExecuted   int                `json:"tradesExecuted"`
	TotalInstruments int                `json:"totalInstruments"`
	Results          []InstrumentResult `json:"results"`
	StartedAt        time.Time          `json:"startedAt"`
	Elapsed          time.Duration      `json:"elapsed"`
}
