package models

import "time"

// Candle — закрытая свеча. Серии всегда от старых к новым.
type Candle struct {
	Ts          time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	QuoteVolume float64
}

type Ticker struct {
	InstID  string  `json:"instId"`
	Last    float64 `json:"last"`
	Bid     float64 `json:"bid"`
	Ask     float64 `json:"ask"`
	High24h float64 `json:"high24h"`
	Low24h  float64 `json:"low24h"`
	Vol24h  float64 `json:"vol24h"`
}
