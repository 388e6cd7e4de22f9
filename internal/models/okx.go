package models

// Instrument — метаданные инструмента с биржи (размеры лота, контракта).
type Instrument struct {
	InstID string `json:"instId"`
	TickSz string `json:"tickSz"`
	LotSz  string `json:"lotSz"`
	MinSz  string `json:"minSz"`
	CtVal  string `json:"ctVal"`
	CtMult string `json:"ctMult"`
	State  string `json:"state"`
}

// OrderResult — ответ коннектора после успешного маркет-ордера.
type OrderResult struct {
	OrderID       string  `json:"ordId"`
	ClientOrderID string  `json:"clOrdId"`
	Contracts     float64 `json:"contracts"`
	Simulated     bool    `json:"simulated"`
}

// ExchangePosition — открытая позиция со стороны биржи, упрощённый срез
// /api/v5/account/positions для сверки с локальным реестром.
type ExchangePosition struct {
	InstID    string       `json:"instId"`
	Side      PositionSide `json:"side"`
	Contracts float64      `json:"contracts"`
	AvgPx     float64      `json:"avgPx"`
	Upl       float64      `json:"upl"`
	Leverage  int          `json:"leverage"`
}
