package models

// TradeConfig — торговые параметры, меняются на лету через API.
// Margin — залог в USDT на один ордер, нотционал = Margin*Leverage.
type TradeConfig struct {
	Margin      float64 `json:"margin"`
	Leverage    int     `json:"leverage"`
	MaxLeverage int     `json:"maxLeverage"`
}
