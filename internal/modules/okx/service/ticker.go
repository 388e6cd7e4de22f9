package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

type tickerRow struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	BidPx     string `json:"bidPx"`
	AskPx     string `json:"askPx"`
	High24h   string `json:"high24h"`
	Low24h    string `json:"low24h"`
	Vol24h    string `json:"vol24h"`
	VolCcy24h string `json:"volCcy24h"`
}

func (c *Client) GetTicker(ctx context.Context, instID string) (models.Ticker, error) {
	data, err := c.request(ctx, http.MethodGet, "/api/v5/market/ticker?instId="+url.QueryEscape(instID), nil, false)
	if err != nil {
		return models.Ticker{}, err
	}

	var rows []tickerRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return models.Ticker{}, &APIError{Kind: KindExchange, Msg: "ticker decode: " + err.Error()}
	}
	if len(rows) == 0 {
		return models.Ticker{}, &APIError{Kind: KindExchange, Msg: "ticker " + instID + " not found"}
	}

	r := rows[0]
	last, _ := strconv.ParseFloat(r.Last, 64)
	bid, _ := strconv.ParseFloat(r.BidPx, 64)
	ask, _ := strconv.ParseFloat(r.AskPx, 64)
	high, _ := strconv.ParseFloat(r.High24h, 64)
	low, _ := strconv.ParseFloat(r.Low24h, 64)
	vol, _ := strconv.ParseFloat(r.Vol24h, 64)
	if last <= 0 {
		return models.Ticker{}, &APIError{Kind: KindExchange, Msg: "ticker " + instID + ": empty last price"}
	}

	return models.Ticker{
		InstID:  r.InstID,
		Last:    last,
		Bid:     bid,
		Ask:     ask,
		High24h: high,
		Low24h:  low,
		Vol24h:  vol,
	}, nil
}
