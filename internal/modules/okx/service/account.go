package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// GetBalance — доступный остаток торгового счёта в указанной валюте.
func (c *Client) GetBalance(ctx context.Context, ccy string) (float64, error) {
	if !c.IsConfigured() {
		return 0, ErrNotConfigured
	}
	if ccy == "" {
		ccy = "USDT"
	}

	data, err := c.request(ctx, http.MethodGet, "/api/v5/account/balance?ccy="+url.QueryEscape(ccy), nil, true)
	if err != nil {
		return 0, err
	}

	var rows []struct {
		Details []struct {
			Ccy      string `json:"ccy"`
			AvailBal string `json:"availBal"`
			CashBal  string `json:"cashBal"`
		} `json:"details"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, &APIError{Kind: KindExchange, Msg: "balance decode: " + err.Error()}
	}

	for _, row := range rows {
		for _, d := range row.Details {
			if d.Ccy != ccy {
				continue
			}
			if avail, err := strconv.ParseFloat(d.AvailBal, 64); err == nil && avail > 0 {
				return avail, nil
			}
			if cash, err := strconv.ParseFloat(d.CashBal, 64); err == nil {
				return cash, nil
			}
		}
	}
	return 0, nil
}
