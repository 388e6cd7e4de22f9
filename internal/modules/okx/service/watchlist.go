package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// TopVolatile — топ-n USDT-перпов по размаху суток (high-low)/last.
// Используется как watchlist, когда инструменты не заданы в конфиге.
func (c *Client) TopVolatile(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	data, err := c.request(ctx, http.MethodGet, "/api/v5/market/tickers?instType=SWAP", nil, false)
	if err != nil {
		return nil, err
	}

	var rows []tickerRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &APIError{Kind: KindExchange, Msg: "tickers decode: " + err.Error()}
	}

	type rec struct {
		sym   string
		score float64
	}
	arr := make([]rec, 0, len(rows))
	for _, t := range rows {
		// только USDT-perp вида BTC-USDT-SWAP
		if !strings.HasSuffix(t.InstID, "-USDT-SWAP") {
			continue
		}
		last, err1 := strconv.ParseFloat(t.Last, 64)
		high, err2 := strconv.ParseFloat(t.High24h, 64)
		low, err3 := strconv.ParseFloat(t.Low24h, 64)
		if err1 != nil || err2 != nil || err3 != nil || last <= 0 {
			continue
		}
		range24 := high - low
		if range24 <= 0 {
			continue
		}
		arr = append(arr, rec{sym: t.InstID, score: range24 / last})
	}
	if len(arr) == 0 {
		return nil, &APIError{Kind: KindExchange, Msg: "no swap tickers to rank"}
	}

	sort.Slice(arr, func(i, j int) bool { return arr[i].score > arr[j].score })
	if n > len(arr) {
		n = len(arr)
	}
	res := make([]string, 0, n)
	for i := 0; i < n; i++ {
		res = append(res, arr[i].sym)
	}
	return res, nil
}
