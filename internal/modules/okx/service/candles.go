package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

// GetCandles отдаёт свечи от старых к новым. OKX присылает наоборот,
// здесь разворачиваем, чтобы дальше по коду порядок был один.
func (c *Client) GetCandles(ctx context.Context, instID, bar string, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	path := fmt.Sprintf("/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		url.QueryEscape(instID), url.QueryEscape(bar), limit)

	data, err := c.request(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &APIError{Kind: KindExchange, Msg: "candles decode: " + err.Error()}
	}

	out := make([]models.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 6 {
			continue
		}
		ms, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		open, _ := strconv.ParseFloat(row[1], 64)
		high, _ := strconv.ParseFloat(row[2], 64)
		low, _ := strconv.ParseFloat(row[3], 64)
		closePx, _ := strconv.ParseFloat(row[4], 64)
		vol, _ := strconv.ParseFloat(row[5], 64)
		candle := models.Candle{
			Ts:     time.UnixMilli(ms),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: vol,
		}
		if len(row) > 7 {
			candle.QuoteVolume, _ = strconv.ParseFloat(row[7], 64)
		}
		out = append(out, candle)
	}
	return out, nil
}
