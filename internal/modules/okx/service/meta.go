package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

// GetInstrumentMeta — лот, минимальный размер и номинал контракта.
// Метаданные стабильны, держим в кэше на весь процесс.
func (c *Client) GetInstrumentMeta(ctx context.Context, instID string) (models.Instrument, error) {
	c.metaMu.Lock()
	if meta, ok := c.metaCache[instID]; ok {
		c.metaMu.Unlock()
		return meta, nil
	}
	c.metaMu.Unlock()

	data, err := c.request(ctx, http.MethodGet,
		"/api/v5/public/instruments?instType=SWAP&instId="+url.QueryEscape(instID), nil, false)
	if err != nil {
		return models.Instrument{}, err
	}

	var rows []models.Instrument
	if err := json.Unmarshal(data, &rows); err != nil {
		return models.Instrument{}, &APIError{Kind: KindExchange, Msg: "instruments decode: " + err.Error()}
	}
	if len(rows) == 0 {
		return models.Instrument{}, &APIError{Kind: KindExchange, Msg: "instrument " + instID + " not found"}
	}

	c.metaMu.Lock()
	c.metaCache[instID] = rows[0]
	c.metaMu.Unlock()
	return rows[0], nil
}
