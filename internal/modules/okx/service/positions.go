package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

type positionRow struct {
	InstID  string `json:"instId"`
	PosSide string `json:"posSide"`
	Pos     string `json:"pos"`
	AvgPx   string `json:"avgPx"`
	Upl     string `json:"upl"`
	Lever   string `json:"lever"`
}

// OpenPositions — открытые позиции аккаунта. В net_mode биржа отдаёт
// posSide="net" со знаковым pos: минус значит шорт.
func (c *Client) OpenPositions(ctx context.Context) ([]models.ExchangePosition, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	data, err := c.request(ctx, http.MethodGet, "/api/v5/account/positions?instType=SWAP", nil, true)
	if err != nil {
		return nil, err
	}

	var rows []positionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &APIError{Kind: KindExchange, Msg: "positions decode: " + err.Error()}
	}

	out := make([]models.ExchangePosition, 0, len(rows))
	for _, r := range rows {
		pos, err := strconv.ParseFloat(r.Pos, 64)
		if err != nil || pos == 0 {
			continue
		}
		side := models.PositionLong
		if r.PosSide == "short" || pos < 0 {
			side = models.PositionShort
		}
		if pos < 0 {
			pos = -pos
		}
		avgPx, _ := strconv.ParseFloat(r.AvgPx, 64)
		upl, _ := strconv.ParseFloat(r.Upl, 64)
		lever, _ := strconv.Atoi(r.Lever)
		out = append(out, models.ExchangePosition{
			InstID:    r.InstID,
			Side:      side,
			Contracts: pos,
			AvgPx:     avgPx,
			Upl:       upl,
			Leverage:  lever,
		})
	}
	return out, nil
}
