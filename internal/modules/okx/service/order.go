package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

// SetPositionMode переводит аккаунт в net_mode.
func (c *Client) SetPositionMode(ctx context.Context) error {
	payload, err := sonic.Marshal(map[string]string{"posMode": "net_mode"})
	if err != nil {
		return fmt.Errorf("position mode marshal: %w", err)
	}
	_, err = c.request(ctx, http.MethodPost, "/api/v5/account/set-position-mode", payload, true)
	return err
}

// SetLeverage выставляет плечо по инструменту.
func (c *Client) SetLeverage(ctx context.Context, instID string, leverage int, mgnMode string) error {
	if mgnMode == "" {
		mgnMode = "cross"
	}
	payload, err := sonic.Marshal(map[string]string{
		"instId":  instID,
		"lever":   strconv.Itoa(leverage),
		"mgnMode": mgnMode,
	})
	if err != nil {
		return fmt.Errorf("leverage marshal: %w", err)
	}
	_, err = c.request(ctx, http.MethodPost, "/api/v5/account/set-leverage", payload, true)
	return err
}

type orderRow struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// PlaceMarketOrder — маркет-ордер на нотционал margin*leverage USDT.
// Подготовка (режим позиций, плечо) идёт best-effort: каждая неудача
// логируется отдельно и ордер не блокирует.
func (c *Client) PlaceMarketOrder(ctx context.Context, instID string, side models.OrderSide, margin float64, leverage int) (models.OrderResult, error) {
	if !c.IsConfigured() {
		return models.OrderResult{}, ErrNotConfigured
	}
	if side != models.OrderBuy && side != models.OrderSell {
		return models.OrderResult{}, &APIError{Kind: KindOrder, Msg: fmt.Sprintf("unsupported side %q", side)}
	}
	if margin <= 0 || leverage < 1 {
		return models.OrderResult{}, &APIError{Kind: KindOrder, Msg: fmt.Sprintf("bad sizing: margin=%v leverage=%d", margin, leverage)}
	}

	if !c.posModeSet.Load() {
		if err := c.SetPositionMode(ctx); err != nil {
			log.Printf("[OKX] set position mode: %v", err)
		} else {
			c.posModeSet.Store(true)
		}
	}
	if err := c.SetLeverage(ctx, instID, leverage, "cross"); err != nil {
		log.Printf("[OKX] set leverage %dx %s: %v", leverage, instID, err)
	}

	ticker, err := c.GetTicker(ctx, instID)
	if err != nil {
		return models.OrderResult{}, err
	}
	meta, err := c.GetInstrumentMeta(ctx, instID)
	if err != nil {
		return models.OrderResult{}, err
	}
	contracts, err := contractsForNotional(margin*float64(leverage), ticker.Last, meta)
	if err != nil {
		return models.OrderResult{}, err
	}

	// clOrdId делает повтор после сетевой ошибки идемпотентным
	clOrdID := genClOrdID()
	payload, err := sonic.Marshal(map[string]string{
		"instId":  instID,
		"tdMode":  "cross",
		"side":    string(side),
		"ordType": "market",
		"sz":      formatSize(contracts, meta.LotSz),
		"clOrdId": clOrdID,
	})
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("order marshal: %w", err)
	}

	data, err := c.request(ctx, http.MethodPost, "/api/v5/trade/order", payload, true)
	if err != nil {
		return models.OrderResult{}, err
	}
	row, err := decodeOrderRow(data)
	if err != nil {
		return models.OrderResult{}, err
	}

	return models.OrderResult{
		OrderID:       row.OrdID,
		ClientOrderID: clOrdID,
		Contracts:     contracts,
		Simulated:     c.demo,
	}, nil
}

// ClosePositionMarket — reduce-only маркет противоположной стороной.
// size в базовой валюте; reduce-only биржа сама подрежет до фактической позиции.
func (c *Client) ClosePositionMarket(ctx context.Context, instID string, posSide models.PositionSide, size float64) (models.OrderResult, error) {
	if !c.IsConfigured() {
		return models.OrderResult{}, ErrNotConfigured
	}
	if size <= 0 {
		return models.OrderResult{}, &APIError{Kind: KindOrder, Msg: fmt.Sprintf("bad close size %v", size)}
	}
	side := models.OrderSell
	if posSide == models.PositionShort {
		side = models.OrderBuy
	}

	meta, err := c.GetInstrumentMeta(ctx, instID)
	if err != nil {
		return models.OrderResult{}, err
	}
	contracts, err := contractsForBase(size, meta)
	if err != nil {
		return models.OrderResult{}, err
	}

	clOrdID := genClOrdID()
	payload, err := sonic.Marshal(map[string]string{
		"instId":     instID,
		"tdMode":     "cross",
		"side":       string(side),
		"ordType":    "market",
		"sz":         formatSize(contracts, meta.LotSz),
		"reduceOnly": "true",
		"clOrdId":    clOrdID,
	})
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("close marshal: %w", err)
	}

	data, err := c.request(ctx, http.MethodPost, "/api/v5/trade/order", payload, true)
	if err != nil {
		return models.OrderResult{}, err
	}
	row, err := decodeOrderRow(data)
	if err != nil {
		return models.OrderResult{}, err
	}

	return models.OrderResult{
		OrderID:       row.OrdID,
		ClientOrderID: clOrdID,
		Contracts:     contracts,
		Simulated:     c.demo,
	}, nil
}

func decodeOrderRow(data json.RawMessage) (orderRow, error) {
	var rows []orderRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return orderRow{}, &APIError{Kind: KindOrder, Msg: "order decode: " + err.Error()}
	}
	if len(rows) == 0 {
		return orderRow{}, &APIError{Kind: KindOrder, Msg: "empty order response"}
	}
	if rows[0].SCode != "" && rows[0].SCode != "0" {
		return orderRow{}, &APIError{Kind: KindOrder, Code: rows[0].SCode, Msg: rows[0].SMsg}
	}
	return rows[0], nil
}

// contractsForNotional: контракты на notional USDT по цене last.
// Вниз до кратного lotSz, меньше minSz не торгуем.
func contractsForNotional(notional, last float64, meta models.Instrument) (float64, error) {
	ctVal, _ := strconv.ParseFloat(meta.CtVal, 64)
	lotSz, _ := strconv.ParseFloat(meta.LotSz, 64)
	minSz, _ := strconv.ParseFloat(meta.MinSz, 64)
	if ctVal <= 0 || lotSz <= 0 || last <= 0 {
		return 0, &APIError{Kind: KindOrder, Msg: fmt.Sprintf("bad instrument meta %s: ctVal=%q lotSz=%q", meta.InstID, meta.CtVal, meta.LotSz)}
	}
	raw := notional / (ctVal * last)
	// эпсилон гасит двоичный шум перед floor, иначе 1.0 превращается в 0
	contracts := math.Floor(raw/lotSz+1e-9) * lotSz
	if contracts <= 0 || (minSz > 0 && contracts < minSz) {
		return 0, &APIError{Kind: KindOrder, Msg: fmt.Sprintf("size %v below exchange min %s for %s", contracts, meta.MinSz, meta.InstID)}
	}
	return contracts, nil
}

// contractsForBase: базовые единицы -> контракты, вверх до кратного lotSz.
func contractsForBase(base float64, meta models.Instrument) (float64, error) {
	ctVal, _ := strconv.ParseFloat(meta.CtVal, 64)
	lotSz, _ := strconv.ParseFloat(meta.LotSz, 64)
	minSz, _ := strconv.ParseFloat(meta.MinSz, 64)
	if ctVal <= 0 || lotSz <= 0 {
		return 0, &APIError{Kind: KindOrder, Msg: fmt.Sprintf("bad instrument meta %s: ctVal=%q lotSz=%q", meta.InstID, meta.CtVal, meta.LotSz)}
	}
	contracts := math.Ceil(base/ctVal/lotSz-1e-9) * lotSz
	if minSz > 0 && contracts < minSz {
		contracts = minSz
	}
	return contracts, nil
}

// formatSize печатает размер с точностью lotSz, без экспоненты.
func formatSize(v float64, lotSz string) string {
	prec := 0
	if i := strings.IndexByte(lotSz, '.'); i >= 0 {
		prec = len(lotSz) - i - 1
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func genClOrdID() string {
	return "xiinko" + strconv.FormatInt(time.Now().UnixNano(), 36)
}
