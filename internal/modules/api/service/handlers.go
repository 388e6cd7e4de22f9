package service

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/state"
)

// CycleRunner — движок с точки зрения API: ручной запуск и статус.
type CycleRunner interface {
	RunCycle(ctx context.Context) models.CycleReport
	Instruments() []string
	LastCycleAt() time.Time
}

// Exchange — биржа с точки зрения API: закрытие позиций, сверка и флаги режима.
type Exchange interface {
	ClosePositionMarket(ctx context.Context, instID string, posSide models.PositionSide, size float64) (models.OrderResult, error)
	GetBalance(ctx context.Context, ccy string) (float64, error)
	OpenPositions(ctx context.Context) ([]models.ExchangePosition, error)
	IsConfigured() bool
	IsDemoMode() bool
}

// HistorySource — журнал сделок: чтение для /api/history,
// запись для ручных закрытий.
type HistorySource interface {
	Append(ctx context.Context, rec models.TradeRecord) error
	Recent(ctx context.Context, limit int) ([]models.TradeRecord, error)
}

// SettingsSaver сохраняет торговые настройки между рестартами.
type SettingsSaver interface {
	Save(cfg models.TradeConfig) error
}

type Handlers struct {
	store    *state.Store
	runner   CycleRunner
	ex       Exchange
	history  HistorySource
	settings SettingsSaver
	state    *State
}

func NewHandlers(store *state.Store, runner CycleRunner, ex Exchange, history HistorySource, settings SettingsSaver, st *State) *Handlers {
	return &Handlers{
		store:    store,
		runner:   runner,
		ex:       ex,
		history:  history,
		settings: settings,
		state:    st,
	}
}

func NewMux(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !h.state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/cycle", h.handleCycle)
	mux.HandleFunc("/api/config", h.handleConfig)
	mux.HandleFunc("/api/positions", h.handlePositions)
	mux.HandleFunc("/api/positions/close", h.handleClose)
	mux.HandleFunc("/api/positions/close-all", h.handleCloseAll)
	mux.HandleFunc("/api/history", h.handleHistory)
	mux.HandleFunc("/api/logs", h.handleLogs)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var lastCycle int64
	if t := h.runner.LastCycleAt(); !t.IsZero() {
		lastCycle = t.Unix()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ready":         h.state.Ready(),
		"wsConnected":   h.state.WSConnected(),
		"uptimeSec":     int64(h.state.Uptime().Seconds()),
		"lastCycleUnix": lastCycle,
		"openPositions": len(h.store.Positions()),
		"demo":          h.ex.IsDemoMode(),
	})
}

func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	var lastCycle int64
	if t := h.runner.LastCycleAt(); !t.IsZero() {
		lastCycle = t.Unix()
	}
	resp := map[string]any{
		"configured":    h.ex.IsConfigured(),
		"demo":          h.ex.IsDemoMode(),
		"instruments":   h.runner.Instruments(),
		"lastCycleUnix": lastCycle,
		"tradeConfig":   snap.TradeConfig,
		"positions":     snap.Positions,
		"states":        snap.Instruments,
	}
	// сверка с биржей best-effort: без ключей или при ошибке поля просто нет
	if h.ex.IsConfigured() {
		if bal, err := h.ex.GetBalance(r.Context(), "USDT"); err == nil {
			resp["balanceUSDT"] = bal
		} else {
			h.store.AppendLog(models.LogError, "balance: %v", err)
		}
		if exPos, err := h.ex.OpenPositions(r.Context()); err == nil {
			resp["exchangePositions"] = exPos
		} else {
			h.store.AppendLog(models.LogError, "exchange positions: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	report := h.runner.RunCycle(r.Context())
	status := http.StatusOK
	if report.Reason == "cycle already running" {
		status = http.StatusConflict
	}
	writeJSON(w, status, report)
}

func (h *Handlers) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.store.TradeConfig())
	case http.MethodPost:
		var req struct {
			Margin   *float64 `json:"margin"`
			Leverage *int     `json:"leverage"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		cur := h.store.TradeConfig()
		margin, leverage := cur.Margin, cur.Leverage
		if req.Margin != nil {
			margin = *req.Margin
		}
		if req.Leverage != nil {
			leverage = *req.Leverage
		}
		if margin <= 0 || math.IsNaN(margin) || math.IsInf(margin, 0) {
			http.Error(w, "margin must be a positive number", http.StatusBadRequest)
			return
		}
		applied := h.store.SetTradeConfig(margin, leverage)
		h.store.AppendLog(models.LogInfo, "trade config updated: margin=%.2f leverage=%d", applied.Margin, applied.Leverage)
		if h.settings != nil {
			if err := h.settings.Save(applied); err != nil {
				h.store.AppendLog(models.LogError, "settings save: %v", err)
			}
		}
		writeJSON(w, http.StatusOK, applied)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) handlePositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Positions())
}

func (h *Handlers) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "position id required", http.StatusBadRequest)
		return
	}
	pos, ok := h.store.ClosePosition(req.ID)
	if !ok {
		http.Error(w, "position not found", http.StatusNotFound)
		return
	}
	ordID := h.closeOnExchange(r.Context(), pos)
	h.store.AppendLog(models.LogTrade, "[%s] позиция %s закрыта вручную", pos.InstID, pos.ID)
	h.recordClose(r.Context(), pos, ordID)
	writeJSON(w, http.StatusOK, map[string]any{
		"closed": pos,
		"pnl":    pos.PnL(pos.CurrentPrice),
	})
}

func (h *Handlers) handleCloseAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	closed := h.store.CloseAllPositions()
	for _, pos := range closed {
		ordID := h.closeOnExchange(r.Context(), pos)
		h.recordClose(r.Context(), pos, ordID)
	}
	if len(closed) > 0 {
		h.store.AppendLog(models.LogTrade, "закрыто вручную позиций: %d", len(closed))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(closed),
		"closed": closed,
	})
}

// closeOnExchange отправляет reduce-only маркет, если ключи заданы.
// Ошибка не отменяет локальное закрытие, только пишется в журнал.
func (h *Handlers) closeOnExchange(ctx context.Context, pos models.Position) string {
	if !h.ex.IsConfigured() {
		return ""
	}
	res, err := h.ex.ClosePositionMarket(ctx, pos.InstID, pos.Side, pos.Size)
	if err != nil {
		h.store.AppendLog(models.LogError, "[%s] close on exchange: %v", pos.InstID, err)
		return ""
	}
	return res.OrderID
}

// recordClose пишет ручное закрытие в историю. Сторона записи противоположна
// стороне позиции: лонг закрывается продажей.
func (h *Handlers) recordClose(ctx context.Context, pos models.Position, ordID string) {
	side := models.OrderSell
	if pos.Side == models.PositionShort {
		side = models.OrderBuy
	}
	rec := models.TradeRecord{
		InstID:    pos.InstID,
		Side:      side,
		Size:      pos.Size,
		Price:     pos.CurrentPrice,
		Leverage:  pos.Leverage,
		OrderID:   ordID,
		Simulated: h.ex.IsDemoMode(),
		Reason:    "manual close",
		At:        time.Now(),
	}
	if err := h.history.Append(ctx, rec); err != nil {
		h.store.AppendLog(models.LogError, "[%s] history: %v", pos.InstID, err)
	}
}

func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []models.TradeRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handlers) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs := h.store.Logs()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < len(logs) {
			logs = logs[:n]
		}
	}
	writeJSON(w, http.StatusOK, logs)
}
