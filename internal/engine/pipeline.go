package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/metrics"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
	okx "github.com/dev0xiinko/xiinko-trading-bot/internal/modules/okx/service"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/state"
)

// runInstrument прогоняет один инструмент через конвейер:
// кулдаун -> тикер -> свечи -> сигнал -> решение -> ордер -> стор.
// Любая ошибка останавливает только этот инструмент, цикл идёт дальше.
func (e *Engine) runInstrument(ctx context.Context, instID string) (res models.InstrumentResult) {
	res = models.InstrumentResult{InstID: instID}
	defer func() {
		if r := recover(); r != nil {
			res.Executed = false
			res.Reason = fmt.Sprintf("internal: %v", r)
			e.store.AppendLog(models.LogError, "[%s] pipeline panic: %v", instID, r)
		}
	}()

	span, ctx := opentracing.StartSpanFromContext(ctx, "instrument")
	span.SetTag("instId", instID)
	defer span.Finish()

	// кулдаун проверяем до любых сетевых вызовов
	st := e.store.InstrumentState(instID)
	if !st.LastTradeAt.IsZero() {
		if left := e.opts.Cooldown - time.Since(st.LastTradeAt); left > 0 {
			res.Reason = fmt.Sprintf("cooldown %ds", int(left.Seconds()))
			return res
		}
	}

	ticker, err := e.ex.GetTicker(ctx, instID)
	if err != nil {
		res.Reason = err.Error()
		e.store.AppendLog(models.LogError, "[%s] ticker: %v", instID, err)
		return res
	}
	candles, err := e.ex.GetCandles(ctx, instID, e.opts.Timeframe, e.opts.CandleLimit)
	if err != nil {
		res.Reason = err.Error()
		e.store.AppendLog(models.LogError, "[%s] candles: %v", instID, err)
		return res
	}

	closes := make([]float64, len(candles))
	for i, cd := range candles {
		closes[i] = cd.Close
	}
	sig := Analyze(instID, closes, e.opts.FastPeriod, e.opts.SlowPeriod)
	if ticker.Last > 0 {
		// живой тикер точнее закрытия последней свечи
		sig.Price = ticker.Last
	}

	// сигнал и цена пишутся в стор независимо от исхода сделки
	e.store.SetSignal(sig)
	e.store.UpdateMarketPrice(instID, sig.Price)
	res.Signal = &sig
	metrics.RecordSignal(string(sig.Direction))
	if sig.Direction != models.DirectionWait {
		e.store.AppendLog(models.LogSignal, "[%s] %s: %s", instID, sig.Direction, sig.Reason)
	}

	dec := Decide(sig, st.LastPosition)
	if !dec.Trade {
		res.Reason = dec.Reason
		return res
	}

	cfg := e.store.TradeConfig()
	started := time.Now()
	order, err := e.ex.PlaceMarketOrder(ctx, instID, dec.Side, cfg.Margin, cfg.Leverage)
	metrics.ObserveOrderDuration(time.Since(started))
	if err != nil {
		// неудавшийся ордер не трогает ни кулдаун, ни позиции
		res.Reason = err.Error()
		e.store.AppendLog(models.LogError, "[%s] order %s: %v", instID, dec.Side, err)
		metrics.RecordOrderFailure(string(okx.KindOf(err)))
		e.notifier.Sendf("❌ %s %s не прошёл: %v", instID, strings.ToUpper(string(dec.Side)), err)
		return res
	}

	now := time.Now()
	posSide := dec.Side.PositionSide()
	e.store.RecordTrade(instID, posSide, now)

	size := cfg.Margin * float64(cfg.Leverage) / sig.Price
	closed, pos, err := e.store.ApplyFill(state.Fill{
		InstID:   instID,
		Side:     posSide,
		Size:     size,
		Price:    sig.Price,
		Leverage: cfg.Leverage,
		OrderID:  order.OrderID,
		Mode:     "cross",
		At:       now,
	})
	if err != nil {
		res.Reason = err.Error()
		e.store.AppendLog(models.LogError, "[%s] fill: %v", instID, err)
		return res
	}

	res.Executed = true
	res.Side = dec.Side
	res.Price = sig.Price
	res.OrderID = order.OrderID

	metrics.RecordTrade(instID, string(dec.Side))
	metrics.SetOpenPositions(len(e.store.Positions()))

	e.store.AppendLog(models.LogTrade, "[%s] %s %.6f @ %.2f x%d ord=%s total=%.6f",
		instID, dec.Side, size, sig.Price, cfg.Leverage, order.OrderID, pos.Size)
	if closed != nil {
		e.store.AppendLog(models.LogTrade, "[%s] flip: закрыт %s %.6f, pnl %.2f USDT",
			instID, closed.Side, closed.Size, closed.PnL(sig.Price))
	}

	rec := models.TradeRecord{
		InstID:    instID,
		Side:      dec.Side,
		Size:      size,
		Price:     sig.Price,
		Leverage:  cfg.Leverage,
		OrderID:   order.OrderID,
		Simulated: order.Simulated,
		Reason:    dec.Reason,
		Signal:    &sig,
		At:        now,
	}
	if err := e.history.Append(ctx, rec); err != nil {
		e.store.AppendLog(models.LogError, "[%s] history: %v", instID, err)
	}

	mode := ""
	if order.Simulated {
		mode = " (demo)"
	}
	e.notifier.Sendf("✅ Сделка: %s %s @ %.2f x%d%s", instID, strings.ToUpper(string(dec.Side)), sig.Price, cfg.Leverage, mode)
	return res
}
