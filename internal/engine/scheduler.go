package engine

import (
	"context"
	"log"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/metrics"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

// RunCycle прогоняет полный цикл по всем инструментам и возвращает отчёт.
// Повторный вход (таймер против ручного запуска) отсекается атомарным
// флагом: проигравший получает отчёт "cycle already running" и ничего
// не трогает.
func (e *Engine) RunCycle(ctx context.Context) models.CycleReport {
	report := models.CycleReport{
		StartedAt:        time.Now(),
		TotalInstruments: len(e.opts.Instruments),
	}
	if !e.running.CompareAndSwap(false, true) {
		report.Reason = "cycle already running"
		report.Elapsed = time.Since(report.StartedAt)
		return report
	}
	defer e.running.Store(false)

	span, ctx := opentracing.StartSpanFromContext(ctx, "cycle")
	defer span.Finish()

	if !e.ex.IsConfigured() {
		report.Reason = "exchange not configured"
		e.store.AppendLog(models.LogError, "cycle skipped: exchange not configured")
		// таймер дёргает цикл каждую минуту, в телеграм шлём один раз
		if e.warnedKeys.CompareAndSwap(false, true) {
			e.notifier.Send("⚠️ Циклы стоят: не заданы ключи OKX")
		}
		report.Elapsed = time.Since(report.StartedAt)
		return report
	}

	log.Printf("[CYCLE] старт: %d инструментов", report.TotalInstruments)
	for i, instID := range e.opts.Instruments {
		if i > 0 {
			if err := e.pace.Wait(ctx); err != nil {
				report.Reason = err.Error()
				break
			}
		}
		res := e.runInstrument(ctx, instID)
		report.Results = append(report.Results, res)
		if res.Executed {
			report.TradesExecuted++
		}
	}

	report.Executed = report.TradesExecuted > 0
	report.Elapsed = time.Since(report.StartedAt)
	e.lastCycle.Store(report.StartedAt.Unix())

	span.SetTag("instruments", report.TotalInstruments)
	span.SetTag("trades", report.TradesExecuted)
	metrics.RecordCycle()
	log.Printf("[CYCLE] готово: сделок %d из %d, заняло %s",
		report.TradesExecuted, report.TotalInstruments, report.Elapsed)
	return report
}
