package engine

import (
	"fmt"
	"time"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

// sma — среднее последних n значений до индекса i включительно.
func sma(values []float64, i, n int) float64 {
	sum := 0.0
	for j := i - n + 1; j <= i; j++ {
		sum += values[j]
	}
	return sum / float64(n)
}

// Analyze считает сигнал MA-кроссовера по ценам закрытия (от старых к новым).
// Сравнения идут по неокруглённым значениям, округление только в reason.
// Истории меньше slow+2 — WAIT с причиной и без MA.
func Analyze(instID string, closes []float64, fast, slow int) models.Signal {
	sig := models.Signal{
		InstID:    instID,
		Direction: models.DirectionWait,
		At:        time.Now(),
	}
	if n := len(closes); n > 0 {
		sig.Price = closes[n-1]
	}
	if fast < 1 || slow < 2 || fast >= slow {
		sig.Reason = fmt.Sprintf("bad MA periods fast=%d slow=%d", fast, slow)
		return sig
	}
	if len(closes) < slow+2 {
		sig.Reason = fmt.Sprintf("not enough data: %d candles, need %d", len(closes), slow+2)
		return sig
	}

	last := len(closes) - 1
	currFast := sma(closes, last, fast)
	currSlow := sma(closes, last, slow)
	prevFast := sma(closes, last-1, fast)
	prevSlow := sma(closes, last-1, slow)

	sig.FastMA = &currFast
	sig.SlowMA = &currSlow

	switch {
	case prevFast <= prevSlow && currFast > currSlow:
		sig.Direction = models.DirectionBuy
		sig.Reason = fmt.Sprintf("MA crossover up: fast %.2f > slow %.2f", currFast, currSlow)
	case currFast > currSlow:
		sig.Direction = models.DirectionBuy
		sig.Reason = fmt.Sprintf("uptrend: fast %.2f > slow %.2f", currFast, currSlow)
	case prevFast >= prevSlow && currFast < currSlow:
		sig.Direction = models.DirectionSell
		sig.Reason = fmt.Sprintf("MA crossover down: fast %.2f < slow %.2f", currFast, currSlow)
	case currFast < currSlow:
		sig.Direction = models.DirectionSell
		sig.Reason = fmt.Sprintf("downtrend: fast %.2f < slow %.2f", currFast, currSlow)
	default:
		sig.Reason = fmt.Sprintf("flat: fast %.2f = slow %.2f", currFast, currSlow)
	}
	return sig
}
