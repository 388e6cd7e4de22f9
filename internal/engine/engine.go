package engine

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/state"
)

type Options struct {
	Instruments     []string
	Timeframe       string
	CandleLimit     int
	FastPeriod      int
	SlowPeriod      int
	Cooldown        time.Duration
	InstrumentPause time.Duration
	WatchTopN       int
}

// Engine гоняет циклы по инструментам: кулдаун, данные, сигнал,
// решение, ордер, обновление стора. Инструменты идут строго
// последовательно, пауза между ними держит нас ниже лимитов биржи.
type Engine struct {
	store    *state.Store
	ex       Exchange
	history  History
	notifier Notifier
	opts     Options

	pace       *rate.Limiter
	running    atomic.Bool
	lastCycle  atomic.Int64
	warnedKeys atomic.Bool
}

func New(store *state.Store, ex Exchange, history History, notifier Notifier, opts Options) *Engine {
	if opts.Timeframe == "" {
		opts.Timeframe = "5m"
	}
	if opts.CandleLimit <= 0 {
		opts.CandleLimit = 100
	}
	if opts.FastPeriod <= 0 {
		opts.FastPeriod = 9
	}
	if opts.SlowPeriod <= 0 {
		opts.SlowPeriod = 21
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	if opts.InstrumentPause <= 0 {
		opts.InstrumentPause = time.Second
	}
	return &Engine{
		store:    store,
		ex:       ex,
		history:  history,
		notifier: notifier,
		opts:     opts,
		pace:     rate.NewLimiter(rate.Every(opts.InstrumentPause), 1),
	}
}

// EnsureWatchlist заполняет пустой список инструментов топом волатильных
// USDT-перпов. Вызывается один раз на старте, до запуска таймера.
func (e *Engine) EnsureWatchlist(ctx context.Context) {
	if len(e.opts.Instruments) > 0 {
		return
	}
	n := e.opts.WatchTopN
	if n <= 0 {
		n = 10
	}
	syms, err := e.ex.TopVolatile(ctx, n)
	if err != nil {
		log.Printf("[WATCHLIST] не удалось собрать топ волатильных: %v", err)
		e.store.AppendLog(models.LogError, "watchlist: %v", err)
		return
	}
	e.opts.Instruments = syms
	log.Printf("[WATCHLIST] топ %d волатильных SWAP: %v", len(syms), syms)
	e.store.AppendLog(models.LogInfo, "watchlist seeded: %d instruments", len(syms))
}

func (e *Engine) Instruments() []string {
	out := make([]string, len(e.opts.Instruments))
	copy(out, e.opts.Instruments)
	return out
}

func (e *Engine) LastCycleAt() time.Time {
	if ts := e.lastCycle.Load(); ts > 0 {
		return time.Unix(ts, 0)
	}
	return time.Time{}
}
