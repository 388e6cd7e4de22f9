package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/state"
)

// Runner — движок с точки зрения Telegram-команд.
type Runner interface {
	RunCycle(ctx context.Context) models.CycleReport
	LastCycleAt() time.Time
	Instruments() []string
}

// Telegram — нотифайер о сделках + несколько команд для контроля с телефона.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	store  *state.Store

	runner Runner
}

func NewTelegram(token string, chatID int64, store *state.Store) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		store:  store,
	}, nil
}

// SetRunner цепляет движок после сборки графа: нотифайер нужен движку
// в конструкторе, поэтому ссылка в обратную сторону ставится позже.
func (t *Telegram) SetRunner(r Runner) { t.runner = r }

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Start: long-polling команд из нужного чата.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "status":
					go t.handleStatus()
				case "positions":
					go t.handlePositions()
				case "cycle":
					go t.handleCycle(ctx)
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) handleStatus() {
	cfg := t.store.TradeConfig()
	positions := t.store.Positions()

	var b strings.Builder
	b.WriteString("🤖 Статус бота\n")
	fmt.Fprintf(&b, "Маржа: %.2f USDT, плечо: x%d\n", cfg.Margin, cfg.Leverage)
	if t.runner != nil {
		fmt.Fprintf(&b, "Инструментов: %d\n", len(t.runner.Instruments()))
		if last := t.runner.LastCycleAt(); !last.IsZero() {
			fmt.Fprintf(&b, "Последний цикл: %s\n", last.Format(time.RFC3339))
		} else {
			b.WriteString("Циклов ещё не было\n")
		}
	}
	fmt.Fprintf(&b, "Открытых позиций: %d", len(positions))
	t.Send(b.String())
}

func (t *Telegram) handlePositions() {
	positions := t.store.Positions()
	if len(positions) == 0 {
		t.Send("📭 Открытых позиций нет")
		return
	}

	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s [%s] size=%.6f @ %.2f lev=x%d pnl=%.2f\n",
			p.InstID, strings.ToUpper(string(p.Side)), p.Size, p.EntryPrice, p.Leverage, p.PnL(p.CurrentPrice))
	}
	t.Send(b.String())
}

func (t *Telegram) handleCycle(ctx context.Context) {
	if t.runner == nil {
		t.Send("❗️ Движок ещё не подключен")
		return
	}
	t.Send("▶️ Запускаю цикл...")
	report := t.runner.RunCycle(ctx)
	if report.Reason != "" && report.TradesExecuted == 0 {
		t.Sendf("⚠️ Цикл: %s", report.Reason)
		return
	}
	t.Sendf("✅ Цикл готов: сделок %d из %d за %s",
		report.TradesExecuted, report.TotalInstruments, report.Elapsed.Round(time.Millisecond))
}

// Stdout — заглушка без Telegram: всё уходит в лог.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { log.Println(msg) }
func (s *Stdout) Sendf(format string, args ...any) { log.Printf(format, args...) }
