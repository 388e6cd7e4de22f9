package service

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/metrics"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/config"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/state"
)

// Watchlist отдаёт текущий список инструментов. Список может быть пуст,
// пока движок не собрал топ волатильных — стрим ждёт и переспрашивает.
type Watchlist interface {
	Instruments() []string
}

// Status — кому сообщаем о состоянии соединения (health-эндпоинт).
type Status interface {
	SetWSConnected(up bool)
}

// Stream держит один WebSocket на канал tickers и толкает последние цены
// в стор. Торговля без него работает, цены просто свежее.
type Stream struct {
	cfg    *config.Config
	store  *state.Store
	watch  Watchlist
	status Status
	dialer *websocket.Dialer
}

func NewStream(cfg *config.Config, store *state.Store, watch Watchlist, status Status) *Stream {
	return &Stream{
		cfg:    cfg,
		store:  store,
		watch:  watch,
		status: status,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Run крутит reconnect-цикл до отмены контекста.
func (s *Stream) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		insts := s.watch.Instruments()
		if len(insts) == 0 {
			time.Sleep(2 * time.Second)
			continue
		}

		s.connectAndRead(ctx, insts)

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(time.Second)
		}
	}
}

func (s *Stream) connectAndRead(ctx context.Context, insts []string) {
	url := s.cfg.OKX.WSURL
	log.Printf("[WS] connect %s, %d symbols", url, len(insts))
	conn, _, err := s.dialer.Dial(url, nil)
	if err != nil {
		log.Printf("[WS] dial error: %v", err)
		return
	}
	defer func() {
		_ = conn.Close()
		s.setConnected(false)
	}()

	args := make([]map[string]string, 0, len(insts))
	for _, id := range insts {
		args = append(args, map[string]string{
			"channel": "tickers",
			"instId":  id,
		})
	}
	sub := map[string]any{
		"op":   "subscribe",
		"args": args,
	}
	if err := conn.WriteJSON(sub); err != nil {
		log.Printf("[WS] subscribe error: %v", err)
		return
	}
	s.setConnected(true)

	// keepalive ping каждые 20s — иначе OKX рвёт соединение
	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		t := time.NewTicker(20 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopPing:
				return
			case <-t.C:
				_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] read error: %v", err)
			return
		}
		if string(msg) == "pong" {
			continue
		}

		var frame struct {
			Event string `json:"event"`
			Msg   string `json:"msg"`
			Arg   struct {
				Channel string `json:"channel"`
				InstID  string `json:"instId"`
			} `json:"arg"`
			Data []struct {
				InstID string `json:"instId"`
				Last   string `json:"last"`
			} `json:"data"`
		}
		if err := json.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Event == "error" {
			log.Printf("[WS] server error: %s", frame.Msg)
			continue
		}
		if frame.Arg.Channel != "tickers" || len(frame.Data) == 0 {
			continue
		}

		for _, row := range frame.Data {
			last, err := strconv.ParseFloat(row.Last, 64)
			if err != nil || last <= 0 {
				continue
			}
			instID := row.InstID
			if instID == "" {
				instID = frame.Arg.InstID
			}
			s.store.UpdateMarketPrice(instID, last)
		}
	}
}

func (s *Stream) setConnected(up bool) {
	metrics.SetWSConnected(up)
	if s.status != nil {
		s.status.SetWSConnected(up)
	}
}
