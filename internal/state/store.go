package state

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

const DefaultLogCapacity = 100

// Fill — подтверждённое исполнение ордера, вход для ApplyFill.
type Fill struct {
	InstID   string
	Side     models.PositionSide
	Size     float64
	Price    float64
	Leverage int
	OrderID  string
	Mode     string
	At       time.Time
}

// Snapshot — согласованная копия всего состояния для API.
type Snapshot struct {
	Instruments map[string]models.InstrumentState `json:"instruments"`
	Positions   []models.Position                 `json:"positions"`
	Logs        []models.LogEntry                 `json:"logs"`
	TradeConfig models.TradeConfig                `json:"tradeConfig"`
}

// Store — единственное разделяемое состояние процесса. Все операции —
// одиночные переходы под мьютексом, без I/O внутри.
type Store struct {
	mu          sync.RWMutex
	instruments map[string]*models.InstrumentState
	positions   []models.Position
	logs        []models.LogEntry
	logCap      int
	cfg         models.TradeConfig
	posSeq      int64
}

func New(cfg models.TradeConfig, logCap int) *Store {
	if logCap <= 0 {
		logCap = DefaultLogCapacity
	}
	if cfg.MaxLeverage < 1 {
		cfg.MaxLeverage = 1
	}
	cfg.Leverage = clampLeverage(cfg.Leverage, cfg.MaxLeverage)
	return &Store{
		instruments: map[string]*models.InstrumentState{},
		logCap:      logCap,
		cfg:         cfg,
	}
}

func clampLeverage(lev, max int) int {
	if lev < 1 {
		return 1
	}
	if lev > max {
		return max
	}
	return lev
}

// instState создаёт запись лениво. Вызывать только под Lock.
func (s *Store) instState(instID string) *models.InstrumentState {
	st, ok := s.instruments[instID]
	if !ok {
		st = &models.InstrumentState{}
		s.instruments[instID] = st
	}
	return st
}

func (s *Store) InstrumentState(instID string) models.InstrumentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.instruments[instID]; ok {
		return *st
	}
	return models.InstrumentState{}
}

func (s *Store) SetSignal(sig models.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.instState(sig.InstID)
	st.LastSignal = &sig
	if sig.Price > 0 {
		st.LastPrice = sig.Price
	}
}

// RecordTrade двигает кулдаун. Вызывается только после подтверждённого ордера.
func (s *Store) RecordTrade(instID string, side models.PositionSide, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.instState(instID)
	st.LastPosition = side
	st.LastTradeAt = at
}

// ApplyFill вносит исполнение в позиции: добор той же стороны усредняет вход,
// противоположная сторона закрывает старую позицию и открывает новую (flip).
// Возвращает закрытую позицию (если был flip) и актуальную открытую.
func (s *Store) ApplyFill(f Fill) (*models.Position, models.Position, error) {
	if f.Size <= 0 || math.IsNaN(f.Size) || math.IsInf(f.Size, 0) {
		return nil, models.Position{}, fmt.Errorf("fill %s: non-positive size %v", f.InstID, f.Size)
	}
	if f.Price <= 0 || math.IsNaN(f.Price) || math.IsInf(f.Price, 0) {
		return nil, models.Position{}, fmt.Errorf("fill %s: non-positive price %v", f.InstID, f.Price)
	}
	if f.Leverage < 1 {
		return nil, models.Position{}, fmt.Errorf("fill %s: leverage %d < 1", f.InstID, f.Leverage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.positions {
		if s.positions[i].InstID == f.InstID {
			idx = i
			break
		}
	}

	if idx >= 0 && s.positions[idx].Side == f.Side {
		p := &s.positions[idx]
		total := p.Size + f.Size
		p.EntryPrice = (p.EntryPrice*p.Size + f.Price*f.Size) / total
		p.Size = total
		p.Leverage = f.Leverage
		p.CurrentPrice = f.Price
		p.OrderID = f.OrderID
		return nil, *p, nil
	}

	var closed *models.Position
	if idx >= 0 {
		old := s.positions[idx]
		old.CurrentPrice = f.Price
		closed = &old
		s.positions = append(s.positions[:idx], s.positions[idx+1:]...)
	}

	s.posSeq++
	pos := models.Position{
		ID:           fmt.Sprintf("pos-%d", s.posSeq),
		InstID:       f.InstID,
		Side:         f.Side,
		Size:         f.Size,
		Leverage:     f.Leverage,
		EntryPrice:   f.Price,
		CurrentPrice: f.Price,
		OpenedAt:     f.At,
		OrderID:      f.OrderID,
		Mode:         f.Mode,
	}
	s.positions = append(s.positions, pos)
	return closed, pos, nil
}

func (s *Store) ClosePosition(id string) (models.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.positions {
		if s.positions[i].ID == id {
			p := s.positions[i]
			s.positions = append(s.positions[:i], s.positions[i+1:]...)
			return p, true
		}
	}
	return models.Position{}, false
}

func (s *Store) CloseAllPositions() []models.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.positions
	s.positions = nil
	return out
}

func (s *Store) Positions() []models.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Position, len(s.positions))
	copy(out, s.positions)
	return out
}

// UpdateMarketPrice обновляет последнюю цену инструмента и currentPrice
// всех его открытых позиций. Единственный сквозной эффект в модели.
func (s *Store) UpdateMarketPrice(instID string, price float64) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instState(instID).LastPrice = price
	for i := range s.positions {
		if s.positions[i].InstID == instID {
			s.positions[i].CurrentPrice = price
		}
	}
}

func (s *Store) AppendLog(kind models.LogKind, format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, models.LogEntry{
		At:      time.Now(),
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
	if len(s.logs) > s.logCap {
		s.logs = s.logs[len(s.logs)-s.logCap:]
	}
}

// Logs — копия журнала, свежие записи первыми.
func (s *Store) Logs() []models.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LogEntry, len(s.logs))
	for i, e := range s.logs {
		out[len(s.logs)-1-i] = e
	}
	return out
}

func (s *Store) TradeConfig() models.TradeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetTradeConfig: плечо зажимается в [1, MaxLeverage],
// неположительная маржа игнорируется.
func (s *Store) SetTradeConfig(margin float64, leverage int) models.TradeConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if margin > 0 && !math.IsNaN(margin) && !math.IsInf(margin, 0) {
		s.cfg.Margin = margin
	}
	s.cfg.Leverage = clampLeverage(leverage, s.cfg.MaxLeverage)
	return s.cfg
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Instruments: make(map[string]models.InstrumentState, len(s.instruments)),
		Positions:   make([]models.Position, len(s.positions)),
		Logs:        make([]models.LogEntry, len(s.logs)),
		TradeConfig: s.cfg,
	}
	for k, v := range s.instruments {
		snap.Instruments[k] = *v
	}
	copy(snap.Positions, s.positions)
	for i, e := range s.logs {
		snap.Logs[len(s.logs)-1-i] = e
	}
	return snap
}
