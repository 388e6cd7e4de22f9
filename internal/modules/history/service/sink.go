package service

import (
	"context"
	"sync"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

// Sink — журнал исполненных сделок. Append не должен ронять цикл:
// движок логирует ошибку и идёт дальше.
type Sink interface {
	Append(ctx context.Context, rec models.TradeRecord) error
	Recent(ctx context.Context, limit int) ([]models.TradeRecord, error)
}

// MemorySink — кольцо в памяти, когда DSN не задан. История живёт
// до рестарта, для демо-прогонов этого достаточно.
type MemorySink struct {
	mu   sync.Mutex
	recs []models.TradeRecord
	cap  int
	seq  int64
}

func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemorySink{cap: capacity}
}

func (m *MemorySink) Append(_ context.Context, rec models.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	rec.ID = m.seq
	m.recs = append(m.recs, rec)
	if len(m.recs) > m.cap {
		m.recs = m.recs[len(m.recs)-m.cap:]
	}
	return nil
}

func (m *MemorySink) Recent(_ context.Context, limit int) ([]models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.recs) {
		limit = len(m.recs)
	}
	out := make([]models.TradeRecord, 0, limit)
	for i := len(m.recs) - 1; i >= len(m.recs)-limit; i-- {
		out = append(out, m.recs[i])
	}
	return out, nil
}
