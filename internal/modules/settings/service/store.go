package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
)

// Store хранит торговые настройки в JSON-файле, чтобы выставленные
// через API маржа и плечо переживали рестарт.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

type snapshot struct {
	UpdatedAt time.Time          `json:"updated_at"`
	Trade     models.TradeConfig `json:"trade"`
}

// Load читает сохранённые настройки. Файла нет — ok=false без ошибки,
// бот стартует на дефолтах из конфига.
func (s *Store) Load() (models.TradeConfig, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.TradeConfig{}, false, nil
		}
		return models.TradeConfig{}, false, fmt.Errorf("read %s: %w", s.path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return models.TradeConfig{}, false, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return snap.Trade, true, nil
}

func (s *Store) Save(cfg models.TradeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	snap := snapshot{
		UpdatedAt: time.Now(),
		Trade:     cfg,
	}
	b, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path) // атомарно
}
