package service

import (
	"sync/atomic"
	"time"
)

// State — флаги готовности для health-эндпоинтов.
type State struct {
	ready       atomic.Bool
	wsConnected atomic.Bool
	startedAt   time.Time
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
