package models

import "time"

type LogKind string

const (
	LogInfo   LogKind = "info"
	LogTrade  LogKind = "trade"
	LogError  LogKind = "error"
	LogSignal LogKind = "signal"
)

type LogEntry struct {
	At      time.Time `json:"at"`
	Kind    LogKind   `json:"kind"`
	Message string    `json:"message"`
}
