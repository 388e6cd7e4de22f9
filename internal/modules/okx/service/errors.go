package service

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindRateLimited ErrorKind = "rate_limited"
	KindExchange    ErrorKind = "exchange"
	KindOrder       ErrorKind = "order"
)

// ErrNotConfigured — ключи не заданы. Планировщик проверяет до цикла.
var ErrNotConfigured = errors.New("okx: credentials not configured")

// APIError — типизированная ошибка коннектора. Вызывающий код ветвится
// по Kind через errors.As, не по подстрокам сообщения.
type APIError struct {
	Kind ErrorKind
	Code string
	Msg  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("okx %s [%s]: %s", e.Kind, e.Code, e.Msg)
	}
	return fmt.Sprintf("okx %s: %s", e.Kind, e.Msg)
}

// Retryable: сетевые и rate-limit ошибки повторяемы, отказы биржи — нет.
func (e *APIError) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindRateLimited
}

// KindOf — Kind ошибки для метрик и логов.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ErrorKind("internal")
}
