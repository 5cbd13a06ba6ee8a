package provider

import (
	"errors"
	"fmt"
)

// Ошибки провайдеров.
var (
	// ErrRequest — запрос не выполнен (сеть, таймаут, отмена).
	ErrRequest = errors.New("provider request failed")

	// ErrDecode — ответ провайдера не удалось разобрать.
	ErrDecode = errors.New("provider response malformed")

	// ErrNotConfigured — провайдер не настроен (нет URL или модели).
	ErrNotConfigured = errors.New("provider not configured")
)

// StatusError — провайдер ответил HTTP статусом >= 400.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error реализует интерфейс error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d: %s", e.StatusCode, e.Body)
}

// IsStatusError проверяет, является ли ошибка StatusError.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
