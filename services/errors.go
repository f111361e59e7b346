package services

import (
	"errors"
	"fmt"
)

// Ошибки бизнес-логики; контроллеры переводят их в HTTP статусы
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// ParseError описывает, какое поле запроса не удалось разобрать.
// Клиенту причина не показывается, она нужна только для логов.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("поле %s: %s", e.Field, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrBadRequest
}

func parseError(field, reason string) error {
	return &ParseError{Field: field, Reason: reason}
}
