package services

import (
	"context"
	"errors"
	"time"

	"bookkeeping/models"

	"github.com/shopspring/decimal"
)

// Виды событий журнала; совпадают с ключами маршрутизации в брокере
const (
	EventTransactionAdded   = "transaction.added"
	EventTransactionDeleted = "transaction.deleted"
	EventPlanningAdded      = "planning.added"
	EventPlanningDeleted    = "planning.deleted"
)

// LedgerEvent описывает зафиксированное изменение журнала
type LedgerEvent struct {
	Kind       string                 `json:"kind"`
	UserID     uint                   `json:"user_id"`
	AccountID  uint                   `json:"account_id"`
	RecordID   uint                   `json:"record_id"`
	Type       models.TransactionType `json:"transaction_type"`
	Category   string                 `json:"category"`
	Date       string                 `json:"transaction_date"`
	Sum        decimal.Decimal        `json:"transaction_sum"`
	Balance    *decimal.Decimal       `json:"account_balance,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Notifier получает события после коммита.
// Ошибка уведомления не откатывает операцию.
type Notifier interface {
	Notify(ctx context.Context, event LedgerEvent) error
}

// Notifiers рассылает событие всем получателям
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, event LedgerEvent) error {
	var errs []error
	for _, notifier := range n {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopNotifier ничего не делает
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, LedgerEvent) error { return nil }
