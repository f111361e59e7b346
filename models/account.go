package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account представляет счет пользователя с текущим балансом.
// Баланс меняется только вместе с добавлением или удалением транзакции.
type Account struct {
	ID             uint                  `gorm:"primaryKey;autoIncrement"`
	OwnerID        uint                  `gorm:"column:account_owner_id;not null;index"`
	AccountNumber  string                `gorm:"column:account_number;not null;size:200"`
	AccountBalance decimal.Decimal       `gorm:"column:account_balance;type:decimal(10,2);not null;default:0"`
	Transactions   []Transaction         `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	Plans          []PlanningTransaction `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time             `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (Account) TableName() string {
	return "accounts"
}
