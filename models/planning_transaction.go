package models

import "github.com/shopspring/decimal"

// PlanningTransaction представляет запланированную операцию.
// Поля повторяют Transaction, но баланс счета она не меняет.
type PlanningTransaction struct {
	ID                 uint                `gorm:"primaryKey;autoIncrement"`
	AccountID          uint                `gorm:"column:account_id;not null;index"`
	TransactionType    TransactionType     `gorm:"column:transaction_type;not null;default:0"`
	CategoryID         uint                `gorm:"column:category_id;not null;default:0;index"`
	Category           TransactionCategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET DEFAULT"`
	TransactionDate    Date                `gorm:"column:transaction_date;type:date;not null;index"`
	TransactionSum     decimal.Decimal     `gorm:"column:transaction_sum;type:decimal(10,2);not null"`
	TransactionComment string              `gorm:"column:transaction_comment;not null;size:255"`
}

func (PlanningTransaction) TableName() string {
	return "planning_transactions"
}
