package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TransactionType представляет тип операции: расход или доход
type TransactionType int

const (
	TransactionTypeExpense TransactionType = 0
	TransactionTypeIncome  TransactionType = 1
)

var transactionTypeNames = map[TransactionType]string{
	TransactionTypeExpense: "Expense",
	TransactionTypeIncome:  "Income",
}

func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TransactionType(%d)", int(t))
}

// Valid сообщает, является ли значение одним из известных типов
func (t TransactionType) Valid() bool {
	_, ok := transactionTypeNames[t]
	return ok
}

// ParseTransactionTypeName переводит "Expense"/"Income" в тип.
// Сравнение чувствительно к регистру.
func ParseTransactionTypeName(name string) (TransactionType, bool) {
	for t, n := range transactionTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Apply возвращает баланс после проведения суммы: доход прибавляет, расход вычитает
func (t TransactionType) Apply(balance, sum decimal.Decimal) decimal.Decimal {
	if t == TransactionTypeIncome {
		return balance.Add(sum)
	}
	return balance.Sub(sum)
}

// Revert отменяет эффект Apply
func (t TransactionType) Revert(balance, sum decimal.Decimal) decimal.Decimal {
	if t == TransactionTypeIncome {
		return balance.Sub(sum)
	}
	return balance.Add(sum)
}
