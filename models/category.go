package models

// DefaultCategoryID - категория, на которую переводятся транзакции при удалении их категории
const DefaultCategoryID uint = 0

// DefaultCategoryName имя категории по умолчанию
const DefaultCategoryName = "None"

// TransactionCategory представляет категорию доходов или расходов.
// Тип категории не сверяется с типом транзакции.
type TransactionCategory struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"`
	CategoryType TransactionType `gorm:"column:category_type;not null;default:0"`
	CategoryName string          `gorm:"column:category_name;not null;size:255;default:'None'"`
}

func (TransactionCategory) TableName() string {
	return "transaction_categories"
}

// DisplayName возвращает имя категории. Preload не подгружает связь с нулевым ключом,
// поэтому пустая категория с ID 0 считается категорией по умолчанию.
func (c TransactionCategory) DisplayName() string {
	if c.ID == DefaultCategoryID && c.CategoryName == "" {
		return DefaultCategoryName
	}
	return c.CategoryName
}
