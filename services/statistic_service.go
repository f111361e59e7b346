package services

import (
	"context"

	"bookkeeping/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatisticEntry - элемент ответа статистики: одна пара имя-сумма.
// Отсутствие операций дает null.
type StatisticEntry map[string]*float64

// StatisticService считает итоги по счету за период
type StatisticService struct {
	db *gorm.DB
}

func NewStatisticService(db *gorm.DB) *StatisticService {
	return &StatisticService{db: db}
}

// Statistic возвращает доход, расход и итоги по категориям за период
func (s *StatisticService) Statistic(ctx context.Context, userID uint, rng DateRange) ([]StatisticEntry, error) {
	return s.summarize(ctx, userID, rng, models.Transaction{}.TableName(), true)
}

// PlannedStatistic возвращает плановые доход и расход за период
func (s *StatisticService) PlannedStatistic(ctx context.Context, userID uint, rng DateRange) ([]StatisticEntry, error) {
	return s.summarize(ctx, userID, rng, models.PlanningTransaction{}.TableName(), false)
}

func (s *StatisticService) summarize(ctx context.Context, userID uint, rng DateRange, table string, byCategory bool) ([]StatisticEntry, error) {
	db := s.db.WithContext(ctx)
	account, err := primaryAccount(db, userID, false)
	if err != nil {
		return nil, err
	}

	inPeriod := func() *gorm.DB {
		return db.Table(table).
			Where(table+".account_id = ?", account.ID).
			Where(table+".transaction_date BETWEEN ? AND ?", rng.Start, rng.End)
	}

	income, err := sumByType(inPeriod(), table, models.TransactionTypeIncome)
	if err != nil {
		return nil, err
	}
	expense, err := sumByType(inPeriod(), table, models.TransactionTypeExpense)
	if err != nil {
		return nil, err
	}

	result := []StatisticEntry{
		{"income": nullableFloat(income)},
		{"expense": nullableFloat(expense)},
	}
	if !byCategory {
		return result, nil
	}

	var rows []struct {
		CategoryName string
		Total        decimal.NullDecimal
	}
	err = inPeriod().
		Select("transaction_categories.category_name AS category_name, SUM(" + table + ".transaction_sum) AS total").
		Joins("JOIN transaction_categories ON transaction_categories.id = " + table + ".category_id").
		Group("transaction_categories.category_name").
		Order("transaction_categories.category_name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result = append(result, StatisticEntry{row.CategoryName: nullableFloat(row.Total)})
	}
	return result, nil
}

func sumByType(query *gorm.DB, table string, t models.TransactionType) (decimal.NullDecimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	err := query.
		Select("SUM("+table+".transaction_sum) AS total").
		Where(table+".transaction_type = ?", t).
		Scan(&row).Error
	return row.Total, err
}

func nullableFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}
