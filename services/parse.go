package services

import (
	"encoding/json"
	"errors"
	"strings"

	"bookkeeping/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DateLayout - формат дат в запросах и ответах
const DateLayout = models.DateLayout

var (
	minTransactionSum = decimal.RequireFromString("0.01")
	// decimal(10,2): не больше 8 цифр до запятой
	maxTransactionSum = decimal.RequireFromString("100000000")
)

// Границы показателя степени суммы до любой арифметики: Round и Cmp
// масштабируют коэффициент на 10^|exp|.
const (
	minSumExponent = -20
	maxSumExponent = 8
	maxSumLength   = 64
)

// TransactionRequest - тело запроса на добавление транзакции или плана.
// Указатели позволяют отличить отсутствующее поле от пустого значения.
type TransactionRequest struct {
	TransactionType     *json.Number `json:"transaction_type" validate:"required"`
	TransactionCategory *string      `json:"transaction_category" validate:"required"`
	TransactionDate     *string      `json:"transaction_date" validate:"required"`
	TransactionSum      *json.Number `json:"transaction_sum" validate:"required"`
	TransactionComment  *string      `json:"transaction_comment" validate:"required,max=255"`
}

// TransactionInput - разобранный и проверенный запрос
type TransactionInput struct {
	Type         models.TransactionType
	CategoryName string
	Date         models.Date
	Sum          decimal.Decimal
	Comment      string
}

// ParseTransactionRequest проверяет запрос и приводит поля к типам модели.
// Сумма берется по модулю: знак задается типом операции.
func ParseTransactionRequest(v *validator.Validate, req TransactionRequest) (TransactionInput, error) {
	if err := validateStruct(v, req); err != nil {
		return TransactionInput{}, err
	}

	var in TransactionInput

	typ, err := req.TransactionType.Int64()
	if err != nil || !models.TransactionType(typ).Valid() {
		return in, parseError("transaction_type", "ожидается 0 или 1")
	}
	in.Type = models.TransactionType(typ)

	in.CategoryName = strings.TrimSpace(*req.TransactionCategory)
	if in.CategoryName == "" {
		return in, parseError("transaction_category", "пустое имя категории")
	}

	in.Date, err = ParseDate(*req.TransactionDate)
	if err != nil {
		return in, parseError("transaction_date", "ожидается дата в формате ГГГГ-ММ-ДД")
	}

	in.Sum, err = ParseSum(string(*req.TransactionSum))
	if err != nil {
		return in, err
	}

	in.Comment = *req.TransactionComment
	return in, nil
}

// ParseSum разбирает сумму с фиксированной точкой и берет ее по модулю
func ParseSum(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxSumLength {
		return decimal.Zero, parseError("transaction_sum", "слишком длинное число")
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, parseError("transaction_sum", "не число")
	}
	if exp := sum.Exponent(); exp < minSumExponent || exp > maxSumExponent {
		return decimal.Zero, parseError("transaction_sum", "недопустимый порядок числа")
	}
	sum = sum.Abs()
	if !sum.Equal(sum.Round(2)) {
		return decimal.Zero, parseError("transaction_sum", "больше двух знаков после запятой")
	}
	if sum.LessThan(minTransactionSum) {
		return decimal.Zero, parseError("transaction_sum", "сумма меньше 0.01")
	}
	if sum.GreaterThanOrEqual(maxTransactionSum) {
		return decimal.Zero, parseError("transaction_sum", "сумма не помещается в decimal(10,2)")
	}
	return sum.Round(2), nil
}

// ParseDate разбирает дату ГГГГ-ММ-ДД
func ParseDate(raw string) (models.Date, error) {
	return models.ParseDate(strings.TrimSpace(raw))
}

// DateRange - включительный диапазон дат
type DateRange struct {
	Start models.Date
	End   models.Date
}

// ParseDateRange требует обе границы диапазона
func ParseDateRange(start, end string) (DateRange, error) {
	if start == "" {
		return DateRange{}, parseError("transaction_start_date", "отсутствует")
	}
	if end == "" {
		return DateRange{}, parseError("transaction_end_date", "отсутствует")
	}
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, parseError("transaction_start_date", "неверный формат даты")
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, parseError("transaction_end_date", "неверный формат даты")
	}
	return DateRange{Start: s, End: e}, nil
}

// TransactionFilter - условия выборки транзакций; nil означает отсутствие условия
type TransactionFilter struct {
	Date      *models.Date
	Type      *models.TransactionType
	Category  *string
	StartDate *models.Date
	EndDate   *models.Date
}

// FilterParams - строковые параметры запроса фильтрации
type FilterParams struct {
	Date      string `form:"transaction_date"`
	Type      string `form:"transaction_type"`
	Category  string `form:"transaction_category"`
	StartDate string `form:"transaction_start_date"`
	EndDate   string `form:"transaction_end_date"`
}

// ParseFilter разбирает параметры фильтра. Неизвестный тип молча игнорируется,
// неверная дата - ошибка запроса.
func ParseFilter(p FilterParams) (TransactionFilter, error) {
	var f TransactionFilter

	dates := []struct {
		field string
		raw   string
		dst   **models.Date
	}{
		{"transaction_date", p.Date, &f.Date},
		{"transaction_start_date", p.StartDate, &f.StartDate},
		{"transaction_end_date", p.EndDate, &f.EndDate},
	}
	for _, d := range dates {
		if d.raw == "" {
			continue
		}
		t, err := ParseDate(d.raw)
		if err != nil {
			return TransactionFilter{}, parseError(d.field, "неверный формат даты")
		}
		*d.dst = &t
	}

	if t, ok := models.ParseTransactionTypeName(p.Type); ok {
		f.Type = &t
	}
	if p.Category != "" {
		category := p.Category
		f.Category = &category
	}
	return f, nil
}

// validateStruct превращает первую ошибку валидатора в ParseError
func validateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		e := validationErrors[0]
		return parseError(e.Field(), e.Tag())
	}
	return parseError("body", err.Error())
}

// formatMoney выводит сумму с двумя знаками после запятой
func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
