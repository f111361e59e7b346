package services

import (
	"context"
	"errors"

	"bookkeeping/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountDTO - проекция счета для клиента
type AccountDTO struct {
	Username       string `json:"account_owner__username"`
	AccountNumber  string `json:"account_number"`
	AccountBalance string `json:"account_balance"`
}

// CreateAccountRequest - данные для открытия дополнительного счета
type CreateAccountRequest struct {
	AccountNumber string `json:"account_number" validate:"required,max=200"`
}

// AccountService предоставляет методы для работы со счетами
type AccountService struct {
	db        *gorm.DB
	validator *validator.Validate
}

func NewAccountService(db *gorm.DB, v *validator.Validate) *AccountService {
	return &AccountService{db: db, validator: v}
}

// GetAccountsByUserID возвращает все счета пользователя
func (s *AccountService) GetAccountsByUserID(ctx context.Context, userID uint) ([]AccountDTO, error) {
	var rows []struct {
		Username       string
		AccountNumber  string
		AccountBalance decimal.Decimal
	}
	err := s.db.WithContext(ctx).
		Table("accounts").
		Select("users.username AS username, accounts.account_number AS account_number, accounts.account_balance AS account_balance").
		Joins("JOIN users ON users.id = accounts.account_owner_id").
		Where("accounts.account_owner_id = ?", userID).
		Order("accounts.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	accounts := make([]AccountDTO, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, AccountDTO{
			Username:       row.Username,
			AccountNumber:  row.AccountNumber,
			AccountBalance: formatMoney(row.AccountBalance),
		})
	}
	return accounts, nil
}

// PrimaryAccount возвращает основной счет пользователя: открытый первым
func (s *AccountService) PrimaryAccount(ctx context.Context, userID uint) (*models.Account, error) {
	return primaryAccount(s.db.WithContext(ctx), userID, false)
}

// CreateAccount открывает пользователю еще один счет с нулевым балансом
func (s *AccountService) CreateAccount(ctx context.Context, userID uint, req CreateAccountRequest) (uint, error) {
	if err := validateStruct(s.validator, req); err != nil {
		return 0, err
	}
	account := &models.Account{OwnerID: userID, AccountNumber: req.AccountNumber}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return 0, err
	}
	return account.ID, nil
}

// primaryAccount ищет счет с наименьшим ID; lock блокирует строку до конца транзакции
func primaryAccount(db *gorm.DB, userID uint, lock bool) (*models.Account, error) {
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var account models.Account
	if err := db.Where("account_owner_id = ?", userID).Order("id").First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}
