package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"bookkeeping/models"
	"bookkeeping/utils"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const notifyTimeout = 10 * time.Second

// TransactionFields - поля транзакции в ответе клиенту
type TransactionFields struct {
	TransactionDate    string                 `json:"transaction_date"`
	TransactionType    models.TransactionType `json:"transaction_type"`
	CategoryName       string                 `json:"transaction_category__category_name"`
	TransactionSum     string                 `json:"transaction_sum"`
	TransactionComment string                 `json:"transaction_comment"`
}

// TransactionDTO - транзакция вместе с идентификатором
type TransactionDTO struct {
	ID uint `json:"id"`
	TransactionFields
}

// LedgerService ведет журнал транзакций и баланс счета
type LedgerService struct {
	db        *gorm.DB
	validator *validator.Validate
	notifier  Notifier
	metrics   *utils.Metrics
	log       *slog.Logger
}

func NewLedgerService(db *gorm.DB, v *validator.Validate, notifier Notifier, metrics *utils.Metrics, logger *slog.Logger) *LedgerService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if metrics == nil {
		metrics = utils.GetMetrics()
	}
	return &LedgerService{
		db:        db,
		validator: v,
		notifier:  notifier,
		metrics:   metrics,
		log:       utils.Component(logger, "ledger"),
	}
}

// ListLatest возвращает все транзакции основного счета, новые первыми
func (s *LedgerService) ListLatest(ctx context.Context, userID uint) ([]TransactionDTO, error) {
	account, err := s.accountForRead(ctx, userID)
	if err != nil {
		return nil, err
	}

	var records []models.Transaction
	err = s.db.WithContext(ctx).
		Preload("Category").
		Where("account_id = ?", account.ID).
		Order("transaction_date DESC").
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	result := make([]TransactionDTO, 0, len(records))
	for i := range records {
		result = append(result, TransactionDTO{ID: records[i].ID, TransactionFields: transactionFields(&records[i])})
	}
	return result, nil
}

// Filter выбирает транзакции по условиям. Точная дата важнее диапазона;
// диапазон применяется, только если заданы обе границы.
func (s *LedgerService) Filter(ctx context.Context, userID uint, f TransactionFilter) ([]TransactionFields, error) {
	account, err := s.accountForRead(ctx, userID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	query := db.Preload("Category").Where("account_id = ?", account.ID)

	switch {
	case f.Date != nil:
		query = query.Where("transaction_date = ?", *f.Date)
	case f.StartDate != nil && f.EndDate != nil:
		query = query.Where("transaction_date BETWEEN ? AND ?", *f.StartDate, *f.EndDate)
	}
	if f.Type != nil {
		query = query.Where("transaction_type = ?", *f.Type)
	}
	if f.Category != nil {
		categoryIDs := db.Model(&models.TransactionCategory{}).Select("id").Where("category_name = ?", *f.Category)
		query = query.Where("category_id IN (?)", categoryIDs)
	}

	var records []models.Transaction
	if err := query.Order("transaction_date DESC").Order("id").Find(&records).Error; err != nil {
		return nil, err
	}

	result := make([]TransactionFields, 0, len(records))
	for i := range records {
		result = append(result, transactionFields(&records[i]))
	}
	return result, nil
}

// Add записывает транзакцию и в той же транзакции БД меняет баланс счета
func (s *LedgerService) Add(ctx context.Context, userID uint, req TransactionRequest) (id uint, err error) {
	defer func(start time.Time) { utils.LogOperation(s.log, "transaction.add", start, err) }(time.Now())

	in, err := ParseTransactionRequest(s.validator, req)
	if err != nil {
		return 0, err
	}

	var record models.Transaction
	var account *models.Account
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := findCategoryByName(tx, in.CategoryName)
		if err != nil {
			return err
		}

		account, err = primaryAccount(tx, userID, true)
		if err != nil {
			return err
		}

		record = models.Transaction{
			AccountID:          account.ID,
			TransactionType:    in.Type,
			CategoryID:         category.ID,
			Category:           *category,
			TransactionDate:    in.Date,
			TransactionSum:     in.Sum,
			TransactionComment: in.Comment,
		}
		if err := tx.Omit(clause.Associations).Create(&record).Error; err != nil {
			return err
		}

		account.AccountBalance = in.Type.Apply(account.AccountBalance, in.Sum)
		return tx.Model(account).Update("account_balance", account.AccountBalance).Error
	})
	if err != nil {
		return 0, err
	}

	s.metrics.RecordLedgerOperation(utils.OpTransactionAdded)
	s.notify(ctx, ledgerEvent(EventTransactionAdded, userID, account, &record))
	return record.ID, nil
}

// Delete удаляет транзакцию пользователя и откатывает ее влияние на баланс
func (s *LedgerService) Delete(ctx context.Context, userID uint, transactionID uint) (id uint, err error) {
	defer func(start time.Time) { utils.LogOperation(s.log, "transaction.delete", start, err) }(time.Now())

	var record models.Transaction
	var account models.Account
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownAccounts := tx.Model(&models.Account{}).Select("id").Where("account_owner_id = ?", userID)
		err := tx.Preload("Category").
			Where("id = ? AND account_id IN (?)", transactionID, ownAccounts).
			First(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&account, record.AccountID).Error
		if err != nil {
			return err
		}

		account.AccountBalance = record.TransactionType.Revert(account.AccountBalance, record.TransactionSum)
		if err := tx.Model(&account).Update("account_balance", account.AccountBalance).Error; err != nil {
			return err
		}
		return tx.Delete(&record).Error
	})
	if err != nil {
		return 0, err
	}

	s.metrics.RecordLedgerOperation(utils.OpTransactionDeleted)
	s.notify(ctx, ledgerEvent(EventTransactionDeleted, userID, &account, &record))
	return record.ID, nil
}

// accountForRead возвращает основной счет без блокировки
func (s *LedgerService) accountForRead(ctx context.Context, userID uint) (*models.Account, error) {
	return primaryAccount(s.db.WithContext(ctx), userID, false)
}

func (s *LedgerService) notify(ctx context.Context, event LedgerEvent) {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(notifyCtx, event); err != nil {
		s.log.Warn("не удалось отправить уведомление",
			slog.String("event", event.Kind),
			slog.Uint64("record_id", uint64(event.RecordID)),
			slog.Any("error", err))
	}
}

func transactionFields(t *models.Transaction) TransactionFields {
	return TransactionFields{
		TransactionDate:    t.TransactionDate.Format(DateLayout),
		TransactionType:    t.TransactionType,
		CategoryName:       t.Category.DisplayName(),
		TransactionSum:     formatMoney(t.TransactionSum),
		TransactionComment: t.TransactionComment,
	}
}

func ledgerEvent(kind string, userID uint, account *models.Account, t *models.Transaction) LedgerEvent {
	balance := account.AccountBalance
	return LedgerEvent{
		Kind:       kind,
		UserID:     userID,
		AccountID:  account.ID,
		RecordID:   t.ID,
		Type:       t.TransactionType,
		Category:   t.Category.DisplayName(),
		Date:       t.TransactionDate.Format(DateLayout),
		Sum:        t.TransactionSum,
		Balance:    &balance,
		OccurredAt: time.Now().UTC(),
	}
}
