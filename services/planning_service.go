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

// PlanningService ведет план будущих операций. Баланс счета план не меняет.
type PlanningService struct {
	db        *gorm.DB
	validator *validator.Validate
	notifier  Notifier
	metrics   *utils.Metrics
	log       *slog.Logger
}

func NewPlanningService(db *gorm.DB, v *validator.Validate, notifier Notifier, metrics *utils.Metrics, logger *slog.Logger) *PlanningService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if metrics == nil {
		metrics = utils.GetMetrics()
	}
	return &PlanningService{
		db:        db,
		validator: v,
		notifier:  notifier,
		metrics:   metrics,
		log:       utils.Component(logger, "planning"),
	}
}

// List возвращает план основного счета, поздние даты первыми
func (s *PlanningService) List(ctx context.Context, userID uint) ([]TransactionDTO, error) {
	account, err := primaryAccount(s.db.WithContext(ctx), userID, false)
	if err != nil {
		return nil, err
	}

	var records []models.PlanningTransaction
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
		result = append(result, TransactionDTO{ID: records[i].ID, TransactionFields: planningFields(&records[i])})
	}
	return result, nil
}

// Add добавляет запланированную операцию
func (s *PlanningService) Add(ctx context.Context, userID uint, req TransactionRequest) (id uint, err error) {
	defer func(start time.Time) { utils.LogOperation(s.log, "planning.add", start, err) }(time.Now())

	in, err := ParseTransactionRequest(s.validator, req)
	if err != nil {
		return 0, err
	}

	db := s.db.WithContext(ctx)
	category, err := findCategoryByName(db, in.CategoryName)
	if err != nil {
		return 0, err
	}
	account, err := primaryAccount(db, userID, false)
	if err != nil {
		return 0, err
	}

	record := models.PlanningTransaction{
		AccountID:          account.ID,
		TransactionType:    in.Type,
		CategoryID:         category.ID,
		Category:           *category,
		TransactionDate:    in.Date,
		TransactionSum:     in.Sum,
		TransactionComment: in.Comment,
	}
	if err := db.Omit(clause.Associations).Create(&record).Error; err != nil {
		return 0, err
	}

	s.metrics.RecordLedgerOperation(utils.OpPlanningAdded)
	s.notify(ctx, planningEvent(EventPlanningAdded, userID, &record))
	return record.ID, nil
}

// Delete удаляет запланированную операцию пользователя
func (s *PlanningService) Delete(ctx context.Context, userID uint, planID uint) (id uint, err error) {
	defer func(start time.Time) { utils.LogOperation(s.log, "planning.delete", start, err) }(time.Now())

	db := s.db.WithContext(ctx)
	ownAccounts := db.Model(&models.Account{}).Select("id").Where("account_owner_id = ?", userID)

	var record models.PlanningTransaction
	err = db.Preload("Category").
		Where("id = ? AND account_id IN (?)", planID, ownAccounts).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if err := db.Delete(&record).Error; err != nil {
		return 0, err
	}

	s.metrics.RecordLedgerOperation(utils.OpPlanningDeleted)
	s.notify(ctx, planningEvent(EventPlanningDeleted, userID, &record))
	return record.ID, nil
}

func (s *PlanningService) notify(ctx context.Context, event LedgerEvent) {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(notifyCtx, event); err != nil {
		s.log.Warn("не удалось отправить уведомление", slog.String("event", event.Kind), slog.Any("error", err))
	}
}

func planningFields(p *models.PlanningTransaction) TransactionFields {
	return TransactionFields{
		TransactionDate:    p.TransactionDate.Format(DateLayout),
		TransactionType:    p.TransactionType,
		CategoryName:       p.Category.DisplayName(),
		TransactionSum:     formatMoney(p.TransactionSum),
		TransactionComment: p.TransactionComment,
	}
}

func planningEvent(kind string, userID uint, p *models.PlanningTransaction) LedgerEvent {
	return LedgerEvent{
		Kind:       kind,
		UserID:     userID,
		AccountID:  p.AccountID,
		RecordID:   p.ID,
		Type:       p.TransactionType,
		Category:   p.Category.DisplayName(),
		Date:       p.TransactionDate.Format(DateLayout),
		Sum:        p.TransactionSum,
		OccurredAt: time.Now().UTC(),
	}
}
