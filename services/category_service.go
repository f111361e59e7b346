package services

import (
	"context"
	"errors"
	"fmt"

	"bookkeeping/models"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// CategoryDTO - категория в ответе клиенту
type CategoryDTO struct {
	CategoryType models.TransactionType `json:"category_type"`
	CategoryName string                 `json:"category_name"`
}

// CreateCategoryRequest - данные для новой категории
type CreateCategoryRequest struct {
	CategoryType *models.TransactionType `json:"category_type" validate:"required"`
	CategoryName string                  `json:"category_name" validate:"required,max=255"`
}

// CategoryService управляет справочником категорий
type CategoryService struct {
	db        *gorm.DB
	validator *validator.Validate
}

func NewCategoryService(db *gorm.DB, v *validator.Validate) *CategoryService {
	return &CategoryService{db: db, validator: v}
}

// List возвращает все категории в порядке добавления
func (s *CategoryService) List(ctx context.Context) ([]CategoryDTO, error) {
	var categories []models.TransactionCategory
	if err := s.db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, err
	}
	result := make([]CategoryDTO, 0, len(categories))
	for _, c := range categories {
		result = append(result, CategoryDTO{CategoryType: c.CategoryType, CategoryName: c.CategoryName})
	}
	return result, nil
}

// Create добавляет категорию
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (uint, error) {
	if err := validateStruct(s.validator, req); err != nil {
		return 0, err
	}
	if !req.CategoryType.Valid() {
		return 0, parseError("category_type", "ожидается 0 или 1")
	}
	category := &models.TransactionCategory{
		CategoryType: *req.CategoryType,
		CategoryName: req.CategoryName,
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return 0, err
	}
	return category.ID, nil
}

// Delete удаляет категорию, переводя ее транзакции и планы в категорию по умолчанию
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	if id == models.DefaultCategoryID {
		return fmt.Errorf("%w: категорию по умолчанию удалить нельзя", ErrBadRequest)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.TransactionCategory
		if err := tx.First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		for _, model := range []interface{}{&models.Transaction{}, &models.PlanningTransaction{}} {
			err := tx.Model(model).
				Where("category_id = ?", id).
				Update("category_id", models.DefaultCategoryID).Error
			if err != nil {
				return err
			}
		}

		return tx.Delete(&category).Error
	})
}

// findCategoryByName ищет категорию по точному имени; при дублях берется первая
func findCategoryByName(db *gorm.DB, name string) (*models.TransactionCategory, error) {
	var category models.TransactionCategory
	if err := db.Where("category_name = ?", name).Order("id").First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, parseError("transaction_category", "неизвестная категория")
		}
		return nil, err
	}
	return &category, nil
}
