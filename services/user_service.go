package services

import (
	"context"
	"errors"
	"fmt"

	"bookkeeping/models"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultAccountNumber - номер счета, который заводится при регистрации
const DefaultAccountNumber = "0"

// UserService отвечает за регистрацию и проверку учетных данных
type UserService struct {
	db         *gorm.DB
	validator  *validator.Validate
	bcryptCost int
}

// RegisterRequest - данные для регистрации
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginRequest - учетные данные для входа
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func NewUserService(db *gorm.DB, v *validator.Validate, bcryptCost int) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{db: db, validator: v, bcryptCost: bcryptCost}
}

// Register создает пользователя вместе со счетом по умолчанию
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		// bcrypt ограничен 72 байтами, а max считает символы
		return nil, parseError("password", "длиннее 72 байт")
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Проверяем, что имя пользователя свободно
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: пользователь %q уже существует", ErrBadRequest, req.Username)
		}

		// Параллельная регистрация того же имени упирается в уникальный индекс
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: пользователь %q уже существует", ErrBadRequest, req.Username)
			}
			return err
		}

		account := &models.Account{
			OwnerID:       user.ID,
			AccountNumber: DefaultAccountNumber,
		}
		return tx.Create(account).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate проверяет имя пользователя и пароль
func (s *UserService) Authenticate(ctx context.Context, req LoginRequest) (*models.User, error) {
	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}
	return &user, nil
}

// FindByID ищет пользователя по ID
func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

