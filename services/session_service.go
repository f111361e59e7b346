package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bookkeeping/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Claims - полезная нагрузка токена сессии; jti совпадает с ID строки в sessions
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// SessionService выдает, проверяет и отзывает сессии
type SessionService struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(db *gorm.DB, secret string, ttl time.Duration) *SessionService {
	return &SessionService{
		db:     db,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL время жизни сессии
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create открывает новую сессию и возвращает подписанный токен
func (s *SessionService) Create(ctx context.Context, userID uint) (string, *models.Session, error) {
	now := s.now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return "", nil, fmt.Errorf("ошибка создания сессии: %w", err)
	}

	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return token, session, nil
}

// Validate проверяет подпись токена и состояние сессии в базе
func (s *SessionService) Validate(ctx context.Context, tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Identity{}, ErrUnauthorized
	}

	var session models.Session
	err = s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", claims.ID, claims.UserID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, ErrUnauthorized
		}
		return Identity{}, err
	}
	if session.Revoked || !session.ExpiresAt.After(s.now()) {
		return Identity{}, ErrUnauthorized
	}

	return Identity{UserID: session.UserID, SessionID: session.ID}, nil
}

// Revoke отзывает сессию; повторный отзыв не ошибка
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("revoked", true).Error
}

// PurgeExpired удаляет истекшие и отозванные сессии
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("revoked = ? OR expires_at <= ?", true, s.now().UTC()).
		Delete(&models.Session{})
	return result.RowsAffected, result.Error
}
