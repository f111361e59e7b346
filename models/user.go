package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// User представляет владельца счетов
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Username  string    `gorm:"column:username;unique;not null;size:150;index"`
	Email     string    `gorm:"column:email;not null;size:254"`
	Password  string    `gorm:"column:password;not null;size:100"`
	Accounts  []Account `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate хук для валидации перед созданием
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if len(u.Username) < 1 || len(u.Username) > 150 {
		return errors.New("username must be between 1 and 150 characters")
	}
	if len(u.Email) < 3 || len(u.Email) > 254 {
		return errors.New("email must be between 3 and 254 characters")
	}
	if u.Password == "" {
		return errors.New("password hash must not be empty")
	}
	return nil
}
