package services

import (
	"context"
	"fmt"
	"html"

	"bookkeeping/config"
	"bookkeeping/models"

	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// mailSender - то, что умеет отправлять письма; *gomail.Dialer подходит
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService предоставляет методы для отправки email
type EmailService struct {
	db     *gorm.DB
	sender mailSender
	from   string
}

// NewEmailService создает новый экземпляр EmailService
func NewEmailService(cfg config.SMTPConfig, db *gorm.DB) *EmailService {
	dialer := gomail.NewDialer(
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
	)

	return &EmailService{
		db:     db,
		sender: dialer,
		from:   cfg.From,
	}
}

// SendEmail отправляет email
func (s *EmailService) SendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("ошибка отправки email: %w", err)
	}

	return nil
}

// Notify отправляет владельцу счета письмо о новой транзакции.
// Остальные события пропускаются.
func (s *EmailService) Notify(ctx context.Context, event LedgerEvent) error {
	if event.Kind != EventTransactionAdded {
		return nil
	}

	var user models.User
	if err := s.db.WithContext(ctx).Select("email").First(&user, event.UserID).Error; err != nil {
		return fmt.Errorf("владелец счета не найден: %w", err)
	}
	if user.Email == "" {
		return nil
	}

	return s.SendTransactionNotification(user.Email, event)
}

// SendTransactionNotification отправляет уведомление о транзакции
func (s *EmailService) SendTransactionNotification(to string, event LedgerEvent) error {
	return s.SendEmail(to, "Уведомление о транзакции", transactionNotificationBody(event))
}

// transactionNotificationBody собирает HTML письма. Имена категорий задают
// пользователи, поэтому все строковые поля экранируются.
func transactionNotificationBody(event LedgerEvent) string {
	balance := ""
	if event.Balance != nil {
		balance = fmt.Sprintf("<p>Баланс: %s</p>", formatMoney(*event.Balance))
	}
	return fmt.Sprintf(`
		<h2>Уведомление о транзакции</h2>
		<p>Тип операции: %s</p>
		<p>Категория: %s</p>
		<p>Сумма: %s</p>
		<p>Дата: %s</p>
		%s
	`, event.Type, html.EscapeString(event.Category), formatMoney(event.Sum),
		html.EscapeString(event.Date), balance)
}
