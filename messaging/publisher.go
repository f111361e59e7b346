package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookkeeping/services"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// channel - часть *amqp091.Channel, нужная для публикации
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher отправляет события журнала в topic exchange.
// Ключ маршрутизации совпадает с видом события.
type Publisher struct {
	conn     *amqp091.Connection
	channel  channel
	exchange string
	log      *slog.Logger
}

// NewPublisher подключается к брокеру и объявляет exchange
func NewPublisher(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("подключение к AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("открытие канала: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("объявление exchange %s: %w", exchange, err)
	}

	p := newPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		channel:  ch,
		exchange: exchange,
		log:      logger.With("component", "amqp"),
	}
}

// Notify публикует событие; реализует services.Notifier
func (p *Publisher) Notify(ctx context.Context, event services.LedgerEvent) error {
	body, err := NewLedgerMessage(event).ToJSON()
	if err != nil {
		return fmt.Errorf("сериализация сообщения: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		event.Kind, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("публикация %s: %w", event.Kind, err)
	}

	p.log.DebugContext(ctx, "событие опубликовано",
		"event", event.Kind,
		"record_id", event.RecordID,
		"exchange", p.exchange)
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
