package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeJobEnqueued   MessageType = "job.enqueued"
	MessageTypeJobCompleted  MessageType = "job.completed"
	MessageTypeJobDeadLetter MessageType = "job.dead_lettered"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// JobEnqueuedPayload — payload для события о поставленном в очередь job.
// Носит только идентичность: состояние воркер перечитывает из БД.
type JobEnqueuedPayload struct {
	JobID      uuid.UUID `json:"job_id"`
	ScheduleID uuid.UUID `json:"schedule_id"`
	PlannedAt  time.Time `json:"planned_at"`
}

// JobCompletedPayload — payload для события о завершённом job.
type JobCompletedPayload struct {
	JobID      uuid.UUID `json:"job_id"`
	ScheduleID uuid.UUID `json:"schedule_id"`
	Status     string    `json:"status"` // SUCCEEDED или DEAD_LETTER
	Attempt    int       `json:"attempt"`
	ExternalID string    `json:"external_id,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := p.conn.Channel()
	if ch == nil {
		return fmt.Errorf("no channel available")
	}

	err = ch.PublishWithContext(
		ctx,
		string(exchange),   // exchange
		string(routingKey), // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
			MessageId:    msg.ID,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)
	return nil
}

// PublishJobEnqueued публикует событие о job, готовом к публикации.
// Потребитель: Worker.
func (p *Publisher) PublishJobEnqueued(ctx context.Context, jobID, scheduleID uuid.UUID, plannedAt time.Time) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeJobEnqueued,
		Payload:   JobEnqueuedPayload{JobID: jobID, ScheduleID: scheduleID, PlannedAt: plannedAt},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeJobs, RoutingKeyJobEnqueued, msg)
}

// PublishJobCompleted публикует событие об успешно завершённом job.
// Потребители: внешние подписчики (уведомления, аналитика).
func (p *Publisher) PublishJobCompleted(ctx context.Context, payload JobCompletedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeJobCompleted,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeJobs, RoutingKeyJobCompleted, msg)
}

// PublishJobDeadLettered публикует событие о job, ушедшем в dead letter.
// Потребители: внешние подписчики (алерты оператору).
func (p *Publisher) PublishJobDeadLettered(ctx context.Context, payload JobCompletedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeJobDeadLetter,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeJobs, RoutingKeyJobDeadLetter, msg)
}
