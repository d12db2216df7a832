package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSender hands messages to a durable queue consumed by an external mail worker.
type AMQPSender struct {
	url     string
	queue   string
	logger  *slog.Logger
	publish func(ctx context.Context, queue string, pub amqp.Publishing) error
}

func NewAMQPSender(url, queue string, logger *slog.Logger) *AMQPSender {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AMQPSender{url: url, queue: queue, logger: logger}
	s.publish = s.dialAndPublish
	return s
}

func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         msg.Kind,
		Body:         body,
	}
	if err := s.publish(ctx, s.queue, pub); err != nil {
		s.logger.ErrorContext(ctx, "amqp mail publish failed", "queue", s.queue, "kind", msg.Kind, "error", err)
		return err
	}
	return nil
}

func (s *AMQPSender) dialAndPublish(ctx context.Context, queue string, pub amqp.Publishing) error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}
