package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-api/internal/queue"
)

// Notifier dispatches reset links to users.
type Notifier interface {
	NotifyPasswordReset(ctx context.Context, ev queue.PasswordResetRequestedEvent) error
}

// AMQPNotifier publishes reset events to the auth.password_reset queue,
// where the mailer consumer picks them up.  Messages are persistent.
type AMQPNotifier struct {
	URL string
	Log *zap.Logger
}

func NewAMQPNotifier(url string, log *zap.Logger) *AMQPNotifier {
	return &AMQPNotifier{URL: url, Log: log}
}

func (n *AMQPNotifier) NotifyPasswordReset(ctx context.Context, ev queue.PasswordResetRequestedEvent) error {
	conn, err := amqp.Dial(n.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.PasswordResetQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.PasswordResetQueue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	n.Log.Debug("password reset event published", zap.String("email", ev.Email))
	return nil
}

// MailerNotifier hands events straight to the mailer, skipping the broker.
// It backs NOTIFY_DRIVER=log.
type MailerNotifier struct {
	Mailer *queue.Mailer
}

func (n MailerNotifier) NotifyPasswordReset(_ context.Context, ev queue.PasswordResetRequestedEvent) error {
	return n.Mailer.Deliver(ev)
}
