// Package queue contains the background mailer that listens to the
// auth.password_reset queue and writes outgoing mail to a log file.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Mailer renders reset events as plain-text mail and appends them to Path.
// It stands in for an SMTP relay.
type Mailer struct {
	Path string
	Log  *zap.Logger

	mu sync.Mutex
}

func NewMailer(path string, log *zap.Logger) *Mailer {
	return &Mailer{Path: path, Log: log}
}

// Deliver appends one rendered mail to the mail log.
func (m *Mailer) Deliver(ev PasswordResetRequestedEvent) error {
	if ev.Email == "" || ev.ResetURL == "" {
		return errors.New("event missing email or reset url")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir mail dir: %w", err)
	}
	f, err := os.OpenFile(m.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open mail log: %w", err)
	}
	defer f.Close()

	name := ev.FirstName
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf("To: %s\nSubject: Reset your password\nDate: %s\n\nHi %s,\n\nUse the link below to choose a new password. It expires at %s.\n\n%s\n\n---\n",
		ev.Email, ev.RequestedAt, name, ev.ExpiresAt, ev.ResetURL)
	if _, err := f.WriteString(body); err != nil {
		return fmt.Errorf("write mail log: %w", err)
	}
	m.Log.Info("password reset mail delivered", zap.String("email", ev.Email))
	return nil
}

// StartPasswordResetConsumer connects to RabbitMQ, declares the
// auth.password_reset queue (durable), and hands each message to the
// mailer.  It reconnects with exponential backoff and returns only when ctx
// is cancelled.
func StartPasswordResetConsumer(ctx context.Context, url string, m *Mailer) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			m.Log.Warn("mailer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, m)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.Log.Warn("mailer: consume loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, m *Mailer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		m.Log.Warn("mailer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(PasswordResetQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(PasswordResetQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	// closing the channel ends the deliveries range below
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ch.Close()
		case <-done:
		}
	}()

	for d := range msgs {
		if err := handleMessage(m, d.Body); err != nil {
			m.Log.Error("mailer: handle message failed", zap.Error(err))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(m *Mailer, body []byte) error {
	var ev PasswordResetRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return m.Deliver(ev)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
