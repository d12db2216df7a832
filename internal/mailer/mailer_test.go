package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/otp-account-service/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestNewSelectsDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	tests := []struct {
		driver string
		check  func(Sender) bool
	}{
		{"log", func(s Sender) bool { _, ok := s.(*LogSender); return ok }},
		{"smtp", func(s Sender) bool { _, ok := s.(*SMTPSender); return ok }},
		{"amqp", func(s Sender) bool { _, ok := s.(*AMQPSender); return ok }},
	}
	for _, tc := range tests {
		t.Run(tc.driver, func(t *testing.T) {
			s, err := New(&config.Config{MailDriver: tc.driver, SMTPHost: "smtp.example.com", SMTPPort: 587}, logger)
			if err != nil {
				t.Fatalf("new sender: %v", err)
			}
			if !tc.check(s) {
				t.Fatalf("unexpected sender type %T", s)
			}
		})
	}
	if _, err := New(&config.Config{MailDriver: "fax"}, logger); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestLogSenderWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))
	err := s.Send(context.Background(), Message{To: "a@example.com", Subject: "Account Verification OTP", Body: "Your OTP is 123456.", Kind: "otp"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["to"] != "a@example.com" || line["kind"] != "otp" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestSMTPBuildMessageHeaders(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "no-reply@example.com", SenderName: "Accounts"}, nil)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	raw := string(s.buildMessage(Message{To: "user@example.com", Subject: "Password Reset", Body: "link"}))
	for _, want := range []string{
		"To: user@example.com\r\n",
		"From: Accounts <no-reply@example.com>\r\n",
		"Subject: Password Reset\r\n",
		"Date: Fri, 02 Jan 2026 03:04:05 +0000\r\n",
		"@example.com>\r\n",
		"\r\n\r\nlink",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("expected %q in message:\n%s", want, raw)
		}
	}
}

func TestSMTPSendFailsWhenServerUnreachable(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1, Timeout: 200 * time.Millisecond}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err := s.Send(context.Background(), Message{To: "user@example.com"}); err == nil {
		t.Fatal("expected dial failure")
	}
}

func TestAMQPSenderPublishesJSONEnvelope(t *testing.T) {
	s := NewAMQPSender("amqp://unused", "mail.outbound", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	var (
		gotQueue string
		gotPub   amqp.Publishing
	)
	s.publish = func(_ context.Context, queue string, pub amqp.Publishing) error {
		gotQueue = queue
		gotPub = pub
		return nil
	}

	msg := Message{To: "a@example.com", Subject: "Account Verification OTP", Body: "Your OTP is 000111.", Kind: "otp"}
	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotQueue != "mail.outbound" || gotPub.Type != "otp" || gotPub.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected publishing: queue=%q pub=%+v", gotQueue, gotPub)
	}
	var decoded Message
	if err := json.Unmarshal(gotPub.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded != msg {
		t.Fatalf("body mismatch: got %+v want %+v", decoded, msg)
	}
}

func TestAMQPSenderReturnsPublishError(t *testing.T) {
	s := NewAMQPSender("amqp://unused", "mail.outbound", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	want := errors.New("broker down")
	s.publish = func(context.Context, string, amqp.Publishing) error { return want }
	if err := s.Send(context.Background(), Message{To: "a@example.com"}); !errors.Is(err, want) {
		t.Fatalf("expected publish error, got %v", err)
	}
}
