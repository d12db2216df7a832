package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sandeepkv93/otp-account-service/internal/config"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// Kind tags the message for logs and metrics, e.g. "otp" or "password_reset".
	Kind string `json:"kind"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the sender selected by MAIL_DRIVER.
func New(cfg *config.Config, logger *slog.Logger) (Sender, error) {
	switch cfg.MailDriver {
	case "", "log":
		return NewLogSender(logger), nil
	case "smtp":
		return NewSMTPSender(SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			From:       cfg.MailFrom,
			SenderName: cfg.MailSenderName,
			Timeout:    cfg.SMTPTimeout,
		}, logger), nil
	case "amqp":
		return NewAMQPSender(cfg.AMQPURL, cfg.AMQPMailQueue, logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver %q", cfg.MailDriver)
	}
}

// LogSender writes messages to the structured log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail delivery (log driver)",
		"to", msg.To,
		"kind", msg.Kind,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
