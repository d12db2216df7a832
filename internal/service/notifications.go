package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/sandeepkv93/otp-account-service/internal/mailer"
	"github.com/sandeepkv93/otp-account-service/internal/observability"
)

const (
	otpSubject   = "Account Verification OTP"
	resetSubject = "Password Reset"

	notificationKindOTP   = "otp"
	notificationKindReset = "password_reset"
)

// DeliveryResult reports the outcome of a best-effort notification. Callers
// log it and carry on; a failed delivery never rolls back the account change.
type DeliveryResult struct {
	Kind      string
	Delivered bool
	Err       error
}

type AccountNotifier struct {
	sender  mailer.Sender
	timeout time.Duration
	logger  *slog.Logger
}

func NewAccountNotifier(sender mailer.Sender, timeout time.Duration, logger *slog.Logger) *AccountNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountNotifier{sender: sender, timeout: timeout, logger: logger}
}

func (n *AccountNotifier) SendOTP(ctx context.Context, to, code string, ttl time.Duration) DeliveryResult {
	return n.deliver(ctx, mailer.Message{
		To:      to,
		Subject: otpSubject,
		Body:    fmt.Sprintf("Your OTP is %s. It expires in %d minutes.", code, int(ttl.Round(time.Minute)/time.Minute)),
		Kind:    notificationKindOTP,
	})
}

func (n *AccountNotifier) SendPasswordReset(ctx context.Context, to, link string) DeliveryResult {
	return n.deliver(ctx, mailer.Message{
		To:      to,
		Subject: resetSubject,
		Body:    "You can reset your password using the following link:\n" + link,
		Kind:    notificationKindReset,
	})
}

// deliver detaches from request cancellation so a client hanging up mid-send
// does not abort the mail; the configured timeout still bounds it.
func (n *AccountNotifier) deliver(ctx context.Context, msg mailer.Message) DeliveryResult {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	res := DeliveryResult{Kind: msg.Kind}
	if n.sender == nil {
		res.Err = fmt.Errorf("no mail sender configured")
	} else {
		res.Err = n.sender.Send(sendCtx, msg)
	}
	res.Delivered = res.Err == nil

	if res.Delivered {
		observability.RecordNotificationDelivery(ctx, msg.Kind, "sent")
		return res
	}
	observability.RecordNotificationDelivery(ctx, msg.Kind, "failed")
	n.logger.WarnContext(ctx, "notification delivery failed",
		"kind", msg.Kind,
		"to", msg.To,
		"error", res.Err,
	)
	return res
}

func resetLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse reset base url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
