package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sendgrid/rest"
	"github.com/sethvargo/go-retry"

	"github.com/mljjcooking/storefront-backend/pkg/config"
)

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type sendgridSender struct {
	client      sendClient
	fromEmail   string
	fromName    string
	sendTimeout time.Duration
	maxAttempts int
}

// NewSendGridSender builds the SendGrid-backed email transport with bounded
// in-process retry. Retries never escape this layer.
func NewSendGridSender(cfg config.SendGridConfig) (Sender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("sendgrid from email is required")
	}
	return &sendgridSender{
		client:      sendgrid.NewSendClient(cfg.APIKey),
		fromEmail:   cfg.FromEmail,
		fromName:    cfg.FromName,
		sendTimeout: cfg.SendTimeout,
		maxAttempts: cfg.MaxAttempts,
	}, nil
}

func newSenderWithClient(client sendClient, cfg config.SendGridConfig) Sender {
	return &sendgridSender{
		client:      client,
		fromEmail:   cfg.FromEmail,
		fromName:    cfg.FromName,
		sendTimeout: cfg.SendTimeout,
		maxAttempts: cfg.MaxAttempts,
	}
}

func (s *sendgridSender) Send(ctx context.Context, email Email) error {
	if email.ToEmail == "" {
		return errors.New("recipient email is required")
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(email.ToName, email.ToEmail)
	message := mail.NewSingleEmail(from, email.Subject, to, email.PlainText, email.HTML)

	maxRetries := uint64(0)
	if s.maxAttempts > 1 {
		maxRetries = uint64(s.maxAttempts - 1)
	}
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		sendCtx := ctx
		if s.sendTimeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(ctx, s.sendTimeout)
			defer cancel()
		}

		resp, err := s.client.SendWithContext(sendCtx, message)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("sendgrid returned %d", resp.StatusCode))
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("sendgrid rejected message with %d", resp.StatusCode)
		}
		return nil
	})
}
