package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// EmailService sends transactional emails. Callers decide which sends are
// critical (failure fails the operation) and which are best-effort.
type EmailService interface {
	SendVerifyEmail(ctx context.Context, toEmail, verifyLink, idempotencyKey string) error
	SendAdminSignupNotice(ctx context.Context, adminEmail, newUserEmail string) error
	SendLoginCode(ctx context.Context, toEmail, code, idempotencyKey string) error
	SendPasswordReset(ctx context.Context, toEmail, resetLink, idempotencyKey string) error
	SendPaymentApprovalRequest(ctx context.Context, adminEmail string, orderID uint, approveLink string) error
	SendDownloadCode(ctx context.Context, toEmail, code, idempotencyKey string) error
	SendReadyForPickup(ctx context.Context, toEmail, instructions string) error
	SendBroadcast(ctx context.Context, toEmail, subject, body string) error
}

// NoopEmailService is used when the email provider is not configured.
type NoopEmailService struct{}

func (s *NoopEmailService) SendVerifyEmail(ctx context.Context, toEmail, verifyLink, idempotencyKey string) error {
	log.Printf("[EmailService] noop verify email to=%s", toEmail)
	return nil
}

func (s *NoopEmailService) SendAdminSignupNotice(ctx context.Context, adminEmail, newUserEmail string) error {
	log.Printf("[EmailService] noop signup notice to=%s about=%s", adminEmail, newUserEmail)
	return nil
}

func (s *NoopEmailService) SendLoginCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	log.Printf("[EmailService] noop login code to=%s", toEmail)
	return nil
}

func (s *NoopEmailService) SendPasswordReset(ctx context.Context, toEmail, resetLink, idempotencyKey string) error {
	log.Printf("[EmailService] noop password reset to=%s", toEmail)
	return nil
}

func (s *NoopEmailService) SendPaymentApprovalRequest(ctx context.Context, adminEmail string, orderID uint, approveLink string) error {
	log.Printf("[EmailService] noop payment approval request to=%s order=%d", adminEmail, orderID)
	return nil
}

func (s *NoopEmailService) SendDownloadCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	log.Printf("[EmailService] noop download code to=%s", toEmail)
	return nil
}

func (s *NoopEmailService) SendReadyForPickup(ctx context.Context, toEmail, instructions string) error {
	log.Printf("[EmailService] noop ready-for-pickup to=%s", toEmail)
	return nil
}

func (s *NoopEmailService) SendBroadcast(ctx context.Context, toEmail, subject, body string) error {
	log.Printf("[EmailService] noop broadcast to=%s subject=%q", toEmail, subject)
	return nil
}

// ResendEmailService sends emails via the Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailService) SendVerifyEmail(ctx context.Context, toEmail, verifyLink, idempotencyKey string) error {
	return s.send(ctx, toEmail, "Verify your email",
		fmt.Sprintf("Welcome! Please verify your email by opening this link: %s", verifyLink),
		fmt.Sprintf("<p>Welcome! Please verify your email by clicking <a href=%q>this link</a>.</p>", verifyLink),
		idempotencyKey)
}

func (s *ResendEmailService) SendAdminSignupNotice(ctx context.Context, adminEmail, newUserEmail string) error {
	return s.send(ctx, adminEmail, "New signup awaiting approval",
		fmt.Sprintf("A new account %s has registered and is awaiting approval.", newUserEmail),
		fmt.Sprintf("<p>A new account <strong>%s</strong> has registered and is awaiting approval.</p>", newUserEmail),
		"")
}

func (s *ResendEmailService) SendLoginCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	return s.send(ctx, toEmail, "Your login code",
		fmt.Sprintf("Your login code is %s. It expires in 10 minutes.", code),
		fmt.Sprintf("<p>Your login code is <strong>%s</strong>.</p><p>It expires in 10 minutes.</p>", code),
		idempotencyKey)
}

func (s *ResendEmailService) SendPasswordReset(ctx context.Context, toEmail, resetLink, idempotencyKey string) error {
	return s.send(ctx, toEmail, "Reset your password",
		fmt.Sprintf("To reset your password, open this link: %s. The link expires in 1 hour.", resetLink),
		fmt.Sprintf("<p>To reset your password, click <a href=%q>this link</a>.</p><p>The link expires in 1 hour.</p>", resetLink),
		idempotencyKey)
}

func (s *ResendEmailService) SendPaymentApprovalRequest(ctx context.Context, adminEmail string, orderID uint, approveLink string) error {
	return s.send(ctx, adminEmail, fmt.Sprintf("Payment reported for order #%d", orderID),
		fmt.Sprintf("The customer reports order #%d as paid. Approve it here: %s", orderID, approveLink),
		fmt.Sprintf("<p>The customer reports order <strong>#%d</strong> as paid.</p><p><a href=%q>Approve the order</a></p>", orderID, approveLink),
		"")
}

func (s *ResendEmailService) SendDownloadCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	return s.send(ctx, toEmail, "Your photos are ready",
		fmt.Sprintf("Your order is approved. Use code %s to download your photos.", code),
		fmt.Sprintf("<p>Your order is approved.</p><p>Use code <strong>%s</strong> to download your photos.</p>", code),
		idempotencyKey)
}

func (s *ResendEmailService) SendReadyForPickup(ctx context.Context, toEmail, instructions string) error {
	text := "Your order is ready for pickup."
	html := "<p>Your order is ready for pickup.</p>"
	if instructions != "" {
		text = fmt.Sprintf("%s %s", text, instructions)
		html = fmt.Sprintf("%s<p>%s</p>", html, instructions)
	}
	return s.send(ctx, toEmail, "Ready for pickup", text, html, "")
}

func (s *ResendEmailService) SendBroadcast(ctx context.Context, toEmail, subject, body string) error {
	return s.send(ctx, toEmail, subject, body, fmt.Sprintf("<p>%s</p>", body), "")
}

func (s *ResendEmailService) send(ctx context.Context, toEmail, subject, text, html, idempotencyKey string) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: subject,
		Text:    text,
		Html:    html,
	}

	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(idempotencyKey) != "" {
		options.IdempotencyKey = strings.TrimSpace(idempotencyKey)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && (netErr.Timeout() || netErr.Temporary()) {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
