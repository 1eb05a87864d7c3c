// Package mailer delivers one-time codes over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"auth-portal/internal/auth/otp"
	"auth-portal/internal/config"
	"auth-portal/internal/logger"

	"github.com/wneessen/go-mail"
)

// Transport sends a fully built message.
type Transport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// NewTransport builds an SMTP client from config. Secure selects implicit
// TLS; otherwise STARTTLS is used when the relay offers it.
func NewTransport(cfg config.SMTPConfig) (*mail.Client, error) {
	if cfg.Host == "" {
		return nil, ErrNotConfigured
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Pass),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: new client: %w", err)
	}
	return client, nil
}

// OTPMailer is the otp.Sender that emails codes.
type OTPMailer struct {
	transport Transport
	from      string
}

func NewOTPMailer(transport Transport, from string) *OTPMailer {
	return &OTPMailer{transport: transport, from: from}
}

// Subject returns the email subject for a code's purpose.
func Subject(typ otp.Type) string {
	if typ == otp.TypeSignIn {
		return "Login Code"
	}
	return "Verification Code"
}

// Build composes the plaintext + HTML message for a code.
func (m *OTPMailer) Build(msg otp.Message) (*mail.Msg, error) {
	email := mail.NewMsg()
	if err := email.From(m.from); err != nil {
		return nil, fmt.Errorf("mailer: from: %w", err)
	}
	if err := email.To(msg.Email); err != nil {
		return nil, fmt.Errorf("mailer: to: %w", err)
	}
	email.Subject(Subject(msg.Type))
	email.SetBodyString(mail.TypeTextPlain, "Your code is: "+msg.OTP)
	email.AddAlternativeString(mail.TypeTextHTML, "<b>Your code is: "+msg.OTP+"</b>")
	return email, nil
}

func (m *OTPMailer) SendVerificationOTP(ctx context.Context, msg otp.Message) error {
	email, err := m.Build(msg)
	if err != nil {
		return err
	}

	if err := m.transport.DialAndSendWithContext(ctx, email); err != nil {
		logger.Error("otp email delivery failed", map[string]any{
			"type":  string(msg.Type),
			"error": err.Error(),
		})
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

// ErrNotConfigured is returned by Unconfigured on every send.
var ErrNotConfigured = errors.New("mailer: SMTP_HOST is not set")

// Unconfigured stands in for a relay when none is set up, so the
// process starts and only code delivery fails.
type Unconfigured struct{}

func (Unconfigured) DialAndSendWithContext(context.Context, ...*mail.Msg) error {
	return ErrNotConfigured
}
