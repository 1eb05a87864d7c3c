package otp

import (
	"context"
	"time"

	"auth-portal/internal/auth"
	"auth-portal/internal/logger"

	"github.com/samber/oops"
)

// Message is what the delivery hook receives for every issued code.
type Message struct {
	Email string
	OTP   string
	Type  Type
}

// Sender delivers a freshly issued code to its owner.
type Sender interface {
	SendVerificationOTP(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) SendVerificationOTP(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

type Options struct {
	TTL             time.Duration
	AllowedAttempts int
}

type Service struct {
	store    Store
	sender   Sender
	ttl      time.Duration
	attempts int
	generate func() (string, error)
}

func NewService(store Store, sender Sender, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.AllowedAttempts <= 0 {
		opts.AllowedAttempts = 3
	}
	return &Service{
		store:    store,
		sender:   sender,
		ttl:      opts.TTL,
		attempts: opts.AllowedAttempts,
		generate: Generate,
	}
}

// Send issues a new code for (typ, email), replacing any pending one,
// and hands it to the sender.
func (s *Service) Send(ctx context.Context, email string, typ Type) error {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return err
	}

	code, err := s.generate()
	if err != nil {
		return oops.Code("OTP_GENERATE_FAILED").Wrap(err)
	}

	if err := s.store.Put(ctx, typ, email, Hash(code), s.ttl); err != nil {
		return oops.Code("OTP_STORE_FAILED").With("type", string(typ)).Wrapf(err, "store otp")
	}

	if err := s.sender.SendVerificationOTP(ctx, Message{Email: email, OTP: code, Type: typ}); err != nil {
		_ = s.store.Delete(ctx, typ, email)
		return oops.Code("OTP_SEND_FAILED").With("type", string(typ)).Wrapf(err, "send otp")
	}

	logger.Info("otp issued", map[string]any{"type": string(typ)})
	return nil
}

// Verify consumes the pending code for (typ, email) when code matches.
// A wrong code costs one attempt; once the allowance is used up the
// pending code is discarded.
func (s *Service) Verify(ctx context.Context, email string, typ Type, code string) error {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return err
	}
	if code == "" {
		return auth.ErrInvalidOTP
	}

	outcome, err := s.store.Check(ctx, typ, email, Hash(code), s.attempts)
	if err != nil {
		return oops.Code("OTP_STORE_FAILED").With("type", string(typ)).Wrapf(err, "check otp")
	}

	switch outcome {
	case OutcomeMatched:
		return nil
	case OutcomeMismatch:
		return auth.ErrInvalidOTP
	case OutcomeExhausted:
		return auth.ErrTooManyAttempts
	default:
		return auth.ErrOTPExpired
	}
}
