// Package otp issues and checks the one-time codes emailed for
// passwordless sign-in and email verification.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"auth-portal/internal/auth"
)

// Type is the purpose a code was issued for.
type Type string

const (
	TypeSignIn            Type = "sign-in"
	TypeEmailVerification Type = "email-verification"
)

const Digits = 6

// ParseType validates a client-supplied purpose.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeSignIn, TypeEmailVerification:
		return t, nil
	default:
		return "", auth.ErrInvalidOTPType
	}
}

// Generate returns a numeric code of Digits digits. Bytes of 250 and
// above are discarded so every digit is equally likely.
func Generate() (string, error) {
	s := make([]byte, 0, Digits)
	b := make([]byte, Digits)
	for len(s) < Digits {
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		for _, v := range b {
			if v >= 250 || len(s) == Digits {
				continue
			}
			s = append(s, '0'+v%10)
		}
	}
	return string(s), nil
}

// Hash returns the hex SHA-256 of a code.
func Hash(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}
