package credentials

import (
	"auth-portal/internal/auth"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

const (
	HashVersionBcrypt = "bcrypt"

	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	MaxPasswordLength = 72
)

// Cost is the bcrypt work factor used for new hashes.
var Cost = bcrypt.DefaultCost

// ValidatePassword enforces the password length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return auth.ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return auth.ErrPasswordTooLong
	}
	return nil
}

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (hash string, version string, err error) {
	if err := ValidatePassword(password); err != nil {
		return "", "", err
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", "", oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}

	return string(bytes), HashVersionBcrypt, nil
}

// VerifyPassword compares plaintext password with stored hash.
func VerifyPassword(hash string, password string) error {
	return bcrypt.CompareHashAndPassword(
		[]byte(hash),
		[]byte(password),
	)
}
