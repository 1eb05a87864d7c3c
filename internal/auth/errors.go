package auth

import (
	"net/http"

	"github.com/samber/oops"
)

// Error codes surfaced to clients.
const (
	CodeInvalidEmailOrPassword = "INVALID_EMAIL_OR_PASSWORD"
	CodeUserAlreadyExists      = "USER_ALREADY_EXISTS"
	CodeInvalidEmail           = "INVALID_EMAIL"
	CodePasswordTooShort       = "PASSWORD_TOO_SHORT"
	CodePasswordTooLong        = "PASSWORD_TOO_LONG"
	CodeInvalidOTP             = "INVALID_OTP"
	CodeOTPExpired             = "OTP_EXPIRED"
	CodeTooManyAttempts        = "TOO_MANY_ATTEMPTS"
	CodeInvalidOTPType         = "INVALID_OTP_TYPE"
	CodeUnknownProvider        = "UNKNOWN_PROVIDER"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeAccountNotLinked       = "ACCOUNT_NOT_LINKED"
	CodeNotFound               = "NOT_FOUND"
	CodeUserNotFound           = "USER_NOT_FOUND"
)

var (
	ErrInvalidCredentials = oops.Code(CodeInvalidEmailOrPassword).Errorf("Invalid email or password")
	ErrUserAlreadyExists  = oops.Code(CodeUserAlreadyExists).Errorf("User already exists")
	ErrInvalidEmail       = oops.Code(CodeInvalidEmail).Errorf("Invalid email")
	ErrPasswordTooShort   = oops.Code(CodePasswordTooShort).Errorf("Password too short")
	ErrPasswordTooLong    = oops.Code(CodePasswordTooLong).Errorf("Password too long")
	ErrInvalidOTP         = oops.Code(CodeInvalidOTP).Errorf("Invalid OTP")
	ErrOTPExpired         = oops.Code(CodeOTPExpired).Errorf("OTP expired")
	ErrTooManyAttempts    = oops.Code(CodeTooManyAttempts).Errorf("Too many attempts")
	ErrInvalidOTPType     = oops.Code(CodeInvalidOTPType).Errorf("Invalid OTP type")
	ErrUnknownProvider    = oops.Code(CodeUnknownProvider).Errorf("Provider not found")
	ErrUnauthorized       = oops.Code(CodeUnauthorized).Errorf("Unauthorized")
	ErrAccountNotLinked   = oops.Code(CodeAccountNotLinked).Errorf("Account not linked")
	ErrNotFound           = oops.Code(CodeNotFound).Errorf("not found")
	ErrUserNotFound       = oops.Code(CodeUserNotFound).Errorf("User not found")
)

const genericMessage = "Something went wrong"

type publicError struct {
	message string
	status  int
}

var publicErrors = map[string]publicError{
	CodeInvalidEmailOrPassword: {"Invalid email or password", http.StatusUnauthorized},
	CodeUserAlreadyExists:      {"User already exists", http.StatusUnprocessableEntity},
	CodeInvalidEmail:           {"Invalid email", http.StatusBadRequest},
	CodePasswordTooShort:       {"Password too short", http.StatusBadRequest},
	CodePasswordTooLong:        {"Password too long", http.StatusBadRequest},
	CodeInvalidOTP:             {"Invalid OTP", http.StatusBadRequest},
	CodeOTPExpired:             {"OTP expired", http.StatusBadRequest},
	CodeTooManyAttempts:        {"Too many attempts", http.StatusForbidden},
	CodeInvalidOTPType:         {"Invalid OTP type", http.StatusBadRequest},
	CodeUnknownProvider:        {"Provider not found", http.StatusNotFound},
	CodeUnauthorized:           {"Unauthorized", http.StatusUnauthorized},
	CodeAccountNotLinked:       {"Account not linked", http.StatusUnauthorized},
	CodeUserNotFound:           {"User not found", http.StatusNotFound},
}

// Code returns the error code carried by err, or "" when it has none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// PublicMessage returns the text that may be shown to the end user.
// Internal failures never leak their details.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if pe, ok := publicErrors[Code(err)]; ok {
		return pe.message
	}
	return genericMessage
}

// MessageForCode is PublicMessage for a bare code, as carried in a
// redirect query string.
func MessageForCode(code string) string {
	if pe, ok := publicErrors[code]; ok {
		return pe.message
	}
	return genericMessage
}

// HTTPStatus maps err to the status the JSON API answers with.
func HTTPStatus(err error) int {
	if pe, ok := publicErrors[Code(err)]; ok {
		return pe.status
	}
	return http.StatusInternalServerError
}
