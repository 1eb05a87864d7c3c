package credentials

import (
	"context"
	"database/sql"
	"errors"

	"auth-portal/internal/auth"
	"auth-portal/internal/auth/users"
	"auth-portal/internal/db"

	"github.com/samber/oops"
)

type Service struct {
	db *db.DB
}

func NewService(db *db.DB) *Service {
	return &Service{db: db}
}

// Register creates a user with an email/password credential. It fails
// when any account already uses the email, including OAuth-only ones.
func (s *Service) Register(
	ctx context.Context,
	name string,
	email string,
	password string,
) (auth.User, error) {

	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return auth.User{}, err
	}

	// 1. Hash first so policy errors never touch the database
	hash, version, err := HashPassword(password)
	if err != nil {
		return auth.User{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.User{}, oops.Code("REGISTER_FAILED").Wrapf(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	// 2. Reject existing accounts
	_, err = users.GetByEmail(ctx, tx, email)
	switch {
	case err == nil:
		return auth.User{}, auth.ErrUserAlreadyExists
	case auth.Code(err) != auth.CodeNotFound:
		return auth.User{}, err
	}

	// 3. Create user
	user, err := users.Create(ctx, tx, users.NewUser{
		Name:  name,
		Email: email,
	})
	if err != nil {
		return auth.User{}, err
	}

	// 4. Insert credentials
	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
	`, user.ID, hash, version)
	if err != nil {
		return auth.User{}, oops.Code("REGISTER_FAILED").With("user_id", user.ID).Wrapf(err, "insert credentials")
	}

	if err := tx.Commit(); err != nil {
		return auth.User{}, oops.Code("REGISTER_FAILED").Wrapf(err, "commit")
	}

	return user, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (auth.User, error) {

	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return auth.User{}, auth.ErrInvalidCredentials
	}

	var passwordHash string

	// 1. Find user + credentials
	user, err := users.Scan(s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.email_verified, COALESCE(u.image, ''), u.role,
		       u.created_at, u.updated_at, c.password_hash
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE LOWER(u.email) = LOWER($1)
	`, email), &passwordHash)

	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return auth.User{}, oops.Code("AUTHENTICATE_FAILED").Wrapf(err, "load credentials")
	}

	// 2. Verify password
	if err := VerifyPassword(passwordHash, password); err != nil {
		return auth.User{}, auth.ErrInvalidCredentials
	}

	return user, nil
}
