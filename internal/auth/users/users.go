// Package users persists user profiles. The role column is owned by the
// database default and is read here but never written.
package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"auth-portal/internal/auth"
	"auth-portal/internal/db"

	"github.com/lib/pq"
	"github.com/samber/oops"
)

// Columns is the select list Scan expects, in order.
const Columns = "id, name, email, email_verified, COALESCE(image, ''), role, created_at, updated_at"

// Querier is satisfied by *sql.DB, *sql.Tx and *db.DB.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Scan reads one user row selected with Columns.
func Scan(row rowScanner, extra ...any) (auth.User, error) {
	var u auth.User
	dest := append([]any{
		&u.ID,
		&u.Name,
		&u.Email,
		&u.EmailVerified,
		&u.Image,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return auth.User{}, err
	}
	return u, nil
}

type Repository struct {
	db *db.DB
}

func NewRepository(db *db.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id string) (auth.User, error) {
	u, err := Scan(r.db.QueryRowContext(ctx, `
		SELECT `+Columns+`
		FROM users
		WHERE id = $1
	`, id))
	return u, lookupErr(err, "id", id)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (auth.User, error) {
	return GetByEmail(ctx, r.db, email)
}

// GetByEmail looks a user up case-insensitively using q.
func GetByEmail(ctx context.Context, q Querier, email string) (auth.User, error) {
	u, err := Scan(q.QueryRowContext(ctx, `
		SELECT `+Columns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email))
	return u, lookupErr(err, "email", email)
}

// NewUser holds the client-supplied part of a user row.
type NewUser struct {
	Name          string
	Email         string
	EmailVerified bool
	Image         string
}

// Create inserts a user. The role comes from the column default.
func Create(ctx context.Context, q Querier, nu NewUser) (auth.User, error) {
	var image any
	if nu.Image != "" {
		image = nu.Image
	}

	u, err := Scan(q.QueryRowContext(ctx, `
		INSERT INTO users (name, email, email_verified, image)
		VALUES ($1, $2, $3, $4)
		RETURNING `+Columns,
		strings.TrimSpace(nu.Name),
		nu.Email,
		nu.EmailVerified,
		image,
	))
	if isUniqueViolation(err) {
		return auth.User{}, auth.ErrUserAlreadyExists
	}
	if err != nil {
		return auth.User{}, oops.Code("USER_CREATE_FAILED").With("email", nu.Email).Wrapf(err, "create user")
	}
	return u, nil
}

// isUniqueViolation reports a lost race on the users email index.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

func (r *Repository) Create(ctx context.Context, nu NewUser) (auth.User, error) {
	return Create(ctx, r.db, nu)
}

// MarkEmailVerified flags the address as owned by the user.
func (r *Repository) MarkEmailVerified(ctx context.Context, id string) error {
	return MarkEmailVerified(ctx, r.db, id)
}

func MarkEmailVerified(ctx context.Context, q Querier, id string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE users
		SET email_verified = true, updated_at = NOW()
		WHERE id = $1 AND email_verified = false
	`, id)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", id).Wrapf(err, "mark email verified")
	}
	return nil
}

func lookupErr(err error, field, value string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return auth.ErrNotFound
	}
	return oops.Code("USER_LOOKUP_FAILED").With(field, value).Wrapf(err, "get user by %s", field)
}
