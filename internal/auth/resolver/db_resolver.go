package resolver

import (
	"context"
	"database/sql"
	"errors"

	"auth-portal/internal/auth"
	"auth-portal/internal/auth/users"
	"auth-portal/internal/db"

	"github.com/samber/oops"
)

// DBResolver resolves identities using the database.
type DBResolver struct {
	db *db.DB
}

func NewDBResolver(db *db.DB) *DBResolver {
	return &DBResolver{db: db}
}

func (r *DBResolver) Resolve(
	ctx context.Context,
	identity *auth.Identity,
) (auth.User, error) {

	if identity == nil {
		return auth.User{}, oops.Code("RESOLVE_FAILED").Errorf("identity is nil")
	}

	email, err := auth.NormalizeEmail(identity.Email)
	if err != nil {
		return auth.User{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.User{}, oops.Code("RESOLVE_FAILED").Wrapf(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	user, err := r.resolve(ctx, tx, identity, email)
	if err != nil {
		return auth.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return auth.User{}, oops.Code("RESOLVE_FAILED").Wrapf(err, "commit")
	}
	return user, nil
}

func (r *DBResolver) resolve(
	ctx context.Context,
	tx *sql.Tx,
	identity *auth.Identity,
	email string,
) (auth.User, error) {

	// 1. Known identity (provider + provider_user_id)
	user, err := users.Scan(tx.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.email_verified, COALESCE(u.image, ''), u.role,
		       u.created_at, u.updated_at
		FROM identities i
		JOIN users u ON u.id = i.user_id
		WHERE i.provider = $1
		  AND i.provider_user_id = $2
	`,
		identity.Provider,
		identity.ProviderUserID,
	))

	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, oops.Code("RESOLVE_FAILED").With("provider", identity.Provider).Wrapf(err, "lookup identity")
	}

	// 2. Email-based linking (existing user, new provider). Only a
	// provider-verified email may claim an existing account.
	user, err = users.GetByEmail(ctx, tx, email)
	switch {
	case err == nil:
		if !identity.EmailVerified {
			return auth.User{}, auth.ErrAccountNotLinked
		}
		if err := linkIdentity(ctx, tx, user.ID, identity); err != nil {
			return auth.User{}, err
		}
		if !user.EmailVerified {
			if err := users.MarkEmailVerified(ctx, tx, user.ID); err != nil {
				return auth.User{}, err
			}
			user.EmailVerified = true
		}
		return user, nil
	case auth.Code(err) != auth.CodeNotFound:
		return auth.User{}, err
	}

	// 3. Create new user
	user, err = users.Create(ctx, tx, users.NewUser{
		Name:          identity.Name,
		Email:         email,
		EmailVerified: identity.EmailVerified,
		Image:         identity.Image,
	})
	if err != nil {
		return auth.User{}, err
	}

	// 4. Create identity mapping
	if err := linkIdentity(ctx, tx, user.ID, identity); err != nil {
		return auth.User{}, err
	}

	return user, nil
}

func linkIdentity(ctx context.Context, tx *sql.Tx, userID string, identity *auth.Identity) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO identities (user_id, provider, provider_user_id)
		VALUES ($1, $2, $3)
	`,
		userID,
		identity.Provider,
		identity.ProviderUserID,
	)
	if err != nil {
		return oops.Code("RESOLVE_FAILED").With("provider", identity.Provider).Wrapf(err, "link identity")
	}
	return nil
}
