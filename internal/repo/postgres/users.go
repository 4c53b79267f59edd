package postgres

import (
	"context"
	"errors"

	"github.com/Reinhardt254/online-bookstore/internal/domain/user"
	"github.com/Reinhardt254/online-bookstore/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, google_id, first_name, last_name, avatar, role, is_active, created_at, updated_at`

type UsersRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, metrics *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, metrics: metrics}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.metrics == nil {
		return fn()
	}

	return r.metrics.ObserveDB(op, fn)
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.GoogleID,
		&u.FirstName,
		&u.LastName,
		&u.Avatar,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			email,
		))
		return scanErr
	})

	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return scanErr
	})

	return u, err
}

func (r *UsersRepo) GetByGoogleID(ctx context.Context, googleID string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_google_id", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE google_id = $1`,
			googleID,
		))
		return scanErr
	})

	return u, err
}

// Create inserts a password-based account. Duplicate emails surface as
// user.ErrEmailTaken via the unique index, so concurrent registrations
// cannot both succeed.
func (r *UsersRepo) Create(ctx context.Context, email, passwordHash string, firstName, lastName *string) (user.User, error) {
	var u user.User

	err := r.observe("users.create", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(
			ctx,
			`INSERT INTO users (email, password_hash, first_name, last_name)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+userColumns,
			email, passwordHash, firstName, lastName,
		))
		return scanErr
	})

	if err != nil {
		if uniqueViolationOn(err, "users_email_key") {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// CreateFromGoogle inserts a passwordless account for a first-time Google
// login. password_hash stays NULL.
func (r *UsersRepo) CreateFromGoogle(ctx context.Context, email, googleID string, firstName, lastName, avatar *string) (user.User, error) {
	var u user.User

	err := r.observe("users.create_from_google", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(
			ctx,
			`INSERT INTO users (email, google_id, first_name, last_name, avatar)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+userColumns,
			email, googleID, firstName, lastName, avatar,
		))
		return scanErr
	})

	if err != nil {
		if uniqueViolationOn(err, "users_google_id_key") {
			return user.User{}, user.ErrGoogleIDTaken
		}

		if uniqueViolationOn(err, "users_email_key") {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// LinkGoogleAccount attaches a google id (and avatar, when present) to an
// existing row in a single UPDATE. The returned row is the canonical record;
// callers replace their in-memory copy with it rather than patching fields.
func (r *UsersRepo) LinkGoogleAccount(ctx context.Context, id int64, googleID string, avatar *string) (user.User, error) {
	var u user.User

	err := r.observe("users.link_google", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(
			ctx,
			`UPDATE users
			 SET google_id = $2,
			     avatar = COALESCE($3, avatar),
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id, googleID, avatar,
		))
		return scanErr
	})

	if err != nil {
		if uniqueViolationOn(err, "users_google_id_key") {
			return user.User{}, user.ErrGoogleIDTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.observe("users.update_password", func() error {
		tag, err := r.pool.Exec(
			ctx,
			`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
			id, passwordHash,
		)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}
