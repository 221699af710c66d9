package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/edbridge/portal-api/internal/data/pgxutil"
	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	apperrors "github.com/edbridge/portal-api/internal/errors"
	"github.com/jackc/pgx/v5"
)

// UserRepo provides database operations for internal user records.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userColumns = `id, cognito_subject, email, role, is_active, is_blocked, full_name, corporate_id`

// FindByCognitoSubject returns the internal user mapped to an IdP subject.
// The subject uniquely maps to at most one record.
func (r *UserRepo) FindByCognitoSubject(ctx context.Context, subject string) (domainauth.InternalUser, error) {
	var out domainauth.InternalUser
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+userColumns+` FROM users WHERE cognito_subject = $1`, subject)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.InternalUser])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.InternalUser{}, ErrUserNotFound
		}
		return domainauth.InternalUser{}, fmt.Errorf("find user by subject: %w", err)
	}
	return out, nil
}

// CreateUserParams carries the fields written when provisioning an internal record.
type CreateUserParams struct {
	CognitoSubject string
	Email          string
	Role           domainauth.Role
	FullName       *string
	CorporateID    *int64
}

// Upsert inserts the internal record for a provisioned account, or refreshes
// email and role when the subject already exists. Provisioning is
// ensure-exists end to end, so a replayed run must not fail here.
func (r *UserRepo) Upsert(ctx context.Context, params CreateUserParams) (domainauth.InternalUser, error) {
	var out domainauth.InternalUser
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO users (cognito_subject, email, role, full_name, corporate_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (cognito_subject) DO UPDATE
				SET email = EXCLUDED.email,
				    role = EXCLUDED.role,
				    updated_at = now()
			RETURNING `+userColumns,
			params.CognitoSubject,
			strings.TrimSpace(strings.ToLower(params.Email)),
			params.Role,
			params.FullName,
			params.CorporateID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.InternalUser])
		return err
	})
	if err != nil {
		return domainauth.InternalUser{}, fmt.Errorf("upsert user: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// SetBlocked flips the blocked flag for a user. Blocked state takes effect on
// the next request because authorization is recomputed from the database on
// every call.
func (r *UserRepo) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	return r.setFlag(ctx, `UPDATE users SET is_blocked = $2, updated_at = now() WHERE id = $1`, id, blocked)
}

// SetActive flips the active flag for a user.
func (r *UserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return r.setFlag(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
}

func (r *UserRepo) setFlag(ctx context.Context, query string, id int64, value bool) error {
	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, query, id, value)
		if err != nil {
			return fmt.Errorf("update user flag: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}
