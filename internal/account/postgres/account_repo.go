// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

// Package postgres implements account persistence on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/shardgate/shardgate/internal/account"
	"github.com/shardgate/shardgate/internal/store"
)

// AccountRepository implements account.Repository using PostgreSQL.
//
// Errors wrap the package sentinels (account.ErrNotFound,
// account.ErrLoginNameTaken, account.ErrEmailTaken, store.ErrNotReady)
// with query context but carry no outcome codes: oops resolves Code()
// to the deepest code in a wrap chain, so the account service owns the
// single code layer callers map on.
type AccountRepository struct {
	db *store.Postgres
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *store.Postgres) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByLoginName retrieves an account by login name. The match is
// exact and case-sensitive, as stored.
func (r *AccountRepository) GetByLoginName(ctx context.Context, loginName string) (*account.Account, error) {
	pool, err := r.db.Querier()
	if err != nil {
		return nil, oops.With("operation", "get account by login name").Wrap(err)
	}

	row := pool.QueryRow(ctx, `
		SELECT id, login_name, email, credential_hash, status, privilege_level, created_at, updated_at
		FROM accounts
		WHERE login_name = $1
	`, loginName)

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("login_name", loginName).Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get account by login name").Wrap(err)
	}
	return acct, nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	pool, err := r.db.Querier()
	if err != nil {
		return nil, oops.With("operation", "get account by id").Wrap(err)
	}

	row := pool.QueryRow(ctx, `
		SELECT id, login_name, email, credential_hash, status, privilege_level, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id)

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id).Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get account by id").
			With("id", id).
			Wrap(err)
	}
	return acct, nil
}

// Insert stores a new account and fills in its generated ID. Unique
// violations map to account.ErrLoginNameTaken or account.ErrEmailTaken
// depending on the violated constraint.
func (r *AccountRepository) Insert(ctx context.Context, acct *account.Account) error {
	pool, err := r.db.Querier()
	if err != nil {
		return oops.With("operation", "insert account").Wrap(err)
	}

	now := time.Now()
	err = pool.QueryRow(ctx, `
		INSERT INTO accounts (login_name, email, credential_hash, status, privilege_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`,
		acct.LoginName,
		acct.Email,
		acct.CredentialHash,
		acct.Status,
		acct.PrivilegeLevel,
		now,
	).Scan(&acct.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return oops.Wrap(account.ErrEmailTaken)
			}
			return oops.With("login_name", acct.LoginName).
				Wrap(account.ErrLoginNameTaken)
		}
		return oops.With("operation", "insert account").
			With("login_name", acct.LoginName).
			Wrap(err)
	}

	acct.CreatedAt = now
	acct.UpdatedAt = now
	return nil
}

// UpdateCredentialHash overwrites the credential hash for an account.
// No compare-and-swap: concurrent writers store equivalent hashes, so
// last-write-wins is safe.
func (r *AccountRepository) UpdateCredentialHash(ctx context.Context, id int64, newHash string) error {
	pool, err := r.db.Querier()
	if err != nil {
		return oops.With("operation", "update credential hash").Wrap(err)
	}

	result, err := pool.Exec(ctx, `
		UPDATE accounts SET credential_hash = $2, updated_at = $3
		WHERE id = $1
	`, id, newHash, time.Now())
	if err != nil {
		return oops.With("operation", "update credential hash").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id).Wrap(account.ErrNotFound)
	}
	return nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*account.Account, error) {
	var acct account.Account
	err := row.Scan(
		&acct.ID,
		&acct.LoginName,
		&acct.Email,
		&acct.CredentialHash,
		&acct.Status,
		&acct.PrivilegeLevel,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.With("operation", "scan account").Wrap(err)
	}
	return &acct, nil
}

// Compile-time interface check.
var _ account.Repository = (*AccountRepository)(nil)
