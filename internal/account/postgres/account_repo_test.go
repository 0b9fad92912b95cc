// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/internal/account"
	"github.com/shardgate/shardgate/internal/account/postgres"
	"github.com/shardgate/shardgate/internal/store"
)

var accountColumns = []string{
	"id", "login_name", "email", "credential_hash",
	"status", "privilege_level", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *postgres.AccountRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock, postgres.NewAccountRepository(store.WithQuerier(mock))
}

func TestAccountRepository_GetByLoginName(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("returns matching account", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		rows := pgxmock.NewRows(accountColumns).
			AddRow(int64(1), "alice", nil, "e52d98c459819a11775936d8dfbb7929",
				int16(1), int16(0), now, now)
		mock.ExpectQuery(`SELECT id, login_name, email, credential_hash`).
			WithArgs("alice").
			WillReturnRows(rows)

		acct, err := repo.GetByLoginName(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1), acct.ID)
		assert.Equal(t, "alice", acct.LoginName)
		assert.Equal(t, "e52d98c459819a11775936d8dfbb7929", acct.CredentialHash)
		assert.Equal(t, int16(1), acct.Status)
		assert.Nil(t, acct.Email)

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("no row maps to ErrNotFound", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`SELECT id, login_name, email, credential_hash`).
			WithArgs("nobody").
			WillReturnRows(pgxmock.NewRows(accountColumns))

		_, err := repo.GetByLoginName(ctx, "nobody")
		require.ErrorIs(t, err, account.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("query error is wrapped", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`SELECT id, login_name, email, credential_hash`).
			WithArgs("alice").
			WillReturnError(errors.New("connection refused"))

		_, err := repo.GetByLoginName(ctx, "alice")
		require.Error(t, err)
		assert.NotErrorIs(t, err, account.ErrNotFound)
		// The service layer owns outcome codes; repository errors must
		// not carry one of their own.
		assert.Empty(t, account.ErrorCode(err))

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("not-ready store", func(t *testing.T) {
		repo := postgres.NewAccountRepository(&store.Postgres{})

		_, err := repo.GetByLoginName(ctx, "alice")
		require.ErrorIs(t, err, store.ErrNotReady)
		assert.Empty(t, account.ErrorCode(err))
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("returns matching account", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		email := "bob@example.com"
		rows := pgxmock.NewRows(accountColumns).
			AddRow(int64(7), "bob", &email, "$2a$10$hash",
				int16(1), int16(3), now, now)
		mock.ExpectQuery(`SELECT id, login_name, email, credential_hash`).
			WithArgs(int64(7)).
			WillReturnRows(rows)

		acct, err := repo.GetByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), acct.ID)
		require.NotNil(t, acct.Email)
		assert.Equal(t, email, *acct.Email)
		assert.Equal(t, int16(3), acct.PrivilegeLevel)

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("no row maps to ErrNotFound", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`SELECT id, login_name, email, credential_hash`).
			WithArgs(int64(99)).
			WillReturnRows(pgxmock.NewRows(accountColumns))

		_, err := repo.GetByID(ctx, 99)
		require.ErrorIs(t, err, account.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestAccountRepository_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("fills in generated id and timestamps", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`INSERT INTO accounts`).
			WithArgs("alice", pgxmock.AnyArg(), "$2a$10$hash", int16(1), int16(0), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		acct := &account.Account{
			LoginName:      "alice",
			CredentialHash: "$2a$10$hash",
			Status:         1,
		}
		require.NoError(t, repo.Insert(ctx, acct))
		assert.Equal(t, int64(42), acct.ID)
		assert.False(t, acct.CreatedAt.IsZero())
		assert.Equal(t, acct.CreatedAt, acct.UpdatedAt)

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("login name unique violation", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`INSERT INTO accounts`).
			WithArgs("alice", pgxmock.AnyArg(), "hash", int16(1), int16(0), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "accounts_login_name_key",
			})

		err := repo.Insert(ctx, &account.Account{LoginName: "alice", CredentialHash: "hash", Status: 1})
		require.ErrorIs(t, err, account.ErrLoginNameTaken)
		assert.Empty(t, account.ErrorCode(err))

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("email unique violation", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`INSERT INTO accounts`).
			WithArgs("alice", pgxmock.AnyArg(), "hash", int16(1), int16(0), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "accounts_email_key",
			})

		err := repo.Insert(ctx, &account.Account{LoginName: "alice", CredentialHash: "hash", Status: 1})
		require.ErrorIs(t, err, account.ErrEmailTaken)
		assert.Empty(t, account.ErrorCode(err))

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`INSERT INTO accounts`).
			WithArgs("alice", pgxmock.AnyArg(), "hash", int16(1), int16(0), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		err := repo.Insert(ctx, &account.Account{LoginName: "alice", CredentialHash: "hash", Status: 1})
		require.Error(t, err)
		assert.NotErrorIs(t, err, account.ErrLoginNameTaken)

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestAccountRepository_UpdateCredentialHash(t *testing.T) {
	ctx := context.Background()

	t.Run("updates existing account", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE accounts SET credential_hash`).
			WithArgs(int64(1), "$2a$10$newhash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateCredentialHash(ctx, 1, "$2a$10$newhash"))

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("zero rows affected maps to ErrNotFound", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE accounts SET credential_hash`).
			WithArgs(int64(99), "hash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateCredentialHash(ctx, 99, "hash")
		require.ErrorIs(t, err, account.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("exec error is wrapped", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE accounts SET credential_hash`).
			WithArgs(int64(1), "hash", pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		err := repo.UpdateCredentialHash(ctx, 1, "hash")
		require.Error(t, err)
		assert.NotErrorIs(t, err, account.ErrNotFound)
		assert.Empty(t, account.ErrorCode(err))

		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}
