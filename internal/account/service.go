// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/shardgate/shardgate/internal/observability"
)

// invalidCredentialsMsg is the single caller-facing message for both
// unknown accounts and wrong passwords. The two cases must stay
// byte-identical so responses never leak which accounts exist.
const invalidCredentialsMsg = "invalid username or password"

// dummyCredentialHash is verified when an account doesn't exist so the
// response time stays consistent with the wrong-password path. This is
// NOT a real credential; the digest part is a fixed filler that no
// password hashes to.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyCredentialHash = "$2a$10$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// LoginResult carries the outcome of a successful login.
type LoginResult struct {
	Token          string
	AccountID      int64
	LoginName      string
	PrivilegeLevel int16
}

// Service provides account authentication operations.
type Service struct {
	accounts Repository
	hasher   PasswordHasher
	tokens   *TokenService
	logger   *slog.Logger
}

// NewService creates a new Service.
func NewService(accounts Repository, hasher PasswordHasher, tokens *TokenService, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
	}, nil
}

// VerifyCredentials authenticates a login name and password against the
// stored credential hash. On a successful match against a legacy-format
// hash the credential is migrated to the modern scheme before returning;
// migration failure never changes the verification outcome.
//
// Unknown accounts and wrong passwords produce the same
// AUTH_INVALID_CREDENTIALS error. Account status is NOT checked here;
// callers gate on it separately after verification.
func (s *Service) VerifyCredentials(ctx context.Context, loginName, password string) (*Account, error) {
	if loginName == "" || password == "" {
		return nil, oops.Code("AUTH_INVALID_REQUEST").Errorf("username and password required")
	}

	acct, err := s.accounts.GetByLoginName(ctx, loginName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Still verify against a dummy hash to keep response time
			// consistent with the wrong-password path.
			_, _ = s.hasher.Verify(password, dummyCredentialHash) //nolint:errcheck // timing only
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf(invalidCredentialsMsg)
		}
		return nil, s.storeFault(err, "get account by login name")
	}

	ok, err := s.checkPassword(password, acct.CredentialHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf(invalidCredentialsMsg)
	}

	if s.hasher.NeedsUpgrade(acct.CredentialHash) {
		// Verification already succeeded; a migration fault must not
		// demote it, so the error is logged and counted, not returned.
		if merr := s.Migrate(ctx, acct.ID, password); merr != nil {
			s.logger.Warn("legacy credential migration failed",
				"account_id", acct.ID,
				"error", merr)
			observability.RecordCredentialMigration("failure")
		} else {
			observability.RecordCredentialMigration("success")
		}
	}

	return acct, nil
}

// Migrate replaces the stored credential hash for an account with a
// modern-scheme hash of the given plaintext. The write is a blind
// overwrite: two concurrent migrations for the same account both write
// valid hashes of the same password, so last-write-wins is fine and no
// locking is used.
func (s *Service) Migrate(ctx context.Context, accountID int64, password string) error {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code("AUTH_MIGRATION_FAILED").With("operation", "hash password").Wrap(err)
	}
	if err := s.accounts.UpdateCredentialHash(ctx, accountID, newHash); err != nil {
		return oops.Code("AUTH_MIGRATION_FAILED").With("operation", "update credential hash").Wrap(err)
	}
	return nil
}

// Login verifies credentials, gates on account status, and issues a
// session token. The status check deliberately happens only after
// password verification: a disabled account with a correct password
// reveals "disabled", not "bad password".
func (s *Service) Login(ctx context.Context, loginName, password string) (*LoginResult, error) {
	acct, err := s.VerifyCredentials(ctx, loginName, password)
	if err != nil {
		observability.RecordLogin(loginMetricResult(err))
		return nil, err
	}

	if !IsAllowed(acct.Status) {
		observability.RecordLogin("disabled")
		return nil, oops.Code("AUTH_ACCOUNT_DISABLED").
			With("account_id", acct.ID).
			Errorf("account is disabled or inactive")
	}

	token, err := s.tokens.Issue(acct.ID, acct.LoginName, acct.PrivilegeLevel)
	if err != nil {
		observability.RecordLogin("error")
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "issue token").Wrap(err)
	}

	observability.RecordLogin("success")
	return &LoginResult{
		Token:          token,
		AccountID:      acct.ID,
		LoginName:      acct.LoginName,
		PrivilegeLevel: acct.PrivilegeLevel,
	}, nil
}

// Register creates a new account with a modern-scheme credential hash.
// The legacy scheme is never written for new accounts.
func (s *Service) Register(ctx context.Context, loginName, password string, email *string) (*Account, error) {
	if loginName == "" || password == "" {
		return nil, oops.Code("AUTH_INVALID_REQUEST").Errorf("username and password required")
	}
	if err := ValidateLoginName(loginName); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	acct := &Account{
		LoginName:      loginName,
		Email:          email,
		CredentialHash: hash,
		Status:         StatusActive,
	}
	if err := s.accounts.Insert(ctx, acct); err != nil {
		if errors.Is(err, ErrLoginNameTaken) || errors.Is(err, ErrEmailTaken) {
			return nil, oops.Code("AUTH_REGISTER_CONFLICT").Wrap(err)
		}
		return nil, s.storeFault(err, "insert account")
	}

	return acct, nil
}

// ChangePassword verifies the old password for an account and replaces
// the stored hash with a modern-scheme hash of the new password. The
// account status gate is re-checked here so a disabled account cannot
// rotate its credentials with a still-valid session token.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return oops.Code("AUTH_INVALID_REQUEST").Errorf("old and new passwords required")
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf(invalidCredentialsMsg)
		}
		return s.storeFault(err, "get account by id")
	}

	if !IsAllowed(acct.Status) {
		return oops.Code("AUTH_ACCOUNT_DISABLED").
			With("account_id", acct.ID).
			Errorf("account is disabled or inactive")
	}

	ok, err := s.checkPassword(oldPassword, acct.CredentialHash)
	if err != nil {
		return err
	}
	if !ok {
		return oops.Code("AUTH_OLD_PASSWORD_MISMATCH").Errorf("old password incorrect")
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").With("operation", "hash password").Wrap(err)
	}
	if err := s.accounts.UpdateCredentialHash(ctx, accountID, newHash); err != nil {
		return s.storeFault(err, "update credential hash")
	}
	return nil
}

// checkPassword dispatches on the stored hash's scheme. Legacy digests
// get a constant-time comparison against the recomputed legacy digest;
// everything else goes through the modern verifier.
func (s *Service) checkPassword(password, storedHash string) (bool, error) {
	if IsLegacyDigest(storedHash) {
		computed := LegacyDigest(password)
		return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1, nil
	}

	ok, err := s.hasher.Verify(password, storedHash)
	if err != nil {
		return false, oops.Code("AUTH_VERIFY_FAILED").With("operation", "verify password").Wrap(err)
	}
	return ok, nil
}

// storeFault wraps a repository error as a transient infrastructure
// fault. Callers surface it as an opaque 5xx; no driver detail leaks
// into responses.
func (s *Service) storeFault(err error, op string) error {
	return oops.Code("STORE_UNAVAILABLE").With("operation", op).Wrap(err)
}

// ErrorCode extracts the oops error code from err, or "" if none.
func ErrorCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return ""
}

func loginMetricResult(err error) string {
	switch ErrorCode(err) {
	case "AUTH_INVALID_CREDENTIALS":
		return "invalid_credentials"
	case "AUTH_INVALID_REQUEST":
		return "invalid_request"
	case "STORE_UNAVAILABLE":
		return "store_unavailable"
	default:
		return "error"
	}
}
