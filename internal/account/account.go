// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

package account

import (
	"context"
	"regexp"
	"time"

	"github.com/samber/oops"
)

// StatusActive is the only status value that permits authentication.
// Any other value means the account is disabled.
const StatusActive = 1

// Login name validation constraints.
const (
	MinLoginNameLength = 3
	MaxLoginNameLength = 25
)

// loginNameRegex matches login names that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var loginNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Account represents one registered player identity.
type Account struct {
	ID             int64
	LoginName      string
	Email          *string
	CredentialHash string
	Status         int16
	PrivilegeLevel int16
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsAllowed reports whether an account with the given status may
// authenticate. Reused by every endpoint that re-checks status on an
// already-authenticated request, not just login.
func IsAllowed(status int16) bool {
	return status == StatusActive
}

// ValidateLoginName validates a login name against registration rules.
func ValidateLoginName(loginName string) error {
	if loginName == "" {
		return oops.Code("AUTH_INVALID_LOGIN_NAME").Errorf("login name cannot be empty")
	}
	if len(loginName) < MinLoginNameLength {
		return oops.Code("AUTH_INVALID_LOGIN_NAME").
			With("min", MinLoginNameLength).
			Errorf("login name must be at least %d characters", MinLoginNameLength)
	}
	if len(loginName) > MaxLoginNameLength {
		return oops.Code("AUTH_INVALID_LOGIN_NAME").
			With("max", MaxLoginNameLength).
			Errorf("login name must be at most %d characters", MaxLoginNameLength)
	}
	if !loginNameRegex.MatchString(loginName) {
		return oops.Code("AUTH_INVALID_LOGIN_NAME").
			Errorf("login name must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// Repository manages account persistence.
type Repository interface {
	// GetByLoginName retrieves an account by login name (exact,
	// case-sensitive match as stored).
	GetByLoginName(ctx context.Context, loginName string) (*Account, error)

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id int64) (*Account, error)

	// Insert stores a new account and fills in its generated ID.
	// Returns ErrLoginNameTaken or ErrEmailTaken on unique conflicts.
	Insert(ctx context.Context, acct *Account) error

	// UpdateCredentialHash overwrites the credential hash for an
	// account. Blind write; no compare-and-swap against the previous
	// value.
	UpdateCredentialHash(ctx context.Context, id int64, newHash string) error
}
