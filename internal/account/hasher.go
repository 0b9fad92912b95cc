// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

package account

import (
	"crypto/md5" //nolint:gosec // G501: legacy digest retained for stored-hash compatibility only
	"encoding/hex"
	"errors"
	"regexp"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the work factor the old backend used when it
// rehashed migrated credentials.
const bcryptCost = 10

// ErrEmptyPassword is returned when attempting to hash an empty
// password. It carries no outcome code; the caller assigns one for the
// operation that failed.
var ErrEmptyPassword = oops.Errorf("password cannot be empty")

// legacyDigestRegex matches the legacy scheme's output: exactly 32
// lowercase hex characters. This shape, not a stored flag, drives
// scheme classification. A modern encoding never collides with it;
// bcrypt output starts with "$2".
var legacyDigestRegex = regexp.MustCompile(`^[0-9a-f]{32}$`)

// PasswordHasher provides modern-scheme password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted modern-scheme hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the modern-scheme hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error
	// on an invalid hash encoding.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the stored hash is a legacy digest
	// that should be replaced on the next successful login.
	NeedsUpgrade(hash string) bool
}

// LegacyDigest computes the legacy unsalted digest of a password:
// 32 lowercase hex characters.
func LegacyDigest(password string) string {
	sum := md5.Sum([]byte(password)) //nolint:gosec // G401: compatibility with legacy stored hashes
	return hex.EncodeToString(sum[:])
}

// IsLegacyDigest classifies a stored hash: legacy iff it is exactly
// 32 hex characters, modern otherwise.
func IsLegacyDigest(hash string) bool {
	return legacyDigestRegex.MatchString(hash)
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a new BcryptHasher.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcryptCost}
}

// Hash produces a bcrypt hash of the password. Each call embeds a
// fresh random salt, so two calls with the same password produce
// different encodings.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.With("operation", "hash password").Wrap(err)
	}
	return string(out), nil
}

// Verify checks if the password matches the bcrypt hash. bcrypt
// extracts the embedded salt and cost and recomputes internally with
// a constant-time comparison.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, oops.With("operation", "verify password").Wrap(err)
}

// NeedsUpgrade returns true if the hash is a legacy digest.
func (h *BcryptHasher) NeedsUpgrade(hash string) bool {
	return IsLegacyDigest(hash)
}

// Compile-time interface check.
var _ PasswordHasher = (*BcryptHasher)(nil)
