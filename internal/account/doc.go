// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

// Package account provides player-account authentication for Shardgate.
//
// # Credential schemes
//
// Stored credential hashes come in two formats: a legacy unsalted MD5
// digest (exactly 32 lowercase hex characters) inherited from the old
// game database, and the modern salted bcrypt encoding. Classification
// is purely by string shape; no scheme flag is stored. On a successful
// login against a legacy hash the service transparently rehashes the
// presented password with bcrypt and overwrites the stored value. That
// migration is best effort: its failure is logged and counted but never
// turns a successful verification into a failed login.
//
// # Services
//
// Service coordinates credential verification, registration, password
// change, and session issuance. TokenService signs and validates the
// stateless session tokens. Both are created with New* constructors
// that validate their dependencies.
package account
