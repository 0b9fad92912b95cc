// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

package account

import "errors"

// ErrNotFound is returned when a requested account does not exist.
var ErrNotFound = errors.New("not found")

// ErrLoginNameTaken is returned when registering a login name that
// already exists.
var ErrLoginNameTaken = errors.New("login name already taken")

// ErrEmailTaken is returned when registering an email address that is
// already associated with another account.
var ErrEmailTaken = errors.New("email already registered")
