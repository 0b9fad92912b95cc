// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

// Package errutil provides test helpers for error-code assertions.
package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err carries the given oops error code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected an oops error, got %T: %v", err, err)
	got, _ := oopsErr.Code().(string)
	assert.Equal(t, code, got)
}
