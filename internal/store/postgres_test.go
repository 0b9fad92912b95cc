// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

package store

import (
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_Querier(t *testing.T) {
	t.Run("zero value store is not ready", func(t *testing.T) {
		var s Postgres
		q, err := s.Querier()
		require.ErrorIs(t, err, ErrNotReady)
		assert.Nil(t, q)
		assert.False(t, s.Ready())
	})

	t.Run("store with querier is ready", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		s := WithQuerier(mock)
		assert.True(t, s.Ready())

		q, err := s.Querier()
		require.NoError(t, err)
		assert.NotNil(t, q)
	})

	t.Run("close makes store not ready", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		s := WithQuerier(mock)
		s.Close()

		assert.False(t, s.Ready())
		_, err = s.Querier()
		require.ErrorIs(t, err, ErrNotReady)
	})
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	// Every up migration needs a matching down migration.
	ups, downs := 0, 0
	for _, e := range entries {
		name := e.Name()
		switch {
		case len(name) > 7 && name[len(name)-7:] == ".up.sql":
			ups++
		case len(name) > 9 && name[len(name)-9:] == ".down.sql":
			downs++
		}
	}
	assert.Equal(t, ups, downs, "up/down migration pairs must match")
	assert.Positive(t, ups)
}
