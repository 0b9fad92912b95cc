// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/shardgate/shardgate/internal/shard"
	"github.com/shardgate/shardgate/internal/store"
)

// GuildRepository implements shard.GuildRepository using PostgreSQL.
type GuildRepository struct {
	db *store.Postgres
}

// NewGuildRepository creates a new GuildRepository.
func NewGuildRepository(db *store.Postgres) *GuildRepository {
	return &GuildRepository{db: db}
}

// GetDetail retrieves a guild with its member roster, members ordered
// by name.
func (r *GuildRepository) GetDetail(ctx context.Context, id int64) (*shard.GuildDetail, error) {
	pool, err := r.db.Querier()
	if err != nil {
		return nil, oops.With("operation", "get guild").Wrap(err)
	}

	var detail shard.GuildDetail
	err = pool.QueryRow(ctx, `
		SELECT id, name, level, item_points
		FROM guilds
		WHERE id = $1
	`, id).Scan(&detail.ID, &detail.Name, &detail.Level, &detail.ItemPoints)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("GUILD_NOT_FOUND").
			With("id", id).
			Wrap(shard.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("GUILD_GET_FAILED").
			With("operation", "get guild").
			With("id", id).
			Wrap(err)
	}

	rows, err := pool.Query(ctx, `
		SELECT character_id, char_name, char_level, permission, contribution, is_master, joined_at
		FROM guild_members
		WHERE guild_id = $1
		ORDER BY char_name ASC
	`, id)
	if err != nil {
		return nil, oops.Code("GUILD_GET_FAILED").
			With("operation", "query guild members").
			With("id", id).
			Wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		var m shard.GuildMember
		if err := rows.Scan(&m.CharacterID, &m.CharName, &m.CharLevel, &m.Permission, &m.Contribution, &m.IsMaster, &m.JoinedAt); err != nil {
			return nil, oops.Code("GUILD_GET_FAILED").
				With("operation", "scan member row").
				Wrap(err)
		}
		detail.Members = append(detail.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("GUILD_GET_FAILED").
			With("operation", "iterate member rows").
			Wrap(err)
	}

	for i := range detail.Members {
		if detail.Members[i].IsMaster {
			detail.Master = &detail.Members[i]
			break
		}
	}

	return &detail, nil
}

// TopGuilds returns the guilds with the highest item points, descending.
func (r *GuildRepository) TopGuilds(ctx context.Context, limit int) ([]shard.Guild, error) {
	pool, err := r.db.Querier()
	if err != nil {
		return nil, oops.With("operation", "query top guilds").Wrap(err)
	}
	if limit <= 0 {
		limit = shard.DefaultTopLimit
	}

	rows, err := pool.Query(ctx, `
		SELECT id, name, level, item_points
		FROM guilds
		ORDER BY item_points DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, oops.Code("TOP_GUILDS_FAILED").
			With("operation", "query top guilds").
			Wrap(err)
	}
	defer rows.Close()

	var guilds []shard.Guild
	for rows.Next() {
		var g shard.Guild
		if err := rows.Scan(&g.ID, &g.Name, &g.Level, &g.ItemPoints); err != nil {
			return nil, oops.Code("TOP_GUILDS_FAILED").
				With("operation", "scan guild row").
				Wrap(err)
		}
		guilds = append(guilds, g)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("TOP_GUILDS_FAILED").
			With("operation", "iterate guild rows").
			Wrap(err)
	}
	return guilds, nil
}

// Compile-time interface check.
var _ shard.GuildRepository = (*GuildRepository)(nil)
