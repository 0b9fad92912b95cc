// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

// Package postgres implements shard read repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/shardgate/shardgate/internal/shard"
	"github.com/shardgate/shardgate/internal/store"
)

// CharacterRepository implements shard.CharacterRepository using PostgreSQL.
type CharacterRepository struct {
	db *store.Postgres
}

// NewCharacterRepository creates a new CharacterRepository.
func NewCharacterRepository(db *store.Postgres) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// GetDetail retrieves a character sheet with equipment, avatar items,
// and guild affiliation.
func (r *CharacterRepository) GetDetail(ctx context.Context, id int64) (*shard.CharacterDetail, error) {
	pool, err := r.db.Querier()
	if err != nil {
		return nil, oops.With("operation", "get character").Wrap(err)
	}

	row := pool.QueryRow(ctx, `
		SELECT id, name, level, strength, intellect, hp, mp, item_points, guild_id, region, pos_x, pos_y, pos_z
		FROM characters
		WHERE id = $1
	`, id)

	var detail shard.CharacterDetail
	err = row.Scan(
		&detail.ID,
		&detail.Name,
		&detail.Level,
		&detail.Strength,
		&detail.Intellect,
		&detail.HP,
		&detail.MP,
		&detail.ItemPoints,
		&detail.GuildID,
		&detail.Region,
		&detail.PosX,
		&detail.PosY,
		&detail.PosZ,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CHARACTER_NOT_FOUND").
			With("id", id).
			Wrap(shard.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CHARACTER_GET_FAILED").
			With("operation", "get character").
			With("id", id).
			Wrap(err)
	}

	if detail.GuildID != nil {
		guild, err := r.guildSummary(ctx, pool, *detail.GuildID)
		if err != nil {
			return nil, err
		}
		detail.Guild = guild
	}

	detail.Equipment, err = r.items(ctx, pool, id, 0, shard.EquipSlotMax)
	if err != nil {
		return nil, err
	}
	detail.Avatar, err = r.items(ctx, pool, id, shard.AvatarSlotMin, shard.AvatarSlotMax)
	if err != nil {
		return nil, err
	}

	return &detail, nil
}

// TopPlayers returns the characters with the highest item points, descending.
func (r *CharacterRepository) TopPlayers(ctx context.Context, limit int) ([]shard.LeaderboardEntry, error) {
	pool, err := r.db.Querier()
	if err != nil {
		return nil, oops.With("operation", "query top players").Wrap(err)
	}
	if limit <= 0 {
		limit = shard.DefaultTopLimit
	}

	rows, err := pool.Query(ctx, `
		SELECT id, name, level, item_points
		FROM characters
		ORDER BY item_points DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, oops.Code("TOP_PLAYERS_FAILED").
			With("operation", "query top players").
			Wrap(err)
	}
	defer rows.Close()

	var entries []shard.LeaderboardEntry
	for rows.Next() {
		var e shard.LeaderboardEntry
		if err := rows.Scan(&e.CharacterID, &e.Name, &e.Level, &e.ItemPoints); err != nil {
			return nil, oops.Code("TOP_PLAYERS_FAILED").
				With("operation", "scan leaderboard row").
				Wrap(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("TOP_PLAYERS_FAILED").
			With("operation", "iterate leaderboard rows").
			Wrap(err)
	}
	return entries, nil
}

// guildSummary fetches a guild's summary row. A guild_id pointing at a
// deleted guild yields no summary rather than failing the whole read.
func (r *CharacterRepository) guildSummary(ctx context.Context, pool store.Querier, guildID int64) (*shard.Guild, error) {
	var g shard.Guild
	err := pool.QueryRow(ctx, `
		SELECT id, name, level, item_points
		FROM guilds
		WHERE id = $1
	`, guildID).Scan(&g.ID, &g.Name, &g.Level, &g.ItemPoints)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("CHARACTER_GET_FAILED").
			With("operation", "get guild summary").
			With("guild_id", guildID).
			Wrap(err)
	}
	return &g, nil
}

func (r *CharacterRepository) items(ctx context.Context, pool store.Querier, characterID int64, slotMin, slotMax int) ([]shard.Item, error) {
	rows, err := pool.Query(ctx, `
		SELECT slot, ref_item_id, opt_level, variance
		FROM character_items
		WHERE character_id = $1 AND slot BETWEEN $2 AND $3
		ORDER BY slot
	`, characterID, slotMin, slotMax)
	if err != nil {
		return nil, oops.Code("CHARACTER_ITEMS_FAILED").
			With("operation", "query character items").
			With("character_id", characterID).
			Wrap(err)
	}
	defer rows.Close()

	var items []shard.Item
	for rows.Next() {
		var it shard.Item
		if err := rows.Scan(&it.Slot, &it.RefItemID, &it.OptLevel, &it.Variance); err != nil {
			return nil, oops.Code("CHARACTER_ITEMS_FAILED").
				With("operation", "scan item row").
				Wrap(err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("CHARACTER_ITEMS_FAILED").
			With("operation", "iterate item rows").
			Wrap(err)
	}
	return items, nil
}

// Compile-time interface check.
var _ shard.CharacterRepository = (*CharacterRepository)(nil)
