// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

// Package shard provides read-only views of shard game data:
// characters, equipment, guilds, and leaderboards. These are plain
// stateless reads with no invariants beyond returning what is stored.
package shard

import (
	"context"
	"errors"
	"time"
)

// Equipment slot ranges. Slots 0-12 are worn equipment; 180-199 are
// avatar (cosmetic) items.
const (
	EquipSlotMax  = 12
	AvatarSlotMin = 180
	AvatarSlotMax = 199
)

// DefaultTopLimit is the number of rows returned by leaderboard queries.
const DefaultTopLimit = 10

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Character represents one character's sheet stats.
type Character struct {
	ID         int64
	Name       string
	Level      int
	Strength   int
	Intellect  int
	HP         int
	MP         int
	ItemPoints int64
	GuildID    *int64
	Region     int
	PosX       float32
	PosY       float32
	PosZ       float32
}

// Item is one equipped or avatar item.
type Item struct {
	Slot      int
	RefItemID int64
	OptLevel  int
	Variance  int64
}

// CharacterDetail is a character sheet with equipment, avatar items,
// and guild affiliation.
type CharacterDetail struct {
	Character
	Guild     *Guild
	Equipment []Item
	Avatar    []Item
}

// Guild represents a guild's summary row.
type Guild struct {
	ID         int64
	Name       string
	Level      int
	ItemPoints int64
}

// GuildMember is one member row of a guild.
type GuildMember struct {
	CharacterID  int64
	CharName     string
	CharLevel    int
	Permission   int
	Contribution int64
	IsMaster     bool
	JoinedAt     time.Time
}

// GuildDetail is a guild with its member roster. Master points at the
// member flagged as guild master, or nil if none is.
type GuildDetail struct {
	Guild
	Master  *GuildMember
	Members []GuildMember
}

// LeaderboardEntry is one row of the top-players ranking.
type LeaderboardEntry struct {
	CharacterID int64
	Name        string
	Level       int
	ItemPoints  int64
}

// CharacterRepository reads character data.
type CharacterRepository interface {
	// GetDetail retrieves a character sheet with equipment, avatar
	// items, and guild affiliation.
	GetDetail(ctx context.Context, id int64) (*CharacterDetail, error)

	// TopPlayers returns the characters with the highest item points,
	// descending.
	TopPlayers(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// GuildRepository reads guild data.
type GuildRepository interface {
	// GetDetail retrieves a guild with its member roster.
	GetDetail(ctx context.Context, id int64) (*GuildDetail, error)

	// TopGuilds returns the guilds with the highest item points,
	// descending.
	TopGuilds(ctx context.Context, limit int) ([]Guild, error)
}
