// Package keys builds and parses the key shapes used inside one
// partition.
//
// Layout per partition:
//
//	e:<id>            - primary record (hash)
//	e:<scope>:<id>    - primary record keyed by a (scope, id) pair
//	ix:g:<guild>      - guild index (set of ids)
//	ix:c:<channel>    - channel index (set of ids)
//	ix:u:<user>       - user index (set of guild ids)
//
// Index keys share the partition with the primaries they index so a
// single transactional batch can touch both.
package keys

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/redistate/types"
)

const (
	primaryPrefix = "e:"
	guildIndex    = "ix:g:"
	channelIndex  = "ix:c:"
	userIndex     = "ix:u:"
)

// Primary is the record key for a single-id entity.
func Primary(id types.Snowflake) string { return primaryPrefix + id.String() }

// PrimaryString is the record key for a string-identified entity (invite codes).
func PrimaryString(id string) string { return primaryPrefix + id }

// PrimaryPair is the record key for a (scope, id) keyed entity such as
// members, presences and voice states.
func PrimaryPair(scope, id types.Snowflake) string {
	return primaryPrefix + scope.String() + ":" + id.String()
}

// PrimaryPattern matches every single-id primary in the partition.
func PrimaryPattern() string { return primaryPrefix + "*" }

// GuildIndex is the set of ids scoped to one guild.
func GuildIndex(guildID types.Snowflake) string { return guildIndex + guildID.String() }

// ChannelIndex is the set of ids scoped to one channel.
func ChannelIndex(channelID types.Snowflake) string { return channelIndex + channelID.String() }

// UserIndex is the set of guild ids one user appears in.
func UserIndex(userID types.Snowflake) string { return userIndex + userID.String() }

// GuildIndexPattern matches every guild index key in the partition.
func GuildIndexPattern() string { return guildIndex + "*" }

// Pair renders a (scope, id) member for index sets whose members carry
// both halves of a composite key.
func Pair(scope, id types.Snowflake) string {
	return scope.String() + ":" + id.String()
}

// SplitPair parses a member produced by Pair.
func SplitPair(raw string) (scope, id types.Snowflake, err error) {
	i := strings.IndexByte(raw, ':')
	if i < 0 {
		return 0, 0, fmt.Errorf("keys: malformed pair %q", raw)
	}
	if scope, err = types.ParseSnowflake(raw[:i]); err != nil {
		return 0, 0, err
	}
	if id, err = types.ParseSnowflake(raw[i+1:]); err != nil {
		return 0, 0, err
	}
	return scope, id, nil
}

// TrimGuildIndex strips the guild index prefix.
func TrimGuildIndex(key string) (string, bool) {
	if !strings.HasPrefix(key, guildIndex) {
		return "", false
	}
	return key[len(guildIndex):], true
}

// TrimPrimary strips the primary prefix, returning the raw identifier
// part and whether key was a primary at all.
func TrimPrimary(key string) (string, bool) {
	if !strings.HasPrefix(key, primaryPrefix) {
		return "", false
	}
	return key[len(primaryPrefix):], true
}
