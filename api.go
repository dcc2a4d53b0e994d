package redistate

import (
	"context"

	"github.com/unkn0wn-root/redistate/types"
)

// The capability interfaces below describe what each cache resource can
// do independently of how it is wired. Consumers that only read one
// entity type should depend on that interface rather than on the full
// Client.

// UserCache stores user records referenced by other resources.
type UserCache interface {
	Resource
	GetUser(ctx context.Context, userID types.Snowflake) (types.User, error)
	UserView(ctx context.Context) (*View[types.Snowflake, types.User], error)
}

// GuildCache stores guild records.
type GuildCache interface {
	Resource
	GetGuild(ctx context.Context, guildID types.Snowflake) (types.Guild, error)
	SetGuild(ctx context.Context, g types.Guild) error
	DeleteGuild(ctx context.Context, guildID types.Snowflake) error
	GuildView(ctx context.Context) (*View[types.Snowflake, types.Guild], error)
}

// EmojiCache stores custom emoji records scoped to guilds.
type EmojiCache interface {
	Resource
	GetEmoji(ctx context.Context, emojiID types.Snowflake) (types.Emoji, error)
	SetEmoji(ctx context.Context, e types.Emoji) error
	DeleteEmoji(ctx context.Context, emojiID types.Snowflake) error
	ClearEmojis(ctx context.Context) error
	ClearEmojisForGuild(ctx context.Context, guildID types.Snowflake) error
	EmojiView(ctx context.Context) (*View[types.Snowflake, types.Emoji], error)
	EmojiViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.Emoji], error)
}

// MemberCache stores guild member records keyed by (guild, user).
type MemberCache interface {
	Resource
	GetMember(ctx context.Context, guildID, userID types.Snowflake) (types.Member, error)
	SetMember(ctx context.Context, m types.Member) error
	DeleteMember(ctx context.Context, guildID, userID types.Snowflake) error
	ClearMembersForGuild(ctx context.Context, guildID types.Snowflake) error
	MemberViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.Member], error)
	MemberViewForUser(ctx context.Context, userID types.Snowflake) (*View[types.Snowflake, types.Member], error)
	MemberView(ctx context.Context) (*NestedView[types.Snowflake, types.Snowflake, types.Member], error)
}

// RoleCache stores guild role records.
type RoleCache interface {
	Resource
	GetRole(ctx context.Context, roleID types.Snowflake) (types.Role, error)
	SetRole(ctx context.Context, role types.Role) error
	DeleteRole(ctx context.Context, roleID types.Snowflake) error
	ClearRolesForGuild(ctx context.Context, guildID types.Snowflake) error
	RoleView(ctx context.Context) (*View[types.Snowflake, types.Role], error)
	RoleViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.Role], error)
}

// PresenceCache stores presence records keyed by (guild, user).
type PresenceCache interface {
	Resource
	GetPresence(ctx context.Context, guildID, userID types.Snowflake) (types.Presence, error)
	SetPresence(ctx context.Context, p types.Presence) error
	DeletePresence(ctx context.Context, guildID, userID types.Snowflake) error
	ClearPresencesForGuild(ctx context.Context, guildID types.Snowflake) error
	PresenceViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.Presence], error)
	PresenceViewForUser(ctx context.Context, userID types.Snowflake) (*View[types.Snowflake, types.Presence], error)
	PresenceView(ctx context.Context) (*NestedView[types.Snowflake, types.Snowflake, types.Presence], error)
}

// VoiceStateCache stores voice connection records keyed by (guild, user).
type VoiceStateCache interface {
	Resource
	GetVoiceState(ctx context.Context, guildID, userID types.Snowflake) (types.VoiceState, error)
	SetVoiceState(ctx context.Context, v types.VoiceState) error
	DeleteVoiceState(ctx context.Context, guildID, userID types.Snowflake) error
	ClearVoiceStatesForGuild(ctx context.Context, guildID types.Snowflake) error
	VoiceStateViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.VoiceState], error)
	VoiceStateViewForChannel(ctx context.Context, channelID types.Snowflake) (*View[types.Snowflake, types.VoiceState], error)
	VoiceStateViewForUser(ctx context.Context, userID types.Snowflake) (*View[types.Snowflake, types.VoiceState], error)
	VoiceStateView(ctx context.Context) (*NestedView[types.Snowflake, types.Snowflake, types.VoiceState], error)
}

// InviteCache stores invite records keyed by invite code.
type InviteCache interface {
	Resource
	GetInvite(ctx context.Context, code string) (types.Invite, error)
	SetInvite(ctx context.Context, inv types.Invite) error
	DeleteInvite(ctx context.Context, code string) error
	ClearInvitesForGuild(ctx context.Context, guildID types.Snowflake) error
	ClearInvitesForChannel(ctx context.Context, channelID types.Snowflake) error
	InviteView(ctx context.Context) (*View[string, types.Invite], error)
	InviteViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[string, types.Invite], error)
	InviteViewForChannel(ctx context.Context, channelID types.Snowflake) (*View[string, types.Invite], error)
}

// ChannelCache stores guild channel records.
type ChannelCache interface {
	Resource
	GetChannel(ctx context.Context, channelID types.Snowflake) (types.Channel, error)
	SetChannel(ctx context.Context, ch types.Channel) error
	DeleteChannel(ctx context.Context, channelID types.Snowflake) error
	ClearChannelsForGuild(ctx context.Context, guildID types.Snowflake) error
	ChannelView(ctx context.Context) (*View[types.Snowflake, types.Channel], error)
	ChannelViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.Channel], error)
}

// MeCache stores the single own-user record.
type MeCache interface {
	Resource
	GetMe(ctx context.Context) (types.OwnUser, error)
	SetMe(ctx context.Context, u types.OwnUser) error
	DeleteMe(ctx context.Context) error
}

// Cache is the full aggregate surface.
type Cache interface {
	UserCache
	GuildCache
	EmojiCache
	MemberCache
	RoleCache
	PresenceCache
	VoiceStateCache
	InviteCache
	ChannelCache
	MeCache
}
