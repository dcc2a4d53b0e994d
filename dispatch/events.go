package dispatch

import "github.com/unkn0wn-root/redistate/types"

// GuildVisibility carries a full guild snapshot together with the
// scoped entities delivered alongside it. Dispatched under
// EventGuildAvailable and EventGuildUpdate.
type GuildVisibility struct {
	Kind      EventType
	Guild     types.Guild
	Emojis    []types.Emoji
	Members   []types.Member
	Roles     []types.Role
	Channels  []types.Channel
	Presences []types.Presence
}

func (e GuildVisibility) Type() EventType { return e.Kind }

// GuildLeave signals the guild became unavailable or the account left it.
type GuildLeave struct {
	GuildID types.Snowflake
}

func (GuildLeave) Type() EventType { return EventGuildLeave }

// EmojisUpdate replaces a guild's full emoji list.
type EmojisUpdate struct {
	GuildID types.Snowflake
	Emojis  []types.Emoji
}

func (EmojisUpdate) Type() EventType { return EventEmojisUpdate }

// MemberChange is dispatched under EventMemberAdd and EventMemberUpdate.
type MemberChange struct {
	Kind   EventType
	Member types.Member
}

func (e MemberChange) Type() EventType { return e.Kind }

// MemberDelete signals a member was removed from a guild.
type MemberDelete struct {
	GuildID types.Snowflake
	UserID  types.Snowflake
}

func (MemberDelete) Type() EventType { return EventMemberDelete }

// RoleChange is dispatched under EventRoleCreate and EventRoleUpdate.
type RoleChange struct {
	Kind EventType
	Role types.Role
}

func (e RoleChange) Type() EventType { return e.Kind }

// RoleDelete signals a role was removed from a guild.
type RoleDelete struct {
	GuildID types.Snowflake
	RoleID  types.Snowflake
}

func (RoleDelete) Type() EventType { return EventRoleDelete }

// PresenceUpdate carries one member's new presence.
type PresenceUpdate struct {
	Presence types.Presence
}

func (PresenceUpdate) Type() EventType { return EventPresenceUpdate }

// VoiceStateUpdate carries one member's new voice state. A zero
// ChannelID means the member disconnected.
type VoiceStateUpdate struct {
	State types.VoiceState
}

func (VoiceStateUpdate) Type() EventType { return EventVoiceStateUpdate }

// InviteCreate carries a newly created invite.
type InviteCreate struct {
	Invite types.Invite
}

func (InviteCreate) Type() EventType { return EventInviteCreate }

// InviteDelete signals an invite was revoked or expired.
type InviteDelete struct {
	Code      string
	GuildID   types.Snowflake
	ChannelID types.Snowflake
}

func (InviteDelete) Type() EventType { return EventInviteDelete }

// ChannelChange is dispatched under EventChannelCreate and EventChannelUpdate.
type ChannelChange struct {
	Kind    EventType
	Channel types.Channel
}

func (e ChannelChange) Type() EventType { return e.Kind }

// ChannelDelete signals a channel was removed.
type ChannelDelete struct {
	GuildID   types.Snowflake
	ChannelID types.Snowflake
}

func (ChannelDelete) Type() EventType { return EventChannelDelete }

// MeUpdate carries the authenticated account's new snapshot.
type MeUpdate struct {
	Me types.OwnUser
}

func (MeUpdate) Type() EventType { return EventMeUpdate }
