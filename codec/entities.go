package codec

import "github.com/unkn0wn-root/redistate/types"

// Default per-entity codecs. Field names are stable and shared with any
// other process reading the mirror; changing one is a breaking change
// to the stored layout.

// UserCodec flattens a User record.
type UserCodec struct{}

var _ Codec[types.User] = UserCodec{}

func (UserCodec) Serialize(u types.User) (map[string]string, error) {
	m := make(map[string]string, 8)
	putID(m, "id", u.ID)
	m["username"] = u.Username
	m["discriminator"] = u.Discriminator
	m["avatar_hash"] = u.AvatarHash
	putBool(m, "is_bot", u.IsBot)
	putBool(m, "is_system", u.IsSystem)
	putInt(m, "flags", u.Flags)
	return m, nil
}

func (UserCodec) Deserialize(m map[string]string, _ Context) (types.User, error) {
	var u types.User
	var err error
	if u.ID, err = getID(m, "id"); err != nil {
		return u, err
	}
	u.Username = m["username"]
	u.Discriminator = m["discriminator"]
	u.AvatarHash = m["avatar_hash"]
	u.IsBot = getBool(m, "is_bot")
	u.IsSystem = getBool(m, "is_system")
	if u.Flags, err = getInt(m, "flags"); err != nil {
		return u, err
	}
	return u, nil
}

// OwnUserCodec extends the user layout with account-only fields.
type OwnUserCodec struct{}

var _ Codec[types.OwnUser] = OwnUserCodec{}

func (OwnUserCodec) Serialize(u types.OwnUser) (map[string]string, error) {
	m, err := UserCodec{}.Serialize(u.User)
	if err != nil {
		return nil, err
	}
	m["locale"] = u.Locale
	putBool(m, "mfa_enabled", u.MFAEnabled)
	putBool(m, "verified", u.Verified)
	m["email"] = u.Email
	return m, nil
}

func (OwnUserCodec) Deserialize(m map[string]string, cx Context) (types.OwnUser, error) {
	var u types.OwnUser
	var err error
	if u.User, err = (UserCodec{}).Deserialize(m, cx); err != nil {
		return u, err
	}
	u.Locale = m["locale"]
	u.MFAEnabled = getBool(m, "mfa_enabled")
	u.Verified = getBool(m, "verified")
	u.Email = m["email"]
	return u, nil
}

// GuildCodec flattens a Guild record. Features is a composite field;
// the zero value uses Msgpack for it.
type GuildCodec struct {
	Features ValueCodec[[]string]
}

var _ Codec[types.Guild] = GuildCodec{}

func (c GuildCodec) Serialize(g types.Guild) (map[string]string, error) {
	m := make(map[string]string, 8)
	putID(m, "id", g.ID)
	m["name"] = g.Name
	m["icon_hash"] = g.IconHash
	putID(m, "owner_id", g.OwnerID)
	putInt(m, "member_count", g.MemberCount)
	putBool(m, "large", g.Large)
	putBool(m, "unavailable", g.Unavailable)
	if err := encOpt(m, "features", c.Features, g.Features); err != nil {
		return nil, err
	}
	return m, nil
}

func (c GuildCodec) Deserialize(m map[string]string, _ Context) (types.Guild, error) {
	var g types.Guild
	var err error
	if g.ID, err = getID(m, "id"); err != nil {
		return g, err
	}
	g.Name = m["name"]
	g.IconHash = m["icon_hash"]
	if g.OwnerID, err = getID(m, "owner_id"); err != nil {
		return g, err
	}
	if g.MemberCount, err = getInt(m, "member_count"); err != nil {
		return g, err
	}
	g.Large = getBool(m, "large")
	g.Unavailable = getBool(m, "unavailable")
	if g.Features, err = decOpt(m, "features", c.Features); err != nil {
		return g, err
	}
	return g, nil
}

// EmojiCodec flattens an Emoji record. The uploader is stored as a
// user_id reference only; Deserialize reattaches Context.User.
type EmojiCodec struct {
	RoleIDs ValueCodec[[]types.Snowflake]
}

var _ Codec[types.Emoji] = EmojiCodec{}

func (c EmojiCodec) Serialize(e types.Emoji) (map[string]string, error) {
	m := make(map[string]string, 7)
	putID(m, "id", e.ID)
	putID(m, "guild_id", e.GuildID)
	m["name"] = e.Name
	putBool(m, "animated", e.Animated)
	putBool(m, "available", e.Available)
	if err := encOpt(m, "role_ids", c.RoleIDs, e.RoleIDs); err != nil {
		return nil, err
	}
	if e.User != nil {
		putID(m, "user_id", e.User.ID)
	}
	return m, nil
}

func (c EmojiCodec) Deserialize(m map[string]string, cx Context) (types.Emoji, error) {
	var e types.Emoji
	var err error
	if e.ID, err = getID(m, "id"); err != nil {
		return e, err
	}
	if e.GuildID, err = getID(m, "guild_id"); err != nil {
		return e, err
	}
	e.Name = m["name"]
	e.Animated = getBool(m, "animated")
	e.Available = getBool(m, "available")
	if e.RoleIDs, err = decOpt(m, "role_ids", c.RoleIDs); err != nil {
		return e, err
	}
	e.User = cx.User
	return e, nil
}

// MemberCodec flattens a Member record, keyed by (guild_id, user_id).
type MemberCodec struct {
	RoleIDs ValueCodec[[]types.Snowflake]
}

var _ Codec[types.Member] = MemberCodec{}

func (c MemberCodec) Serialize(mb types.Member) (map[string]string, error) {
	m := make(map[string]string, 8)
	putID(m, "guild_id", mb.GuildID)
	putID(m, "user_id", mb.UserID)
	m["nickname"] = mb.Nickname
	if err := encOpt(m, "role_ids", c.RoleIDs, mb.RoleIDs); err != nil {
		return nil, err
	}
	putInt(m, "joined_at", mb.JoinedAt)
	putBool(m, "deafened", mb.Deafened)
	putBool(m, "muted", mb.Muted)
	putBool(m, "pending", mb.Pending)
	return m, nil
}

func (c MemberCodec) Deserialize(m map[string]string, cx Context) (types.Member, error) {
	var mb types.Member
	var err error
	if mb.GuildID, err = getID(m, "guild_id"); err != nil {
		return mb, err
	}
	if mb.UserID, err = getID(m, "user_id"); err != nil {
		return mb, err
	}
	mb.Nickname = m["nickname"]
	if mb.RoleIDs, err = decOpt(m, "role_ids", c.RoleIDs); err != nil {
		return mb, err
	}
	if mb.JoinedAt, err = getInt(m, "joined_at"); err != nil {
		return mb, err
	}
	mb.Deafened = getBool(m, "deafened")
	mb.Muted = getBool(m, "muted")
	mb.Pending = getBool(m, "pending")
	mb.User = cx.User
	return mb, nil
}

// RoleCodec flattens a Role record.
type RoleCodec struct{}

var _ Codec[types.Role] = RoleCodec{}

func (RoleCodec) Serialize(r types.Role) (map[string]string, error) {
	m := make(map[string]string, 9)
	putID(m, "id", r.ID)
	putID(m, "guild_id", r.GuildID)
	m["name"] = r.Name
	putInt(m, "color", int64(r.Color))
	putBool(m, "hoisted", r.Hoisted)
	putInt(m, "position", int64(r.Position))
	putInt(m, "permissions", r.Permissions)
	putBool(m, "managed", r.Managed)
	putBool(m, "mentionable", r.Mentionable)
	return m, nil
}

func (RoleCodec) Deserialize(m map[string]string, _ Context) (types.Role, error) {
	var r types.Role
	var err error
	if r.ID, err = getID(m, "id"); err != nil {
		return r, err
	}
	if r.GuildID, err = getID(m, "guild_id"); err != nil {
		return r, err
	}
	r.Name = m["name"]
	color, err := getInt(m, "color")
	if err != nil {
		return r, err
	}
	r.Color = int32(color)
	r.Hoisted = getBool(m, "hoisted")
	pos, err := getInt(m, "position")
	if err != nil {
		return r, err
	}
	r.Position = int32(pos)
	if r.Permissions, err = getInt(m, "permissions"); err != nil {
		return r, err
	}
	r.Managed = getBool(m, "managed")
	r.Mentionable = getBool(m, "mentionable")
	return r, nil
}

// PresenceCodec flattens a Presence record. Activities is composite.
type PresenceCodec struct {
	Activities ValueCodec[[]types.Activity]
}

var _ Codec[types.Presence] = PresenceCodec{}

func (c PresenceCodec) Serialize(p types.Presence) (map[string]string, error) {
	m := make(map[string]string, 4)
	putID(m, "guild_id", p.GuildID)
	putID(m, "user_id", p.UserID)
	m["status"] = p.Status
	if err := encOpt(m, "activities", c.Activities, p.Activities); err != nil {
		return nil, err
	}
	return m, nil
}

func (c PresenceCodec) Deserialize(m map[string]string, _ Context) (types.Presence, error) {
	var p types.Presence
	var err error
	if p.GuildID, err = getID(m, "guild_id"); err != nil {
		return p, err
	}
	if p.UserID, err = getID(m, "user_id"); err != nil {
		return p, err
	}
	p.Status = m["status"]
	if p.Activities, err = decOpt(m, "activities", c.Activities); err != nil {
		return p, err
	}
	return p, nil
}

// VoiceStateCodec flattens a VoiceState record.
type VoiceStateCodec struct{}

var _ Codec[types.VoiceState] = VoiceStateCodec{}

func (VoiceStateCodec) Serialize(v types.VoiceState) (map[string]string, error) {
	m := make(map[string]string, 9)
	putID(m, "guild_id", v.GuildID)
	putID(m, "channel_id", v.ChannelID)
	putID(m, "user_id", v.UserID)
	m["session_id"] = v.SessionID
	putBool(m, "deafened", v.Deafened)
	putBool(m, "muted", v.Muted)
	putBool(m, "self_deaf", v.SelfDeaf)
	putBool(m, "self_mute", v.SelfMute)
	putBool(m, "suppressed", v.Suppressed)
	return m, nil
}

func (VoiceStateCodec) Deserialize(m map[string]string, _ Context) (types.VoiceState, error) {
	var v types.VoiceState
	var err error
	if v.GuildID, err = getID(m, "guild_id"); err != nil {
		return v, err
	}
	if v.ChannelID, err = getID(m, "channel_id"); err != nil {
		return v, err
	}
	if v.UserID, err = getID(m, "user_id"); err != nil {
		return v, err
	}
	v.SessionID = m["session_id"]
	v.Deafened = getBool(m, "deafened")
	v.Muted = getBool(m, "muted")
	v.SelfDeaf = getBool(m, "self_deaf")
	v.SelfMute = getBool(m, "self_mute")
	v.Suppressed = getBool(m, "suppressed")
	return v, nil
}

// InviteCodec flattens an Invite record, keyed by code.
type InviteCodec struct{}

var _ Codec[types.Invite] = InviteCodec{}

func (InviteCodec) Serialize(i types.Invite) (map[string]string, error) {
	m := make(map[string]string, 9)
	m["code"] = i.Code
	putID(m, "guild_id", i.GuildID)
	putID(m, "channel_id", i.ChannelID)
	putID(m, "inviter_id", i.InviterID)
	putInt(m, "uses", i.Uses)
	putInt(m, "max_uses", i.MaxUses)
	putInt(m, "max_age", i.MaxAge)
	putBool(m, "temporary", i.Temporary)
	putInt(m, "created_at", i.CreatedAt)
	return m, nil
}

func (InviteCodec) Deserialize(m map[string]string, _ Context) (types.Invite, error) {
	var i types.Invite
	var err error
	i.Code = m["code"]
	if i.GuildID, err = getID(m, "guild_id"); err != nil {
		return i, err
	}
	if i.ChannelID, err = getID(m, "channel_id"); err != nil {
		return i, err
	}
	if i.InviterID, err = getID(m, "inviter_id"); err != nil {
		return i, err
	}
	if i.Uses, err = getInt(m, "uses"); err != nil {
		return i, err
	}
	if i.MaxUses, err = getInt(m, "max_uses"); err != nil {
		return i, err
	}
	if i.MaxAge, err = getInt(m, "max_age"); err != nil {
		return i, err
	}
	i.Temporary = getBool(m, "temporary")
	if i.CreatedAt, err = getInt(m, "created_at"); err != nil {
		return i, err
	}
	return i, nil
}

// ChannelCodec flattens a Channel record.
type ChannelCodec struct{}

var _ Codec[types.Channel] = ChannelCodec{}

func (ChannelCodec) Serialize(ch types.Channel) (map[string]string, error) {
	m := make(map[string]string, 8)
	putID(m, "id", ch.ID)
	putID(m, "guild_id", ch.GuildID)
	putID(m, "parent_id", ch.ParentID)
	m["name"] = ch.Name
	m["topic"] = ch.Topic
	putInt(m, "type", int64(ch.Type))
	putInt(m, "position", int64(ch.Position))
	putBool(m, "nsfw", ch.NSFW)
	return m, nil
}

func (ChannelCodec) Deserialize(m map[string]string, _ Context) (types.Channel, error) {
	var ch types.Channel
	var err error
	if ch.ID, err = getID(m, "id"); err != nil {
		return ch, err
	}
	if ch.GuildID, err = getID(m, "guild_id"); err != nil {
		return ch, err
	}
	if ch.ParentID, err = getID(m, "parent_id"); err != nil {
		return ch, err
	}
	ch.Name = m["name"]
	ch.Topic = m["topic"]
	typ, err := getInt(m, "type")
	if err != nil {
		return ch, err
	}
	ch.Type = int(typ)
	pos, err := getInt(m, "position")
	if err != nil {
		return ch, err
	}
	ch.Position = int32(pos)
	ch.NSFW = getBool(m, "nsfw")
	return ch, nil
}
