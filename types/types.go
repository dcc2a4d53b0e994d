// Package types defines the entity shapes mirrored by redistate.
//
// These are snapshot types at mirror granularity: the fields a
// downstream reader needs to identify and display an entity, not the
// origin system's full wire objects. Snowflakes are 64-bit unsigned
// identifiers; a zero Snowflake means "absent".
package types

import "strconv"

// Snowflake is a 64-bit unique identifier for a domain entity.
type Snowflake uint64

func (s Snowflake) String() string { return strconv.FormatUint(uint64(s), 10) }

// ParseSnowflake parses the decimal form produced by String.
func ParseSnowflake(v string) (Snowflake, error) {
	u, err := strconv.ParseUint(v, 10, 64)
	return Snowflake(u), err
}

// User is a member of the origin system, referenced by emojis, members,
// presences and voice states.
type User struct {
	ID            Snowflake
	Username      string
	Discriminator string
	AvatarHash    string
	IsBot         bool
	IsSystem      bool
	Flags         int64
}

// OwnUser is the authenticated account the mirror runs as.
type OwnUser struct {
	User

	Locale     string
	MFAEnabled bool
	Verified   bool
	Email      string
}

// Guild is a top-level container entity. Emojis, channels, members,
// roles, presences, voice states and invites are all scoped to one.
type Guild struct {
	ID          Snowflake
	Name        string
	IconHash    string
	OwnerID     Snowflake
	MemberCount int64
	Large       bool
	Unavailable bool
	Features    []string
}

// Emoji is a guild-scoped custom emoji. User, when set, is the account
// that uploaded it and is mirrored separately into the user cache.
type Emoji struct {
	ID        Snowflake
	GuildID   Snowflake
	Name      string
	Animated  bool
	Available bool
	RoleIDs   []Snowflake
	User      *User
}

// Member is a user's membership of one guild, keyed by (GuildID, UserID).
type Member struct {
	GuildID  Snowflake
	UserID   Snowflake
	Nickname string
	RoleIDs  []Snowflake
	JoinedAt int64 // unix milliseconds
	Deafened bool
	Muted    bool
	Pending  bool
	User     *User
}

// Role is a guild-scoped permission role.
type Role struct {
	ID          Snowflake
	GuildID     Snowflake
	Name        string
	Color       int32
	Hoisted     bool
	Position    int32
	Permissions int64
	Managed     bool
	Mentionable bool
}

// Activity is one entry of a presence's activity list.
type Activity struct {
	Name  string `msgpack:"name" json:"name" cbor:"1,keyasint"`
	Type  int    `msgpack:"type" json:"type" cbor:"2,keyasint"`
	URL   string `msgpack:"url,omitempty" json:"url,omitempty" cbor:"3,keyasint,omitempty"`
	State string `msgpack:"state,omitempty" json:"state,omitempty" cbor:"4,keyasint,omitempty"`
}

// Presence is a user's status within one guild, keyed by (GuildID, UserID).
type Presence struct {
	GuildID    Snowflake
	UserID     Snowflake
	Status     string
	Activities []Activity
}

// VoiceState is a user's voice connection within one guild. A zero
// ChannelID means the user is not connected to any channel.
type VoiceState struct {
	GuildID    Snowflake
	ChannelID  Snowflake
	UserID     Snowflake
	SessionID  string
	Deafened   bool
	Muted      bool
	SelfDeaf   bool
	SelfMute   bool
	Suppressed bool
}

// Invite is keyed by its code rather than a snowflake.
type Invite struct {
	Code      string
	GuildID   Snowflake
	ChannelID Snowflake
	InviterID Snowflake
	Uses      int64
	MaxUses   int64
	MaxAge    int64 // seconds
	Temporary bool
	CreatedAt int64 // unix milliseconds
}

// Channel is a guild channel.
type Channel struct {
	ID       Snowflake
	GuildID  Snowflake
	ParentID Snowflake
	Name     string
	Topic    string
	Type     int
	Position int32
	NSFW     bool
}
