package redistate

import (
	"context"

	"github.com/unkn0wn-root/redistate/codec"
	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/internal/keys"
	"github.com/unkn0wn-root/redistate/store"
	"github.com/unkn0wn-root/redistate/types"
)

// VoiceStateResource mirrors voice connection records, keyed by
// (guild, user). Besides the guild and user indexes it keeps a channel
// index whose members carry both halves of the composite key, so a
// channel can be scanned without knowing the guild.
type VoiceStateResource struct {
	resource
	codec codec.Codec[types.VoiceState]
}

var _ VoiceStateCache = (*VoiceStateResource)(nil)

func (r *VoiceStateResource) Open(context.Context) error {
	return r.openWith(func(d dispatch.Dispatcher) []dispatch.Subscription {
		return []dispatch.Subscription{
			d.Subscribe(dispatch.EventVoiceStateUpdate, r.guarded("voice.update", r.onVoiceStateUpdate)),
			d.Subscribe(dispatch.EventGuildLeave, r.guarded("voice.guild_leave", r.onGuildLeave)),
		}
	})
}

func (r *VoiceStateResource) Close(context.Context) error { return r.closeWith(IndexVoiceState) }

// onVoiceStateUpdate upserts the new state, or deletes the record when
// the member disconnected (zero channel id).
func (r *VoiceStateResource) onVoiceStateUpdate(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.VoiceStateUpdate)
	if !ok {
		return nil
	}
	if e.State.ChannelID == 0 {
		return r.DeleteVoiceState(ctx, e.State.GuildID, e.State.UserID)
	}
	return r.SetVoiceState(ctx, e.State)
}

func (r *VoiceStateResource) onGuildLeave(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildLeave)
	if !ok {
		return nil
	}
	return r.ClearVoiceStatesForGuild(ctx, e.GuildID)
}

func (r *VoiceStateResource) GetVoiceState(ctx context.Context, guildID, userID types.Snowflake) (types.VoiceState, error) {
	return getRecord(ctx, &r.resource, IndexVoiceState, keys.PrimaryPair(guildID, userID), r.codec, codec.Context{})
}

// SetVoiceState upserts the record and moves the channel index
// membership when the member switched channels.
func (r *VoiceStateResource) SetVoiceState(ctx context.Context, v types.VoiceState) error {
	conn, err := r.reg.connection(ctx, IndexVoiceState)
	if err != nil {
		return err
	}
	fields, err := r.codec.Serialize(v)
	if err != nil {
		return err
	}

	key := keys.PrimaryPair(v.GuildID, v.UserID)
	prev, present, err := conn.HashGetAll(ctx, key)
	if err != nil {
		return err
	}
	var prevChannel types.Snowflake
	if present {
		prevChannel, _ = types.ParseSnowflake(prev["channel_id"])
	}

	pair := keys.Pair(v.GuildID, v.UserID)
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(key)
		b.HashSet(key, fields)
		b.SetAdd(keys.GuildIndex(v.GuildID), v.UserID.String())
		b.SetAdd(keys.UserIndex(v.UserID), v.GuildID.String())
		if prevChannel != 0 && prevChannel != v.ChannelID {
			b.SetRemove(keys.ChannelIndex(prevChannel), pair)
		}
		if v.ChannelID != 0 {
			b.SetAdd(keys.ChannelIndex(v.ChannelID), pair)
		}
	})
}

func (r *VoiceStateResource) DeleteVoiceState(ctx context.Context, guildID, userID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexVoiceState)
	if err != nil {
		return err
	}
	key := keys.PrimaryPair(guildID, userID)
	prev, present, err := conn.HashGetAll(ctx, key)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	prevChannel, _ := types.ParseSnowflake(prev["channel_id"])
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(key)
		b.SetRemove(keys.GuildIndex(guildID), userID.String())
		b.SetRemove(keys.UserIndex(userID), guildID.String())
		if prevChannel != 0 {
			b.SetRemove(keys.ChannelIndex(prevChannel), keys.Pair(guildID, userID))
		}
	})
}

// ClearVoiceStatesForGuild reads the scope's records first so the
// channel index entries can be dropped in the same batch as the
// primaries.
func (r *VoiceStateResource) ClearVoiceStatesForGuild(ctx context.Context, guildID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexVoiceState)
	if err != nil {
		return err
	}
	old, err := conn.SetMembers(ctx, keys.GuildIndex(guildID))
	if err != nil {
		return err
	}

	channels := make(map[types.Snowflake][]string)
	for _, uid := range old {
		userID := mustSnowflake(uid)
		prev, present, err := conn.HashGetAll(ctx, keys.PrimaryPair(guildID, userID))
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		if ch, _ := types.ParseSnowflake(prev["channel_id"]); ch != 0 {
			channels[ch] = append(channels[ch], keys.Pair(guildID, userID))
		}
	}

	return conn.Batch(ctx, func(b store.Batch) {
		for _, uid := range old {
			b.Delete(keys.PrimaryPair(guildID, mustSnowflake(uid)))
			b.SetRemove(keys.UserIndex(mustSnowflake(uid)), guildID.String())
		}
		b.Delete(keys.GuildIndex(guildID))
		for ch, pairs := range channels {
			b.SetRemove(keys.ChannelIndex(ch), pairs...)
		}
	})
}

func (r *VoiceStateResource) VoiceStateViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.VoiceState], error) {
	conn, err := r.reg.connection(ctx, IndexVoiceState)
	if err != nil {
		return nil, err
	}
	return r.guildVoiceView(conn, guildID), nil
}

// VoiceStateViewForChannel yields the states currently connected to one
// channel, keyed by user id.
func (r *VoiceStateResource) VoiceStateViewForChannel(ctx context.Context, channelID types.Snowflake) (*View[types.Snowflake, types.VoiceState], error) {
	conn, err := r.reg.connection(ctx, IndexVoiceState)
	if err != nil {
		return nil, err
	}
	src := &setSource{conn: conn, key: keys.ChannelIndex(channelID)}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.VoiceState, bool, error) {
		guildID, userID, err := keys.SplitPair(raw)
		if err != nil {
			return 0, types.VoiceState{}, false, nil
		}
		v, err := r.GetVoiceState(ctx, guildID, userID)
		if err != nil {
			if IsNotFound(err) {
				return 0, types.VoiceState{}, false, nil
			}
			return 0, types.VoiceState{}, false, err
		}
		return userID, v, true, nil
	}), nil
}

// VoiceStateViewForUser yields one state per guild, keyed by guild id.
func (r *VoiceStateResource) VoiceStateViewForUser(ctx context.Context, userID types.Snowflake) (*View[types.Snowflake, types.VoiceState], error) {
	conn, err := r.reg.connection(ctx, IndexVoiceState)
	if err != nil {
		return nil, err
	}
	src := &setSource{conn: conn, key: keys.UserIndex(userID)}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.VoiceState, bool, error) {
		guildID, err := types.ParseSnowflake(raw)
		if err != nil {
			return 0, types.VoiceState{}, false, nil
		}
		v, err := r.GetVoiceState(ctx, guildID, userID)
		if err != nil {
			if IsNotFound(err) {
				return 0, types.VoiceState{}, false, nil
			}
			return 0, types.VoiceState{}, false, err
		}
		return guildID, v, true, nil
	}), nil
}

// VoiceStateView groups every state by guild, then by user.
func (r *VoiceStateResource) VoiceStateView(ctx context.Context) (*NestedView[types.Snowflake, types.Snowflake, types.VoiceState], error) {
	conn, err := r.reg.connection(ctx, IndexVoiceState)
	if err != nil {
		return nil, err
	}
	src := &scanSource{conn: conn, pattern: keys.GuildIndexPattern()}
	return newNestedView(src, func(raw string) (types.Snowflake, *View[types.Snowflake, types.VoiceState], bool) {
		id, ok := keys.TrimGuildIndex(raw)
		if !ok {
			return 0, nil, false
		}
		guildID, err := types.ParseSnowflake(id)
		if err != nil {
			return 0, nil, false
		}
		return guildID, r.guildVoiceView(conn, guildID), true
	}), nil
}

func (r *VoiceStateResource) guildVoiceView(conn store.Conn, guildID types.Snowflake) *View[types.Snowflake, types.VoiceState] {
	src := &setSource{conn: conn, key: keys.GuildIndex(guildID)}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.VoiceState, bool, error) {
		userID, err := types.ParseSnowflake(raw)
		if err != nil {
			return 0, types.VoiceState{}, false, nil
		}
		v, err := r.GetVoiceState(ctx, guildID, userID)
		if err != nil {
			if IsNotFound(err) {
				return 0, types.VoiceState{}, false, nil
			}
			return 0, types.VoiceState{}, false, err
		}
		return userID, v, true, nil
	})
}
