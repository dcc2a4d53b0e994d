package redistate

import (
	"context"

	"github.com/unkn0wn-root/redistate/codec"
	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/internal/keys"
	"github.com/unkn0wn-root/redistate/store"
	"github.com/unkn0wn-root/redistate/types"
)

// ChannelResource mirrors guild channel records.
type ChannelResource struct {
	resource
	codec codec.Codec[types.Channel]
}

var _ ChannelCache = (*ChannelResource)(nil)

func (r *ChannelResource) Open(context.Context) error {
	return r.openWith(func(d dispatch.Dispatcher) []dispatch.Subscription {
		change := r.guarded("channel.change", r.onChannelChange)
		return []dispatch.Subscription{
			d.Subscribe(dispatch.EventChannelCreate, change),
			d.Subscribe(dispatch.EventChannelUpdate, change),
			d.Subscribe(dispatch.EventChannelDelete, r.guarded("channel.delete", r.onChannelDelete)),
			d.Subscribe(dispatch.EventGuildAvailable, r.guarded("channel.guild_available", r.onGuildAvailable)),
			d.Subscribe(dispatch.EventGuildLeave, r.guarded("channel.guild_leave", r.onGuildLeave)),
		}
	})
}

func (r *ChannelResource) Close(context.Context) error { return r.closeWith(IndexGuildChannel) }

func (r *ChannelResource) onChannelChange(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.ChannelChange)
	if !ok {
		return nil
	}
	return r.SetChannel(ctx, e.Channel)
}

func (r *ChannelResource) onChannelDelete(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.ChannelDelete)
	if !ok {
		return nil
	}
	return r.DeleteChannel(ctx, e.ChannelID)
}

func (r *ChannelResource) onGuildAvailable(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildVisibility)
	if !ok || e.Kind != dispatch.EventGuildAvailable {
		return nil
	}

	conn, err := r.reg.connection(ctx, IndexGuildChannel)
	if err != nil {
		return err
	}
	recs := make([]scopedRecord, 0, len(e.Channels))
	for _, ch := range e.Channels {
		fields, err := r.codec.Serialize(ch)
		if err != nil {
			return err
		}
		recs = append(recs, scopedRecord{key: keys.Primary(ch.ID), member: ch.ID.String(), fields: fields})
	}
	return replaceScope(ctx, conn, keys.GuildIndex(e.Guild.ID), keys.PrimaryString, recs, nil)
}

func (r *ChannelResource) onGuildLeave(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildLeave)
	if !ok {
		return nil
	}
	return r.ClearChannelsForGuild(ctx, e.GuildID)
}

func (r *ChannelResource) GetChannel(ctx context.Context, channelID types.Snowflake) (types.Channel, error) {
	return getRecord(ctx, &r.resource, IndexGuildChannel, keys.Primary(channelID), r.codec, codec.Context{})
}

func (r *ChannelResource) SetChannel(ctx context.Context, ch types.Channel) error {
	conn, err := r.reg.connection(ctx, IndexGuildChannel)
	if err != nil {
		return err
	}
	fields, err := r.codec.Serialize(ch)
	if err != nil {
		return err
	}
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(keys.Primary(ch.ID))
		b.HashSet(keys.Primary(ch.ID), fields)
		if ch.GuildID != 0 {
			b.SetAdd(keys.GuildIndex(ch.GuildID), ch.ID.String())
		}
	})
}

func (r *ChannelResource) DeleteChannel(ctx context.Context, channelID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexGuildChannel)
	if err != nil {
		return err
	}
	key := keys.Primary(channelID)
	fields, present, err := conn.HashGetAll(ctx, key)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	guildID, _ := types.ParseSnowflake(fields["guild_id"])
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(key)
		if guildID != 0 {
			b.SetRemove(keys.GuildIndex(guildID), channelID.String())
		}
	})
}

func (r *ChannelResource) ClearChannelsForGuild(ctx context.Context, guildID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexGuildChannel)
	if err != nil {
		return err
	}
	return clearScope(ctx, conn, keys.GuildIndex(guildID), keys.PrimaryString, nil)
}

func (r *ChannelResource) ChannelView(ctx context.Context) (*View[types.Snowflake, types.Channel], error) {
	conn, err := r.reg.connection(ctx, IndexGuildChannel)
	if err != nil {
		return nil, err
	}
	src := &scanSource{conn: conn, pattern: keys.PrimaryPattern()}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.Channel, bool, error) {
		id, ok := keys.TrimPrimary(raw)
		if !ok {
			return 0, types.Channel{}, false, nil
		}
		return r.loadChannel(ctx, conn, id)
	}), nil
}

func (r *ChannelResource) ChannelViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.Channel], error) {
	conn, err := r.reg.connection(ctx, IndexGuildChannel)
	if err != nil {
		return nil, err
	}
	src := &setSource{conn: conn, key: keys.GuildIndex(guildID)}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.Channel, bool, error) {
		return r.loadChannel(ctx, conn, raw)
	}), nil
}

func (r *ChannelResource) loadChannel(ctx context.Context, conn store.Conn, rawID string) (types.Snowflake, types.Channel, bool, error) {
	channelID, err := types.ParseSnowflake(rawID)
	if err != nil {
		return 0, types.Channel{}, false, nil
	}
	fields, present, err := conn.HashGetAll(ctx, keys.Primary(channelID))
	if err != nil || !present {
		return 0, types.Channel{}, false, err
	}
	ch, err := r.codec.Deserialize(fields, codec.Context{})
	return channelID, ch, err == nil, err
}
