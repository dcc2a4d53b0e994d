package redistate

import (
	"context"

	"github.com/unkn0wn-root/redistate/codec"
	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/internal/keys"
	"github.com/unkn0wn-root/redistate/store"
	"github.com/unkn0wn-root/redistate/types"
)

// GuildResource mirrors top-level guild records.
type GuildResource struct {
	resource
	codec codec.Codec[types.Guild]
}

var _ GuildCache = (*GuildResource)(nil)

func (r *GuildResource) Open(context.Context) error {
	return r.openWith(func(d dispatch.Dispatcher) []dispatch.Subscription {
		visibility := r.guarded("guild.visibility", r.onGuildVisibility)
		return []dispatch.Subscription{
			d.Subscribe(dispatch.EventGuildAvailable, visibility),
			d.Subscribe(dispatch.EventGuildUpdate, visibility),
			d.Subscribe(dispatch.EventGuildLeave, r.guarded("guild.leave", r.onGuildLeave)),
		}
	})
}

func (r *GuildResource) Close(context.Context) error { return r.closeWith(IndexGuild) }

func (r *GuildResource) onGuildVisibility(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildVisibility)
	if !ok {
		return nil
	}
	return r.SetGuild(ctx, e.Guild)
}

func (r *GuildResource) onGuildLeave(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildLeave)
	if !ok {
		return nil
	}
	return r.DeleteGuild(ctx, e.GuildID)
}

func (r *GuildResource) GetGuild(ctx context.Context, guildID types.Snowflake) (types.Guild, error) {
	return getRecord(ctx, &r.resource, IndexGuild, keys.Primary(guildID), r.codec, codec.Context{})
}

func (r *GuildResource) SetGuild(ctx context.Context, g types.Guild) error {
	conn, err := r.reg.connection(ctx, IndexGuild)
	if err != nil {
		return err
	}
	fields, err := r.codec.Serialize(g)
	if err != nil {
		return err
	}
	// Delete first so fields omitted by this version do not survive
	// from an older record.
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(keys.Primary(g.ID))
		b.HashSet(keys.Primary(g.ID), fields)
	})
}

func (r *GuildResource) DeleteGuild(ctx context.Context, guildID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexGuild)
	if err != nil {
		return err
	}
	return conn.Delete(ctx, keys.Primary(guildID))
}

func (r *GuildResource) GuildView(ctx context.Context) (*View[types.Snowflake, types.Guild], error) {
	conn, err := r.reg.connection(ctx, IndexGuild)
	if err != nil {
		return nil, err
	}
	src := &scanSource{conn: conn, pattern: keys.PrimaryPattern()}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.Guild, bool, error) {
		id, ok := keys.TrimPrimary(raw)
		if !ok {
			return 0, types.Guild{}, false, nil
		}
		guildID, err := types.ParseSnowflake(id)
		if err != nil {
			return 0, types.Guild{}, false, nil
		}
		fields, present, err := conn.HashGetAll(ctx, raw)
		if err != nil || !present {
			return 0, types.Guild{}, false, err
		}
		g, err := r.codec.Deserialize(fields, codec.Context{})
		return guildID, g, err == nil, err
	}), nil
}
