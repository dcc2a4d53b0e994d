package redistate

import (
	"context"

	"github.com/unkn0wn-root/redistate/codec"
	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/internal/keys"
	"github.com/unkn0wn-root/redistate/store"
	"github.com/unkn0wn-root/redistate/types"
)

// PresenceResource mirrors member presence records, keyed by
// (guild, user).
type PresenceResource struct {
	resource
	codec codec.Codec[types.Presence]
}

var _ PresenceCache = (*PresenceResource)(nil)

func (r *PresenceResource) Open(context.Context) error {
	return r.openWith(func(d dispatch.Dispatcher) []dispatch.Subscription {
		return []dispatch.Subscription{
			d.Subscribe(dispatch.EventPresenceUpdate, r.guarded("presence.update", r.onPresenceUpdate)),
			d.Subscribe(dispatch.EventGuildAvailable, r.guarded("presence.guild_available", r.onGuildAvailable)),
			d.Subscribe(dispatch.EventGuildLeave, r.guarded("presence.guild_leave", r.onGuildLeave)),
		}
	})
}

func (r *PresenceResource) Close(context.Context) error { return r.closeWith(IndexPresence) }

func (r *PresenceResource) onPresenceUpdate(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.PresenceUpdate)
	if !ok {
		return nil
	}
	return r.SetPresence(ctx, e.Presence)
}

func (r *PresenceResource) onGuildAvailable(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildVisibility)
	if !ok || e.Kind != dispatch.EventGuildAvailable {
		return nil
	}

	conn, err := r.reg.connection(ctx, IndexPresence)
	if err != nil {
		return err
	}
	guildID := e.Guild.ID
	recs := make([]scopedRecord, 0, len(e.Presences))
	for _, p := range e.Presences {
		fields, err := r.codec.Serialize(p)
		if err != nil {
			return err
		}
		recs = append(recs, scopedRecord{
			key:    keys.PrimaryPair(guildID, p.UserID),
			member: p.UserID.String(),
			fields: fields,
		})
	}
	return replaceScope(ctx, conn, keys.GuildIndex(guildID), func(member string) string {
		return keys.PrimaryPair(guildID, mustSnowflake(member))
	}, recs, func(b store.Batch, old []string) {
		for _, uid := range old {
			b.SetRemove(keys.UserIndex(mustSnowflake(uid)), guildID.String())
		}
		for _, p := range e.Presences {
			b.SetAdd(keys.UserIndex(p.UserID), guildID.String())
		}
	})
}

func (r *PresenceResource) onGuildLeave(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildLeave)
	if !ok {
		return nil
	}
	return r.ClearPresencesForGuild(ctx, e.GuildID)
}

func (r *PresenceResource) GetPresence(ctx context.Context, guildID, userID types.Snowflake) (types.Presence, error) {
	return getRecord(ctx, &r.resource, IndexPresence, keys.PrimaryPair(guildID, userID), r.codec, codec.Context{})
}

func (r *PresenceResource) SetPresence(ctx context.Context, p types.Presence) error {
	conn, err := r.reg.connection(ctx, IndexPresence)
	if err != nil {
		return err
	}
	fields, err := r.codec.Serialize(p)
	if err != nil {
		return err
	}
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(keys.PrimaryPair(p.GuildID, p.UserID))
		b.HashSet(keys.PrimaryPair(p.GuildID, p.UserID), fields)
		b.SetAdd(keys.GuildIndex(p.GuildID), p.UserID.String())
		b.SetAdd(keys.UserIndex(p.UserID), p.GuildID.String())
	})
}

func (r *PresenceResource) DeletePresence(ctx context.Context, guildID, userID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexPresence)
	if err != nil {
		return err
	}
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(keys.PrimaryPair(guildID, userID))
		b.SetRemove(keys.GuildIndex(guildID), userID.String())
		b.SetRemove(keys.UserIndex(userID), guildID.String())
	})
}

func (r *PresenceResource) ClearPresencesForGuild(ctx context.Context, guildID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexPresence)
	if err != nil {
		return err
	}
	return clearScope(ctx, conn, keys.GuildIndex(guildID), func(member string) string {
		return keys.PrimaryPair(guildID, mustSnowflake(member))
	}, func(b store.Batch, old []string) {
		for _, uid := range old {
			b.SetRemove(keys.UserIndex(mustSnowflake(uid)), guildID.String())
		}
	})
}

func (r *PresenceResource) PresenceViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.Presence], error) {
	conn, err := r.reg.connection(ctx, IndexPresence)
	if err != nil {
		return nil, err
	}
	return r.guildPresenceView(conn, guildID), nil
}

// PresenceViewForUser yields one presence per guild the user appears
// in, keyed by guild id.
func (r *PresenceResource) PresenceViewForUser(ctx context.Context, userID types.Snowflake) (*View[types.Snowflake, types.Presence], error) {
	conn, err := r.reg.connection(ctx, IndexPresence)
	if err != nil {
		return nil, err
	}
	src := &setSource{conn: conn, key: keys.UserIndex(userID)}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.Presence, bool, error) {
		guildID, err := types.ParseSnowflake(raw)
		if err != nil {
			return 0, types.Presence{}, false, nil
		}
		p, err := r.GetPresence(ctx, guildID, userID)
		if err != nil {
			if IsNotFound(err) {
				return 0, types.Presence{}, false, nil
			}
			return 0, types.Presence{}, false, err
		}
		return guildID, p, true, nil
	}), nil
}

// PresenceView groups every presence by guild, then by user.
func (r *PresenceResource) PresenceView(ctx context.Context) (*NestedView[types.Snowflake, types.Snowflake, types.Presence], error) {
	conn, err := r.reg.connection(ctx, IndexPresence)
	if err != nil {
		return nil, err
	}
	src := &scanSource{conn: conn, pattern: keys.GuildIndexPattern()}
	return newNestedView(src, func(raw string) (types.Snowflake, *View[types.Snowflake, types.Presence], bool) {
		id, ok := keys.TrimGuildIndex(raw)
		if !ok {
			return 0, nil, false
		}
		guildID, err := types.ParseSnowflake(id)
		if err != nil {
			return 0, nil, false
		}
		return guildID, r.guildPresenceView(conn, guildID), true
	}), nil
}

func (r *PresenceResource) guildPresenceView(conn store.Conn, guildID types.Snowflake) *View[types.Snowflake, types.Presence] {
	src := &setSource{conn: conn, key: keys.GuildIndex(guildID)}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.Presence, bool, error) {
		userID, err := types.ParseSnowflake(raw)
		if err != nil {
			return 0, types.Presence{}, false, nil
		}
		p, err := r.GetPresence(ctx, guildID, userID)
		if err != nil {
			if IsNotFound(err) {
				return 0, types.Presence{}, false, nil
			}
			return 0, types.Presence{}, false, err
		}
		return userID, p, true, nil
	})
}
