package redistate

import (
	"context"

	"github.com/unkn0wn-root/redistate/codec"
	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/internal/keys"
	"github.com/unkn0wn-root/redistate/store"
	"github.com/unkn0wn-root/redistate/types"
)

// InviteResource mirrors invites, keyed by invite code rather than a
// snowflake. Guild and channel indexes hold codes so both scopes can
// be cleared when their parent disappears.
type InviteResource struct {
	resource
	codec codec.Codec[types.Invite]
}

var _ InviteCache = (*InviteResource)(nil)

func (r *InviteResource) Open(context.Context) error {
	return r.openWith(func(d dispatch.Dispatcher) []dispatch.Subscription {
		return []dispatch.Subscription{
			d.Subscribe(dispatch.EventInviteCreate, r.guarded("invite.create", r.onInviteCreate)),
			d.Subscribe(dispatch.EventInviteDelete, r.guarded("invite.delete", r.onInviteDelete)),
			d.Subscribe(dispatch.EventGuildLeave, r.guarded("invite.guild_leave", r.onGuildLeave)),
			d.Subscribe(dispatch.EventChannelDelete, r.guarded("invite.channel_delete", r.onChannelDelete)),
		}
	})
}

func (r *InviteResource) Close(context.Context) error { return r.closeWith(IndexInvite) }

func (r *InviteResource) onInviteCreate(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.InviteCreate)
	if !ok {
		return nil
	}
	return r.SetInvite(ctx, e.Invite)
}

func (r *InviteResource) onInviteDelete(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.InviteDelete)
	if !ok {
		return nil
	}
	return r.DeleteInvite(ctx, e.Code)
}

func (r *InviteResource) onGuildLeave(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildLeave)
	if !ok {
		return nil
	}
	return r.ClearInvitesForGuild(ctx, e.GuildID)
}

func (r *InviteResource) onChannelDelete(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.ChannelDelete)
	if !ok {
		return nil
	}
	return r.ClearInvitesForChannel(ctx, e.ChannelID)
}

func (r *InviteResource) GetInvite(ctx context.Context, code string) (types.Invite, error) {
	return getRecord(ctx, &r.resource, IndexInvite, keys.PrimaryString(code), r.codec, codec.Context{})
}

func (r *InviteResource) SetInvite(ctx context.Context, inv types.Invite) error {
	conn, err := r.reg.connection(ctx, IndexInvite)
	if err != nil {
		return err
	}
	fields, err := r.codec.Serialize(inv)
	if err != nil {
		return err
	}
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(keys.PrimaryString(inv.Code))
		b.HashSet(keys.PrimaryString(inv.Code), fields)
		if inv.GuildID != 0 {
			b.SetAdd(keys.GuildIndex(inv.GuildID), inv.Code)
		}
		if inv.ChannelID != 0 {
			b.SetAdd(keys.ChannelIndex(inv.ChannelID), inv.Code)
		}
	})
}

// DeleteInvite reads the record first so membership in both indexes can
// be dropped in the same batch. Deleting an absent code is a no-op.
func (r *InviteResource) DeleteInvite(ctx context.Context, code string) error {
	conn, err := r.reg.connection(ctx, IndexInvite)
	if err != nil {
		return err
	}
	prev, present, err := conn.HashGetAll(ctx, keys.PrimaryString(code))
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	guildID, _ := types.ParseSnowflake(prev["guild_id"])
	channelID, _ := types.ParseSnowflake(prev["channel_id"])
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(keys.PrimaryString(code))
		if guildID != 0 {
			b.SetRemove(keys.GuildIndex(guildID), code)
		}
		if channelID != 0 {
			b.SetRemove(keys.ChannelIndex(channelID), code)
		}
	})
}

func (r *InviteResource) ClearInvitesForGuild(ctx context.Context, guildID types.Snowflake) error {
	return r.clearIndex(ctx, keys.GuildIndex(guildID), "channel_id", keys.ChannelIndex)
}

func (r *InviteResource) ClearInvitesForChannel(ctx context.Context, channelID types.Snowflake) error {
	return r.clearIndex(ctx, keys.ChannelIndex(channelID), "guild_id", keys.GuildIndex)
}

// clearIndex drops every code in one index set, removing each code from
// the opposite index as it goes. otherField names the hash field that
// holds the opposite scope's id.
func (r *InviteResource) clearIndex(ctx context.Context, indexKey, otherField string, otherIndex func(types.Snowflake) string) error {
	conn, err := r.reg.connection(ctx, IndexInvite)
	if err != nil {
		return err
	}
	codes, err := conn.SetMembers(ctx, indexKey)
	if err != nil {
		return err
	}

	others := make(map[types.Snowflake][]string)
	for _, code := range codes {
		prev, present, err := conn.HashGetAll(ctx, keys.PrimaryString(code))
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		if id, _ := types.ParseSnowflake(prev[otherField]); id != 0 {
			others[id] = append(others[id], code)
		}
	}

	return conn.Batch(ctx, func(b store.Batch) {
		for _, code := range codes {
			b.Delete(keys.PrimaryString(code))
		}
		b.Delete(indexKey)
		for id, cs := range others {
			b.SetRemove(otherIndex(id), cs...)
		}
	})
}

// InviteView yields every cached invite keyed by code.
func (r *InviteResource) InviteView(ctx context.Context) (*View[string, types.Invite], error) {
	conn, err := r.reg.connection(ctx, IndexInvite)
	if err != nil {
		return nil, err
	}
	src := &scanSource{conn: conn, pattern: keys.PrimaryPattern()}
	return newView(src, func(ctx context.Context, raw string) (string, types.Invite, bool, error) {
		code, ok := keys.TrimPrimary(raw)
		if !ok {
			return "", types.Invite{}, false, nil
		}
		return r.loadInvite(ctx, code)
	}), nil
}

func (r *InviteResource) InviteViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[string, types.Invite], error) {
	return r.indexView(ctx, keys.GuildIndex(guildID))
}

func (r *InviteResource) InviteViewForChannel(ctx context.Context, channelID types.Snowflake) (*View[string, types.Invite], error) {
	return r.indexView(ctx, keys.ChannelIndex(channelID))
}

func (r *InviteResource) indexView(ctx context.Context, indexKey string) (*View[string, types.Invite], error) {
	conn, err := r.reg.connection(ctx, IndexInvite)
	if err != nil {
		return nil, err
	}
	src := &setSource{conn: conn, key: indexKey}
	return newView(src, func(ctx context.Context, code string) (string, types.Invite, bool, error) {
		return r.loadInvite(ctx, code)
	}), nil
}

func (r *InviteResource) loadInvite(ctx context.Context, code string) (string, types.Invite, bool, error) {
	inv, err := r.GetInvite(ctx, code)
	if err != nil {
		if IsNotFound(err) {
			return "", types.Invite{}, false, nil
		}
		return "", types.Invite{}, false, err
	}
	return code, inv, true, nil
}
