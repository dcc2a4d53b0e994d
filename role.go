package redistate

import (
	"context"

	"github.com/unkn0wn-root/redistate/codec"
	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/internal/keys"
	"github.com/unkn0wn-root/redistate/store"
	"github.com/unkn0wn-root/redistate/types"
)

// RoleResource mirrors guild role records.
type RoleResource struct {
	resource
	codec codec.Codec[types.Role]
}

var _ RoleCache = (*RoleResource)(nil)

func (r *RoleResource) Open(context.Context) error {
	return r.openWith(func(d dispatch.Dispatcher) []dispatch.Subscription {
		change := r.guarded("role.change", r.onRoleChange)
		return []dispatch.Subscription{
			d.Subscribe(dispatch.EventRoleCreate, change),
			d.Subscribe(dispatch.EventRoleUpdate, change),
			d.Subscribe(dispatch.EventRoleDelete, r.guarded("role.delete", r.onRoleDelete)),
			d.Subscribe(dispatch.EventGuildAvailable, r.guarded("role.guild_available", r.onGuildAvailable)),
			d.Subscribe(dispatch.EventGuildLeave, r.guarded("role.guild_leave", r.onGuildLeave)),
		}
	})
}

func (r *RoleResource) Close(context.Context) error { return r.closeWith(IndexRole) }

func (r *RoleResource) onRoleChange(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.RoleChange)
	if !ok {
		return nil
	}
	return r.SetRole(ctx, e.Role)
}

func (r *RoleResource) onRoleDelete(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.RoleDelete)
	if !ok {
		return nil
	}
	return r.DeleteRole(ctx, e.RoleID)
}

func (r *RoleResource) onGuildAvailable(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildVisibility)
	if !ok || e.Kind != dispatch.EventGuildAvailable {
		return nil
	}

	conn, err := r.reg.connection(ctx, IndexRole)
	if err != nil {
		return err
	}
	recs := make([]scopedRecord, 0, len(e.Roles))
	for _, role := range e.Roles {
		fields, err := r.codec.Serialize(role)
		if err != nil {
			return err
		}
		recs = append(recs, scopedRecord{key: keys.Primary(role.ID), member: role.ID.String(), fields: fields})
	}
	return replaceScope(ctx, conn, keys.GuildIndex(e.Guild.ID), keys.PrimaryString, recs, nil)
}

func (r *RoleResource) onGuildLeave(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildLeave)
	if !ok {
		return nil
	}
	return r.ClearRolesForGuild(ctx, e.GuildID)
}

func (r *RoleResource) GetRole(ctx context.Context, roleID types.Snowflake) (types.Role, error) {
	return getRecord(ctx, &r.resource, IndexRole, keys.Primary(roleID), r.codec, codec.Context{})
}

func (r *RoleResource) SetRole(ctx context.Context, role types.Role) error {
	conn, err := r.reg.connection(ctx, IndexRole)
	if err != nil {
		return err
	}
	fields, err := r.codec.Serialize(role)
	if err != nil {
		return err
	}
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(keys.Primary(role.ID))
		b.HashSet(keys.Primary(role.ID), fields)
		if role.GuildID != 0 {
			b.SetAdd(keys.GuildIndex(role.GuildID), role.ID.String())
		}
	})
}

func (r *RoleResource) DeleteRole(ctx context.Context, roleID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexRole)
	if err != nil {
		return err
	}
	key := keys.Primary(roleID)
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
			b.SetRemove(keys.GuildIndex(guildID), roleID.String())
		}
	})
}

func (r *RoleResource) ClearRolesForGuild(ctx context.Context, guildID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexRole)
	if err != nil {
		return err
	}
	return clearScope(ctx, conn, keys.GuildIndex(guildID), keys.PrimaryString, nil)
}

func (r *RoleResource) RoleView(ctx context.Context) (*View[types.Snowflake, types.Role], error) {
	conn, err := r.reg.connection(ctx, IndexRole)
	if err != nil {
		return nil, err
	}
	src := &scanSource{conn: conn, pattern: keys.PrimaryPattern()}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.Role, bool, error) {
		id, ok := keys.TrimPrimary(raw)
		if !ok {
			return 0, types.Role{}, false, nil
		}
		return r.loadRole(ctx, conn, id)
	}), nil
}

func (r *RoleResource) RoleViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.Role], error) {
	conn, err := r.reg.connection(ctx, IndexRole)
	if err != nil {
		return nil, err
	}
	src := &setSource{conn: conn, key: keys.GuildIndex(guildID)}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.Role, bool, error) {
		return r.loadRole(ctx, conn, raw)
	}), nil
}

func (r *RoleResource) loadRole(ctx context.Context, conn store.Conn, rawID string) (types.Snowflake, types.Role, bool, error) {
	roleID, err := types.ParseSnowflake(rawID)
	if err != nil {
		return 0, types.Role{}, false, nil
	}
	fields, present, err := conn.HashGetAll(ctx, keys.Primary(roleID))
	if err != nil || !present {
		return 0, types.Role{}, false, err
	}
	role, err := r.codec.Deserialize(fields, codec.Context{})
	return roleID, role, err == nil, err
}
