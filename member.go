package redistate

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/redistate/codec"
	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/internal/keys"
	"github.com/unkn0wn-root/redistate/store"
	"github.com/unkn0wn-root/redistate/types"
)

// MemberResource mirrors guild membership records, keyed by
// (guild, user). Nested user snapshots are written through the user
// resource. Two indexes are kept in step with the primaries: the guild
// index (user ids per guild) and the user index (guild ids per user).
type MemberResource struct {
	resource
	codec codec.Codec[types.Member]
	users *UserResource
}

var _ MemberCache = (*MemberResource)(nil)

func (r *MemberResource) Open(context.Context) error {
	return r.openWith(func(d dispatch.Dispatcher) []dispatch.Subscription {
		change := r.guarded("member.change", r.onMemberChange)
		return []dispatch.Subscription{
			d.Subscribe(dispatch.EventMemberAdd, change),
			d.Subscribe(dispatch.EventMemberUpdate, change),
			d.Subscribe(dispatch.EventMemberDelete, r.guarded("member.delete", r.onMemberDelete)),
			d.Subscribe(dispatch.EventGuildAvailable, r.guarded("member.guild_available", r.onGuildAvailable)),
			d.Subscribe(dispatch.EventGuildLeave, r.guarded("member.guild_leave", r.onGuildLeave)),
		}
	})
}

func (r *MemberResource) Close(context.Context) error { return r.closeWith(IndexMember) }

func (r *MemberResource) onMemberChange(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.MemberChange)
	if !ok {
		return nil
	}
	return r.SetMember(ctx, e.Member)
}

func (r *MemberResource) onMemberDelete(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.MemberDelete)
	if !ok {
		return nil
	}
	return r.DeleteMember(ctx, e.GuildID, e.UserID)
}

func (r *MemberResource) onGuildAvailable(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildVisibility)
	if !ok || e.Kind != dispatch.EventGuildAvailable {
		return nil
	}
	return r.replaceGuildMembers(ctx, e.Guild.ID, e.Members)
}

func (r *MemberResource) onGuildLeave(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildLeave)
	if !ok {
		return nil
	}
	return r.ClearMembersForGuild(ctx, e.GuildID)
}

func (r *MemberResource) replaceGuildMembers(ctx context.Context, guildID types.Snowflake, members []types.Member) error {
	conn, err := r.reg.connection(ctx, IndexMember)
	if err != nil {
		return err
	}

	recs := make([]scopedRecord, 0, len(members))
	for _, m := range members {
		fields, err := r.codec.Serialize(m)
		if err != nil {
			return err
		}
		recs = append(recs, scopedRecord{
			key:    keys.PrimaryPair(guildID, m.UserID),
			member: m.UserID.String(),
			fields: fields,
		})
	}

	var (
		wg      sync.WaitGroup
		subMu   sync.Mutex
		subErrs []error
	)
	for _, m := range members {
		if m.User == nil {
			continue
		}
		u := *m.User
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.users.setUser(ctx, u); err != nil {
				subMu.Lock()
				subErrs = append(subErrs, err)
				subMu.Unlock()
			}
		}()
	}

	batchErr := replaceScope(ctx, conn, keys.GuildIndex(guildID), func(member string) string {
		return keys.PrimaryPair(guildID, mustSnowflake(member))
	}, recs, func(b store.Batch, old []string) {
		for _, uid := range old {
			b.SetRemove(keys.UserIndex(mustSnowflake(uid)), guildID.String())
		}
		for _, m := range members {
			b.SetAdd(keys.UserIndex(m.UserID), guildID.String())
		}
	})
	wg.Wait()

	if len(subErrs) > 0 {
		if batchErr != nil {
			subErrs = append(subErrs, batchErr)
		}
		return &PartialBulkError{Index: IndexMember, Applied: batchErr == nil, Sub: subErrs}
	}
	return batchErr
}

func (r *MemberResource) GetMember(ctx context.Context, guildID, userID types.Snowflake) (types.Member, error) {
	conn, err := r.reg.connection(ctx, IndexMember)
	if err != nil {
		return types.Member{}, err
	}
	key := keys.PrimaryPair(guildID, userID)
	fields, present, err := conn.HashGetAll(ctx, key)
	if err != nil {
		return types.Member{}, err
	}
	if !present {
		return types.Member{}, &NotFoundError{Index: IndexMember, Key: key}
	}
	cx, err := r.users.resolveUser(ctx, fields)
	if err != nil {
		return types.Member{}, err
	}
	return r.codec.Deserialize(fields, cx)
}

func (r *MemberResource) SetMember(ctx context.Context, m types.Member) error {
	conn, err := r.reg.connection(ctx, IndexMember)
	if err != nil {
		return err
	}
	fields, err := r.codec.Serialize(m)
	if err != nil {
		return err
	}
	if m.User != nil {
		if err := r.users.setUser(ctx, *m.User); err != nil {
			return err
		}
	}
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(keys.PrimaryPair(m.GuildID, m.UserID))
		b.HashSet(keys.PrimaryPair(m.GuildID, m.UserID), fields)
		b.SetAdd(keys.GuildIndex(m.GuildID), m.UserID.String())
		b.SetAdd(keys.UserIndex(m.UserID), m.GuildID.String())
	})
}

func (r *MemberResource) DeleteMember(ctx context.Context, guildID, userID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexMember)
	if err != nil {
		return err
	}
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(keys.PrimaryPair(guildID, userID))
		b.SetRemove(keys.GuildIndex(guildID), userID.String())
		b.SetRemove(keys.UserIndex(userID), guildID.String())
	})
}

func (r *MemberResource) ClearMembersForGuild(ctx context.Context, guildID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexMember)
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

func (r *MemberResource) MemberViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.Member], error) {
	conn, err := r.reg.connection(ctx, IndexMember)
	if err != nil {
		return nil, err
	}
	return r.guildMemberView(conn, guildID), nil
}

// MemberViewForUser yields one member record per guild the user is in,
// keyed by guild id.
func (r *MemberResource) MemberViewForUser(ctx context.Context, userID types.Snowflake) (*View[types.Snowflake, types.Member], error) {
	conn, err := r.reg.connection(ctx, IndexMember)
	if err != nil {
		return nil, err
	}
	src := &setSource{conn: conn, key: keys.UserIndex(userID)}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.Member, bool, error) {
		guildID, err := types.ParseSnowflake(raw)
		if err != nil {
			return 0, types.Member{}, false, nil
		}
		m, err := r.GetMember(ctx, guildID, userID)
		if err != nil {
			if IsNotFound(err) {
				return 0, types.Member{}, false, nil
			}
			return 0, types.Member{}, false, err
		}
		return guildID, m, true, nil
	}), nil
}

// MemberView groups every membership by guild, then by user.
func (r *MemberResource) MemberView(ctx context.Context) (*NestedView[types.Snowflake, types.Snowflake, types.Member], error) {
	conn, err := r.reg.connection(ctx, IndexMember)
	if err != nil {
		return nil, err
	}
	src := &scanSource{conn: conn, pattern: keys.GuildIndexPattern()}
	return newNestedView(src, func(raw string) (types.Snowflake, *View[types.Snowflake, types.Member], bool) {
		id, ok := keys.TrimGuildIndex(raw)
		if !ok {
			return 0, nil, false
		}
		guildID, err := types.ParseSnowflake(id)
		if err != nil {
			return 0, nil, false
		}
		return guildID, r.guildMemberView(conn, guildID), true
	}), nil
}

func (r *MemberResource) guildMemberView(conn store.Conn, guildID types.Snowflake) *View[types.Snowflake, types.Member] {
	src := &setSource{conn: conn, key: keys.GuildIndex(guildID)}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.Member, bool, error) {
		userID, err := types.ParseSnowflake(raw)
		if err != nil {
			return 0, types.Member{}, false, nil
		}
		m, err := r.GetMember(ctx, guildID, userID)
		if err != nil {
			if IsNotFound(err) {
				return 0, types.Member{}, false, nil
			}
			return 0, types.Member{}, false, err
		}
		return userID, m, true, nil
	})
}

// mustSnowflake parses index members written by this package; malformed
// members fall back to zero, which SetRemove treats as a harmless key.
func mustSnowflake(raw string) types.Snowflake {
	id, err := types.ParseSnowflake(raw)
	if err != nil {
		return 0
	}
	return id
}
