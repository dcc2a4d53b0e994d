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

// EmojiResource mirrors guild emoji records. Emoji uploaders are
// mirrored into the user partition through the user resource.
//
// Bulk replacements (emojis update, guild visibility) assume the
// dispatcher delivers events for one guild in arrival order; an
// out-of-order delivery can transiently restore older state and is not
// corrected here.
type EmojiResource struct {
	resource
	codec codec.Codec[types.Emoji]
	users *UserResource
}

var _ EmojiCache = (*EmojiResource)(nil)

func (r *EmojiResource) Open(context.Context) error {
	return r.openWith(func(d dispatch.Dispatcher) []dispatch.Subscription {
		visibility := r.guarded("emoji.visibility", r.onGuildVisibility)
		return []dispatch.Subscription{
			d.Subscribe(dispatch.EventEmojisUpdate, r.guarded("emoji.update", r.onEmojisUpdate)),
			d.Subscribe(dispatch.EventGuildAvailable, visibility),
			d.Subscribe(dispatch.EventGuildUpdate, visibility),
			d.Subscribe(dispatch.EventGuildLeave, r.guarded("emoji.guild_leave", r.onGuildLeave)),
			d.Subscribe(dispatch.EventMemberDelete, r.guarded("emoji.member_delete", r.onMemberDelete)),
		}
	})
}

func (r *EmojiResource) Close(context.Context) error { return r.closeWith(IndexEmoji) }

func (r *EmojiResource) onEmojisUpdate(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.EmojisUpdate)
	if !ok {
		return nil
	}
	return r.replaceGuildEmojis(ctx, e.GuildID, e.Emojis)
}

func (r *EmojiResource) onGuildVisibility(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildVisibility)
	if !ok {
		return nil
	}
	return r.replaceGuildEmojis(ctx, e.Guild.ID, e.Emojis)
}

func (r *EmojiResource) onGuildLeave(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.GuildLeave)
	if !ok {
		return nil
	}
	return r.ClearEmojisForGuild(ctx, e.GuildID)
}

// onMemberDelete clears a guild's emojis when the removed member is the
// account this mirror runs as.
func (r *EmojiResource) onMemberDelete(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.MemberDelete)
	if !ok {
		return nil
	}
	if own := r.app.OwnID(); own == 0 || e.UserID != own {
		return nil
	}
	return r.ClearEmojisForGuild(ctx, e.GuildID)
}

// replaceGuildEmojis swaps the guild's full emoji set in one batch and
// upserts the uploaders concurrently. Uploader failures surface as a
// PartialBulkError; the committed batch is not rolled back.
func (r *EmojiResource) replaceGuildEmojis(ctx context.Context, guildID types.Snowflake, emojis []types.Emoji) error {
	conn, err := r.reg.connection(ctx, IndexEmoji)
	if err != nil {
		return err
	}

	recs := make([]scopedRecord, 0, len(emojis))
	for _, e := range emojis {
		fields, err := r.codec.Serialize(e)
		if err != nil {
			return err
		}
		recs = append(recs, scopedRecord{key: keys.Primary(e.ID), member: e.ID.String(), fields: fields})
	}

	var (
		wg      sync.WaitGroup
		subMu   sync.Mutex
		subErrs []error
	)
	for _, e := range emojis {
		if e.User == nil {
			continue
		}
		u := *e.User
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

	batchErr := replaceScope(ctx, conn, keys.GuildIndex(guildID), keys.PrimaryString, recs, nil)
	wg.Wait()

	if len(subErrs) > 0 {
		if batchErr != nil {
			subErrs = append(subErrs, batchErr)
		}
		return &PartialBulkError{Index: IndexEmoji, Applied: batchErr == nil, Sub: subErrs}
	}
	return batchErr
}

func (r *EmojiResource) GetEmoji(ctx context.Context, emojiID types.Snowflake) (types.Emoji, error) {
	conn, err := r.reg.connection(ctx, IndexEmoji)
	if err != nil {
		return types.Emoji{}, err
	}
	key := keys.Primary(emojiID)
	fields, present, err := conn.HashGetAll(ctx, key)
	if err != nil {
		return types.Emoji{}, err
	}
	if !present {
		return types.Emoji{}, &NotFoundError{Index: IndexEmoji, Key: key}
	}
	cx, err := r.users.resolveUser(ctx, fields)
	if err != nil {
		return types.Emoji{}, err
	}
	return r.codec.Deserialize(fields, cx)
}

// SetEmoji upserts one emoji record together with its index membership.
// Setting the same emoji twice leaves the store unchanged.
func (r *EmojiResource) SetEmoji(ctx context.Context, e types.Emoji) error {
	conn, err := r.reg.connection(ctx, IndexEmoji)
	if err != nil {
		return err
	}
	fields, err := r.codec.Serialize(e)
	if err != nil {
		return err
	}
	if e.User != nil {
		if err := r.users.setUser(ctx, *e.User); err != nil {
			return err
		}
	}
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(keys.Primary(e.ID))
		b.HashSet(keys.Primary(e.ID), fields)
		if e.GuildID != 0 {
			b.SetAdd(keys.GuildIndex(e.GuildID), e.ID.String())
		}
	})
}

// DeleteEmoji removes one emoji record and its index membership.
// Deleting an absent id succeeds silently.
func (r *EmojiResource) DeleteEmoji(ctx context.Context, emojiID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexEmoji)
	if err != nil {
		return err
	}
	key := keys.Primary(emojiID)
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
			b.SetRemove(keys.GuildIndex(guildID), emojiID.String())
		}
	})
}

// ClearEmojis drops the whole emoji partition.
func (r *EmojiResource) ClearEmojis(ctx context.Context) error {
	conn, err := r.reg.connection(ctx, IndexEmoji)
	if err != nil {
		return err
	}
	return conn.Flush(ctx)
}

func (r *EmojiResource) ClearEmojisForGuild(ctx context.Context, guildID types.Snowflake) error {
	conn, err := r.reg.connection(ctx, IndexEmoji)
	if err != nil {
		return err
	}
	return clearScope(ctx, conn, keys.GuildIndex(guildID), keys.PrimaryString, nil)
}

func (r *EmojiResource) EmojiView(ctx context.Context) (*View[types.Snowflake, types.Emoji], error) {
	conn, err := r.reg.connection(ctx, IndexEmoji)
	if err != nil {
		return nil, err
	}
	src := &scanSource{conn: conn, pattern: keys.PrimaryPattern()}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.Emoji, bool, error) {
		id, ok := keys.TrimPrimary(raw)
		if !ok {
			return 0, types.Emoji{}, false, nil
		}
		return r.loadEmoji(ctx, id)
	}), nil
}

func (r *EmojiResource) EmojiViewForGuild(ctx context.Context, guildID types.Snowflake) (*View[types.Snowflake, types.Emoji], error) {
	conn, err := r.reg.connection(ctx, IndexEmoji)
	if err != nil {
		return nil, err
	}
	src := &setSource{conn: conn, key: keys.GuildIndex(guildID)}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.Emoji, bool, error) {
		return r.loadEmoji(ctx, raw)
	}), nil
}

func (r *EmojiResource) loadEmoji(ctx context.Context, rawID string) (types.Snowflake, types.Emoji, bool, error) {
	emojiID, err := types.ParseSnowflake(rawID)
	if err != nil {
		return 0, types.Emoji{}, false, nil
	}
	e, err := r.GetEmoji(ctx, emojiID)
	if err != nil {
		if IsNotFound(err) {
			return 0, types.Emoji{}, false, nil
		}
		return 0, types.Emoji{}, false, err
	}
	return emojiID, e, true, nil
}
