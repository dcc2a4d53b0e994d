package redistate

import (
	"context"

	"github.com/unkn0wn-root/redistate/codec"
	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/internal/keys"
	"github.com/unkn0wn-root/redistate/store"
	"github.com/unkn0wn-root/redistate/types"
)

// meKey is the fixed record key for the own-user singleton.
const meKey = "me"

// MeResource mirrors the bot's own user record. The partition holds a
// single hash under a fixed key.
type MeResource struct {
	resource
	codec codec.Codec[types.OwnUser]
}

var _ MeCache = (*MeResource)(nil)

func (r *MeResource) Open(context.Context) error {
	return r.openWith(func(d dispatch.Dispatcher) []dispatch.Subscription {
		return []dispatch.Subscription{
			d.Subscribe(dispatch.EventMeUpdate, r.guarded("me.update", r.onMeUpdate)),
		}
	})
}

func (r *MeResource) Close(context.Context) error { return r.closeWith(IndexMe) }

func (r *MeResource) onMeUpdate(ctx context.Context, ev dispatch.Event) error {
	e, ok := ev.(dispatch.MeUpdate)
	if !ok {
		return nil
	}
	return r.SetMe(ctx, e.Me)
}

func (r *MeResource) GetMe(ctx context.Context) (types.OwnUser, error) {
	return getRecord(ctx, &r.resource, IndexMe, keys.PrimaryString(meKey), r.codec, codec.Context{})
}

func (r *MeResource) SetMe(ctx context.Context, u types.OwnUser) error {
	conn, err := r.reg.connection(ctx, IndexMe)
	if err != nil {
		return err
	}
	fields, err := r.codec.Serialize(u)
	if err != nil {
		return err
	}
	return conn.Batch(ctx, func(b store.Batch) {
		b.Delete(keys.PrimaryString(meKey))
		b.HashSet(keys.PrimaryString(meKey), fields)
	})
}

func (r *MeResource) DeleteMe(ctx context.Context) error {
	conn, err := r.reg.connection(ctx, IndexMe)
	if err != nil {
		return err
	}
	return conn.Delete(ctx, keys.PrimaryString(meKey))
}
