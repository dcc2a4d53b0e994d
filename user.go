package redistate

import (
	"context"

	"github.com/unkn0wn-root/redistate/codec"
	"github.com/unkn0wn-root/redistate/internal/keys"
	"github.com/unkn0wn-root/redistate/types"
)

// UserResource mirrors user records. No gateway event maps to users
// directly, so it is a pass-through no-op subscriber: sibling resources
// (emojis, members) write through it when their entities carry a nested
// user, and readers use it to re-resolve user references.
type UserResource struct {
	resource
	codec codec.Codec[types.User]
}

var _ UserCache = (*UserResource)(nil)

func (r *UserResource) Open(context.Context) error { return r.openWith(nil) }

func (r *UserResource) Close(context.Context) error { return r.closeWith(IndexUser) }

func (r *UserResource) GetUser(ctx context.Context, userID types.Snowflake) (types.User, error) {
	return getRecord(ctx, &r.resource, IndexUser, keys.Primary(userID), r.codec, codec.Context{})
}

func (r *UserResource) UserView(ctx context.Context) (*View[types.Snowflake, types.User], error) {
	conn, err := r.reg.connection(ctx, IndexUser)
	if err != nil {
		return nil, err
	}
	src := &scanSource{conn: conn, pattern: keys.PrimaryPattern()}
	return newView(src, func(ctx context.Context, raw string) (types.Snowflake, types.User, bool, error) {
		id, ok := keys.TrimPrimary(raw)
		if !ok {
			return 0, types.User{}, false, nil
		}
		userID, err := types.ParseSnowflake(id)
		if err != nil {
			return 0, types.User{}, false, nil
		}
		fields, present, err := conn.HashGetAll(ctx, raw)
		if err != nil || !present {
			return 0, types.User{}, false, err
		}
		u, err := r.codec.Deserialize(fields, codec.Context{})
		return userID, u, err == nil, err
	}), nil
}

// setUser is the write helper sibling resources use for nested users.
func (r *UserResource) setUser(ctx context.Context, u types.User) error {
	conn, err := r.reg.connection(ctx, IndexUser)
	if err != nil {
		return err
	}
	fields, err := r.codec.Serialize(u)
	if err != nil {
		return err
	}
	return conn.HashSet(ctx, keys.Primary(u.ID), fields)
}

// resolveUser loads the user referenced by a record's user_id field.
// A missing reference or a gone user record yields a nil Context.User.
func (r *UserResource) resolveUser(ctx context.Context, fields map[string]string) (codec.Context, error) {
	raw, ok := fields["user_id"]
	if !ok {
		return codec.Context{}, nil
	}
	userID, err := types.ParseSnowflake(raw)
	if err != nil {
		return codec.Context{}, err
	}
	u, err := r.GetUser(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return codec.Context{}, nil
		}
		return codec.Context{}, err
	}
	return codec.Context{User: &u}, nil
}
