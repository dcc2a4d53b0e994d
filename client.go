package redistate

import (
	"context"
	"errors"
	"fmt"

	"github.com/unkn0wn-root/redistate/codec"
	"github.com/unkn0wn-root/redistate/store"
	"github.com/unkn0wn-root/redistate/types"
)

// Options configures a Client. Dialer and App are required; everything
// else falls back to a sensible default.
type Options struct {
	// Dialer opens one backing-store connection per resource index.
	Dialer store.Dialer

	// App supplies the event dispatcher and the bot's own identity.
	App App

	// Logger receives diagnostics. Defaults to NopLogger.
	Logger Logger

	// Per-entity codec overrides. Zero values select the built-in
	// field codecs with msgpack for composite fields.
	UserCodec       codec.Codec[types.User]
	OwnUserCodec    codec.Codec[types.OwnUser]
	GuildCodec      codec.Codec[types.Guild]
	EmojiCodec      codec.Codec[types.Emoji]
	MemberCodec     codec.Codec[types.Member]
	RoleCodec       codec.Codec[types.Role]
	PresenceCodec   codec.Codec[types.Presence]
	VoiceStateCodec codec.Codec[types.VoiceState]
	InviteCodec     codec.Codec[types.Invite]
	ChannelCodec    codec.Codec[types.Channel]
}

func (o *Options) withDefaults() error {
	if o.Dialer == nil {
		return errors.New("redistate: Options.Dialer is required")
	}
	if o.App == nil {
		return errors.New("redistate: Options.App is required")
	}
	if o.Logger == nil {
		o.Logger = NopLogger{}
	}
	if o.UserCodec == nil {
		o.UserCodec = codec.UserCodec{}
	}
	if o.OwnUserCodec == nil {
		o.OwnUserCodec = codec.OwnUserCodec{}
	}
	if o.GuildCodec == nil {
		o.GuildCodec = codec.GuildCodec{}
	}
	if o.EmojiCodec == nil {
		o.EmojiCodec = codec.EmojiCodec{}
	}
	if o.MemberCodec == nil {
		o.MemberCodec = codec.MemberCodec{}
	}
	if o.RoleCodec == nil {
		o.RoleCodec = codec.RoleCodec{}
	}
	if o.PresenceCodec == nil {
		o.PresenceCodec = codec.PresenceCodec{}
	}
	if o.VoiceStateCodec == nil {
		o.VoiceStateCodec = codec.VoiceStateCodec{}
	}
	if o.InviteCodec == nil {
		o.InviteCodec = codec.InviteCodec{}
	}
	if o.ChannelCodec == nil {
		o.ChannelCodec = codec.ChannelCodec{}
	}
	return nil
}

// Client aggregates every entity resource over one shared connection
// registry. Use New to construct it, Open before issuing operations
// and Close when done.
type Client struct {
	*UserResource
	*GuildResource
	*EmojiResource
	*MemberResource
	*RoleResource
	*PresenceResource
	*VoiceStateResource
	*InviteResource
	*ChannelResource
	*MeResource

	reg *registry
	log Logger
}

var _ Cache = (*Client)(nil)

// New wires a Client from opts. The backing store is not touched until
// Open; construction never dials.
func New(opts Options) (*Client, error) {
	if err := opts.withDefaults(); err != nil {
		return nil, err
	}

	reg := newRegistry(opts.Dialer, opts.Logger)
	base := func() resource {
		return resource{reg: reg, app: opts.App, log: opts.Logger}
	}

	users := &UserResource{resource: base(), codec: opts.UserCodec}
	return &Client{
		UserResource:       users,
		GuildResource:      &GuildResource{resource: base(), codec: opts.GuildCodec},
		EmojiResource:      &EmojiResource{resource: base(), codec: opts.EmojiCodec, users: users},
		MemberResource:     &MemberResource{resource: base(), codec: opts.MemberCodec, users: users},
		RoleResource:       &RoleResource{resource: base(), codec: opts.RoleCodec},
		PresenceResource:   &PresenceResource{resource: base(), codec: opts.PresenceCodec},
		VoiceStateResource: &VoiceStateResource{resource: base(), codec: opts.VoiceStateCodec},
		InviteResource:     &InviteResource{resource: base(), codec: opts.InviteCodec},
		ChannelResource:    &ChannelResource{resource: base(), codec: opts.ChannelCodec},
		MeResource:         &MeResource{resource: base(), codec: opts.OwnUserCodec},
		reg:                reg,
		log:                opts.Logger,
	}, nil
}

func (c *Client) resources() []Resource {
	return []Resource{
		c.UserResource,
		c.GuildResource,
		c.EmojiResource,
		c.MemberResource,
		c.RoleResource,
		c.PresenceResource,
		c.VoiceStateResource,
		c.InviteResource,
		c.ChannelResource,
		c.MeResource,
	}
}

// Open activates the registry and subscribes every resource's event
// listeners. Calling Open on an open client is a no-op. On partial
// failure the already-opened resources are closed again.
func (c *Client) Open(ctx context.Context) error {
	c.reg.activate()
	opened := make([]Resource, 0, 10)
	for _, r := range c.resources() {
		if err := r.Open(ctx); err != nil {
			for _, o := range opened {
				_ = o.Close(ctx)
			}
			return fmt.Errorf("open %T: %w", r, err)
		}
		opened = append(opened, r)
	}
	c.log.Info("cache opened", nil)
	return nil
}

// Close cancels every subscription and releases every connection.
// Individual failures do not abort the sweep. Idempotent.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	for _, r := range c.resources() {
		if err := r.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.reg.closeAll(); err != nil {
		errs = append(errs, err)
	}
	c.log.Info("cache closed", nil)
	return errors.Join(errs...)
}
