package redistate

import (
	"context"
	"errors"
	"sync"

	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/store"
	"github.com/unkn0wn-root/redistate/types"
)

// ResourceIndex identifies the backing-store partition dedicated to one
// entity type. The numeric value doubles as the Redis logical DB
// number, so partitions are never shared across entity types and
// unrelated entities reusing the same snowflake cannot collide.
type ResourceIndex int

const (
	IndexEmoji ResourceIndex = iota
	IndexGuild
	IndexGuildChannel
	IndexInvite
	IndexMe
	IndexMember
	IndexPresence
	IndexRole
	IndexUser
	IndexVoiceState
)

func (i ResourceIndex) String() string {
	switch i {
	case IndexEmoji:
		return "emoji"
	case IndexGuild:
		return "guild"
	case IndexGuildChannel:
		return "guild_channel"
	case IndexInvite:
		return "invite"
	case IndexMe:
		return "me"
	case IndexMember:
		return "member"
	case IndexPresence:
		return "presence"
	case IndexRole:
		return "role"
	case IndexUser:
		return "user"
	case IndexVoiceState:
		return "voice_state"
	default:
		return "unknown"
	}
}

// Resource is the lifecycle contract every cache resource implements.
// Open subscribes the resource's listeners exactly once; Close cancels
// them and releases the resource's connections. Both are idempotent.
type Resource interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
}

// App is the event-driven client whose state this cache mirrors.
type App interface {
	Dispatcher() dispatch.Dispatcher
	// OwnID is the authenticated account's identifier; zero until identified.
	OwnID() types.Snowflake
}

// registry owns one backing-store connection per resource index.
// Connections are dialed lazily on first use; the mutex is held across
// the dial so concurrent first access for the same index cannot open
// two connections.
type registry struct {
	dialer store.Dialer
	log    Logger

	mu     sync.Mutex
	active bool
	conns  map[ResourceIndex]store.Conn
}

func newRegistry(dialer store.Dialer, log Logger) *registry {
	return &registry{
		dialer: dialer,
		log:    log,
		conns:  make(map[ResourceIndex]store.Conn),
	}
}

func (r *registry) activate() {
	r.mu.Lock()
	r.active = true
	r.mu.Unlock()
}

// connection returns the live connection for index, dialing one if none
// exists. Fails with ErrInactiveClient before activate/after deactivate.
func (r *registry) connection(ctx context.Context, index ResourceIndex) (store.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return nil, ErrInactiveClient
	}
	if conn, ok := r.conns[index]; ok {
		return conn, nil
	}
	conn, err := r.dialer.Dial(ctx, int(index))
	if err != nil {
		return nil, &ConnectionError{Index: index, Err: err}
	}
	r.log.Debug("partition connected", Fields{"index": index.String()})
	r.conns[index] = conn
	return conn, nil
}

// connectionStatus reports whether a live connection exists for index.
// No side effects: never dials.
func (r *registry) connectionStatus(index ResourceIndex) bool {
	r.mu.Lock()
	_, ok := r.conns[index]
	r.mu.Unlock()
	return ok
}

// destroyConnection closes and removes the entry for index if present.
// Idempotent.
func (r *registry) destroyConnection(index ResourceIndex) error {
	r.mu.Lock()
	conn, ok := r.conns[index]
	delete(r.conns, index)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return conn.Close()
}

// closeAll deactivates the registry and closes every tracked
// connection. Individual close failures do not abort the sweep; the
// aggregate is returned.
func (r *registry) closeAll() error {
	r.mu.Lock()
	r.active = false
	conns := r.conns
	r.conns = make(map[ResourceIndex]store.Conn)
	r.mu.Unlock()

	var errs []error
	for index, conn := range conns {
		if err := conn.Close(); err != nil {
			r.log.Warn("partition close failed", Fields{"index": index.String(), "err": err})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// resource is the shared lifecycle state embedded by every entity
// resource: open/closed flag, subscription handles, registry access.
type resource struct {
	reg *registry
	app App
	log Logger

	mu   sync.Mutex
	open bool
	subs []dispatch.Subscription
}

// openWith transitions closed -> open, registering the bindings
// returned by bind exactly once. A second call is a no-op.
func (r *resource) openWith(bind func(d dispatch.Dispatcher) []dispatch.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open {
		return nil
	}
	if bind != nil {
		r.subs = bind(r.app.Dispatcher())
	}
	r.open = true
	return nil
}

// closeWith transitions open -> closed: cancels every subscription,
// then destroys the connections this resource opened. Idempotent.
func (r *resource) closeWith(indexes ...ResourceIndex) error {
	r.mu.Lock()
	if !r.open {
		r.mu.Unlock()
		return nil
	}
	subs := r.subs
	r.subs = nil
	r.open = false
	r.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
	var errs []error
	for _, index := range indexes {
		if err := r.reg.destroyConnection(index); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// guarded wraps an event handler so a failure or panic ends at the
// handler boundary instead of crashing the dispatcher's delivery loop.
// No re-delivery is attempted.
func (r *resource) guarded(name string, fn func(ctx context.Context, ev dispatch.Event) error) dispatch.Handler {
	return func(ctx context.Context, ev dispatch.Event) (err error) {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("event handler panicked", Fields{"handler": name, "event": string(ev.Type()), "panic": p})
			}
		}()
		if err = fn(ctx, ev); err != nil {
			r.log.Error("event handler failed", Fields{"handler": name, "event": string(ev.Type()), "err": err})
		}
		return err
	}
}
