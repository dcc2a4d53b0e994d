// Package dispatch defines the event contract redistate consumes.
//
// The mirror never owns the event source: it subscribes to an external
// Dispatcher and translates the typed payloads it receives into backing
// store mutations. Subscribe returns a Subscription handle; a resource
// cancels its handles on Close instead of passing handlers back for
// identity comparison.
//
// Mux is a small in-process Dispatcher for embedding the mirror in the
// same process as the gateway client, and for tests. Delivery is
// fire-and-forget: Dispatch does not wait for handlers to finish.
package dispatch

import "context"

// EventType identifies one class of gateway event.
type EventType string

const (
	EventGuildAvailable   EventType = "guild_available"
	EventGuildUpdate      EventType = "guild_update"
	EventGuildLeave       EventType = "guild_leave"
	EventEmojisUpdate     EventType = "emojis_update"
	EventMemberAdd        EventType = "member_add"
	EventMemberUpdate     EventType = "member_update"
	EventMemberDelete     EventType = "member_delete"
	EventRoleCreate       EventType = "role_create"
	EventRoleUpdate       EventType = "role_update"
	EventRoleDelete       EventType = "role_delete"
	EventPresenceUpdate   EventType = "presence_update"
	EventVoiceStateUpdate EventType = "voice_state_update"
	EventInviteCreate     EventType = "invite_create"
	EventInviteDelete     EventType = "invite_delete"
	EventChannelCreate    EventType = "channel_create"
	EventChannelUpdate    EventType = "channel_update"
	EventChannelDelete    EventType = "channel_delete"
	EventMeUpdate         EventType = "me_update"
)

// Event is a typed payload delivered to handlers. Type reports which
// EventType the payload was dispatched under.
type Event interface {
	Type() EventType
}

// Handler consumes one event. The dispatcher does not wait on the
// returned error beyond the handler's own execution; it is surfaced to
// the handler boundary only.
type Handler func(ctx context.Context, ev Event) error

// Subscription is the handle returned by Subscribe. Cancel deregisters
// the handler; cancelling twice is a no-op.
type Subscription interface {
	Cancel()
}

// Dispatcher is the subscribe contract of the external event source.
type Dispatcher interface {
	Subscribe(t EventType, h Handler) Subscription
}
