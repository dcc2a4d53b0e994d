// Package redistate keeps a Redis-backed mirror of gateway entity state
// so processes other than the gateway consumer can read it. Mutations
// never originate here; the cache applies the event stream it is
// subscribed to and answers reads, with last write wins semantics.
//
// Components:
//   - Client: aggregate over one resource per entity type, each bound
//     to its own store partition (Redis logical DB).
//   - store.Dialer / store.Conn: backing-store abstraction. The redis
//     subpackage is the production implementation.
//   - codec.Codec[E]: maps an entity to and from a flat field map
//     (Redis hash). Composite fields use a pluggable ValueCodec, with
//     msgpack as the default.
//   - View / NestedView: lazy scans over a partition or an index set.
//
// Keys per partition:
//
//	e:<id>            - primary record (hash)
//	e:<guild>:<id>    - pair-keyed record (members, presences, voice states)
//	ix:g:<guild>      - guild index (set)
//	ix:c:<channel>    - channel index (set)
//	ix:u:<user>       - user index (set of guild ids)
//
// Usage:
//
//	cache, _ := redistate.New(redistate.Options{Dialer: dialer, App: app})
//	_ = cache.Open(ctx) // subscribes listeners, connections dial lazily
//	g, err := cache.GetGuild(ctx, guildID)
package redistate
