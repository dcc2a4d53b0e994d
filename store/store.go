// Package store defines the backing-store abstraction used by redistate.
//
// One Conn addresses one logical partition (Redis DB number); primary
// records are hashes keyed by entity id and secondary indexes are sets
// keyed by scope. Implementations must be safe for concurrent use.
//
// Batch groups mutations for atomic execution (MULTI/EXEC on Redis).
// A reader must never observe a partially applied batch. Flushing
// queued operations individually is not a valid implementation.
package store

import "context"

// Conn is an open channel to one partition.
type Conn interface {
	// HashGetAll returns all fields of the hash at key.
	// present is false when the key does not exist.
	HashGetAll(ctx context.Context, key string) (fields map[string]string, present bool, err error)

	// HashSet writes fields into the hash at key, creating it if absent.
	HashSet(ctx context.Context, key string, fields map[string]string) error

	// Delete removes keys (best-effort; missing keys are not an error).
	Delete(ctx context.Context, keys ...string) error

	// SetAdd adds members to the set at key.
	SetAdd(ctx context.Context, key string, members ...string) error

	// SetRemove removes members from the set at key.
	SetRemove(ctx context.Context, key string, members ...string) error

	// SetMembers returns every member of the set at key.
	// A missing key yields an empty slice, not an error.
	SetMembers(ctx context.Context, key string) ([]string, error)

	// Scan returns one page of keys matching pattern starting at cursor.
	// A returned cursor of 0 means the scan is exhausted.
	Scan(ctx context.Context, cursor uint64, pattern string, count int64) (keys []string, next uint64, err error)

	// SetScan returns one page of members of the set at key starting at
	// cursor. A returned cursor of 0 means the scan is exhausted.
	SetScan(ctx context.Context, key string, cursor uint64, count int64) (members []string, next uint64, err error)

	// Batch queues the mutations issued inside fn and executes them as
	// one atomic unit.
	Batch(ctx context.Context, fn func(Batch)) error

	// Flush removes every key in the partition.
	Flush(ctx context.Context) error

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Batch collects mutations for atomic execution. Methods only queue;
// nothing is applied until the enclosing Batch call returns.
type Batch interface {
	HashSet(key string, fields map[string]string)
	Delete(keys ...string)
	SetAdd(key string, members ...string)
	SetRemove(key string, members ...string)
}

// Dialer opens connections on demand, one per partition number.
type Dialer interface {
	Dial(ctx context.Context, partition int) (Conn, error)
}
