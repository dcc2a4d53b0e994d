// Package redis implements the store contract on go-redis v9.
package redis

import (
	"context"
	"crypto/tls"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	st "github.com/unkn0wn-root/redistate/store"
)

// Config addresses one Redis server. Each dialed partition becomes a
// dedicated client pinned to that logical DB number.
type Config struct {
	Addr     string
	Username string
	Password string
	TLS      *tls.Config // nil => plaintext
}

// Dialer opens one go-redis client per partition.
type Dialer struct {
	cfg Config
}

var _ st.Dialer = (*Dialer)(nil)

func NewDialer(cfg Config) *Dialer { return &Dialer{cfg: cfg} }

// Dial connects and pings the target DB before handing the connection out.
func (d *Dialer) Dial(ctx context.Context, partition int) (st.Conn, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:      d.cfg.Addr,
		Username:  d.cfg.Username,
		Password:  d.cfg.Password,
		TLSConfig: d.cfg.TLS,
		DB:        partition,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Conn{rdb: rdb}, nil
}

// Conn adapts one *goredis.Client to store.Conn.
type Conn struct {
	rdb *goredis.Client
}

var _ st.Conn = (*Conn)(nil)

func (c *Conn) HashGetAll(ctx context.Context, key string) (map[string]string, bool, error) {
	fields, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, err
	}
	// HGETALL returns an empty map for missing keys rather than a nil reply.
	if len(fields) == 0 {
		return nil, false, nil
	}
	return fields, true, nil
}

func (c *Conn) HashSet(ctx context.Context, key string, fields map[string]string) error {
	return c.rdb.HSet(ctx, key, flatten(fields)...).Err()
}

func (c *Conn) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Conn) SetAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return c.rdb.SAdd(ctx, key, toAny(members)...).Err()
}

func (c *Conn) SetRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return c.rdb.SRem(ctx, key, toAny(members)...).Err()
}

func (c *Conn) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Conn) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	return c.rdb.Scan(ctx, cursor, pattern, count).Result()
}

func (c *Conn) SetScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	return c.rdb.SScan(ctx, key, cursor, "*", count).Result()
}

// Batch executes the queued mutations inside MULTI/EXEC.
func (c *Conn) Batch(ctx context.Context, fn func(st.Batch)) error {
	_, err := c.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		fn(&batch{ctx: ctx, p: p})
		return nil
	})
	return err
}

func (c *Conn) Flush(ctx context.Context) error {
	return c.rdb.FlushDB(ctx).Err()
}

// Close is safe to call repeatedly; a second close becomes a no-op.
func (c *Conn) Close() error {
	if err := c.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}

type batch struct {
	ctx context.Context
	p   goredis.Pipeliner
}

var _ st.Batch = (*batch)(nil)

func (b *batch) HashSet(key string, fields map[string]string) {
	b.p.HSet(b.ctx, key, flatten(fields)...)
}

func (b *batch) Delete(keys ...string) {
	if len(keys) > 0 {
		b.p.Del(b.ctx, keys...)
	}
}

func (b *batch) SetAdd(key string, members ...string) {
	if len(members) > 0 {
		b.p.SAdd(b.ctx, key, toAny(members)...)
	}
}

func (b *batch) SetRemove(key string, members ...string) {
	if len(members) > 0 {
		b.p.SRem(b.ctx, key, toAny(members)...)
	}
}

func flatten(fields map[string]string) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func toAny(members []string) []any {
	out := make([]any, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}
