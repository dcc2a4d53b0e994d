package redistate

import (
	"context"
	"path"
	"sync"

	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/store"
	"github.com/unkn0wn-root/redistate/types"
)

// fakeConn is an in-memory store.Conn for one partition. Error
// injection is per-operation via the fail* fields.
type fakeConn struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	sets   map[string]map[string]bool

	closes int

	failHashSet error
	failHashGet error
	failBatch   error
}

var _ store.Conn = (*fakeConn)(nil)

func newFakeConn() *fakeConn {
	return &fakeConn{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]bool),
	}
}

func (c *fakeConn) HashGetAll(_ context.Context, key string) (map[string]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failHashGet != nil {
		return nil, false, c.failHashGet
	}
	h, ok := c.hashes[key]
	if !ok {
		return nil, false, nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, true, nil
}

func (c *fakeConn) HashSet(_ context.Context, key string, fields map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failHashSet != nil {
		return c.failHashSet
	}
	c.hashSetLocked(key, fields)
	return nil
}

func (c *fakeConn) hashSetLocked(key string, fields map[string]string) {
	h := c.hashes[key]
	if h == nil {
		h = make(map[string]string, len(fields))
		c.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
}

func (c *fakeConn) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(keys...)
	return nil
}

func (c *fakeConn) deleteLocked(keys ...string) {
	for _, k := range keys {
		delete(c.hashes, k)
		delete(c.sets, k)
	}
}

func (c *fakeConn) SetAdd(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setAddLocked(key, members...)
	return nil
}

func (c *fakeConn) setAddLocked(key string, members ...string) {
	s := c.sets[key]
	if s == nil {
		s = make(map[string]bool)
		c.sets[key] = s
	}
	for _, m := range members {
		s[m] = true
	}
}

func (c *fakeConn) SetRemove(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setRemoveLocked(key, members...)
	return nil
}

func (c *fakeConn) setRemoveLocked(key string, members ...string) {
	s := c.sets[key]
	for _, m := range members {
		delete(s, m)
	}
	if len(s) == 0 {
		delete(c.sets, key)
	}
}

func (c *fakeConn) SetMembers(_ context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sets[key]))
	for m := range c.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

// Scan ignores the cursor and yields every match in one page.
func (c *fakeConn) Scan(_ context.Context, _ uint64, pattern string, _ int64) ([]string, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for k := range c.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	for k := range c.sets {
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	return out, 0, nil
}

func (c *fakeConn) SetScan(_ context.Context, key string, _ uint64, _ int64) ([]string, uint64, error) {
	members, err := c.SetMembers(context.Background(), key)
	return members, 0, err
}

type fakeBatch struct {
	ops []func(*fakeConn)
}

var _ store.Batch = (*fakeBatch)(nil)

func (b *fakeBatch) HashSet(key string, fields map[string]string) {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	b.ops = append(b.ops, func(c *fakeConn) { c.hashSetLocked(key, cp) })
}

func (b *fakeBatch) Delete(keys ...string) {
	b.ops = append(b.ops, func(c *fakeConn) { c.deleteLocked(keys...) })
}

func (b *fakeBatch) SetAdd(key string, members ...string) {
	b.ops = append(b.ops, func(c *fakeConn) { c.setAddLocked(key, members...) })
}

func (b *fakeBatch) SetRemove(key string, members ...string) {
	b.ops = append(b.ops, func(c *fakeConn) { c.setRemoveLocked(key, members...) })
}

func (c *fakeConn) Batch(_ context.Context, fn func(store.Batch)) error {
	b := &fakeBatch{}
	fn(b)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failBatch != nil {
		return c.failBatch
	}
	for _, op := range b.ops {
		op(c)
	}
	return nil
}

func (c *fakeConn) Flush(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashes = make(map[string]map[string]string)
	c.sets = make(map[string]map[string]bool)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	return nil
}

// hashCount reports how many hash records the partition holds.
func (c *fakeConn) hashCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.hashes)
}

// fakeDialer hands out one fakeConn per partition and records dial
// counts. Data survives destroy/redial because the conn is reused.
type fakeDialer struct {
	mu    sync.Mutex
	conns map[int]*fakeConn
	dials map[int]int
	fail  map[int]error
}

var _ store.Dialer = (*fakeDialer)(nil)

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		conns: make(map[int]*fakeConn),
		dials: make(map[int]int),
		fail:  make(map[int]error),
	}
}

func (d *fakeDialer) Dial(_ context.Context, partition int) (store.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[partition]; err != nil {
		return nil, err
	}
	d.dials[partition]++
	return d.connLocked(partition), nil
}

func (d *fakeDialer) connLocked(partition int) *fakeConn {
	c, ok := d.conns[partition]
	if !ok {
		c = newFakeConn()
		d.conns[partition] = c
	}
	return c
}

// conn returns the partition's conn for direct inspection, creating it
// if nothing dialed yet.
func (d *fakeDialer) conn(index ResourceIndex) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connLocked(int(index))
}

func (d *fakeDialer) dialCount(index ResourceIndex) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[int(index)]
}

// fakeApp supplies the dispatcher and own identity.
type fakeApp struct {
	mux   *dispatch.Mux
	ownID types.Snowflake
}

var _ App = (*fakeApp)(nil)

func (a *fakeApp) Dispatcher() dispatch.Dispatcher { return a.mux }
func (a *fakeApp) OwnID() types.Snowflake          { return a.ownID }
