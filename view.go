package redistate

import (
	"context"

	"github.com/unkn0wn-root/redistate/store"
)

// viewPageSize is the SCAN/SSCAN count hint: one page of raw ids is
// buffered at a time, never the whole scope.
const viewPageSize = 64

// idSource yields pages of raw identifier strings.
type idSource interface {
	next(ctx context.Context) (page []string, done bool, err error)
}

// View is a lazy, read-only, single-pass projection over a multi-key
// region of one partition. It performs no store access until Next is
// called and deserializes one record per yield.
//
// Usage follows bufio.Scanner:
//
//	for view.Next(ctx) {
//		use(view.Key(), view.Value())
//	}
//	if err := view.Err(); err != nil { ... }
//
// Records deleted between id discovery and record load are skipped, not
// errors. A View is not safe for concurrent use and cannot restart.
type View[K comparable, V any] struct {
	src idSource
	// load resolves one raw id to its record. ok=false skips the id.
	load func(ctx context.Context, raw string) (K, V, bool, error)

	buf  []string
	key  K
	val  V
	err  error
	done bool
}

func newView[K comparable, V any](src idSource, load func(ctx context.Context, raw string) (K, V, bool, error)) *View[K, V] {
	return &View[K, V]{src: src, load: load}
}

// Next advances to the next record, reporting whether one is available.
// It returns false at exhaustion or on the first error.
func (v *View[K, V]) Next(ctx context.Context) bool {
	if v.err != nil {
		return false
	}
	for {
		if len(v.buf) == 0 {
			if v.done {
				return false
			}
			page, done, err := v.src.next(ctx)
			if err != nil {
				v.err = err
				return false
			}
			v.buf = page
			v.done = done
			continue
		}
		raw := v.buf[0]
		v.buf = v.buf[1:]
		key, val, ok, err := v.load(ctx, raw)
		if err != nil {
			v.err = err
			return false
		}
		if !ok {
			continue
		}
		v.key, v.val = key, val
		return true
	}
}

func (v *View[K, V]) Key() K     { return v.key }
func (v *View[K, V]) Value() V   { return v.val }
func (v *View[K, V]) Err() error { return v.err }

// Collect drains the view into a map. Mostly useful in tests and for
// small scopes; large scopes should iterate instead.
func (v *View[K, V]) Collect(ctx context.Context) (map[K]V, error) {
	out := make(map[K]V)
	for v.Next(ctx) {
		out[v.Key()] = v.Value()
	}
	return out, v.Err()
}

// NestedView is a two-level projection: each Next yields an outer scope
// key and a View over that scope's records. Inner views share the same
// laziness and single-pass contract.
type NestedView[K comparable, K2 comparable, V any] struct {
	src idSource
	// open resolves one raw outer id to (outer key, inner view).
	// ok=false skips the id.
	open func(raw string) (K, *View[K2, V], bool)

	buf  []string
	key  K
	val  *View[K2, V]
	err  error
	done bool
}

func newNestedView[K comparable, K2 comparable, V any](src idSource, open func(raw string) (K, *View[K2, V], bool)) *NestedView[K, K2, V] {
	return &NestedView[K, K2, V]{src: src, open: open}
}

func (v *NestedView[K, K2, V]) Next(ctx context.Context) bool {
	if v.err != nil {
		return false
	}
	for {
		if len(v.buf) == 0 {
			if v.done {
				return false
			}
			page, done, err := v.src.next(ctx)
			if err != nil {
				v.err = err
				return false
			}
			v.buf = page
			v.done = done
			continue
		}
		raw := v.buf[0]
		v.buf = v.buf[1:]
		key, inner, ok := v.open(raw)
		if !ok {
			continue
		}
		v.key, v.val = key, inner
		return true
	}
}

func (v *NestedView[K, K2, V]) Key() K              { return v.key }
func (v *NestedView[K, K2, V]) Value() *View[K2, V] { return v.val }
func (v *NestedView[K, K2, V]) Err() error          { return v.err }

// scanSource pages over keys matching a pattern.
type scanSource struct {
	conn    store.Conn
	pattern string
	cursor  uint64
	started bool
}

func (s *scanSource) next(ctx context.Context) ([]string, bool, error) {
	if s.started && s.cursor == 0 {
		return nil, true, nil
	}
	page, cursor, err := s.conn.Scan(ctx, s.cursor, s.pattern, viewPageSize)
	if err != nil {
		return nil, false, err
	}
	s.started = true
	s.cursor = cursor
	return page, cursor == 0, nil
}

// setSource pages over members of one index set.
type setSource struct {
	conn    store.Conn
	key     string
	cursor  uint64
	started bool
}

func (s *setSource) next(ctx context.Context) ([]string, bool, error) {
	if s.started && s.cursor == 0 {
		return nil, true, nil
	}
	page, cursor, err := s.conn.SetScan(ctx, s.key, s.cursor, viewPageSize)
	if err != nil {
		return nil, false, err
	}
	s.started = true
	s.cursor = cursor
	return page, cursor == 0, nil
}
