package redistate

import (
	"context"

	"github.com/unkn0wn-root/redistate/codec"
	"github.com/unkn0wn-root/redistate/store"
)

// getRecord fetches and deserializes one primary record.
func getRecord[E any](ctx context.Context, r *resource, index ResourceIndex, key string, c codec.Codec[E], cx codec.Context) (E, error) {
	var zero E
	conn, err := r.reg.connection(ctx, index)
	if err != nil {
		return zero, err
	}
	fields, present, err := conn.HashGetAll(ctx, key)
	if err != nil {
		return zero, err
	}
	if !present {
		return zero, &NotFoundError{Index: index, Key: key}
	}
	return c.Deserialize(fields, cx)
}

// scopedRecord is one upsert of a scope replacement: the primary key,
// the index member naming it, and its serialized fields.
type scopedRecord struct {
	key    string
	member string
	fields map[string]string
}

// replaceScope swaps the full membership of one scope: the previous
// members' primaries and the index are deleted, and the replacing set
// is written, in a single batch. A concurrent reader sees either the
// old set or the new one, never a mix.
func replaceScope(ctx context.Context, conn store.Conn, indexKey string, primaryOf func(member string) string, recs []scopedRecord, extra func(b store.Batch, old []string)) error {
	old, err := conn.SetMembers(ctx, indexKey)
	if err != nil {
		return err
	}
	return conn.Batch(ctx, func(b store.Batch) {
		if len(old) > 0 {
			stale := make([]string, len(old))
			for i, m := range old {
				stale[i] = primaryOf(m)
			}
			b.Delete(stale...)
		}
		b.Delete(indexKey)
		for _, rec := range recs {
			b.HashSet(rec.key, rec.fields)
			b.SetAdd(indexKey, rec.member)
		}
		if extra != nil {
			extra(b, old)
		}
	})
}

// clearScope removes every record scoped to indexKey plus the index
// itself, atomically.
func clearScope(ctx context.Context, conn store.Conn, indexKey string, primaryOf func(member string) string, extra func(b store.Batch, old []string)) error {
	return replaceScope(ctx, conn, indexKey, primaryOf, nil, extra)
}
