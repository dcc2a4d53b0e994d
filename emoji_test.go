package redistate

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/types"
)

func TestEmojiSetGetRoundtrip(t *testing.T) {
	c, _, _ := newTestClient(t)

	in := types.Emoji{
		ID:        1,
		GuildID:   123,
		Name:      "blob",
		Animated:  true,
		Available: true,
		RoleIDs:   []types.Snowflake{31, 32},
		User:      &types.User{ID: 7, Username: "uploader"},
	}
	if err := c.SetEmoji(context.Background(), in); err != nil {
		t.Fatalf("SetEmoji: %v", err)
	}

	got, err := c.GetEmoji(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetEmoji: %v", err)
	}
	if got.Name != "blob" || !got.Animated || len(got.RoleIDs) != 2 {
		t.Fatalf("emoji = %#v", got)
	}
	if got.User == nil || got.User.Username != "uploader" {
		t.Fatalf("uploader not reattached: %#v", got.User)
	}

	// The uploader is mirrored into the user partition, not inlined.
	u, err := c.GetUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Username != "uploader" {
		t.Fatalf("user = %#v", u)
	}
}

func TestEmojiUploaderGoneYieldsNilUser(t *testing.T) {
	c, d, _ := newTestClient(t)

	in := types.Emoji{ID: 1, GuildID: 123, Name: "blob", User: &types.User{ID: 7, Username: "u"}}
	if err := c.SetEmoji(context.Background(), in); err != nil {
		t.Fatalf("SetEmoji: %v", err)
	}
	if err := d.conn(IndexUser).Delete(context.Background(), "e:7"); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	got, err := c.GetEmoji(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetEmoji: %v", err)
	}
	if got.User != nil {
		t.Fatalf("expected nil uploader, got %#v", got.User)
	}
}

func TestSetEmojiOverwriteDropsStaleFields(t *testing.T) {
	c, d, _ := newTestClient(t)

	full := types.Emoji{
		ID:      1,
		GuildID: 123,
		Name:    "blob",
		RoleIDs: []types.Snowflake{31, 32},
		User:    &types.User{ID: 7, Username: "uploader"},
	}
	slim := types.Emoji{ID: 1, GuildID: 123, Name: "blob"}

	if err := c.SetEmoji(context.Background(), full); err != nil {
		t.Fatalf("SetEmoji: %v", err)
	}
	if err := c.SetEmoji(context.Background(), slim); err != nil {
		t.Fatalf("SetEmoji: %v", err)
	}
	twice, ok, err := d.conn(IndexEmoji).HashGetAll(context.Background(), "e:1")
	if err != nil || !ok {
		t.Fatalf("HashGetAll: %v, %t", err, ok)
	}
	if _, stale := twice["role_ids"]; stale {
		t.Fatalf("role_ids survived the overwrite: %v", twice)
	}
	if _, stale := twice["user_id"]; stale {
		t.Fatalf("user_id survived the overwrite: %v", twice)
	}

	// Overwriting must leave exactly the record a single set leaves.
	if err := d.conn(IndexEmoji).Delete(context.Background(), "e:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.SetEmoji(context.Background(), slim); err != nil {
		t.Fatalf("SetEmoji: %v", err)
	}
	once, ok, err := d.conn(IndexEmoji).HashGetAll(context.Background(), "e:1")
	if err != nil || !ok {
		t.Fatalf("HashGetAll: %v, %t", err, ok)
	}
	if !reflect.DeepEqual(twice, once) {
		t.Fatalf("overwrite left %v, single set leaves %v", twice, once)
	}
}

func TestEmojiViewDuringScopeReplacement(t *testing.T) {
	c, _, app := newTestClient(t)

	gens := [2][]types.Emoji{
		{{ID: 1, GuildID: 123, Name: "a"}, {ID: 2, GuildID: 123, Name: "b"}},
		{{ID: 3, GuildID: 123, Name: "c"}, {ID: 4, GuildID: 123, Name: "d"}},
	}
	dispatchWait(app, dispatch.EmojisUpdate{GuildID: 123, Emojis: gens[0]})

	stop := make(chan struct{})
	done := make(chan struct{})
	var (
		readErr error
		mixed   map[types.Snowflake]types.Emoji
	)
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			v, err := c.EmojiViewForGuild(context.Background(), 123)
			if err != nil {
				readErr = err
				return
			}
			snap, err := v.Collect(context.Background())
			if err != nil {
				readErr = err
				return
			}
			var first, second bool
			for id := range snap {
				if id <= 2 {
					first = true
				} else {
					second = true
				}
			}
			// A snapshot may come up short when records vanish
			// mid-scan, but it must never straddle generations.
			if first && second {
				mixed = snap
				return
			}
		}
	}()
	for i := 0; i < 100; i++ {
		dispatchWait(app, dispatch.EmojisUpdate{GuildID: 123, Emojis: gens[i%2]})
	}
	close(stop)
	<-done
	if readErr != nil {
		t.Fatalf("view: %v", readErr)
	}
	if mixed != nil {
		t.Fatalf("snapshot mixes generations: %v", mixed)
	}
}

func TestEmojiDeleteIdempotent(t *testing.T) {
	c, _, _ := newTestClient(t)

	if err := c.SetEmoji(context.Background(), types.Emoji{ID: 1, GuildID: 123, Name: "a"}); err != nil {
		t.Fatalf("SetEmoji: %v", err)
	}
	if err := c.DeleteEmoji(context.Background(), 1); err != nil {
		t.Fatalf("DeleteEmoji: %v", err)
	}
	if err := c.DeleteEmoji(context.Background(), 1); err != nil {
		t.Fatalf("second DeleteEmoji: %v", err)
	}
	if _, err := c.GetEmoji(context.Background(), 1); !IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestEmojiBulkUploaderFailureIsPartial(t *testing.T) {
	c, d, _ := newTestClient(t)

	// Force the user partition open, then make its writes fail.
	if err := c.SetEmoji(context.Background(), types.Emoji{ID: 99, GuildID: 1, Name: "warm"}); err != nil {
		t.Fatalf("SetEmoji: %v", err)
	}
	boom := errors.New("user partition down")
	d.conn(IndexUser).failHashSet = boom

	err := c.EmojiResource.replaceGuildEmojis(context.Background(), 123, []types.Emoji{
		{ID: 1, GuildID: 123, Name: "a", User: &types.User{ID: 7}},
	})
	var pbe *PartialBulkError
	if !errors.As(err, &pbe) {
		t.Fatalf("got %v, want PartialBulkError", err)
	}
	if !pbe.Applied {
		t.Fatalf("primary batch should have applied")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("sub-error lost: %v", err)
	}

	// The committed side is visible despite the partial failure.
	if _, err := c.GetEmoji(context.Background(), 1); err != nil {
		t.Fatalf("emoji missing after partial bulk: %v", err)
	}
}

func TestOwnMemberDeleteClearsGuildEmojis(t *testing.T) {
	d := newFakeDialer()
	app := &fakeApp{mux: dispatch.NewMux(), ownID: 42}
	c, err := New(Options{Dialer: d, App: app})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	if err := c.SetEmoji(context.Background(), types.Emoji{ID: 1, GuildID: 123, Name: "a"}); err != nil {
		t.Fatalf("SetEmoji: %v", err)
	}

	// A stranger leaving changes nothing.
	dispatchWait(app, dispatch.MemberDelete{GuildID: 123, UserID: 7})
	if _, err := c.GetEmoji(context.Background(), 1); err != nil {
		t.Fatalf("emoji gone after unrelated member delete: %v", err)
	}

	// The own account leaving clears the guild's emojis.
	dispatchWait(app, dispatch.MemberDelete{GuildID: 123, UserID: 42})
	if _, err := c.GetEmoji(context.Background(), 1); !IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestEmojiViews(t *testing.T) {
	c, _, _ := newTestClient(t)

	for _, e := range []types.Emoji{
		{ID: 1, GuildID: 123, Name: "a"},
		{ID: 2, GuildID: 123, Name: "b"},
		{ID: 3, GuildID: 456, Name: "c"},
	} {
		if err := c.SetEmoji(context.Background(), e); err != nil {
			t.Fatalf("SetEmoji(%d): %v", e.ID, err)
		}
	}

	t.Run("for guild", func(t *testing.T) {
		view, err := c.EmojiViewForGuild(context.Background(), 123)
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		got, err := view.Collect(context.Background())
		if err != nil {
			t.Fatalf("collect: %v", err)
		}
		if len(got) != 2 || got[1].Name != "a" || got[2].Name != "b" {
			t.Fatalf("scope = %#v", got)
		}
	})

	t.Run("all", func(t *testing.T) {
		view, err := c.EmojiView(context.Background())
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		got, err := view.Collect(context.Background())
		if err != nil {
			t.Fatalf("collect: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("want 3 emojis, got %#v", got)
		}
	})

	t.Run("clear for guild leaves siblings", func(t *testing.T) {
		if err := c.ClearEmojisForGuild(context.Background(), 123); err != nil {
			t.Fatalf("clear: %v", err)
		}
		if _, err := c.GetEmoji(context.Background(), 1); !IsNotFound(err) {
			t.Fatalf("emoji 1: got %v, want not found", err)
		}
		if _, err := c.GetEmoji(context.Background(), 3); err != nil {
			t.Fatalf("emoji 3 should survive: %v", err)
		}
	})
}
