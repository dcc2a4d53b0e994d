package redistate

import (
	"context"
	"testing"

	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/internal/keys"
	"github.com/unkn0wn-root/redistate/types"
)

func TestInviteEventFlow(t *testing.T) {
	c, _, app := newTestClient(t)

	dispatchWait(app, dispatch.InviteCreate{Invite: types.Invite{
		Code:      "abc123",
		GuildID:   123,
		ChannelID: 41,
		InviterID: 7,
		MaxUses:   5,
	}})
	inv, err := c.GetInvite(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("GetInvite: %v", err)
	}
	if inv.GuildID != 123 || inv.MaxUses != 5 {
		t.Fatalf("invite = %#v", inv)
	}

	dispatchWait(app, dispatch.InviteDelete{Code: "abc123", GuildID: 123, ChannelID: 41})
	if _, err := c.GetInvite(context.Background(), "abc123"); !IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestInviteDeleteCleansBothIndexes(t *testing.T) {
	c, d, _ := newTestClient(t)

	if err := c.SetInvite(context.Background(), types.Invite{Code: "abc", GuildID: 123, ChannelID: 41}); err != nil {
		t.Fatalf("SetInvite: %v", err)
	}
	if err := c.DeleteInvite(context.Background(), "abc"); err != nil {
		t.Fatalf("DeleteInvite: %v", err)
	}
	// Deleting an unknown code is silent.
	if err := c.DeleteInvite(context.Background(), "abc"); err != nil {
		t.Fatalf("second DeleteInvite: %v", err)
	}

	conn := d.conn(IndexInvite)
	for _, key := range []string{keys.GuildIndex(123), keys.ChannelIndex(41)} {
		members, err := conn.SetMembers(context.Background(), key)
		if err != nil {
			t.Fatalf("SetMembers(%s): %v", key, err)
		}
		if len(members) != 0 {
			t.Fatalf("%s not cleaned: %v", key, members)
		}
	}
}

func TestInviteChannelDeleteClearsChannelScope(t *testing.T) {
	c, d, app := newTestClient(t)

	for _, inv := range []types.Invite{
		{Code: "a", GuildID: 123, ChannelID: 41},
		{Code: "b", GuildID: 123, ChannelID: 41},
		{Code: "c", GuildID: 123, ChannelID: 42},
	} {
		if err := c.SetInvite(context.Background(), inv); err != nil {
			t.Fatalf("SetInvite(%s): %v", inv.Code, err)
		}
	}

	dispatchWait(app, dispatch.ChannelDelete{GuildID: 123, ChannelID: 41})

	for _, code := range []string{"a", "b"} {
		if _, err := c.GetInvite(context.Background(), code); !IsNotFound(err) {
			t.Fatalf("invite %s: got %v, want not found", code, err)
		}
	}
	if _, err := c.GetInvite(context.Background(), "c"); err != nil {
		t.Fatalf("invite c should survive: %v", err)
	}

	// The guild index lost the channel's codes but kept the survivor.
	members, err := d.conn(IndexInvite).SetMembers(context.Background(), keys.GuildIndex(123))
	if err != nil {
		t.Fatalf("SetMembers: %v", err)
	}
	if len(members) != 1 || members[0] != "c" {
		t.Fatalf("guild index = %v", members)
	}
}

func TestInviteGuildLeaveClearsGuildScope(t *testing.T) {
	c, d, app := newTestClient(t)

	for _, inv := range []types.Invite{
		{Code: "a", GuildID: 123, ChannelID: 41},
		{Code: "z", GuildID: 456, ChannelID: 61},
	} {
		if err := c.SetInvite(context.Background(), inv); err != nil {
			t.Fatalf("SetInvite(%s): %v", inv.Code, err)
		}
	}

	dispatchWait(app, dispatch.GuildLeave{GuildID: 123})

	if _, err := c.GetInvite(context.Background(), "a"); !IsNotFound(err) {
		t.Fatalf("invite a: got %v, want not found", err)
	}
	if _, err := c.GetInvite(context.Background(), "z"); err != nil {
		t.Fatalf("invite z should survive: %v", err)
	}
	members, err := d.conn(IndexInvite).SetMembers(context.Background(), keys.ChannelIndex(41))
	if err != nil {
		t.Fatalf("SetMembers: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("channel index not cleaned: %v", members)
	}
}

func TestInviteViews(t *testing.T) {
	c, _, _ := newTestClient(t)

	for _, inv := range []types.Invite{
		{Code: "a", GuildID: 123, ChannelID: 41},
		{Code: "b", GuildID: 123, ChannelID: 42},
		{Code: "z", GuildID: 456, ChannelID: 61},
	} {
		if err := c.SetInvite(context.Background(), inv); err != nil {
			t.Fatalf("SetInvite(%s): %v", inv.Code, err)
		}
	}

	t.Run("all", func(t *testing.T) {
		view, err := c.InviteView(context.Background())
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		got, err := view.Collect(context.Background())
		if err != nil {
			t.Fatalf("collect: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("want 3 invites, got %#v", got)
		}
	})

	t.Run("for guild", func(t *testing.T) {
		view, err := c.InviteViewForGuild(context.Background(), 123)
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		got, err := view.Collect(context.Background())
		if err != nil {
			t.Fatalf("collect: %v", err)
		}
		if len(got) != 2 || got["a"].ChannelID != 41 || got["b"].ChannelID != 42 {
			t.Fatalf("guild view = %#v", got)
		}
	})

	t.Run("for channel", func(t *testing.T) {
		view, err := c.InviteViewForChannel(context.Background(), 61)
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		got, err := view.Collect(context.Background())
		if err != nil {
			t.Fatalf("collect: %v", err)
		}
		if len(got) != 1 || got["z"].GuildID != 456 {
			t.Fatalf("channel view = %#v", got)
		}
	})
}
