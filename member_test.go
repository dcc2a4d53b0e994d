package redistate

import (
	"context"
	"testing"

	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/internal/keys"
	"github.com/unkn0wn-root/redistate/types"
)

func TestMemberEventFlow(t *testing.T) {
	c, _, app := newTestClient(t)

	dispatchWait(app, dispatch.MemberChange{
		Kind: dispatch.EventMemberAdd,
		Member: types.Member{
			GuildID:  123,
			UserID:   7,
			Nickname: "new",
			User:     &types.User{ID: 7, Username: "u7"},
		},
	})
	m, err := c.GetMember(context.Background(), 123, 7)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if m.Nickname != "new" {
		t.Fatalf("nickname = %q", m.Nickname)
	}

	dispatchWait(app, dispatch.MemberChange{
		Kind:   dispatch.EventMemberUpdate,
		Member: types.Member{GuildID: 123, UserID: 7, Nickname: "renamed"},
	})
	m, err = c.GetMember(context.Background(), 123, 7)
	if err != nil {
		t.Fatalf("GetMember after update: %v", err)
	}
	if m.Nickname != "renamed" {
		t.Fatalf("nickname = %q", m.Nickname)
	}

	dispatchWait(app, dispatch.MemberDelete{GuildID: 123, UserID: 7})
	if _, err := c.GetMember(context.Background(), 123, 7); !IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestMemberSameUserDifferentGuilds(t *testing.T) {
	c, _, _ := newTestClient(t)

	for _, m := range []types.Member{
		{GuildID: 123, UserID: 7, Nickname: "a"},
		{GuildID: 456, UserID: 7, Nickname: "b"},
	} {
		if err := c.SetMember(context.Background(), m); err != nil {
			t.Fatalf("SetMember: %v", err)
		}
	}

	// Records under different guild scopes never collide.
	a, err := c.GetMember(context.Background(), 123, 7)
	if err != nil {
		t.Fatalf("GetMember(123): %v", err)
	}
	b, err := c.GetMember(context.Background(), 456, 7)
	if err != nil {
		t.Fatalf("GetMember(456): %v", err)
	}
	if a.Nickname != "a" || b.Nickname != "b" {
		t.Fatalf("scopes bled: %q / %q", a.Nickname, b.Nickname)
	}

	view, err := c.MemberViewForUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	got, err := view.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 2 || got[123].Nickname != "a" || got[456].Nickname != "b" {
		t.Fatalf("per-user view = %#v", got)
	}
}

func TestMemberUserIndexMaintenance(t *testing.T) {
	c, d, _ := newTestClient(t)

	if err := c.SetMember(context.Background(), types.Member{GuildID: 123, UserID: 7}); err != nil {
		t.Fatalf("SetMember: %v", err)
	}
	members, err := d.conn(IndexMember).SetMembers(context.Background(), keys.UserIndex(7))
	if err != nil {
		t.Fatalf("SetMembers: %v", err)
	}
	if len(members) != 1 || members[0] != "123" {
		t.Fatalf("user index = %v", members)
	}

	if err := c.DeleteMember(context.Background(), 123, 7); err != nil {
		t.Fatalf("DeleteMember: %v", err)
	}
	members, err = d.conn(IndexMember).SetMembers(context.Background(), keys.UserIndex(7))
	if err != nil {
		t.Fatalf("SetMembers after delete: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("user index not cleaned: %v", members)
	}
}

func TestMemberNestedView(t *testing.T) {
	c, _, _ := newTestClient(t)

	for _, m := range []types.Member{
		{GuildID: 123, UserID: 7},
		{GuildID: 123, UserID: 8},
		{GuildID: 456, UserID: 7},
	} {
		if err := c.SetMember(context.Background(), m); err != nil {
			t.Fatalf("SetMember: %v", err)
		}
	}

	nested, err := c.MemberView(context.Background())
	if err != nil {
		t.Fatalf("MemberView: %v", err)
	}
	got := make(map[types.Snowflake]map[types.Snowflake]types.Member)
	for nested.Next(context.Background()) {
		inner, err := nested.Value().Collect(context.Background())
		if err != nil {
			t.Fatalf("inner collect: %v", err)
		}
		got[nested.Key()] = inner
	}
	if err := nested.Err(); err != nil {
		t.Fatalf("nested err: %v", err)
	}

	if len(got) != 2 || len(got[123]) != 2 || len(got[456]) != 1 {
		t.Fatalf("grouping = %#v", got)
	}
}

func TestGuildAvailableReplacesMemberScope(t *testing.T) {
	c, d, app := newTestClient(t)

	dispatchWait(app, dispatch.GuildVisibility{
		Kind:    dispatch.EventGuildAvailable,
		Guild:   types.Guild{ID: 123},
		Members: []types.Member{{GuildID: 123, UserID: 7}, {GuildID: 123, UserID: 8}},
	})
	dispatchWait(app, dispatch.GuildVisibility{
		Kind:    dispatch.EventGuildAvailable,
		Guild:   types.Guild{ID: 123},
		Members: []types.Member{{GuildID: 123, UserID: 8}},
	})

	if _, err := c.GetMember(context.Background(), 123, 7); !IsNotFound(err) {
		t.Fatalf("stale member survived: %v", err)
	}
	if _, err := c.GetMember(context.Background(), 123, 8); err != nil {
		t.Fatalf("kept member: %v", err)
	}

	// The dropped member's user index entry is cleaned up too.
	members, err := d.conn(IndexMember).SetMembers(context.Background(), keys.UserIndex(7))
	if err != nil {
		t.Fatalf("SetMembers: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("user index = %v", members)
	}
}
