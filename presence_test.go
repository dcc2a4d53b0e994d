package redistate

import (
	"context"
	"testing"

	"github.com/unkn0wn-root/redistate/dispatch"
	"github.com/unkn0wn-root/redistate/types"
)

func TestPresenceUpdateFlow(t *testing.T) {
	c, _, app := newTestClient(t)

	dispatchWait(app, dispatch.PresenceUpdate{Presence: types.Presence{
		GuildID: 123,
		UserID:  7,
		Status:  "online",
		Activities: []types.Activity{
			{Name: "tunes", Type: 2},
		},
	}})

	p, err := c.GetPresence(context.Background(), 123, 7)
	if err != nil {
		t.Fatalf("GetPresence: %v", err)
	}
	if p.Status != "online" || len(p.Activities) != 1 || p.Activities[0].Name != "tunes" {
		t.Fatalf("presence = %#v", p)
	}

	// A later update overwrites the record in place.
	dispatchWait(app, dispatch.PresenceUpdate{Presence: types.Presence{
		GuildID: 123,
		UserID:  7,
		Status:  "idle",
	}})
	p, err = c.GetPresence(context.Background(), 123, 7)
	if err != nil {
		t.Fatalf("GetPresence after update: %v", err)
	}
	if p.Status != "idle" || len(p.Activities) != 0 {
		t.Fatalf("presence = %#v", p)
	}
}

func TestPresenceGuildLeaveClearsScope(t *testing.T) {
	c, _, app := newTestClient(t)

	for _, p := range []types.Presence{
		{GuildID: 123, UserID: 7, Status: "online"},
		{GuildID: 456, UserID: 7, Status: "dnd"},
	} {
		if err := c.SetPresence(context.Background(), p); err != nil {
			t.Fatalf("SetPresence: %v", err)
		}
	}

	dispatchWait(app, dispatch.GuildLeave{GuildID: 123})

	if _, err := c.GetPresence(context.Background(), 123, 7); !IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
	if _, err := c.GetPresence(context.Background(), 456, 7); err != nil {
		t.Fatalf("sibling guild presence lost: %v", err)
	}

	view, err := c.PresenceViewForUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	got, err := view.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(got) != 1 || got[456].Status != "dnd" {
		t.Fatalf("per-user view = %#v", got)
	}
}
