package keys

import "testing"

func TestKeyShapes(t *testing.T) {
	cases := []struct {
		got  string
		want string
	}{
		{Primary(123), "e:123"},
		{PrimaryString("abc"), "e:abc"},
		{PrimaryPair(123, 7), "e:123:7"},
		{PrimaryPattern(), "e:*"},
		{GuildIndex(123), "ix:g:123"},
		{ChannelIndex(41), "ix:c:41"},
		{UserIndex(7), "ix:u:7"},
		{GuildIndexPattern(), "ix:g:*"},
		{Pair(123, 7), "123:7"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("got %q, want %q", tc.got, tc.want)
		}
	}
}

func TestSplitPair(t *testing.T) {
	scope, id, err := SplitPair("123:7")
	if err != nil {
		t.Fatalf("SplitPair: %v", err)
	}
	if scope != 123 || id != 7 {
		t.Fatalf("got (%d, %d)", scope, id)
	}

	for _, raw := range []string{"", "123", ":7", "123:", "a:b"} {
		if _, _, err := SplitPair(raw); err == nil {
			t.Fatalf("SplitPair(%q) should fail", raw)
		}
	}
}

func TestTrims(t *testing.T) {
	if id, ok := TrimPrimary("e:123"); !ok || id != "123" {
		t.Fatalf("TrimPrimary = %q, %t", id, ok)
	}
	if _, ok := TrimPrimary("ix:g:123"); ok {
		t.Fatalf("TrimPrimary accepted an index key")
	}
	if id, ok := TrimGuildIndex("ix:g:123"); !ok || id != "123" {
		t.Fatalf("TrimGuildIndex = %q, %t", id, ok)
	}
	if _, ok := TrimGuildIndex("ix:u:7"); ok {
		t.Fatalf("TrimGuildIndex accepted a user index key")
	}
}
