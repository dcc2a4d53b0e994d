package redis

import "testing"

func TestFlatten(t *testing.T) {
	out := flatten(map[string]string{"a": "1", "b": "2"})
	if len(out) != 4 {
		t.Fatalf("len = %d", len(out))
	}
	got := make(map[any]any, 2)
	for i := 0; i < len(out); i += 2 {
		got[out[i]] = out[i+1]
	}
	if got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("pairs = %v", got)
	}
}

func TestToAny(t *testing.T) {
	out := toAny([]string{"x", "y"})
	if len(out) != 2 || out[0] != "x" || out[1] != "y" {
		t.Fatalf("out = %v", out)
	}
}
