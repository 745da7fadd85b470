package utils

import (
	"encoding/json"
	"testing"
)

func TestOrderedKVMapSplit(t *testing.T) {
	om := OrderedKVMap[string]{}
	om.Set("github", "alice", 2)
	om.Set("x", "@alice", 0)
	om.Set("farcaster", "alice.eth", 1)
	om.Set("x", "@bob", 5)

	keys, values := om.Split()
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %v", keys)
	}
	want := []string{"x", "farcaster", "github"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("expected keys %v, got %v", want, keys)
		}
	}
	if values[0] != "@bob" {
		t.Fatalf("expected overwritten value to keep its slot, got %v", values)
	}
}

func TestOrderedKVMapMarshalJSON(t *testing.T) {
	om := OrderedKVMap[int]{
		"b": {Value: 2, Order: 1},
		"a": {Value: 1, Order: 2},
	}

	b, err := json.Marshal(om)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != `{"b":2,"a":1}` {
		t.Fatalf("unexpected json %s", b)
	}
}
