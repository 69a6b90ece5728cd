package idgen

import (
	"strings"
	"testing"
)

func TestNanoID_LengthAndAlphabet(t *testing.T) {
	gen := NanoID(8)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen()
		if len(id) != 8 {
			t.Fatalf("length: got %d, want 8", len(id))
		}
		for _, r := range id {
			if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
				t.Fatalf("id %q contains %q outside the alphabet", id, r)
			}
		}
		seen[id] = true
	}
	if len(seen) < 99 {
		t.Fatalf("uniqueness: only %d distinct ids in 100", len(seen))
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	a, b := gen(), gen()
	if a == b {
		t.Fatal("two UUIDv7 ids are equal")
	}
	if a > b {
		t.Errorf("UUIDv7 not time-ordered: %q > %q", a, b)
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("tab_", NanoID(6))
	id := gen()
	if !strings.HasPrefix(id, "tab_") {
		t.Fatalf("id %q missing prefix", id)
	}
	if len(id) != len("tab_")+6 {
		t.Fatalf("length: got %d", len(id))
	}
}
