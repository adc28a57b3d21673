package immutable

import (
	"fmt"
	"testing"
)

func TestMapSetGet(t *testing.T) {
	var m Map[string, int]
	m = m.Set("a", 1).Set("b", 2).Set("c", 3)

	if m.Len() != 3 {
		t.Fatalf("expected length 3, got %d", m.Len())
	}
	for k, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		got, ok := m.Get(k)
		if !ok || got != want {
			t.Fatalf("key %s: expected %d, got %d (present=%v)", k, want, got, ok)
		}
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatal("expected missing key to be absent")
	}
}

func TestMapSetLeavesOriginalUnchanged(t *testing.T) {
	base := NewMap[string, int]().Set("k", 1)
	updated := base.Set("k", 2).Set("other", 3)

	if v, _ := base.Get("k"); v != 1 {
		t.Fatalf("original mutated: expected 1, got %d", v)
	}
	if _, ok := base.Get("other"); ok {
		t.Fatal("original gained a key")
	}
	if v, _ := updated.Get("k"); v != 2 {
		t.Fatalf("expected updated value 2, got %d", v)
	}
	if base.Len() != 1 || updated.Len() != 2 {
		t.Fatalf("unexpected lengths: base=%d updated=%d", base.Len(), updated.Len())
	}
}

func TestMapOverwriteKeepsLength(t *testing.T) {
	m := NewMap[int, string]().Set(1, "a").Set(1, "b")
	if m.Len() != 1 {
		t.Fatalf("expected length 1 after overwrite, got %d", m.Len())
	}
	if v, _ := m.Get(1); v != "b" {
		t.Fatalf("expected b, got %s", v)
	}
}

func TestMapManyKeys(t *testing.T) {
	// Enough keys to force several trie levels and slot splits.
	const n = 10000
	var m Map[string, int]
	for i := 0; i < n; i++ {
		m = m.Set(fmt.Sprintf("key-%d", i), i)
	}
	if m.Len() != n {
		t.Fatalf("expected %d entries, got %d", n, m.Len())
	}
	for i := 0; i < n; i += 97 {
		v, ok := m.Get(fmt.Sprintf("key-%d", i))
		if !ok || v != i {
			t.Fatalf("key-%d: expected %d, got %d (present=%v)", i, i, v, ok)
		}
	}
}

func TestMapDelete(t *testing.T) {
	const n = 2000
	var m Map[int, int]
	for i := 0; i < n; i++ {
		m = m.Set(i, i*2)
	}

	reduced := m
	for i := 0; i < n; i += 2 {
		reduced = reduced.Delete(i)
	}

	if m.Len() != n {
		t.Fatal("original mutated by Delete")
	}
	if reduced.Len() != n/2 {
		t.Fatalf("expected %d entries after deletes, got %d", n/2, reduced.Len())
	}
	for i := 0; i < n; i++ {
		_, ok := reduced.Get(i)
		if i%2 == 0 && ok {
			t.Fatalf("key %d should be deleted", i)
		}
		if i%2 == 1 && !ok {
			t.Fatalf("key %d should survive", i)
		}
	}
}

func TestMapDeleteMissingReturnsSameMap(t *testing.T) {
	m := NewMap[string, int]().Set("a", 1)
	same := m.Delete("missing")
	if same.Len() != 1 {
		t.Fatalf("expected unchanged map, got length %d", same.Len())
	}
	var empty Map[string, int]
	if got := empty.Delete("x"); got.Len() != 0 {
		t.Fatal("delete on empty map should be a no-op")
	}
}

func TestMapRange(t *testing.T) {
	var m Map[int, int]
	for i := 0; i < 100; i++ {
		m = m.Set(i, i)
	}

	seen := make(map[int]bool)
	m.Range(func(k, v int) bool {
		if k != v {
			t.Fatalf("key %d carries value %d", k, v)
		}
		seen[k] = true
		return true
	})
	if len(seen) != 100 {
		t.Fatalf("expected 100 distinct keys, got %d", len(seen))
	}

	visits := 0
	m.Range(func(k, v int) bool {
		visits++
		return visits < 5
	})
	if visits != 5 {
		t.Fatalf("expected range to stop after 5 visits, got %d", visits)
	}
}
