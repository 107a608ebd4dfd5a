package registry

import (
	"testing"
)

func TestBaseRegistry_RegisterAndGet(t *testing.T) {
	r := NewBaseRegistry[string]()

	if err := r.Register("a", "alpha"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, ok := r.Get("a")
	if !ok {
		t.Fatal("expected item to exist")
	}
	if got != "alpha" {
		t.Errorf("expected 'alpha', got %q", got)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing item to not exist")
	}
}

func TestBaseRegistry_RejectsEmptyName(t *testing.T) {
	r := NewBaseRegistry[int]()
	if err := r.Register("", 1); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestBaseRegistry_RejectsDuplicate(t *testing.T) {
	r := NewBaseRegistry[int]()
	if err := r.Register("x", 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("x", 2); err == nil {
		t.Error("expected error for duplicate name")
	}

	got, _ := r.Get("x")
	if got != 1 {
		t.Errorf("duplicate Register should not overwrite, got %d", got)
	}
}

func TestBaseRegistry_PreservesRegistrationOrder(t *testing.T) {
	r := NewBaseRegistry[int]()
	for i, name := range []string{"charlie", "alpha", "bravo"} {
		if err := r.Register(name, i); err != nil {
			t.Fatalf("Register(%q) failed: %v", name, err)
		}
	}

	names := r.Names()
	want := []string{"charlie", "alpha", "bravo"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	items := r.List()
	for i, item := range items {
		if item != i {
			t.Errorf("items[%d] = %d, want %d", i, item, i)
		}
	}
}

func TestBaseRegistry_Remove(t *testing.T) {
	r := NewBaseRegistry[string]()
	_ = r.Register("a", "alpha")
	_ = r.Register("b", "bravo")
	_ = r.Register("c", "charlie")

	if err := r.Remove("b"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := r.Get("b"); ok {
		t.Error("removed item should not exist")
	}
	if r.Count() != 2 {
		t.Errorf("expected count 2, got %d", r.Count())
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Errorf("unexpected names after remove: %v", names)
	}

	if err := r.Remove("missing"); err == nil {
		t.Error("expected error removing unknown item")
	}
}

func TestBaseRegistry_Count(t *testing.T) {
	r := NewBaseRegistry[int]()
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got count %d", r.Count())
	}
	_ = r.Register("one", 1)
	_ = r.Register("two", 2)
	if r.Count() != 2 {
		t.Errorf("expected count 2, got %d", r.Count())
	}
}
