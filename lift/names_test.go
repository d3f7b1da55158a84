package lift

import (
	"errors"
	"testing"
)

func TestAllocatorSequence(t *testing.T) {
	a := NewAllocator()

	if got := a.Next("Demo"); got != "Demo_fn1" {
		t.Errorf("first = %q, want Demo_fn1", got)
	}
	if got := a.Next("Demo"); got != "Demo_fn2" {
		t.Errorf("second = %q, want Demo_fn2", got)
	}

	// Nested context counts independently.
	if got := a.Next("Demo_fn1"); got != "Demo_fn1_fn1" {
		t.Errorf("nested = %q, want Demo_fn1_fn1", got)
	}
	if got := a.Next("Demo"); got != "Demo_fn3" {
		t.Errorf("third = %q, want Demo_fn3", got)
	}
}

func TestAllocatorDeterminism(t *testing.T) {
	run := func() []string {
		a := NewAllocator()
		var names []string
		for i := 0; i < 5; i++ {
			names = append(names, a.Next("App"))
		}
		names = append(names, a.Next("App_fn2"))
		return names
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("name[%d]: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestAllocatorNeverReuses(t *testing.T) {
	a := NewAllocator()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := a.Next("Demo")
		if seen[n] {
			t.Fatalf("name %q allocated twice", n)
		}
		seen[n] = true
	}
}

func TestClaimRootDuplicate(t *testing.T) {
	a := NewAllocator()
	if err := a.ClaimRoot("App"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := a.ClaimRoot("Other"); err != nil {
		t.Fatalf("distinct claim: %v", err)
	}

	err := a.ClaimRoot("App")
	var dup *DuplicateRootError
	if !errors.As(err, &dup) {
		t.Fatalf("second claim err = %v, want DuplicateRootError", err)
	}
	if dup.Root != "App" {
		t.Errorf("duplicate root = %q, want App", dup.Root)
	}
}

func TestEnvTypeName(t *testing.T) {
	if got := EnvTypeName("Demo_fn1"); got != "Demo_fn1_env" {
		t.Errorf("EnvTypeName = %q", got)
	}
}
