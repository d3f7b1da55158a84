package lift

import "strconv"

// ---------------------------------------------------------------------------
// Naming Allocator: globally-unique identifiers for lifted functions
// and their closure environment types, rooted at the enclosing
// namespace's name.
// ---------------------------------------------------------------------------

// Allocator hands out deterministic, collision-free names. Counters are
// scoped per naming context: the same context always yields names in
// the same sequence across a run, so output is reproducible. Ids are
// never reused, even for literals that end up elided.
type Allocator struct {
	counters map[string]int
	roots    map[string]bool
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{
		counters: make(map[string]int),
		roots:    make(map[string]bool),
	}
}

// ClaimRoot registers a top-level namespace root. A second claim of the
// same root fails with DuplicateRootError.
func (a *Allocator) ClaimRoot(root string) error {
	if a.roots[root] {
		return &DuplicateRootError{Root: root}
	}
	a.roots[root] = true
	return nil
}

// Next allocates the next function name under the given naming context.
// Context "Demo" yields Demo_fn1, Demo_fn2, ...; a literal nested inside
// Demo_fn1 allocates under context Demo_fn1, yielding Demo_fn1_fn1.
func (a *Allocator) Next(ctx string) string {
	a.counters[ctx]++
	return ctx + "_fn" + strconv.Itoa(a.counters[ctx])
}

// EnvTypeName returns the environment struct type name for a lifted
// closure. Distinct per closure literal since fn names are unique.
func EnvTypeName(fn string) string {
	return fn + "_env"
}
