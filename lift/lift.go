package lift

// Scope is one top-level unit of transformation: a namespace root name
// and the body to flatten.
type Scope struct {
	Root string
	Body string
}

// Options configures a transformation run.
type Options struct {
	// Target is the machine model used for closure layouts. The zero
	// value selects DefaultTarget.
	Target Target

	// MaxSteps is the worklist machine's hard step ceiling. Zero
	// selects DefaultMaxSteps.
	MaxSteps int

	// Alloc, when non-nil, is shared across scopes so that root
	// uniqueness is enforced for a whole run. When nil a fresh
	// allocator is used for the single scope.
	Alloc *Allocator
}

func (o Options) target() Target {
	if o.Target.PointerSize == 0 {
		return DefaultTarget()
	}
	return o.Target
}

// Transform lifts every function literal in the scope body into a flat
// definition sequence. The whole pass is deterministic and
// single-threaded; on any failure no partial output is returned.
func Transform(scope Scope, opts Options) (*Result, error) {
	alloc := opts.Alloc
	if alloc == nil {
		alloc = NewAllocator()
	}
	if err := alloc.ClaimRoot(scope.Root); err != nil {
		return nil, err
	}

	tree, err := ParseTree(scope.Root, scope.Body)
	if err != nil {
		return nil, err
	}

	m := NewMachine(opts.target(), alloc, opts.MaxSteps)
	return m.Run(scope.Root, tree)
}
