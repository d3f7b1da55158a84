package lift

import "strings"

// ---------------------------------------------------------------------------
// Continuation Worklist Machine. Flattens a literal tree into a linear
// emission order using an explicit FIFO queue of pending work items in
// place of call-stack recursion. Every dequeue is one counted step;
// the step counter is bounded by a hard ceiling, which converts
// malformed or absurdly deep input into a deterministic, reportable
// failure instead of unbounded work.
// ---------------------------------------------------------------------------

// DefaultMaxSteps is the step ceiling used when Options.MaxSteps is
// zero. Generous for legitimate input (see StepBound) but still hard.
const DefaultMaxSteps = 1 << 16

// opcode tags a continuation with the processing step to perform next.
type opcode uint8

const (
	opScan   opcode = iota // consume the next element of the carried tree
	opFinish               // finalize a scope's accumulator as a hoisted definition
	opHalt                 // sentinel: success when the rest of the queue is empty
)

// scopeState is the shared mutable state of one scope being flattened:
// its accumulator, its naming context, and how many nested literals it
// is still waiting on. A scope's definition is never finalized before
// every literal nested inside it has been finalized, which is what
// makes the emitted order a valid lambda-lifting order.
type scopeState struct {
	name      string           // allocated name; the root name for the root scope
	lit       *FunctionLiteral // nil for the root scope
	litLayout *ClosureLayout   // environment layout when lit is a closure
	parent    *scopeState
	path      []string // naming path from the root, for diagnostics
	acc       strings.Builder
	children  int // nested literals not yet finalized
}

// continuation is a unit of pending work: an operation tag, the scope
// it operates on, the unconsumed remainder of that scope's tree, and
// optionally a finished output fragment appended to the accumulator
// before the step runs. Consumed exactly once.
type continuation struct {
	op      opcode
	scope   *scopeState
	rest    []Element
	pending string
}

// HoistedDef is one finished global definition produced by the machine.
type HoistedDef struct {
	Name       string
	ReturnType string
	Params     []Param
	Variadic   bool
	Captures   []Param        // nil for plain function literals
	Layout     *ClosureLayout // nil for plain function literals
	Body       string         // flattened body text
	Path       []string       // naming path, root first
}

// IsClosure reports whether the definition carries an environment.
func (d *HoistedDef) IsClosure() bool { return d.Layout != nil }

// Result is the machine's output for one scope.
type Result struct {
	Root string

	// Buffer is the EmissionBuffer: hoisted definitions in reverse
	// emission order (each finished definition was prepended). The
	// Emitter reverses it once to produce final textual order.
	Buffer []HoistedDef

	// RootBody is the rewritten scope body, with every literal
	// occurrence replaced by its reference expression.
	RootBody string

	Steps int // steps the machine consumed
}

// Machine runs the iterative flattening. Single-threaded and
// deterministic: strictly FIFO by enqueue time, so identical input
// yields byte-identical output.
type Machine struct {
	target   Target
	alloc    *Allocator
	maxSteps int

	queue  []continuation
	buffer []HoistedDef
	steps  int
}

// NewMachine creates a machine drawing names from alloc.
func NewMachine(target Target, alloc *Allocator, maxSteps int) *Machine {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Machine{target: target, alloc: alloc, maxSteps: maxSteps}
}

// Run flattens the tree rooted at the named scope. On failure no
// partial output is returned.
func (m *Machine) Run(root string, tree *LiteralTree) (*Result, error) {
	m.queue = m.queue[:0]
	m.buffer = nil
	m.steps = 0

	rootScope := &scopeState{name: root}
	m.enqueue(continuation{op: opScan, scope: rootScope, rest: tree.Elements})
	m.enqueue(continuation{op: opHalt})

	for len(m.queue) > 0 {
		m.steps++
		if m.steps > m.maxSteps {
			return nil, &BudgetExceededError{
				Root:     root,
				MaxSteps: m.maxSteps,
				Pending:  len(m.queue),
			}
		}

		c := m.queue[0]
		m.queue = m.queue[1:]

		switch c.op {
		case opHalt:
			if len(m.queue) == 0 {
				return &Result{
					Root:     root,
					Buffer:   m.buffer,
					RootBody: rootScope.acc.String(),
					Steps:    m.steps,
				}, nil
			}
			// Work remains; the sentinel cycles back to the tail.
			m.enqueue(c)

		case opScan:
			if err := m.stepScan(root, c); err != nil {
				return nil, err
			}

		case opFinish:
			m.stepFinish(c.scope)
		}
	}

	// Unreachable: the halt sentinel stays queued until success.
	return nil, &BudgetExceededError{Root: root, MaxSteps: m.maxSteps}
}

func (m *Machine) enqueue(c continuation) {
	m.queue = append(m.queue, c)
}

// stepScan consumes the next element of the carried tree.
func (m *Machine) stepScan(root string, c continuation) error {
	scope := c.scope
	scope.acc.WriteString(c.pending)

	if len(c.rest) == 0 {
		m.enqueue(continuation{op: opFinish, scope: scope})
		return nil
	}

	switch el := c.rest[0].(type) {
	case CodeSegment:
		// Carry the segment as the pending fragment of the re-enqueued
		// scan; it is appended verbatim when that continuation runs.
		m.enqueue(continuation{op: opScan, scope: scope, rest: c.rest[1:], pending: el.Text})

	case *FunctionLiteral:
		name := m.alloc.Next(scope.name)
		child := &scopeState{
			name:   name,
			lit:    el,
			parent: scope,
			path:   append(append([]string(nil), scope.path...), name),
		}

		if el.IsClosure() {
			envName := EnvTypeName(name)
			layout := BuildLayout(m.target, envName, el.Captures)
			if want := SizeOf(m.target, el.Params, el.Captures); want != layout.Size {
				return &LayoutMismatchError{
					Root:     root,
					Name:     name,
					Path:     child.path,
					Expected: want,
					Actual:   layout.Size,
				}
			}
			child.litLayout = layout
			scope.acc.WriteString(closureRef(envName, name, el.Captures))
		} else {
			scope.acc.WriteString(name)
		}

		scope.children++
		// The literal's own body is flattened by a fresh continuation
		// at the tail, rooted at the newly allocated name; the
		// remainder of the current tree follows it.
		m.enqueue(continuation{op: opScan, scope: child, rest: el.Body.Elements})
		m.enqueue(continuation{op: opScan, scope: scope, rest: c.rest[1:]})
	}
	return nil
}

// stepFinish finalizes a scope whose tree is exhausted. A scope still
// waiting on nested literals re-enqueues its Finish at the tail; the
// queued work for those literals is ahead of it, so the wait always
// makes progress and the root's definition lands after everything it
// depends on.
func (m *Machine) stepFinish(scope *scopeState) {
	if scope.children > 0 {
		m.enqueue(continuation{op: opFinish, scope: scope})
		return
	}
	if scope.parent != nil {
		scope.parent.children--
	}
	if scope.lit == nil {
		// Root scope: its accumulator is the rewritten body, recorded
		// on the scope itself and returned separately by Run.
		return
	}
	def := HoistedDef{
		Name:       scope.name,
		ReturnType: scope.lit.ReturnType,
		Params:     scope.lit.Params,
		Variadic:   scope.lit.Variadic,
		Captures:   scope.lit.Captures,
		Layout:     scope.litLayout,
		Body:       scope.acc.String(),
		Path:       scope.path,
	}
	// Prepend: the buffer is kept in reverse emission order.
	m.buffer = append([]HoistedDef{def}, m.buffer...)
}

// closureRef renders the construction expression left at a closure
// literal's original position: the environment compound literal with
// the lifted function in the first slot and the captured values, by
// value, in declaration order.
func closureRef(envName, fnName string, captures []Param) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(envName)
	b.WriteString("){ ")
	b.WriteString(fnName)
	for _, c := range captures {
		b.WriteString(", ")
		b.WriteString(c.Name)
	}
	b.WriteString(" }")
	return b.String()
}

// StepBound is the documented relationship between input shape and the
// machine's worst-case step count: for a tree with the given total
// element and literal counts, Run halts within this many steps. Inputs
// within the bound never see BudgetExceeded; the default ceiling covers
// any input where StepBound(elements, literals) <= DefaultMaxSteps.
func StepBound(elements, literals int) int {
	// Productive steps: one scan per element, one exhausted scan and
	// one finish per scope. Finish waits and halt cycles each consume
	// at most one step per round, and every round retires at least one
	// productive step.
	productive := elements + 2*(literals+1)
	return productive * (literals + 3)
}
