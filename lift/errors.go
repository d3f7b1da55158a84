package lift

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Error taxonomy. None of these are recovered internally: each aborts
// the transformation of the enclosing scope, and no partial output is
// emitted for a scope that failed.
// ---------------------------------------------------------------------------

var errNeedTypeAndName = errors.New("expected a type followed by a name")

// MalformedLiteralError reports a literal boundary that cannot be
// matched: unterminated nesting, a bad header, or the disallowed
// parenthesis wrapping. Detected before the worklist machine runs.
type MalformedLiteralError struct {
	Root string   // namespace root of the failing scope
	Pos  Pos      // where the offending literal begins
	Path []string // nesting path of open literals
	Msg  string
}

func (e *MalformedLiteralError) Error() string {
	loc := fmt.Sprintf("%s:%d:%d", e.Root, e.Pos.Line, e.Pos.Column)
	if len(e.Path) > 0 {
		loc += " (" + strings.Join(e.Path, " > ") + ")"
	}
	return fmt.Sprintf("malformed literal at %s: %s", loc, e.Msg)
}

// BudgetExceededError reports that the worklist machine's step counter
// reached its ceiling with work still queued. Retrying with the same
// input is deterministic and would fail identically; the only remedy is
// restructuring the input or raising the configured ceiling.
type BudgetExceededError struct {
	Root     string
	MaxSteps int
	Pending  int // continuations still queued when the budget ran out
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("step budget exceeded lifting %s: %d steps consumed, %d continuations still queued",
		e.Root, e.MaxSteps, e.Pending)
}

// DuplicateRootError reports two top-level scopes requesting the same
// namespace root. Reported at the point of the second claim.
type DuplicateRootError struct {
	Root string
}

func (e *DuplicateRootError) Error() string {
	return fmt.Sprintf("duplicate namespace root %q", e.Root)
}

// LayoutMismatchError reports disagreement between the independent
// sizing query and the layout actually built for a closure signature.
// This is a correctness violation, not user-recoverable: acting on the
// wrong size would corrupt caller-supplied storage.
type LayoutMismatchError struct {
	Root     string
	Name     string // generated name of the closure
	Path     []string
	Expected int // SizeOf result
	Actual   int // built layout size
}

func (e *LayoutMismatchError) Error() string {
	return fmt.Sprintf("closure layout mismatch for %s in %s: sizing query computed %d bytes, built layout is %d bytes",
		e.Name, e.Root, e.Expected, e.Actual)
}
