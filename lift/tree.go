// Package lift implements lambda lifting and closure conversion for
// C-flavored source scopes. Nested function literals are rewritten into
// flat, globally-visible definitions emitted ahead of the code that
// references them, with a compact handle (a function reference or a
// closure-struct construction expression) left at each literal's
// original position.
package lift

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Literal Tree Model: a scope body as an alternating sequence of opaque
// code segments and function-literal nodes, recursively nested.
// ---------------------------------------------------------------------------

// Pos is a source location within the scope body being scanned.
type Pos struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Element is either a CodeSegment or a *FunctionLiteral.
type Element interface {
	element() // marker method
}

// CodeSegment is an opaque run of source text. The engine never
// interprets it; it is copied verbatim into the output.
type CodeSegment struct {
	Text string
	Pos  Pos
}

func (CodeSegment) element() {}

// Param is one (type, name) pair in a parameter or capture list.
type Param struct {
	Type string
	Name string
}

// FunctionLiteral is a nested function or closure literal. A literal
// with a non-nil Captures list is a closure literal; captures are
// copied by value into the environment struct at the creation point.
type FunctionLiteral struct {
	ReturnType string
	Params     []Param
	Variadic   bool
	Captures   []Param // nil for plain function literals
	Body       *LiteralTree
	Pos        Pos
}

func (*FunctionLiteral) element() {}

// IsClosure reports whether the literal captures enclosing variables.
func (l *FunctionLiteral) IsClosure() bool { return l.Captures != nil }

// LiteralTree is one lexical scope's body: an ordered sequence of code
// segments and function literals. Relative order of elements is
// preserved exactly across the whole transformation.
type LiteralTree struct {
	Elements []Element
}

// CountElements returns the total element count of the tree including
// all nested bodies, walked iteratively.
func (t *LiteralTree) CountElements() (elements, literals int) {
	stack := []*LiteralTree{t}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, el := range cur.Elements {
			elements++
			if lit, ok := el.(*FunctionLiteral); ok {
				literals++
				stack = append(stack, lit.Body)
			}
		}
	}
	return
}

// Literal markers recognized by the scanner.
const (
	markerFn = "_fn"
	markerCl = "_cl"
)

// scanner walks the scope body rune by rune, tracking position and
// skipping string/char literals and comments so that markers and
// brackets inside them stay opaque.
type scanner struct {
	src  string
	pos  int
	line int
	col  int
}

func newScanner(src string) *scanner {
	return &scanner{src: src, line: 1, col: 1}
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekAt(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) position() Pos {
	return Pos{Offset: s.pos, Line: s.line, Column: s.col}
}

// advance consumes one byte, maintaining line/column.
func (s *scanner) advance() {
	if s.eof() {
		return
	}
	if s.src[s.pos] == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.pos++
}

// skipOpaque consumes a string literal, character literal, or comment
// starting at the current position, if any. Returns true if something
// was consumed. Unterminated forms run to EOF; the tree parser then
// reports the enclosing literal as unterminated.
func (s *scanner) skipOpaque() bool {
	switch s.peek() {
	case '"', '\'':
		quote := s.peek()
		s.advance()
		for !s.eof() {
			c := s.peek()
			if c == '\\' {
				s.advance()
				s.advance()
				continue
			}
			s.advance()
			if c == quote {
				break
			}
		}
		return true
	case '/':
		switch s.peekAt(1) {
		case '/':
			for !s.eof() && s.peek() != '\n' {
				s.advance()
			}
			return true
		case '*':
			s.advance()
			s.advance()
			for !s.eof() {
				if s.peek() == '*' && s.peekAt(1) == '/' {
					s.advance()
					s.advance()
					return true
				}
				s.advance()
			}
			return true
		}
	}
	return false
}

// atMarker reports which literal marker starts at the current position,
// checking word boundaries on both sides. Empty string means none.
func (s *scanner) atMarker() string {
	for _, m := range []string{markerCl, markerFn} {
		if !strings.HasPrefix(s.src[s.pos:], m) {
			continue
		}
		// Preceding rune must not be part of an identifier.
		if s.pos > 0 {
			r, _ := utf8.DecodeLastRuneInString(s.src[:s.pos])
			if isIdentRune(r) {
				continue
			}
		}
		// The marker must be followed by '(' (whitespace allowed).
		rest := s.src[s.pos+len(m):]
		trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
		if strings.HasPrefix(trimmed, "(") {
			return m
		}
	}
	return ""
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// frame is one level of the explicit parse stack: the tree being built,
// the literal whose body it is (nil at the root), and bookkeeping for
// the current pending code segment.
type frame struct {
	tree       *LiteralTree
	lit        *FunctionLiteral
	segStart   int
	segPos     Pos
	braceDepth int // brace nesting inside the current body
	openParens int // unmatched '(' since the last statement boundary
}

// ParseTree segments a scope body into a LiteralTree. The scan is
// iterative: nesting is tracked by depth counters and an explicit frame
// stack, never by recursion. Returns MalformedLiteralError for
// unterminated literals, malformed headers, and literal occurrences
// wrapped in parentheses.
func ParseTree(root string, src string) (*LiteralTree, error) {
	s := newScanner(src)
	frames := []*frame{{tree: &LiteralTree{}, segStart: 0, segPos: s.position()}}

	flushSegment := func(f *frame, end int) {
		if end > f.segStart {
			f.tree.Elements = append(f.tree.Elements, CodeSegment{
				Text: s.src[f.segStart:end],
				Pos:  f.segPos,
			})
		}
	}

	for !s.eof() {
		f := frames[len(frames)-1]

		if s.skipOpaque() {
			continue
		}

		if m := s.atMarker(); m != "" {
			markerPos := s.position()
			if f.openParens > 0 {
				return nil, &MalformedLiteralError{
					Root: root,
					Pos:  markerPos,
					Path: framePath(frames),
					Msg:  "function literal may not appear inside parentheses; bind it to a name first or use a call-forwarding form",
				}
			}
			flushSegment(f, s.pos)

			lit, err := parseLiteralHeader(root, s, m, framePath(frames))
			if err != nil {
				return nil, err
			}
			f.tree.Elements = append(f.tree.Elements, lit)

			// The body opens here; everything up to its matching '}'
			// belongs to the new frame.
			frames = append(frames, &frame{
				tree:     lit.Body,
				lit:      lit,
				segStart: s.pos,
				segPos:   s.position(),
			})
			continue
		}

		switch s.peek() {
		case '(':
			f.openParens++
		case ')':
			if f.openParens > 0 {
				f.openParens--
			}
		case ';':
			f.openParens = 0
		case '{':
			f.braceDepth++
			f.openParens = 0
		case '}':
			f.openParens = 0
			if f.braceDepth > 0 {
				f.braceDepth--
				break
			}
			if len(frames) == 1 {
				// Stray '}' at the root is the caller's code; opaque.
				break
			}
			// Closes the current literal body. The marker's closing
			// ')' must follow.
			flushSegment(f, s.pos)
			s.advance()
			skipSpace(s)
			if s.peek() != ')' {
				return nil, &MalformedLiteralError{
					Root: root,
					Pos:  f.lit.Pos,
					Path: framePath(frames),
					Msg:  "expected ')' closing literal marker after body",
				}
			}
			s.advance()
			frames = frames[:len(frames)-1]
			parent := frames[len(frames)-1]
			parent.segStart = s.pos
			parent.segPos = s.position()
			continue
		}
		s.advance()
	}

	if len(frames) > 1 {
		f := frames[len(frames)-1]
		return nil, &MalformedLiteralError{
			Root: root,
			Pos:  f.lit.Pos,
			Path: framePath(frames),
			Msg:  "unterminated function literal",
		}
	}
	flushSegment(frames[0], len(src))
	return frames[0].tree, nil
}

// framePath renders the nesting path of open literals for diagnostics,
// e.g. "root > literal@3:10 > literal@4:2".
func framePath(frames []*frame) []string {
	var path []string
	for _, f := range frames[1:] {
		path = append(path, litLabel(f.lit.Pos))
	}
	return path
}

func litLabel(p Pos) string {
	return "literal@" + strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// skipSpace consumes whitespace.
func skipSpace(s *scanner) {
	for !s.eof() {
		c := s.peek()
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return
		}
		s.advance()
	}
}

// parseLiteralHeader consumes a literal marker through the opening '{'
// of its body: marker name, '(', return type, parameter list, and (for
// closures) capture list. The scanner is left positioned just after the
// body's opening brace.
func parseLiteralHeader(root string, s *scanner, marker string, path []string) (*FunctionLiteral, error) {
	pos := s.position()
	fail := func(msg string) error {
		return &MalformedLiteralError{Root: root, Pos: pos, Path: path, Msg: msg}
	}

	// Consume marker name and '('.
	for i := 0; i < len(marker); i++ {
		s.advance()
	}
	skipSpace(s)
	if s.peek() != '(' {
		return nil, fail("expected '(' after literal marker")
	}
	s.advance()

	ret, ok := scanSection(s, ',')
	if !ok {
		return nil, fail("expected return type followed by ','")
	}
	ret = strings.TrimSpace(ret)
	if ret == "" {
		return nil, fail("empty return type")
	}
	if s.peek() != ',' {
		return nil, fail("expected ',' after return type")
	}
	s.advance()

	params, variadic, err := scanPairList(root, s, pos, path, "parameter")
	if err != nil {
		return nil, err
	}

	lit := &FunctionLiteral{
		ReturnType: ret,
		Params:     params,
		Variadic:   variadic,
		Body:       &LiteralTree{},
		Pos:        pos,
	}

	skipSpace(s)
	if s.peek() != ',' {
		return nil, fail("expected ',' after parameter list")
	}
	s.advance()
	skipSpace(s)

	if marker == markerCl {
		caps, capVariadic, err := scanPairList(root, s, pos, path, "capture")
		if err != nil {
			return nil, err
		}
		if capVariadic {
			return nil, fail("capture list may not be variadic")
		}
		if caps == nil {
			caps = []Param{}
		}
		lit.Captures = caps
		skipSpace(s)
		if s.peek() != ',' {
			return nil, fail("expected ',' after capture list")
		}
		s.advance()
		skipSpace(s)
	}

	if s.peek() != '{' {
		return nil, fail("expected '{' opening literal body")
	}
	s.advance()
	return lit, nil
}

// scanSection consumes text up to the next top-level occurrence of sep,
// tracking paren/brace/bracket depth and opaque regions. The separator
// is not consumed. Returns false at EOF.
func scanSection(s *scanner, sep byte) (string, bool) {
	start := s.pos
	depth := 0
	for !s.eof() {
		if s.skipOpaque() {
			continue
		}
		c := s.peek()
		if depth == 0 && c == sep {
			return s.src[start:s.pos], true
		}
		switch c {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			if depth == 0 {
				return s.src[start:s.pos], true
			}
			depth--
		}
		s.advance()
	}
	return "", false
}

// scanPairList parses a parenthesized comma-separated list of
// "type name" pairs, e.g. "(int x, char *p)". An entry of "..." marks
// a variadic parameter list; "(void)" and "()" are both empty.
func scanPairList(root string, s *scanner, litPos Pos, path []string, kind string) ([]Param, bool, error) {
	fail := func(msg string) error {
		return &MalformedLiteralError{Root: root, Pos: litPos, Path: path, Msg: msg}
	}
	skipSpace(s)
	if s.peek() != '(' {
		return nil, false, fail("expected '(' opening " + kind + " list")
	}
	s.advance()

	var params []Param
	variadic := false
	for {
		skipSpace(s)
		if s.peek() == ')' {
			s.advance()
			return params, variadic, nil
		}
		entry, ok := scanSection(s, ',')
		if !ok {
			return nil, false, fail("unterminated " + kind + " list")
		}
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "...":
			variadic = true
		case entry == "void" && len(params) == 0:
			// C-style empty list
		case entry == "":
			return nil, false, fail("empty entry in " + kind + " list")
		default:
			p, err := splitPair(entry)
			if err != nil {
				return nil, false, fail("malformed " + kind + " '" + entry + "': " + err.Error())
			}
			params = append(params, p)
		}
		skipSpace(s)
		if s.peek() == ',' {
			s.advance()
			continue
		}
	}
}

// splitPair splits "const char *name" into type "const char *" and
// name "name". The name is the trailing identifier; everything before
// it (including pointer stars) is the type.
func splitPair(entry string) (Param, error) {
	end := len(entry)
	start := end
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(entry[:start])
		if !isIdentRune(r) {
			break
		}
		start -= size
	}
	name := entry[start:end]
	typ := strings.TrimSpace(entry[:start])
	if name == "" || typ == "" {
		return Param{}, errNeedTypeAndName
	}
	if r, _ := utf8.DecodeRuneInString(name); unicode.IsDigit(r) {
		return Param{}, errNeedTypeAndName
	}
	return Param{Type: typ, Name: name}, nil
}
