package lift

import "strings"

// ---------------------------------------------------------------------------
// Closure Layout Builder: field layout of a closure's environment
// struct. The function-pointer slot is always first, so a pointer to
// the environment can be reinterpreted as a pointer to that slot,
// giving uniform call syntax across plain functions and closures.
// Callers rely on this only for the first field, never for interior
// fields. Captures follow in declaration order, by value.
// ---------------------------------------------------------------------------

// Target describes the machine model layouts are computed for.
type Target struct {
	PointerSize int            // bytes; also the function-pointer slot size
	MaxAlign    int            // maximum alignment any field is given
	Sizes       map[string]int // builtin type name -> size in bytes
}

// DefaultTarget is a conventional LP64 model.
func DefaultTarget() Target {
	return Target{
		PointerSize: 8,
		MaxAlign:    8,
		Sizes: map[string]int{
			"char":               1,
			"signed char":        1,
			"unsigned char":      1,
			"_Bool":              1,
			"short":              2,
			"unsigned short":     2,
			"int":                4,
			"unsigned":           4,
			"unsigned int":       4,
			"long":               8,
			"unsigned long":      8,
			"long long":          8,
			"unsigned long long": 8,
			"float":              4,
			"double":             8,
			"size_t":             8,
		},
	}
}

// TypeSize returns the size of a captured value of the given type.
// Pointer types take the target pointer size; unknown named types are
// treated as pointer-sized handles.
func (t Target) TypeSize(typ string) int {
	typ = normalizeType(typ)
	if strings.HasSuffix(typ, "*") {
		return t.PointerSize
	}
	if sz, ok := t.Sizes[typ]; ok {
		return sz
	}
	return t.PointerSize
}

// alignOf clamps a field's natural alignment to the target maximum.
func (t Target) alignOf(size int) int {
	a := 1
	for a < size && a < t.MaxAlign {
		a <<= 1
	}
	if a > t.MaxAlign {
		a = t.MaxAlign
	}
	return a
}

// normalizeType collapses whitespace and drops qualifiers that do not
// affect size, so "const  char*" and "char *" agree.
func normalizeType(typ string) string {
	fields := strings.Fields(typ)
	var kept []string
	for _, f := range fields {
		switch f {
		case "const", "volatile", "restrict", "register":
			continue
		}
		kept = append(kept, f)
	}
	s := strings.Join(kept, " ")
	s = strings.ReplaceAll(s, " *", "*")
	return s
}

// LayoutField is one field of a closure environment struct.
type LayoutField struct {
	Type   string
	Name   string
	Offset int
	Size   int
}

// ClosureLayout is the computed environment layout for one closure
// literal: function-pointer slot first, then the captures in
// declaration order. Immutable once built.
type ClosureLayout struct {
	TypeName string
	Fields   []LayoutField
	Size     int // total struct size, padded to struct alignment
	Align    int
}

// fnSlotName is the reserved name of the leading function-pointer slot.
const fnSlotName = "fn"

// BuildLayout computes the environment layout for a closure with the
// given signature. The function-pointer slot's signature is
// (environment_handle, params...) -> returnType; its field ordering is
// load-bearing and must stay first.
func BuildLayout(t Target, typeName string, captures []Param) *ClosureLayout {
	layout := &ClosureLayout{
		TypeName: typeName,
		Align:    t.alignOf(t.PointerSize),
	}

	offset := 0
	add := func(typ, name string, size int) {
		align := t.alignOf(size)
		offset = roundUp(offset, align)
		layout.Fields = append(layout.Fields, LayoutField{
			Type:   typ,
			Name:   name,
			Offset: offset,
			Size:   size,
		})
		offset += size
		if align > layout.Align {
			layout.Align = align
		}
	}

	add("", fnSlotName, t.PointerSize) // function-pointer slot; type rendered per-backend
	for _, c := range captures {
		add(c.Type, c.Name, t.TypeSize(c.Type))
	}

	layout.Size = roundUp(offset, layout.Align)
	return layout
}

// SizeOf is the pure sizing query: the environment size for a closure
// with the given parameter and capture lists, computable independently
// of any literal instance. Call sites use it to pre-size storage before
// the defining literal has been lifted. Must agree with BuildLayout for
// the same lists; the machine verifies this and reports LayoutMismatch
// on disagreement.
func SizeOf(t Target, params, captures []Param) int {
	_ = params // parameters shape the fn slot's signature, not the size
	offset := t.PointerSize
	structAlign := t.alignOf(t.PointerSize)
	for _, c := range captures {
		size := t.TypeSize(c.Type)
		align := t.alignOf(size)
		offset = roundUp(offset, align) + size
		if align > structAlign {
			structAlign = align
		}
	}
	return roundUp(offset, structAlign)
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
