package lift

import "testing"

func TestBuildLayoutTwoIntCaptures(t *testing.T) {
	// A closure capturing (int x, int y) with no parameters. Layout is
	// {fn slot, int, int}: 8 + 4 + 4 = 16 on the default LP64 target.
	target := DefaultTarget()
	captures := []Param{{Type: "int", Name: "x"}, {Type: "int", Name: "y"}}

	layout := BuildLayout(target, "Demo_fn1_env", captures)
	if layout.Size != 16 {
		t.Errorf("size = %d, want 16", layout.Size)
	}
	if len(layout.Fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(layout.Fields))
	}
	if layout.Fields[0].Name != fnSlotName || layout.Fields[0].Offset != 0 {
		t.Errorf("first field = %+v, want fn slot at offset 0", layout.Fields[0])
	}
	if layout.Fields[1].Offset != 8 || layout.Fields[2].Offset != 12 {
		t.Errorf("capture offsets = %d, %d, want 8, 12", layout.Fields[1].Offset, layout.Fields[2].Offset)
	}
}

func TestBuildLayoutPadding(t *testing.T) {
	// char then double forces 7 bytes of padding and 8-byte struct
	// alignment: fn(8) + char(1) + pad(7) + double(8) = 24.
	target := DefaultTarget()
	captures := []Param{{Type: "char", Name: "c"}, {Type: "double", Name: "d"}}

	layout := BuildLayout(target, "E", captures)
	if layout.Size != 24 {
		t.Errorf("size = %d, want 24", layout.Size)
	}
	if layout.Fields[2].Offset != 16 {
		t.Errorf("double offset = %d, want 16", layout.Fields[2].Offset)
	}
	if layout.Align != 8 {
		t.Errorf("align = %d, want 8", layout.Align)
	}
}

func TestBuildLayoutTrailingPadding(t *testing.T) {
	// fn(8) + long(8) + char(1) rounds up to struct alignment: 24.
	target := DefaultTarget()
	captures := []Param{{Type: "long", Name: "l"}, {Type: "char", Name: "c"}}

	layout := BuildLayout(target, "E", captures)
	if layout.Size != 24 {
		t.Errorf("size = %d, want 24", layout.Size)
	}
}

func TestSizeOfAgreesWithBuildLayout(t *testing.T) {
	// Layout agreement: the pure sizing query must equal the size of
	// the layout actually built, for any signature.
	target := DefaultTarget()
	tests := []struct {
		name     string
		params   []Param
		captures []Param
	}{
		{"no_captures", nil, nil},
		{"two_ints", nil, []Param{{"int", "x"}, {"int", "y"}}},
		{"mixed_align", []Param{{"int", "a"}}, []Param{{"char", "c"}, {"double", "d"}, {"short", "s"}}},
		{"pointers", nil, []Param{{"char *", "p"}, {"void *", "q"}}},
		{"unknown_type", nil, []Param{{"widget_t", "w"}}},
		{"qualified", nil, []Param{{"const unsigned long", "n"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			layout := BuildLayout(target, "E", tc.captures)
			if got := SizeOf(target, tc.params, tc.captures); got != layout.Size {
				t.Errorf("SizeOf = %d, layout size = %d", got, layout.Size)
			}
		})
	}
}

func TestSizeOfIndependentOfInstance(t *testing.T) {
	// The sizing query is a pure function of the two lists: callable
	// before any literal with this signature exists, and stable.
	target := DefaultTarget()
	captures := []Param{{"int", "x"}, {"int", "y"}}
	a := SizeOf(target, nil, captures)
	b := SizeOf(target, nil, captures)
	if a != b {
		t.Errorf("SizeOf not stable: %d vs %d", a, b)
	}
}

func TestTypeSize(t *testing.T) {
	target := DefaultTarget()
	tests := []struct {
		typ  string
		want int
	}{
		{"int", 4},
		{"char", 1},
		{"double", 8},
		{"char *", 8},
		{"const char *", 8},
		{"struct widget *", 8},
		{"unsigned long", 8},
		{"widget_t", 8}, // unknown named type: pointer-sized handle
	}

	for _, tc := range tests {
		if got := target.TypeSize(tc.typ); got != tc.want {
			t.Errorf("TypeSize(%q) = %d, want %d", tc.typ, got, tc.want)
		}
	}
}

func TestTargetSmallerPointer(t *testing.T) {
	// ILP32-style target.
	target := Target{
		PointerSize: 4,
		MaxAlign:    4,
		Sizes:       map[string]int{"int": 4, "char": 1, "double": 8},
	}
	captures := []Param{{"double", "d"}}
	layout := BuildLayout(target, "E", captures)
	// fn(4) + double(8, clamped to 4-byte alignment) = 12.
	if layout.Size != 12 {
		t.Errorf("size = %d, want 12", layout.Size)
	}
	if got := SizeOf(target, nil, captures); got != layout.Size {
		t.Errorf("SizeOf = %d, layout = %d", got, layout.Size)
	}
}
