package lift

import "strings"

// ---------------------------------------------------------------------------
// Emitter: consumes the machine's output and produces the ordered
// sequence of hoisted global definitions plus the rewritten scope body.
// Purely a formatting/ordering pass; no side effects.
// ---------------------------------------------------------------------------

// envHandleName is the parameter name of the environment handle passed
// as a lifted closure's first argument.
const envHandleName = "_env"

// Emit reverses the EmissionBuffer once into final textual order: every
// definition appears strictly before any definition it is nested inside,
// and the rewritten root body belongs after all of them.
func Emit(res *Result) ([]HoistedDef, string) {
	defs := make([]HoistedDef, len(res.Buffer))
	for i, d := range res.Buffer {
		defs[len(defs)-1-i] = d
	}
	return defs, res.RootBody
}

// RenderC renders the full transformed scope as one C-flavored
// translation unit: hoisted struct and function definitions in emission
// order, then the rewritten scope body.
func RenderC(res *Result) string {
	defs, body := Emit(res)
	var b strings.Builder
	for _, d := range defs {
		if d.IsClosure() {
			renderEnvStruct(&b, &d)
		}
		renderFunction(&b, &d)
	}
	b.WriteString("/* scope ")
	b.WriteString(res.Root)
	b.WriteString(" */\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	return b.String()
}

// renderEnvStruct renders a closure's environment struct. The
// function-pointer slot is the first field: a pointer to the struct may
// be reinterpreted as a pointer to that slot for uniform call syntax.
func renderEnvStruct(b *strings.Builder, d *HoistedDef) {
	env := d.Layout.TypeName
	b.WriteString("typedef struct ")
	b.WriteString(env)
	b.WriteString(" ")
	b.WriteString(env)
	b.WriteString(";\n")
	b.WriteString("struct ")
	b.WriteString(env)
	b.WriteString(" {\n    ")
	b.WriteString(d.ReturnType)
	b.WriteString(" (*")
	b.WriteString(fnSlotName)
	b.WriteString(")(")
	b.WriteString(env)
	b.WriteString(" *")
	renderParamTail(b, d.Params, d.Variadic)
	b.WriteString(");\n")
	for _, c := range d.Captures {
		b.WriteString("    ")
		renderDecl(b, c.Type, c.Name)
		b.WriteString(";\n")
	}
	b.WriteString("};\n\n")
}

// renderFunction renders a hoisted function definition. Lifted closures
// take the environment handle as their first parameter.
func renderFunction(b *strings.Builder, d *HoistedDef) {
	b.WriteString("static ")
	b.WriteString(d.ReturnType)
	b.WriteString(" ")
	b.WriteString(d.Name)
	b.WriteString("(")
	if d.IsClosure() {
		b.WriteString(d.Layout.TypeName)
		b.WriteString(" *")
		b.WriteString(envHandleName)
		renderParamTail(b, d.Params, d.Variadic)
	} else if len(d.Params) == 0 && !d.Variadic {
		b.WriteString("void")
	} else {
		for i, p := range d.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			renderDecl(b, p.Type, p.Name)
		}
		if d.Variadic {
			b.WriteString(", ...")
		}
	}
	b.WriteString(") {")
	b.WriteString(d.Body)
	b.WriteString("}\n\n")
}

// renderParamTail renders ", type name" for each parameter, continuing
// a list that already has a first entry.
func renderParamTail(b *strings.Builder, params []Param, variadic bool) {
	for _, p := range params {
		b.WriteString(", ")
		renderDecl(b, p.Type, p.Name)
	}
	if variadic {
		b.WriteString(", ...")
	}
}

// renderDecl renders a C declarator, keeping pointer stars attached to
// the name the way the type was written.
func renderDecl(b *strings.Builder, typ, name string) {
	b.WriteString(typ)
	if !strings.HasSuffix(typ, "*") {
		b.WriteString(" ")
	}
	b.WriteString(name)
}
