// Package artifact defines the on-disk interchange format for
// completed transforms. An artifact carries the full emission of one
// scope (every hoisted definition plus the rewritten body) together
// with its content hash, encoded as canonical CBOR so equal results
// produce equal bytes.
package artifact

import (
	"fmt"

	"github.com/chazu/hoist/lift"
	"github.com/chazu/hoist/lift/hash"
)

// Field is a typed name, serialized form of a parameter or capture.
type Field struct {
	Type string `cbor:"1,keyasint"`
	Name string `cbor:"2,keyasint"`
}

// Definition is the serialized form of one hoisted definition.
type Definition struct {
	Name       string   `cbor:"1,keyasint"`
	ReturnType string   `cbor:"2,keyasint"`
	Params     []Field  `cbor:"3,keyasint,omitempty"`
	Variadic   bool     `cbor:"4,keyasint,omitempty"`
	Closure    bool     `cbor:"5,keyasint,omitempty"`
	Captures   []Field  `cbor:"6,keyasint,omitempty"`
	EnvSize    int      `cbor:"7,keyasint,omitempty"` // environment struct size in bytes
	Body       string   `cbor:"8,keyasint"`
	Path       []string `cbor:"9,keyasint,omitempty"` // lexical chain root..self
}

// Artifact is the complete output of transforming one scope.
// Definitions appear in emission order: every definition precedes any
// definition whose body references it.
type Artifact struct {
	Hash        [32]byte     `cbor:"1,keyasint"`
	Root        string       `cbor:"2,keyasint"`
	Definitions []Definition `cbor:"3,keyasint,omitempty"`
	Body        string       `cbor:"4,keyasint"`
	Steps       int          `cbor:"5,keyasint"`
	HashVersion byte         `cbor:"6,keyasint"`
}

// FromResult packages a transform result as an artifact.
func FromResult(res *lift.Result) *Artifact {
	defs, body := lift.Emit(res)
	a := &Artifact{
		Hash:        hash.Sum(res),
		Root:        res.Root,
		Definitions: make([]Definition, len(defs)),
		Body:        body,
		Steps:       res.Steps,
		HashVersion: hash.HashVersion,
	}
	for i := range defs {
		a.Definitions[i] = fromDef(&defs[i])
	}
	return a
}

func fromDef(d *lift.HoistedDef) Definition {
	out := Definition{
		Name:       d.Name,
		ReturnType: d.ReturnType,
		Params:     fromPairs(d.Params),
		Variadic:   d.Variadic,
		Body:       d.Body,
		Path:       d.Path,
	}
	if d.IsClosure() {
		out.Closure = true
		out.Captures = fromPairs(d.Captures)
		out.EnvSize = d.Layout.Size
	}
	return out
}

func fromPairs(pairs []lift.Param) []Field {
	if len(pairs) == 0 {
		return nil
	}
	fields := make([]Field, len(pairs))
	for i, p := range pairs {
		fields[i] = Field{Type: p.Type, Name: p.Name}
	}
	return fields
}

// Verify recomputes the content hash from the stored definitions and
// body and compares it against the declared hash. It detects any
// tampering with the payload after encoding.
func (a *Artifact) Verify() error {
	if a.HashVersion != hash.HashVersion {
		return fmt.Errorf("artifact: hash version %d not supported (want %d)",
			a.HashVersion, hash.HashVersion)
	}
	defs := make([]lift.HoistedDef, len(a.Definitions))
	for i := range a.Definitions {
		defs[i] = toDef(&a.Definitions[i])
	}
	computed := hash.SumDefs(a.Root, defs, a.Body)
	if computed != a.Hash {
		return fmt.Errorf("artifact: hash mismatch for %s: declared %x, computed %x",
			a.Root, a.Hash, computed)
	}
	return nil
}

// toDef reconstructs the hashable shape of a definition. The closure
// layout carries only the stored size; field offsets are not part of
// the wire format.
func toDef(d *Definition) lift.HoistedDef {
	out := lift.HoistedDef{
		Name:       d.Name,
		ReturnType: d.ReturnType,
		Params:     toPairs(d.Params),
		Variadic:   d.Variadic,
		Body:       d.Body,
		Path:       d.Path,
	}
	if d.Closure {
		out.Captures = make([]lift.Param, 0, len(d.Captures))
		for _, f := range d.Captures {
			out.Captures = append(out.Captures, lift.Param{Type: f.Type, Name: f.Name})
		}
		out.Layout = &lift.ClosureLayout{TypeName: lift.EnvTypeName(d.Name), Size: d.EnvSize}
	}
	return out
}

func toPairs(fields []Field) []lift.Param {
	if len(fields) == 0 {
		return nil
	}
	pairs := make([]lift.Param, len(fields))
	for i, f := range fields {
		pairs[i] = lift.Param{Type: f.Type, Name: f.Name}
	}
	return pairs
}
