// Package gogen generates a Go metadata package describing the output
// of a transform: every lifted definition plus the byte layout of each
// closure environment, for host tooling that marshals values across
// the C boundary.
package gogen

import (
	"bytes"
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/chazu/hoist/lift"
	"github.com/chazu/hoist/lift/hash"
)

// GenerateOptions controls metadata generation.
type GenerateOptions struct {
	// SkipValidation disables type-checking of the generated source.
	SkipValidation bool
}

// Generate renders the metadata package for a completed transform.
// The output is self-contained Go source with no imports; unless
// disabled, it is parsed and type-checked before being returned.
func Generate(pkgName string, res *lift.Result, opts GenerateOptions) (string, error) {
	defs, _ := lift.Emit(res)
	root := GoName(res.Root)

	f := jen.NewFile(PackageName(pkgName))
	f.HeaderComment("Code generated by hoist. DO NOT EDIT.")

	f.Comment("EnvField is one field of a closure environment struct.")
	f.Type().Id("EnvField").Struct(
		jen.Id("Type").String(),
		jen.Id("Name").String(),
		jen.Id("Offset").Int(),
		jen.Id("Size").Int(),
	)

	f.Comment("EnvLayout is the byte layout of one closure environment.")
	f.Type().Id("EnvLayout").Struct(
		jen.Id("TypeName").String(),
		jen.Id("Size").Int(),
		jen.Id("Align").Int(),
		jen.Id("Fields").Index().Id("EnvField"),
	)

	f.Comment("Definition describes one lifted function.")
	f.Type().Id("Definition").Struct(
		jen.Id("Name").String(),
		jen.Id("ReturnType").String(),
		jen.Id("Variadic").Bool(),
		jen.Id("Closure").Bool(),
	)

	sum := hash.Sum(res)
	f.Commentf("%sHash is the content hash of the transform this file describes.", root)
	f.Const().Id(root + "Hash").Op("=").Lit(fmt.Sprintf("%x", sum))

	defValues := make([]jen.Code, 0, len(defs))
	for i := range defs {
		defValues = append(defValues, definitionValue(&defs[i]))
	}
	f.Commentf("%sDefinitions lists every lifted definition in emission order.", root)
	f.Var().Id(root + "Definitions").Op("=").Index().Id("Definition").Values(defValues...)

	for i := range defs {
		d := &defs[i]
		if !d.IsClosure() {
			continue
		}
		name := GoName(d.Layout.TypeName)
		f.Commentf("%s is the environment layout of %s.", name, d.Name)
		f.Var().Id(name).Op("=").Id("EnvLayout").Values(jen.Dict{
			jen.Id("TypeName"): jen.Lit(d.Layout.TypeName),
			jen.Id("Size"):     jen.Lit(d.Layout.Size),
			jen.Id("Align"):    jen.Lit(d.Layout.Align),
			jen.Id("Fields"):   fieldValues(d.Layout.Fields),
		})
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", fmt.Errorf("gogen: render: %w", err)
	}
	source := buf.String()

	if !opts.SkipValidation {
		v := NewValidator(PackageName(pkgName) + ".go")
		if errs := v.Validate(source); len(errs) > 0 {
			return "", fmt.Errorf("gogen: generated source invalid:\n%s", FormatValidationErrors(errs))
		}
	}
	return source, nil
}

func definitionValue(d *lift.HoistedDef) jen.Code {
	dict := jen.Dict{
		jen.Id("Name"):       jen.Lit(d.Name),
		jen.Id("ReturnType"): jen.Lit(d.ReturnType),
	}
	if d.Variadic {
		dict[jen.Id("Variadic")] = jen.True()
	}
	if d.IsClosure() {
		dict[jen.Id("Closure")] = jen.True()
	}
	return jen.Values(dict)
}

func fieldValues(fields []lift.LayoutField) jen.Code {
	values := make([]jen.Code, 0, len(fields))
	for _, fl := range fields {
		dict := jen.Dict{
			jen.Id("Name"):   jen.Lit(fl.Name),
			jen.Id("Offset"): jen.Lit(fl.Offset),
			jen.Id("Size"):   jen.Lit(fl.Size),
		}
		if fl.Type != "" {
			dict[jen.Id("Type")] = jen.Lit(fl.Type)
		}
		values = append(values, jen.Values(dict))
	}
	return jen.Index().Id("EnvField").Values(values...)
}
