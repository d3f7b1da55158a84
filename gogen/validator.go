package gogen

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
)

// ValidationError is one parse or type-check error with position info.
type ValidationError struct {
	Line    int
	Column  int
	Message string
}

// Validator checks generated Go source in memory, without writing it
// to disk or invoking the toolchain.
type Validator struct {
	fset     *token.FileSet
	filename string
}

// NewValidator creates a validator; filename appears in error messages.
func NewValidator(filename string) *Validator {
	return &Validator{filename: filename}
}

// Validate parses and type-checks Go source, returning any errors.
func (v *Validator) Validate(source string) []ValidationError {
	v.fset = token.NewFileSet()

	file, err := parser.ParseFile(v.fset, v.filename, source, parser.AllErrors)
	if err != nil {
		return []ValidationError{{Line: 1, Column: 1, Message: err.Error()}}
	}

	var errs []ValidationError
	conf := types.Config{
		Importer: importer.Default(),
		Error: func(err error) {
			if typeErr, ok := err.(types.Error); ok {
				pos := v.fset.Position(typeErr.Pos)
				errs = append(errs, ValidationError{
					Line:    pos.Line,
					Column:  pos.Column,
					Message: typeErr.Msg,
				})
			}
		},
	}
	info := &types.Info{
		Defs: make(map[*ast.Ident]types.Object),
		Uses: make(map[*ast.Ident]types.Object),
	}
	_, _ = conf.Check(file.Name.Name, v.fset, []*ast.File{file}, info)

	return errs
}

// FormatValidationErrors returns a human-readable error report.
func FormatValidationErrors(errs []ValidationError) string {
	var sb strings.Builder
	for _, e := range errs {
		sb.WriteString("  ")
		sb.WriteString(strings.TrimSpace(e.Message))
		sb.WriteString("\n")
	}
	return sb.String()
}
