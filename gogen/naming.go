package gogen

import (
	"strings"
	"unicode"
)

// GoName converts a generated C identifier to an exported Go
// identifier. e.g., "Evt_fn1" → "EvtFn1", "Evt_fn1_env" → "EvtFn1Env"
func GoName(cname string) string {
	return toPascal(cname)
}

// PackageName sanitizes a name into a usable Go package name:
// lowercase letters and digits, never starting with a digit.
// e.g., "Evt-Meta" → "evtmeta", "9lives" → "p9lives"
func PackageName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		}
	}
	s := b.String()
	if s == "" {
		return "hoistmeta"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "p" + s
	}
	return s
}

// toPascal converts a string to PascalCase.
// Handles hyphenated and underscore-separated names.
func toPascal(s string) string {
	if len(s) == 0 {
		return s
	}

	var b strings.Builder
	nextUpper := true
	for _, r := range s {
		if r == '-' || r == '_' {
			nextUpper = true
			continue
		}
		if nextUpper {
			b.WriteRune(unicode.ToUpper(r))
			nextUpper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
