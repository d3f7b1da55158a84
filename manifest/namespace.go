package manifest

import "strings"

// ToPascalCase converts a string to PascalCase.
// "my-app" -> "MyApp", "events" -> "Events", "myApp" -> "MyApp"
func ToPascalCase(s string) string {
	var words []string
	current := ""
	for i, r := range s {
		if r == '-' || r == '_' {
			if current != "" {
				words = append(words, current)
				current = ""
			}
			continue
		}
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			if prev >= 'a' && prev <= 'z' {
				words = append(words, current)
				current = ""
			}
		}
		current += string(r)
	}
	if current != "" {
		words = append(words, current)
	}

	var result string
	for _, w := range words {
		if w == "" {
			continue
		}
		result += strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return result
}

// reservedRoots lists C keywords and common runtime identifiers that
// cannot serve as a namespace root: every generated definition name
// starts with the root, and a keyword root would make the very first
// emitted identifier invalid.
var reservedRoots = map[string]bool{
	"auto":     true,
	"break":    true,
	"case":     true,
	"char":     true,
	"const":    true,
	"continue": true,
	"default":  true,
	"do":       true,
	"double":   true,
	"else":     true,
	"enum":     true,
	"extern":   true,
	"float":    true,
	"for":      true,
	"goto":     true,
	"if":       true,
	"inline":   true,
	"int":      true,
	"long":     true,
	"register": true,
	"restrict": true,
	"return":   true,
	"short":    true,
	"signed":   true,
	"sizeof":   true,
	"static":   true,
	"struct":   true,
	"switch":   true,
	"typedef":  true,
	"union":    true,
	"unsigned": true,
	"void":     true,
	"volatile": true,
	"while":    true,
	"main":     true,
	"errno":    true,
}

// IsReservedRoot reports whether name cannot be used as a namespace
// root. Besides the reserved-word check, a usable root must be a valid
// identifier: a letter or underscore followed by letters, digits, or
// underscores.
func IsReservedRoot(name string) bool {
	if reservedRoots[name] {
		return true
	}
	if name == "" {
		return true
	}
	for i, r := range name {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}
