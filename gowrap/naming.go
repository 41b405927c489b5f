package gowrap

import (
	"strings"
	"unicode"
)

// ScriptName converts an exported Go name to the camelCase name scripts
// use. A leading initialism is lowered as a whole.
// e.g. "RawQuery" → "rawQuery", "URL" → "url", "URLPath" → "urlPath",
// "IsAbs" → "isAbs"
func ScriptName(name string) string {
	runes := []rune(name)
	if len(runes) == 0 {
		return name
	}
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return name
	case n == 1 || n == len(runes):
		// "Path" or "URL"
	default:
		// "URLPath": keep the P of Path.
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// WrapperPackage returns the package name generated code for importPath
// uses, e.g. "net/url" → "wrap_url", "golang.org/x/mod/semver" → "wrap_semver".
func WrapperPackage(importPath string) string {
	last := importPath[strings.LastIndex(importPath, "/")+1:]
	var b strings.Builder
	b.WriteString("wrap_")
	for _, r := range last {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
