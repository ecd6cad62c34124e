package recorder

import (
	"fmt"
	"strings"
)

const (
	DefaultName  = "log.csv"
	OverflowName = "log_overflow.csv"
	Extension    = ".csv"

	maxSuffix = 999
)

// Sanitize maps a requested file name to a safe one: spaces become
// underscores, characters outside [A-Za-z0-9._-] are dropped, leading path
// separators are stripped, and the .csv extension is enforced.
func Sanitize(input string) string {
	var b strings.Builder
	b.Grow(len(input) + len(Extension))

	for _, c := range input {
		switch {
		case c == ' ':
			b.WriteByte('_')
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			b.WriteRune(c)
		}
	}

	name := strings.TrimLeft(b.String(), "/\\")
	if name == "" {
		return DefaultName
	}
	if !strings.HasSuffix(name, Extension) {
		name += Extension
	}

	return name
}

// PickUnique returns name if it does not exist, otherwise the first free
// stem_NNN.ext for NNN in 001..999. When every suffix is taken it returns
// OverflowName, which may itself exist.
func PickUnique(exists func(string) bool, name string) string {
	if !exists(name) {
		return name
	}

	stem, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		stem, ext = name[:i], name[i:]
	}

	for i := 1; i <= maxSuffix; i++ {
		candidate := fmt.Sprintf("%s_%03d%s", stem, i, ext)
		if !exists(candidate) {
			return candidate
		}
	}

	return OverflowName
}
