package marketplace

import (
	"strings"

	"veilslot/services/ledger"
)

// TypeTag is a parsed Move struct type: package::module::name<args>.
type TypeTag struct {
	Package  string
	Module   string
	Name     string
	TypeArgs []string
}

// ParseType splits a Move type string. A missing package (module::name) is
// allowed and leaves Package empty.
func ParseType(s string) (TypeTag, bool) {
	s = strings.TrimSpace(s)
	var args []string
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if !strings.HasSuffix(s, ">") {
			return TypeTag{}, false
		}
		args = splitTypeArgs(s[i+1 : len(s)-1])
		s = s[:i]
	}
	parts := strings.Split(s, "::")
	var tag TypeTag
	switch len(parts) {
	case 2:
		tag = TypeTag{Module: parts[0], Name: parts[1]}
	case 3:
		tag = TypeTag{Package: ledger.NormalizeAddress(parts[0]), Module: parts[1], Name: parts[2]}
	default:
		return TypeTag{}, false
	}
	if tag.Module == "" || tag.Name == "" {
		return TypeTag{}, false
	}
	tag.TypeArgs = args
	return tag, true
}

func (t TypeTag) String() string {
	var b strings.Builder
	if t.Package != "" {
		b.WriteString(t.Package)
		b.WriteString("::")
	}
	b.WriteString(t.Module)
	b.WriteString("::")
	b.WriteString(t.Name)
	if len(t.TypeArgs) > 0 {
		b.WriteByte('<')
		b.WriteString(strings.Join(t.TypeArgs, ", "))
		b.WriteByte('>')
	}
	return b.String()
}

// MatchType reports whether actual satisfies expected. module::name must be
// equal; the package must be equal when expected names one; type arguments
// must match pairwise when expected lists them.
func MatchType(actual, expected string) bool {
	a, ok := ParseType(actual)
	if !ok {
		return false
	}
	e, ok := ParseType(expected)
	if !ok {
		return false
	}
	if a.Module != e.Module || a.Name != e.Name {
		return false
	}
	if e.Package != "" && a.Package != e.Package {
		return false
	}
	if len(e.TypeArgs) == 0 {
		return true
	}
	if len(a.TypeArgs) != len(e.TypeArgs) {
		return false
	}
	for i := range e.TypeArgs {
		if !MatchType(a.TypeArgs[i], e.TypeArgs[i]) {
			return false
		}
	}
	return true
}

// CanonicalType renders s with padded package addresses, for use as a type
// argument in transactions.
func CanonicalType(s string) string {
	t, ok := ParseType(s)
	if !ok {
		return s
	}
	for i, arg := range t.TypeArgs {
		t.TypeArgs[i] = CanonicalType(arg)
	}
	return t.String()
}

func splitTypeArgs(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
