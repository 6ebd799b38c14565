// Package descriptor parses JVM method descriptors and decides whether two
// descriptors denote the same parameter and return type sequence.
package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// MaxArrayDims is the deepest array nesting a descriptor may carry.
const MaxArrayDims = 255

// ErrMalformed is returned (wrapped in a *MalformedError) for strings that do
// not parse as a method descriptor.
var ErrMalformed = errors.New("malformed descriptor")

// MalformedError describes where a descriptor failed to parse.
type MalformedError struct {
	Descriptor string
	Offset     int
	Reason     string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed descriptor %q at offset %d: %s", e.Descriptor, e.Offset, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformed.
func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}

func malformed(desc string, off int, format string, args ...any) error {
	return &MalformedError{Descriptor: desc, Offset: off, Reason: fmt.Sprintf(format, args...)}
}

// Base type characters.
const (
	Byte    byte = 'B'
	Char    byte = 'C'
	Double  byte = 'D'
	Float   byte = 'F'
	Int     byte = 'I'
	Long    byte = 'J'
	Short   byte = 'S'
	Boolean byte = 'Z'
	Void    byte = 'V'
	Object  byte = 'L'
)

// Type is a single parameter or return type token.
type Type struct {
	Dims int    // array dimensions
	Kind byte   // base type character, Object for class types
	Name string // class name as written, only for Object
}

// IsVoid reports whether t is the void return type.
func (t Type) IsVoid() bool {
	return t.Kind == Void
}

// String renders t in JVM form.
func (t Type) String() string {
	var b strings.Builder
	t.write(&b, t.Name)
	return b.String()
}

// Key renders t with class name separators normalized to '/'.
func (t Type) Key() string {
	var b strings.Builder
	t.write(&b, normalizeName(t.Name))
	return b.String()
}

func (t Type) write(b *strings.Builder, name string) {
	for i := 0; i < t.Dims; i++ {
		b.WriteByte('[')
	}
	b.WriteByte(t.Kind)
	if t.Kind == Object {
		b.WriteString(name)
		b.WriteByte(';')
	}
}

// normalizeName folds the separators used between package, class and nested
// class segments so that java.util.Map.Entry, java/util/Map$Entry and
// java.util.Map$Entry compare equal.
func normalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '$':
			return '/'
		}
		return r
	}, name)
}

// Descriptor is a parsed method descriptor.
type Descriptor struct {
	Params []Type
	Return Type
}

// String renders d in JVM form.
func (d Descriptor) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range d.Params {
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	b.WriteString(d.Return.String())
	return b.String()
}

// Key is the canonical form used for equivalence. Two descriptors are
// equivalent exactly when their keys are equal.
func (d Descriptor) Key() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range d.Params {
		b.WriteString(p.Key())
	}
	b.WriteByte(')')
	b.WriteString(d.Return.Key())
	return b.String()
}

// Equivalent reports whether d and o denote the same signature.
func (d Descriptor) Equivalent(o Descriptor) bool {
	if len(d.Params) != len(o.Params) {
		return false
	}
	for i := range d.Params {
		if d.Params[i].Key() != o.Params[i].Key() {
			return false
		}
	}
	return d.Return.Key() == o.Return.Key()
}

// Parse parses a descriptor in JVM form, e.g. "(I[Ljava/lang/String;)V".
func Parse(s string) (Descriptor, error) {
	var d Descriptor
	if s == "" {
		return d, malformed(s, 0, "empty descriptor")
	}
	if s[0] != '(' {
		return d, malformed(s, 0, "expected '('")
	}
	pos := 1
	for {
		if pos >= len(s) {
			return d, malformed(s, pos, "missing ')'")
		}
		if s[pos] == ')' {
			pos++
			break
		}
		t, next, err := parseField(s, pos, false)
		if err != nil {
			return d, err
		}
		d.Params = append(d.Params, t)
		pos = next
	}
	ret, next, err := parseField(s, pos, true)
	if err != nil {
		return d, err
	}
	if next != len(s) {
		return d, malformed(s, next, "trailing characters %q", s[next:])
	}
	d.Return = ret
	return d, nil
}

func parseField(s string, pos int, allowVoid bool) (Type, int, error) {
	var t Type
	start := pos
	for pos < len(s) && s[pos] == '[' {
		t.Dims++
		pos++
	}
	if t.Dims > MaxArrayDims {
		return t, pos, malformed(s, start, "more than %d array dimensions", MaxArrayDims)
	}
	if pos >= len(s) {
		return t, pos, malformed(s, pos, "unexpected end of descriptor")
	}
	c := s[pos]
	switch c {
	case Byte, Char, Double, Float, Int, Long, Short, Boolean:
		t.Kind = c
		return t, pos + 1, nil
	case Void:
		if !allowVoid || t.Dims > 0 {
			return t, pos, malformed(s, pos, "void is only valid as a return type")
		}
		t.Kind = c
		return t, pos + 1, nil
	case Object:
		end := strings.IndexByte(s[pos:], ';')
		if end < 0 {
			return t, pos, malformed(s, pos, "unterminated class name")
		}
		name := s[pos+1 : pos+end]
		if name == "" {
			return t, pos, malformed(s, pos, "empty class name")
		}
		if strings.ContainsAny(name, "[()<>") {
			return t, pos, malformed(s, pos+1, "invalid class name %q", name)
		}
		t.Kind = Object
		t.Name = name
		return t, pos + end + 1, nil
	default:
		return t, pos, malformed(s, pos, "unexpected character %q", c)
	}
}

// Resolve parses s in JVM form, falling back to Java source form. The
// fallback only applies when the return type is separated from ')' by
// whitespace or is a primitive keyword, so a broken JVM descriptor such as
// "(Lfoo)V" is reported as malformed instead of being read as source.
func Resolve(s string) (Descriptor, error) {
	d, err := Parse(s)
	if err == nil {
		return d, nil
	}
	if !looksLikeSource(s) {
		return d, err
	}
	if sd, serr := ParseSource(s); serr == nil {
		return sd, nil
	}
	return d, err
}

// Equal reports whether two descriptor strings are equivalent. Each side may
// be in JVM or source form. An empty string is malformed, never a wildcard.
func Equal(a, b string) (bool, error) {
	da, err := Resolve(a)
	if err != nil {
		return false, err
	}
	db, err := Resolve(b)
	if err != nil {
		return false, err
	}
	return da.Equivalent(db), nil
}

// Internalize converts a descriptor in either form to JVM form.
func Internalize(s string) (string, error) {
	d, err := Resolve(s)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}
