package descriptor

import (
	"strings"
	"unicode"
)

var primitives = map[string]byte{
	"byte":    Byte,
	"char":    Char,
	"double":  Double,
	"float":   Float,
	"int":     Int,
	"long":    Long,
	"short":   Short,
	"boolean": Boolean,
	"void":    Void,
}

// ParseSource parses a Java source style signature such as
// "(int, java.lang.String[]) void". Class names are converted to internal
// form; a trailing "..." counts as one array dimension.
func ParseSource(s string) (Descriptor, error) {
	var d Descriptor
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "(") {
		return d, malformed(s, 0, "expected '('")
	}
	closeIdx := strings.IndexByte(trimmed, ')')
	if closeIdx < 0 {
		return d, malformed(s, len(s), "missing ')'")
	}

	params := strings.TrimSpace(trimmed[1:closeIdx])
	if params != "" {
		for _, p := range strings.Split(params, ",") {
			t, err := parseSourceType(s, strings.TrimSpace(p), false)
			if err != nil {
				return d, err
			}
			d.Params = append(d.Params, t)
		}
	}

	ret := strings.TrimSpace(trimmed[closeIdx+1:])
	if ret == "" {
		return d, malformed(s, len(s), "missing return type")
	}
	t, err := parseSourceType(s, ret, true)
	if err != nil {
		return d, err
	}
	d.Return = t
	return d, nil
}

func looksLikeSource(s string) bool {
	idx := strings.LastIndexByte(s, ')')
	if idx < 0 || idx == len(s)-1 {
		return false
	}
	rest := s[idx+1:]
	if unicode.IsSpace(rune(rest[0])) {
		return true
	}
	ret := strings.TrimSpace(rest)
	for strings.HasSuffix(ret, "[]") {
		ret = strings.TrimSpace(strings.TrimSuffix(ret, "[]"))
	}
	_, ok := primitives[ret]
	return ok
}

// jvmBaseTypes are the single-letter descriptor codes, including void.
const jvmBaseTypes = "BCDFIJSZV"

func parseSourceType(full, tok string, allowVoid bool) (Type, error) {
	var t Type
	off := strings.Index(full, tok)
	if tok == "" {
		return t, malformed(full, off, "empty type")
	}
	if strings.HasSuffix(tok, "...") {
		t.Dims++
		tok = strings.TrimSpace(strings.TrimSuffix(tok, "..."))
	}
	for strings.HasSuffix(tok, "[]") {
		t.Dims++
		tok = strings.TrimSpace(strings.TrimSuffix(tok, "[]"))
	}
	if t.Dims > MaxArrayDims {
		return t, malformed(full, off, "more than %d array dimensions", MaxArrayDims)
	}
	if kind, ok := primitives[tok]; ok {
		if kind == Void && (!allowVoid || t.Dims > 0) {
			return t, malformed(full, off, "void is only valid as a return type")
		}
		t.Kind = kind
		return t, nil
	}
	// A lone base-type letter is a JVM descriptor fragment, not a class.
	if len(tok) == 1 && strings.ContainsRune(jvmBaseTypes, rune(tok[0])) {
		return t, malformed(full, off, "JVM base type %q in source-form descriptor", tok)
	}
	if !validSourceName(tok) {
		return t, malformed(full, off, "invalid type name %q", tok)
	}
	t.Kind = Object
	t.Name = strings.ReplaceAll(tok, ".", "/")
	return t, nil
}

func validSourceName(name string) bool {
	if name == "" {
		return false
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return false
		}
		for i, r := range seg {
			switch {
			case r == '_' || r == '$':
			case unicode.IsLetter(r):
			case i > 0 && unicode.IsDigit(r):
			default:
				return false
			}
		}
	}
	return true
}
